package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"delta-scoreboard/internal/app"
	"delta-scoreboard/internal/domain"
)

// Handler exposes the four UI-facing operations over plain JSON endpoints.
type Handler struct {
	service *app.ScoreboardService
}

func NewHandler(service *app.ScoreboardService) *Handler {
	return &Handler{service: service}
}

// Register wires the REST routes into the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sync", h.syncUsers)
	mux.HandleFunc("POST /api/responses", h.submitResponse)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/scores/{email}", h.userScore)
}

func (h *Handler) syncUsers(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.SyncUsers(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": count})
}

type submitRequest struct {
	Email      string `json:"email"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (h *Handler) submitResponse(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("email and questionId are required"))
		return
	}

	result, err := h.service.SubmitResponse(r.Context(), req.Email, req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (h *Handler) userScore(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	total, err := h.service.UserScore(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email":      strings.ToLower(strings.TrimSpace(email)),
		"totalScore": total,
	})
}

// writeError maps the error taxonomy onto status codes. Nothing here is fatal
// to the process; every failure is rendered for the UI.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAuth):
		writeJSON(w, http.StatusUnauthorized, errorBody("credentials rejected, re-enter and retry"))
	case errors.Is(err, domain.ErrIneligibleUser):
		writeJSON(w, http.StatusForbidden, errorBody("user is not eligible to participate"))
	case errors.Is(err, domain.ErrUnknownQuestion):
		writeJSON(w, http.StatusNotFound, errorBody("unknown question"))
	case errors.Is(err, domain.ErrQuestionSetNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("question set not configured"))
	case errors.Is(err, domain.ErrNetwork):
		writeJSON(w, http.StatusBadGateway, errorBody("warehouse or directory unreachable"))
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
