package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"delta-scoreboard/internal/app"
	"delta-scoreboard/internal/domain"
)

// WSHandler streams leaderboard snapshots over a websocket. Each connection is
// an independent reader that re-polls the aggregator on the configured refresh
// interval; there is no cross-connection fan-out.
type WSHandler struct {
	service  *app.ScoreboardService
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ScoreboardService, interval time.Duration) *WSHandler {
	return &WSHandler{
		service:  service,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes a fresh leaderboard immediately,
// then once per interval until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Detect client disconnects; inbound payloads are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.sendSnapshot(r, conn) {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !h.sendSnapshot(r, conn) {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *WSHandler) sendSnapshot(r *http.Request, conn *websocket.Conn) bool {
	rows, err := h.service.Leaderboard(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return true // transient failures keep the feed alive
	}
	if rows == nil {
		rows = []domain.LeaderboardRow{}
	}
	if err := conn.WriteJSON(outboundMessage[[]domain.LeaderboardRow]{Type: "leaderboard", Payload: rows}); err != nil {
		log.Printf("ws write error: %v", err)
		return false
	}
	return true
}
