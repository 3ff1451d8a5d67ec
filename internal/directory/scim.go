// Package directory talks to the workspace directory service, an external
// SCIM-style user listing API, to discover who is eligible to participate.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"delta-scoreboard/internal/domain"
)

const (
	scimUsersPath   = "/api/2.0/preview/scim/v2/Users"
	defaultPageSize = 100
)

// Client lists workspace members over the SCIM API using a bearer token.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		pageSize: defaultPageSize,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type scimListResponse struct {
	TotalResults int        `json:"totalResults"`
	StartIndex   int        `json:"startIndex"`
	ItemsPerPage int        `json:"itemsPerPage"`
	Resources    []scimUser `json:"Resources"`
}

type scimUser struct {
	ID          string      `json:"id"`
	UserName    string      `json:"userName"`
	DisplayName string      `json:"displayName"`
	Active      bool        `json:"active"`
	Emails      []scimEmail `json:"emails"`
}

type scimEmail struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

// ListUsers fetches all active workspace members, paginating until the
// directory reports no further results.
func (c *Client) ListUsers(ctx context.Context) ([]domain.EligibleUser, error) {
	var users []domain.EligibleUser

	startIndex := 1 // SCIM indexes are 1-based
	for {
		page, err := c.fetchPage(ctx, startIndex)
		if err != nil {
			return nil, err
		}

		for _, u := range page.Resources {
			if !u.Active {
				continue
			}
			email := primaryEmail(u.Emails)
			if email == "" {
				continue
			}
			name := u.DisplayName
			if name == "" {
				name = u.UserName
			}
			users = append(users, domain.EligibleUser{
				Email:       email,
				DisplayName: name,
				WorkspaceID: u.ID,
			})
		}

		fetched := len(page.Resources)
		if fetched == 0 || startIndex+fetched > page.TotalResults {
			return users, nil
		}
		startIndex += fetched
	}
}

func (c *Client) fetchPage(ctx context.Context, startIndex int) (scimListResponse, error) {
	q := url.Values{}
	q.Set("startIndex", strconv.Itoa(startIndex))
	q.Set("count", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+scimUsersPath+"?"+q.Encode(), nil)
	if err != nil {
		return scimListResponse{}, fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/scim+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return scimListResponse{}, fmt.Errorf("%w: directory: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return scimListResponse{}, fmt.Errorf("%w: directory returned %d", domain.ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return scimListResponse{}, fmt.Errorf("directory: unexpected status %d: %s", resp.StatusCode, body)
	}

	var page scimListResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return scimListResponse{}, fmt.Errorf("directory: decode response: %w", err)
	}
	return page, nil
}

func primaryEmail(emails []scimEmail) string {
	for _, e := range emails {
		if e.Primary {
			return e.Value
		}
	}
	if len(emails) > 0 {
		return emails[0].Value
	}
	return ""
}
