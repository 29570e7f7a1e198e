package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/internal/handlers"
	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/internal/worker"
	"github.com/jwebster45206/turn-engine/pkg/chat"
)

// Client speaks the session API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends body as JSON and decodes the reply into out when the status matches.
func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d (expected %d): %s", method, path, resp.StatusCode, wantStatus, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) CreateSession(ctx context.Context, req handlers.CreateSessionRequest) (*sessions.Session, error) {
	var s sessions.Session
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, http.StatusCreated, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	var s sessions.Session
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+id.String(), nil, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+id.String(), nil, http.StatusNoContent, nil)
}

// PostTurn resolves a turn synchronously.
func (c *Client) PostTurn(ctx context.Context, id uuid.UUID, playerInput string) (*worker.SessionTurn, error) {
	var st worker.SessionTurn
	path := "/v1/sessions/" + id.String() + "/turns"
	if err := c.do(ctx, http.MethodPost, path, chat.SessionTurnRequest{PlayerInput: playerInput}, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
