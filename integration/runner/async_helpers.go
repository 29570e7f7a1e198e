package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/internal/handlers"
	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/pkg/chat"
)

var (
	// PollInterval is how often to check the session for the queued turn
	PollInterval = 500 * time.Millisecond
	// TurnTimeout is max time to wait for a queued turn to be applied
	TurnTimeout = 30 * time.Second
)

// PostTurnAsync queues a turn and returns its request_id.
func (c *Client) PostTurnAsync(ctx context.Context, id uuid.UUID, playerInput string) (string, error) {
	var resp handlers.QueuedTurnResponse
	path := "/v1/sessions/" + id.String() + "/turns?async=true"
	if err := c.do(ctx, http.MethodPost, path, chat.SessionTurnRequest{PlayerInput: playerInput}, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

// PollForTurn polls the session until its turn counter passes prevTurn.
func PollForTurn(ctx context.Context, c *Client, id uuid.UUID, prevTurn int) (*sessions.Session, error) {
	timeout := time.After(TurnTimeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for turn %d (waited %v)", prevTurn+1, TurnTimeout)
		case <-ticker.C:
			s, err := c.GetSession(ctx, id)
			if err != nil {
				// keep polling
				continue
			}
			if s.Turn > prevTurn {
				return s, nil
			}
		}
	}
}
