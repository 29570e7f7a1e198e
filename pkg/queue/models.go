package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the kind of job in the queue.
type RequestType string

const (
	// RequestTypeTurn resolves one player turn against a stored session.
	RequestTypeTurn RequestType = "turn"
)

// Request is a queued turn job.
type Request struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	SessionID   uuid.UUID   `json:"session_id"`
	PlayerInput string      `json:"player_input"`
	Attempts    int         `json:"attempts,omitempty"`
	EnqueuedAt  time.Time   `json:"enqueued_at"`
}

// NewTurnRequest creates a turn job with a fresh request ID.
func NewTurnRequest(sessionID uuid.UUID, playerInput string) *Request {
	return &Request{
		RequestID:   uuid.New().String(),
		Type:        RequestTypeTurn,
		SessionID:   sessionID,
		PlayerInput: playerInput,
		EnqueuedAt:  time.Now().UTC(),
	}
}

// ToJSON converts the request to JSON bytes for Redis.
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes.
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.SessionID == uuid.Nil {
		return nil, fmt.Errorf("request %q has no session id", req.RequestID)
	}
	return &req, nil
}
