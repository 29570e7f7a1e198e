package chat

import (
	"errors"
	"fmt"
)

// MaxPlayerInputLength bounds the free-form player input accepted per turn.
const MaxPlayerInputLength = 4000

// ErrInvalidRequest marks a turn request the caller built incorrectly.
// It is the only turn failure reported back to the client as an error.
var ErrInvalidRequest = errors.New("invalid turn request")

const (
	ChatRoleUser   = "user"      // Player payload
	ChatRoleAgent  = "assistant" // Oracle
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage represents a single message sent to the oracle.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the raw text returned by an oracle provider.
type ChatResponse struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// TurnRequest is the inbound body of a turn: the player's input plus
// the caller-owned containers. Missing fields decode to their zero value
// and are treated as empty.
type TurnRequest struct {
	PlayerInput string         `json:"playerInput"`
	State       map[string]any `json:"state"`
	Memory      map[string]any `json:"memory"`
	Log         []any          `json:"log"`
}

// Validate checks the request for client-side mistakes.
func (tr *TurnRequest) Validate() error {
	if len(tr.PlayerInput) > MaxPlayerInputLength {
		return fmt.Errorf("%w: playerInput exceeds %d bytes", ErrInvalidRequest, MaxPlayerInputLength)
	}
	return nil
}

// SessionTurnRequest is the inbound body of a turn against a stored session.
type SessionTurnRequest struct {
	PlayerInput string `json:"playerInput"`
}

func (sr *SessionTurnRequest) Validate() error {
	if len(sr.PlayerInput) > MaxPlayerInputLength {
		return fmt.Errorf("%w: playerInput exceeds %d bytes", ErrInvalidRequest, MaxPlayerInputLength)
	}
	return nil
}
