// Package sessions is the caller-side store for game sessions: the state,
// memory and log a client would otherwise carry between turns.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/pkg/turn"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLocked   = errors.New("session has a turn in flight")
)

const (
	DefaultTTL = 24 * time.Hour

	// MaxStoredLog bounds the log kept per session. The oracle sees far less.
	MaxStoredLog = 100

	lockTTL = 60 * time.Second
)

// LogEntry is one exchange appended to the session log after a turn.
type LogEntry struct {
	Player    string `json:"player"`
	Narration string `json:"narration"`
}

// Session is one game in progress.
type Session struct {
	ID         uuid.UUID        `json:"session_id"`
	Turn       int              `json:"turn"`
	State      turn.Container   `json:"state"`
	Memory     turn.Container   `json:"memory"`
	Log        turn.Log         `json:"log"`
	LastResult *turn.TurnResult `json:"last_result,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// New creates a session at turn zero. Nil containers start empty.
func New(state, memory turn.Container) *Session {
	if state == nil {
		state = turn.Container{}
	}
	if memory == nil {
		memory = turn.Container{}
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		State:     state,
		Memory:    memory,
		Log:       turn.Log{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance records a resolved turn: the next containers replace the old
// ones, the exchange is appended to the log, and the turn counter moves.
func (s *Session) Advance(playerInput string, result turn.TurnResult, nextState, nextMemory turn.Container) {
	s.State = nextState
	s.Memory = nextMemory
	s.Log = append(s.Log, LogEntry{Player: playerInput, Narration: result.Narration})
	if len(s.Log) > MaxStoredLog {
		s.Log = s.Log.Recent(MaxStoredLog)
	}
	s.LastResult = &result
	s.Turn++
	s.UpdatedAt = time.Now().UTC()
}

// Store persists sessions and serializes turns per session.
type Store interface {
	Save(ctx context.Context, s *Session) error
	// Load returns ErrSessionNotFound when the session does not exist or expired.
	Load(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Lock claims the session for owner. It returns ErrSessionLocked when
	// another owner holds it.
	Lock(ctx context.Context, id uuid.UUID, owner string) error
	// Unlock releases the claim if owner still holds it.
	Unlock(ctx context.Context, id uuid.UUID, owner string) error
}
