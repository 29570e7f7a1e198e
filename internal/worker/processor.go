package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

// TurnResolver resolves one turn from explicit inputs.
type TurnResolver interface {
	Resolve(ctx context.Context, state, memory turn.Container, log turn.Log, playerInput string) resolver.Outcome
}

// SessionTurn is what a session turn returns to the player.
type SessionTurn struct {
	SessionID uuid.UUID          `json:"session_id"`
	Turn      int                `json:"turn"`
	Result    turn.TurnResult    `json:"result"`
	State     turn.Container     `json:"state"`
	Memory    turn.Container     `json:"memory"`
	Fallback  bool               `json:"fallback"`
	Reason    turn.FailureReason `json:"reason,omitempty"`
}

// TurnProcessor runs a turn against a stored session. It's used by both
// the HTTP handler (synchronously) and the worker (asynchronously).
type TurnProcessor struct {
	store    sessions.Store
	resolver TurnResolver
	logger   *slog.Logger
}

func NewTurnProcessor(store sessions.Store, r TurnResolver, logger *slog.Logger) *TurnProcessor {
	return &TurnProcessor{
		store:    store,
		resolver: r,
		logger:   logger,
	}
}

// ProcessTurn loads the session, resolves the turn and saves the advanced
// session. The caller must hold the session lock.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, sessionID uuid.UUID, playerInput string) (*SessionTurn, error) {
	s, err := p.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	out := p.resolver.Resolve(ctx, s.State, s.Memory, s.Log, playerInput)
	s.Advance(playerInput, out.Result, out.NextState, out.NextMemory)

	if err := p.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	p.logger.Info("Turn processed",
		"session_id", sessionID.String(),
		"turn", s.Turn,
		"fallback", out.Fallback,
		"reason", out.Reason,
		"actions", len(out.Result.Actions))

	return &SessionTurn{
		SessionID: s.ID,
		Turn:      s.Turn,
		Result:    out.Result,
		State:     s.State,
		Memory:    s.Memory,
		Fallback:  out.Fallback,
		Reason:    out.Reason,
	}, nil
}

// ProcessLocked claims the session for owner, runs the turn and releases
// the claim. It returns sessions.ErrSessionLocked when a turn is already
// in flight for the session.
func (p *TurnProcessor) ProcessLocked(ctx context.Context, sessionID uuid.UUID, playerInput, owner string) (*SessionTurn, error) {
	if err := p.store.Lock(ctx, sessionID, owner); err != nil {
		return nil, err
	}
	defer func() {
		if err := p.store.Unlock(context.WithoutCancel(ctx), sessionID, owner); err != nil {
			p.logger.Error("Failed to release session lock", "session_id", sessionID.String(), "error", err)
		}
	}()

	return p.ProcessTurn(ctx, sessionID, playerInput)
}

// IsRetryable reports whether a failed turn should be tried again later.
func IsRetryable(err error) bool {
	return errors.Is(err, sessions.ErrSessionLocked)
}
