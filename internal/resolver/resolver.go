// Package resolver resolves one turn: it builds the oracle request, makes a
// single bounded call, and turns whatever comes back into a playable
// TurnResult plus the next state and memory.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jwebster45206/turn-engine/internal/services"
	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/prompts"
	"github.com/jwebster45206/turn-engine/pkg/textfilter"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

const DefaultTimeout = 30 * time.Second

// Config is everything the resolver needs to know about its deployment.
// It is built by the caller; the resolver never reads the environment.
type Config struct {
	Timeout           time.Duration
	LogLimit          int
	Prompt            prompts.Settings
	MaxNarrationWidth uint
}

// Outcome is a resolved turn.
type Outcome struct {
	Result     turn.TurnResult
	NextState  turn.Container
	NextMemory turn.Container
	// Fallback is set when the oracle call failed and Result came from turn.Fallback.
	Fallback bool
	Reason   turn.FailureReason
}

// Resolver is safe for concurrent use; it holds no per-turn state.
type Resolver struct {
	llm        services.LLMService
	cfg        Config
	normalizer turn.Normalizer
	logger     *slog.Logger
}

func New(llm services.LLMService, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = prompts.DefaultLogLimit
	}

	normalizer := turn.Normalizer{MaxNarrationWidth: cfg.MaxNarrationWidth}
	rating := cfg.Prompt.Rating
	if rating == "" {
		rating = prompts.DefaultRating
	}
	if f := textfilter.ForRating(rating); f != nil {
		normalizer.Filter = f
	}

	return &Resolver{
		llm:        llm,
		cfg:        cfg,
		normalizer: normalizer,
		logger:     logger,
	}
}

// ResolveTurn validates req and resolves it. The only error it returns
// wraps chat.ErrInvalidRequest; oracle failures become fallback turns.
func (r *Resolver) ResolveTurn(ctx context.Context, req chat.TurnRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	return r.Resolve(ctx, turn.Container(req.State), turn.Container(req.Memory), turn.Log(req.Log), req.PlayerInput), nil
}

// Resolve runs one turn. It never fails: every path ends in a valid
// TurnResult. The input containers are not modified.
func (r *Resolver) Resolve(ctx context.Context, state, memory turn.Container, log turn.Log, playerInput string) Outcome {
	if state == nil {
		state = turn.Container{}
	}
	if memory == nil {
		memory = turn.Container{}
	}

	result, reason, ok := r.consult(ctx, state, memory, log, playerInput)
	if !ok {
		result = turn.Fallback(reason)
	}

	return Outcome{
		Result:     result,
		NextState:  turn.Merge(state, result.StatePatch),
		NextMemory: turn.Merge(memory, result.MemoryPatch),
		Fallback:   !ok,
		Reason:     reason,
	}
}

// consult makes the oracle call. ok is false when there was no text to
// normalize, with reason saying why.
func (r *Resolver) consult(ctx context.Context, state, memory turn.Container, log turn.Log, playerInput string) (turn.TurnResult, turn.FailureReason, bool) {
	messages, err := prompts.New().
		WithSettings(r.cfg.Prompt).
		WithPlayerInput(playerInput).
		WithState(state).
		WithMemory(memory).
		WithLog(log).
		WithLogLimit(r.cfg.LogLimit).
		Build()
	if err != nil {
		r.logger.Error("Failed to build oracle request", "error", err)
		return turn.TurnResult{}, turn.ReasonTransport, false
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.llm.Chat(callCtx, messages)
	if err == nil && resp == nil {
		err = services.ErrEmptyResponse
	}
	if err != nil {
		reason := ClassifyFailure(err)
		r.logger.Warn("Oracle call failed, using fallback turn",
			"reason", reason,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return turn.TurnResult{}, reason, false
	}

	parsed, err := turn.Extract(resp.Message)
	if err != nil {
		r.logger.Warn("Oracle reply had no structured data, using defaults",
			"error", err,
			"response_length", len(resp.Message))
	}

	r.logger.Debug("Oracle call completed",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds())

	return r.normalizer.Normalize(parsed), "", true
}

// ClassifyFailure maps an oracle call error to a FailureReason.
func ClassifyFailure(err error) turn.FailureReason {
	var statusErr *services.StatusError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return turn.ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return turn.ReasonTimeout
	case errors.As(err, &statusErr):
		return turn.ReasonBadStatus
	case errors.Is(err, services.ErrEmptyResponse):
		return turn.ReasonEmptyResponse
	default:
		return turn.ReasonTransport
	}
}
