package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/pkg/queue"
)

const (
	DefaultPollTimeout = 5 * time.Second

	// MaxRequeues bounds how often a job waits on a busy session before it is dropped.
	MaxRequeues = 100

	requeueBackoff = 100 * time.Millisecond
	errorBackoff   = time.Second
)

// RequestQueue is the job source.
type RequestQueue interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
	BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error)
}

// Publisher announces turn lifecycle events.
type Publisher interface {
	PublishTurnProcessing(ctx context.Context, sessionID uuid.UUID, requestID string, playerInput string) error
	PublishTurnCompleted(ctx context.Context, sessionID uuid.UUID, requestID string, result any) error
	PublishTurnFailed(ctx context.Context, sessionID uuid.UUID, requestID string, errorMsg string) error
}

// Worker processes turn jobs from the queue
type Worker struct {
	id          string
	queue       RequestQueue
	processor   *TurnProcessor
	publisher   Publisher
	log         *slog.Logger
	pollTimeout time.Duration
}

// New creates a new worker instance
func New(q RequestQueue, processor *TurnProcessor, publisher Publisher, log *slog.Logger, workerID string) *Worker {
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       q,
		processor:   processor,
		publisher:   publisher,
		log:         log.With("worker_id", workerID),
		pollTimeout: DefaultPollTimeout,
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Run processes jobs until ctx is cancelled. A job that has started is
// finished even if ctx ends mid-turn.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
		}

		if err := w.processNextRequest(ctx); err != nil {
			w.log.Error("Error processing request", "error", err)
			if !sleep(ctx, errorBackoff) {
				w.log.Info("Worker shutting down")
				return nil
			}
		}
	}
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest(ctx context.Context) error {
	req, err := w.queue.BlockingDequeueRequest(ctx, w.pollTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	log := w.log.With("request_id", req.RequestID, "session_id", req.SessionID.String())
	log.Info("Received request from queue", "type", req.Type, "attempts", req.Attempts)

	if req.Type != queue.RequestTypeTurn {
		return fmt.Errorf("unknown request type: %s", req.Type)
	}

	jobCtx := context.WithoutCancel(ctx)

	if err := w.processor.store.Lock(jobCtx, req.SessionID, w.id); err != nil {
		if !IsRetryable(err) {
			return fmt.Errorf("failed to acquire session lock: %w", err)
		}
		return w.requeue(ctx, req, log)
	}
	defer func() {
		if err := w.processor.store.Unlock(jobCtx, req.SessionID, w.id); err != nil {
			log.Error("Failed to release session lock", "error", err)
		}
	}()

	return w.processRequest(jobCtx, req, log)
}

// requeue puts a job for a busy session at the back of the queue.
func (w *Worker) requeue(ctx context.Context, req *queue.Request, log *slog.Logger) error {
	req.Attempts++
	if req.Attempts > MaxRequeues {
		log.Warn("Session stayed busy, dropping request", "attempts", req.Attempts)
		w.publishFailed(context.WithoutCancel(ctx), req, "session busy", log)
		return nil
	}

	log.Info("Session already locked, re-queueing request")
	if err := w.queue.EnqueueRequest(context.WithoutCancel(ctx), req); err != nil {
		return fmt.Errorf("failed to re-queue request: %w", err)
	}
	sleep(ctx, requeueBackoff)
	return nil
}

func (w *Worker) processRequest(ctx context.Context, req *queue.Request, log *slog.Logger) error {
	start := time.Now()

	if err := w.publisher.PublishTurnProcessing(ctx, req.SessionID, req.RequestID, req.PlayerInput); err != nil {
		log.Error("Failed to publish processing event", "error", err)
	}

	result, err := w.processor.ProcessTurn(ctx, req.SessionID, req.PlayerInput)
	if err != nil {
		w.publishFailed(ctx, req, err.Error(), log)
		if errors.Is(err, sessions.ErrSessionNotFound) {
			log.Warn("Dropping request for missing session")
			return nil
		}
		return fmt.Errorf("failed to process turn: %w", err)
	}

	log.Info("Turn request processed successfully",
		"turn", result.Turn,
		"fallback", result.Fallback,
		"duration_ms", time.Since(start).Milliseconds())

	if err := w.publisher.PublishTurnCompleted(ctx, req.SessionID, req.RequestID, result); err != nil {
		log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}

func (w *Worker) publishFailed(ctx context.Context, req *queue.Request, msg string, log *slog.Logger) {
	if err := w.publisher.PublishTurnFailed(ctx, req.SessionID, req.RequestID, msg); err != nil {
		log.Error("Failed to publish failure event", "error", err)
	}
}

// sleep waits for d or until ctx ends. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
