package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/internal/worker"
	"github.com/jwebster45206/turn-engine/pkg/chat"
	"github.com/jwebster45206/turn-engine/pkg/queue"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

// Enqueuer accepts async turn jobs.
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// QueuedPublisher announces accepted async jobs.
type QueuedPublisher interface {
	PublishTurnQueued(ctx context.Context, sessionID uuid.UUID, requestID string) error
}

// CreateSessionRequest is the optional body of POST /v1/sessions.
type CreateSessionRequest struct {
	State  map[string]any `json:"state"`
	Memory map[string]any `json:"memory"`
}

// QueuedTurnResponse is returned for async turns.
type QueuedTurnResponse struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// SessionsHandler serves stored sessions and their turns.
//
//	POST   /v1/sessions
//	GET    /v1/sessions/{id}
//	DELETE /v1/sessions/{id}
//	POST   /v1/sessions/{id}/turns[?async=true]
type SessionsHandler struct {
	store     sessions.Store
	processor *worker.TurnProcessor
	queue     Enqueuer
	publisher QueuedPublisher
	logger    *slog.Logger
}

// NewSessionsHandler creates the handler. q and publisher may be nil, in
// which case async turns are refused.
func NewSessionsHandler(store sessions.Store, processor *worker.TurnProcessor, q Enqueuer, publisher QueuedPublisher, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		store:     store,
		processor: processor,
		queue:     q,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected: v1/sessions[/{id}[/turns]]
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 2 || pathParts[0] != "v1" || pathParts[1] != "sessions" || len(pathParts) > 4 {
		writeError(w, h.logger, http.StatusNotFound, "Not found.")
		return
	}

	if len(pathParts) == 2 {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		h.handleCreate(w, r)
		return
	}

	id, err := uuid.Parse(pathParts[2])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	if len(pathParts) == 4 {
		if pathParts[3] != "turns" {
			writeError(w, h.logger, http.StatusNotFound, "Not found.")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		h.handleTurn(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (h *SessionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid create session body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with optional state and memory objects.")
		return
	}

	s := sessions.New(turn.Container(req.State), turn.Container(req.Memory))
	if err := h.store.Save(r.Context(), s); err != nil {
		h.logger.Error("Failed to create session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session.")
		return
	}

	h.logger.Info("Session created", "session_id", s.ID.String())
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *SessionsHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SessionsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	h.logger.Info("Session deleted", "session_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) handleTurn(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req chat.SessionTurnRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid session turn body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with playerInput.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("async") == "true" {
		h.handleAsyncTurn(w, r, id, req.PlayerInput)
		return
	}

	result, err := h.processor.ProcessLocked(r.Context(), id, req.PlayerInput, "api-"+uuid.NewString())
	if err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *SessionsHandler) handleAsyncTurn(w http.ResponseWriter, r *http.Request, id uuid.UUID, playerInput string) {
	if h.queue == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Async turns are not enabled.")
		return
	}

	if _, err := h.store.Load(r.Context(), id); err != nil {
		h.writeStoreError(w, id, err)
		return
	}

	job := queue.NewTurnRequest(id, playerInput)
	if err := h.queue.EnqueueRequest(r.Context(), job); err != nil {
		h.logger.Error("Failed to enqueue turn", "session_id", id.String(), "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue turn.")
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishTurnQueued(r.Context(), id, job.RequestID); err != nil {
			h.logger.Error("Failed to publish queued event", "error", err)
		}
	}

	writeJSON(w, h.logger, http.StatusAccepted, QueuedTurnResponse{
		RequestID: job.RequestID,
		SessionID: id.String(),
		Status:    "queued",
	})
}

func (h *SessionsHandler) writeStoreError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
	case errors.Is(err, sessions.ErrSessionLocked):
		writeError(w, h.logger, http.StatusConflict, "A turn is already in progress for this session.")
	default:
		h.logger.Error("Session operation failed", "session_id", id.String(), "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Session operation failed.")
	}
}
