package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/pkg/chat"
)

// TurnResolver resolves a stateless turn request.
type TurnResolver interface {
	ResolveTurn(ctx context.Context, req chat.TurnRequest) (resolver.Outcome, error)
}

// TurnHandler serves the stateless turn endpoint: the client sends state,
// memory and log with every request and gets back exactly the TurnResult.
type TurnHandler struct {
	resolver TurnResolver
	logger   *slog.Logger
}

func NewTurnHandler(r TurnResolver, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		resolver: r,
		logger:   logger,
	}
}

// ServeHTTP handles POST /v1/turn
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for turn endpoint",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	var req chat.TurnRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid turn request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with playerInput, state, memory and log.")
		return
	}

	out, err := h.resolver.ResolveTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidRequest) {
			h.logger.Warn("Rejected turn request", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Error resolving turn", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to resolve turn.")
		return
	}

	if out.Fallback {
		h.logger.Info("Served fallback turn", "reason", out.Reason)
	}
	writeJSON(w, h.logger, http.StatusOK, out.Result)
}
