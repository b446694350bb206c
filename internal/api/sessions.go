package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/session"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// RegisterMCPRoutes registers the session and model routes under /mcp.
func (h *Handler) RegisterMCPRoutes(r chi.Router) {
	r.Route("/mcp", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{session_id}", h.GetSession)
		r.Put("/sessions/{session_id}/context", h.UpdateSessionContext)
		r.Put("/sessions/{session_id}/metadata", h.UpdateSessionMetadata)
		r.Post("/sessions/{session_id}/messages", h.PostSessionMessage)
		r.Get("/sessions/{session_id}/messages", h.ListSessionMessages)

		r.Post("/models", h.RegisterModel)
		r.Get("/models", h.ListModels)
		r.Get("/models/{model_id}", h.GetModel)
	})
}

type createSessionRequest struct {
	SessionID       string                     `json:"session_id"`
	InitialContext  *domain.Context            `json:"initial_context,omitempty"`
	InitialMetadata map[string]json.RawMessage `json:"initial_metadata,omitempty"`
}

// CreateSession creates a session. Creating an existing session_id returns
// the existing document with 200; a fresh session returns 201.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	doc, created, err := h.svc.Create(r.Context(), req.SessionID, req.InitialContext, req.InitialMetadata)
	if err != nil {
		h.writeSessionError(w, err, req.SessionID, "create session")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	JSON(w, status, doc)
}

// GetSession returns the materialized session document.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	doc, err := h.svc.Get(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, err, sessionID, "get session")
		return
	}
	JSON(w, http.StatusOK, doc)
}

// UpdateSessionContext applies a partial context update.
func (h *Handler) UpdateSessionContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var patch session.ContextPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.UpdateContext(r.Context(), sessionID, patch)
	if err != nil {
		h.writeSessionError(w, err, sessionID, "update context")
		return
	}
	JSON(w, http.StatusOK, doc)
}

// UpdateSessionMetadata shallow-merges the body into the session metadata.
func (h *Handler) UpdateSessionMetadata(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.UpdateMetadata(r.Context(), sessionID, patch)
	if err != nil {
		h.writeSessionError(w, err, sessionID, "update metadata")
		return
	}
	JSON(w, http.StatusOK, doc)
}

// PostSessionMessage appends one message to the session context and returns
// the full updated document.
func (h *Handler) PostSessionMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.PostMessage(r.Context(), sessionID, msg)
	if err != nil {
		h.writeSessionError(w, err, sessionID, "post message")
		return
	}
	JSON(w, http.StatusOK, doc)
}

// ListSessionMessages returns the session's messages sorted by timestamp,
// paginated by limit and offset.
func (h *Handler) ListSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	limit, ok := queryInt(r, "limit", defaultMessageLimit)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		Error(w, http.StatusBadRequest, "invalid offset")
		return
	}

	msgs, err := h.svc.ListMessages(r.Context(), sessionID, limit, offset)
	if err != nil {
		h.writeSessionError(w, err, sessionID, "list messages")
		return
	}
	JSON(w, http.StatusOK, msgs)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error, sessionID, op string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Session operation failed", "op", op, "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
