package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/plotconfig/internal/normalizer"
	"github.com/matthewbaird/plotconfig/internal/session"
	"github.com/matthewbaird/plotconfig/internal/types"
	"github.com/matthewbaird/plotconfig/internal/validator"
)

// EditorHandler implements the REST side of the editor: session creation
// and stateless validation. Editing itself happens over the WebSocket.
type EditorHandler struct {
	sessions *session.Manager
}

// NewEditorHandler creates a new EditorHandler.
func NewEditorHandler(sessions *session.Manager) *EditorHandler {
	return &EditorHandler{sessions: sessions}
}

type configRequest struct {
	Config types.PlotConfig `json:"config"`
}

// CreateSession starts a session from an optional initial configuration.
// POST /api/editor/session
func (h *EditorHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	s := h.sessions.Create(r.Context(), req.Config)
	writeJSON(w, http.StatusCreated, s.View())
}

// GetSession returns the current state of a session.
// GET /api/editor/session/{id}
func (h *EditorHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

// DeleteSession closes a session.
// DELETE /api/editor/session/{id}
func (h *EditorHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.sessions.Get(r.Context(), id) == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found or expired")
		return
	}
	h.sessions.Remove(r.Context(), id, session.ReasonClosed)
	w.WriteHeader(http.StatusNoContent)
}

// Validate normalizes a configuration and reports what it is missing.
// POST /api/editor/validate
func (h *EditorHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	cfg := normalizer.Normalize(req.Config)
	res := validator.Check(cfg)
	writeJSON(w, http.StatusOK, struct {
		Config types.PlotConfig `json:"config"`
		validator.Result
	}{cfg, res})
}
