package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/plotconfig/internal/snapshot"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// SnapshotHandler serves stored completed configurations.
type SnapshotHandler struct {
	store snapshot.Store
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(store snapshot.Store) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// List returns snapshots newest first.
// GET /api/snapshots?session_id=&plot_type=&since=&until=&limit=&cursor=
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := snapshot.DefaultQueryOptions()
	opts.SessionID = q.Get("session_id")
	opts.PlotType = types.PlotType(q.Get("plot_type"))
	opts.Since = parseTime(r, "since")
	opts.Until = parseTime(r, "until")
	opts.Limit = parseLimit(r, opts.Limit, 500)
	opts.Cursor = q.Get("cursor")

	snaps, nextCursor, totalCount, err := h.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if snaps == nil {
		snaps = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, struct {
		Snapshots  []snapshot.Snapshot `json:"snapshots"`
		NextCursor string              `json:"next_cursor,omitempty"`
		TotalCount int                 `json:"total_count"`
	}{snaps, nextCursor, totalCount})
}

// Get returns one snapshot.
// GET /api/snapshots/{id}
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, snapshot.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
