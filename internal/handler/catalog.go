package handler

import (
	"errors"
	"net/http"

	"github.com/matthewbaird/plotconfig/internal/catalog"
)

// CatalogHandler exposes read-only catalog queries.
type CatalogHandler struct {
	client catalog.Client
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(client catalog.Client) *CatalogHandler {
	return &CatalogHandler{client: client}
}

// ListItems returns the dataset items compatible with an index type.
// GET /api/catalog/items?index_type=
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	indexType := r.URL.Query().Get("index_type")
	if indexType == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "index_type is required")
		return
	}
	items, err := h.client.ListCompatibleItems(r.Context(), indexType)
	if err != nil {
		catalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ListIdentifiers returns the identifiers of an entity type, optionally
// restricted to one dataset.
// GET /api/catalog/identifiers?entity_type=&dataset_id=
func (h *CatalogHandler) ListIdentifiers(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "entity_type is required")
		return
	}
	ids, err := h.client.ListIdentifiers(r.Context(), entityType, r.URL.Query().Get("dataset_id"))
	if err != nil {
		catalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identifiers": ids})
}

func catalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "CATALOG_UNAVAILABLE", err.Error())
}
