// Package catalog provides the read-only registry of which (dataset, data
// type, entity type, entity) combinations exist.
//
// Every backend satisfies Client. MemoryCatalog is populated from a CUE seed
// file (LoadSeed) and is what tests and the default server use; SQLCatalog
// reads the same shape from SQLite. Cached wraps any Client with per-query
// memoization for the lifetime of an editor session.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a lookup names an index type or entity type
// the catalog has never seen. Callers that only render options treat it as
// an empty result.
var ErrNotFound = errors.New("catalog: not found")

// Item is one dataset compatible with an index type.
type Item struct {
	ID           string `json:"id"`
	DataType     string `json:"data_type"`
	EntityType   string `json:"entity_type"`
	DatasetLabel string `json:"dataset_label"`
	Priority     int    `json:"priority,omitempty"`
	ValueKind    string `json:"value_kind,omitempty"`
	Units        string `json:"units,omitempty"`
	IndexType    string `json:"index_type"`
}

// Identifier is one row or column of a dataset.
type Identifier struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Entity is an identifier together with the entity type it belongs to and
// the datasets that contain it. An empty Datasets list means every dataset of
// EntityType contains it.
type Entity struct {
	EntityType string   `json:"entity_type"`
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Datasets   []string `json:"datasets,omitempty"`
}

// Client is the catalog contract consumed by the option computer. All
// methods are side-effect-free and idempotent.
type Client interface {
	// ListCompatibleItems returns every dataset indexed by indexType.
	ListCompatibleItems(ctx context.Context, indexType string) ([]Item, error)

	// ListIdentifiers returns the identifiers of entityType, restricted to
	// those contained in datasetID when it is non-empty.
	ListIdentifiers(ctx context.Context, entityType, datasetID string) ([]Identifier, error)
}

// MemoryCatalog is an in-memory Client. It is safe for concurrent use.
type MemoryCatalog struct {
	mu       sync.RWMutex
	items    map[string][]Item   // index type -> items
	entities map[string][]Entity // entity type -> entities
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		items:    make(map[string][]Item),
		entities: make(map[string][]Entity),
	}
}

// AddItems registers datasets under their index types.
func (c *MemoryCatalog) AddItems(items ...Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.items[it.IndexType] = append(c.items[it.IndexType], it)
	}
}

// AddEntities registers identifiers under their entity types.
func (c *MemoryCatalog) AddEntities(entities ...Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entities {
		c.entities[e.EntityType] = append(c.entities[e.EntityType], e)
	}
}

// IndexTypes returns every index type with at least one item, sorted.
func (c *MemoryCatalog) IndexTypes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *MemoryCatalog) ListCompatibleItems(_ context.Context, indexType string) ([]Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, ok := c.items[indexType]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (c *MemoryCatalog) ListIdentifiers(_ context.Context, entityType, datasetID string) ([]Identifier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entities, ok := c.entities[entityType]
	if !ok {
		return nil, ErrNotFound
	}
	var out []Identifier
	for _, e := range entities {
		if datasetID != "" && !e.InDataset(datasetID) {
			continue
		}
		out = append(out, Identifier{ID: e.ID, Label: e.Label})
	}
	return out, nil
}

// InDataset reports whether e is contained in the dataset.
func (e Entity) InDataset(datasetID string) bool {
	if len(e.Datasets) == 0 {
		return true
	}
	for _, d := range e.Datasets {
		if d == datasetID {
			return true
		}
	}
	return false
}
