// Package snapshot stores the serialized form of every configuration that
// became executable during an editor session.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// ErrNotFound is returned by Get for an unknown snapshot id.
var ErrNotFound = errors.New("snapshot: not found")

// Snapshot is one stored configuration.
type Snapshot struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	CreatedAt time.Time       `json:"created_at"`
	PlotType  types.PlotType  `json:"plot_type"`
	IndexType string          `json:"index_type"`
	Summary   string          `json:"summary"`
	Config    json.RawMessage `json:"config"`
}

// Store reads and writes snapshots.
type Store interface {
	// Write stores the configuration carried by a config_completed event.
	// Other events are ignored.
	Write(ctx context.Context, evt event.Event) error

	// Get returns one snapshot.
	Get(ctx context.Context, id string) (Snapshot, error)

	// List returns snapshots newest first.
	List(ctx context.Context, opts QueryOptions) (snapshots []Snapshot, nextCursor string, totalCount int, err error)
}

// QueryOptions controls filtering and pagination for List.
type QueryOptions struct {
	SessionID string         // filter to one session
	PlotType  types.PlotType // filter to one plot type
	Since     *time.Time
	Until     *time.Time
	Limit     int    // max results (default: 50, max: 500)
	Cursor    string // created_at of the last result of the previous page
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 50}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 50
	}
	return o.Limit
}

func fromEvent(evt event.Event) (Snapshot, bool) {
	if evt.EventType != event.TypeConfigCompleted {
		return Snapshot{}, false
	}
	return Snapshot{
		ID:        evt.ID,
		SessionID: evt.SessionID,
		CreatedAt: evt.OccurredAt,
		PlotType:  evt.PlotType,
		IndexType: evt.IndexType,
		Summary:   evt.Summary,
		Config:    evt.Payload,
	}, true
}

// Decode returns the stored configuration.
func (s Snapshot) Decode() (types.PlotConfig, error) {
	var cfg types.PlotConfig
	err := json.Unmarshal(s.Config, &cfg)
	return cfg, err
}
