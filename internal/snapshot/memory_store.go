package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matthewbaird/plotconfig/internal/event"
)

// MemoryStore implements Store using an in-memory slice.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Write(_ context.Context, evt event.Event) error {
	snap, ok := fromEvent(evt)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.snapshots {
		if snap.ID == id {
			return snap, nil
		}
	}
	return Snapshot{}, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, opts QueryOptions) ([]Snapshot, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cursor *time.Time
	if opts.Cursor != "" {
		if t, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			cursor = &t
		}
	}

	var matched []Snapshot
	for _, snap := range s.snapshots {
		if opts.SessionID != "" && snap.SessionID != opts.SessionID {
			continue
		}
		if opts.PlotType != "" && snap.PlotType != opts.PlotType {
			continue
		}
		if opts.Since != nil && snap.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && snap.CreatedAt.After(*opts.Until) {
			continue
		}
		if cursor != nil && !snap.CreatedAt.Before(*cursor) {
			continue
		}
		matched = append(matched, snap)
	}

	// Sort by created_at DESC.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	totalCount := len(matched)
	limit := opts.limit()

	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = matched[len(matched)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return matched, nextCursor, totalCount, nil
}
