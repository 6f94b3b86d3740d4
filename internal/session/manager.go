package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// Close reasons recorded in session_closed events.
const (
	ReasonExpired = "expired"
	ReasonIdle    = "idle"
	ReasonClosed  = "closed"
)

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	opts        Options
	logger      *slog.Logger
}

// NewManager creates a session manager with the given timeouts. A zero
// timeout disables that check.
func NewManager(maxAge, idleTimeout time.Duration, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		opts:        opts,
		logger:      logger,
	}
}

// Create creates a new session holding initial and starts its resolvers.
func (m *Manager) Create(ctx context.Context, initial types.PlotConfig) *Session {
	s := New(initial, m.opts)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	s.Sync(ctx)
	m.logger.Debug("session created", slog.String("session_id", s.ID))
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if reason, stale := m.stale(s); stale {
		m.Remove(ctx, id, reason)
		return nil
	}
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove deletes a session and records why.
func (m *Manager) Remove(ctx context.Context, id, reason string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.closed(ctx, id, reason)
	}
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup(ctx context.Context) int {
	type victim struct{ id, reason string }
	var removed []victim

	m.mu.Lock()
	for id, s := range m.sessions {
		if reason, stale := m.stale(s); stale {
			delete(m.sessions, id)
			removed = append(removed, victim{id, reason})
		}
	}
	m.mu.Unlock()

	for _, v := range removed {
		m.closed(ctx, v.id, v.reason)
	}
	return len(removed)
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(ctx); n > 0 {
				m.logger.Info("sessions cleaned up", slog.Int("removed", n))
			}
		}
	}
}

func (m *Manager) stale(s *Session) (string, bool) {
	switch {
	case s.IsExpired(m.maxAge):
		return ReasonExpired, true
	case s.IsIdle(m.idleTimeout):
		return ReasonIdle, true
	}
	return "", false
}

func (m *Manager) closed(ctx context.Context, id, reason string) {
	m.logger.Debug("session removed", slog.String("session_id", id), slog.String("reason", reason))
	if m.opts.Recorder == nil {
		return
	}
	if err := m.opts.Recorder.Record(ctx, event.NewSessionClosed(id, reason)); err != nil {
		m.logger.Error("recording session close", slog.String("session_id", id), slog.String("error", err.Error()))
	}
}
