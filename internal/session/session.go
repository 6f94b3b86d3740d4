// Package session manages editor sessions: one plot configuration per
// session, its undo and redo history, and a dimension resolver per axis.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/normalizer"
	"github.com/matthewbaird/plotconfig/internal/options"
	"github.com/matthewbaird/plotconfig/internal/resolver"
	"github.com/matthewbaird/plotconfig/internal/types"
	"github.com/matthewbaird/plotconfig/internal/validator"
)

// ErrUnknownAxis is returned by Change for an axis the configuration lacks.
var ErrUnknownAxis = errors.New("session: unknown axis")

// maxHistory bounds the undo stack.
const maxHistory = 100

// Options configures the sessions a Manager creates.
type Options struct {
	Computer        *options.Computer
	Recorder        event.Recorder // optional
	DefaultAxisMode types.AxisMode
	DiscardStale    bool
	Logger          *slog.Logger
}

type axis struct {
	r         *resolver.Resolver
	synced    types.Dimension // config value the resolver last agreed with
	indexType string
	plotType  types.PlotType
}

// Session holds the editor state of one client.
type Session struct {
	ID        string
	CreatedAt time.Time

	opts   Options
	norm   *normalizer.Normalizer
	logger *slog.Logger

	// op serializes Dispatch, Change, Undo and Redo.
	op sync.Mutex

	mu           sync.Mutex
	cfg          types.PlotConfig
	undo, redo   []types.PlotConfig
	axes         map[string]*axis
	recorded     *types.PlotConfig
	lastActiveAt time.Time
}

// New creates a session holding initial. Call Sync before first use to
// start the axis resolvers.
func New(initial types.PlotConfig, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	id := uuid.New().String()
	logger = logger.With(slog.String("session_id", id))
	return &Session{
		ID:           id,
		CreatedAt:    now,
		opts:         opts,
		norm:         normalizer.New(logger),
		logger:       logger,
		cfg:          initial.Clone(),
		axes:         make(map[string]*axis),
		lastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// LastActiveAt returns the time of the last operation.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && time.Since(s.LastActiveAt()) > timeout
}

// Config returns a copy of the current configuration.
func (s *Session) Config() types.PlotConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Sync starts resolvers for new axes and runs their first cycle.
func (s *Session) Sync(ctx context.Context) View {
	s.op.Lock()
	defer s.op.Unlock()
	s.Touch()
	s.sync(ctx)
	s.recordIfComplete(ctx)
	return s.View()
}

// Dispatch reduces the configuration with in and resynchronizes the axes
// whose dimension changed.
func (s *Session) Dispatch(ctx context.Context, in normalizer.Intent) View {
	s.op.Lock()
	defer s.op.Unlock()
	s.Touch()

	s.mu.Lock()
	prev := s.cfg
	next := s.norm.Reduce(prev, in)
	changed := !reflect.DeepEqual(prev, next)
	if changed {
		s.pushUndo(prev)
		s.redo = nil
		s.cfg = next
	}
	s.mu.Unlock()

	s.logger.Debug("intent dispatched", slog.String("kind", in.Kind()), slog.Bool("changed", changed))
	s.sync(ctx)
	s.recordIfComplete(ctx)
	return s.View()
}

// Change runs a resolver cycle for one field of one axis. A cycle that
// changes the selection is written back to the configuration as one history
// entry.
func (s *Session) Change(ctx context.Context, axisKey string, ch resolver.Change) (View, error) {
	s.op.Lock()
	defer s.op.Unlock()
	s.Touch()

	s.mu.Lock()
	a, ok := s.axes[axisKey]
	s.mu.Unlock()
	if !ok {
		return s.View(), fmt.Errorf("%w: %q", ErrUnknownAxis, axisKey)
	}

	st := a.r.Change(ctx, ch)
	if st.Dirty {
		s.mu.Lock()
		s.pushUndo(s.cfg)
		s.redo = nil
		s.mu.Unlock()
		s.commit(axisKey, a, st.Dimension)
	}
	s.recordIfComplete(ctx)
	return s.View(), nil
}

// Undo restores the configuration before the last change. It reports false
// when there is nothing to undo.
func (s *Session) Undo(ctx context.Context) (View, bool) {
	return s.step(ctx, &s.undo, &s.redo)
}

// Redo reapplies the last undone change.
func (s *Session) Redo(ctx context.Context) (View, bool) {
	return s.step(ctx, &s.redo, &s.undo)
}

func (s *Session) step(ctx context.Context, from, to *[]types.PlotConfig) (View, bool) {
	s.op.Lock()
	defer s.op.Unlock()
	s.Touch()

	s.mu.Lock()
	if len(*from) == 0 {
		s.mu.Unlock()
		return s.View(), false
	}
	last := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, s.cfg)
	s.cfg = last
	s.mu.Unlock()

	s.sync(ctx)
	s.recordIfComplete(ctx)
	return s.View(), true
}

// pushUndo must be called with s.mu held.
func (s *Session) pushUndo(cfg types.PlotConfig) {
	s.undo = append(s.undo, cfg)
	if len(s.undo) > maxHistory {
		s.undo = s.undo[len(s.undo)-maxHistory:]
	}
}

// sync brings the resolvers in line with the configuration. Resolvers
// whose dimension, index type and plot type are unchanged keep their state.
func (s *Session) sync(ctx context.Context) {
	s.mu.Lock()
	cfg := s.cfg
	for key := range s.axes {
		if _, ok := cfg.Dimensions[key]; !ok {
			delete(s.axes, key)
		}
	}
	var pending []string
	for _, key := range cfg.AxisKeys() {
		dim := cfg.Dimensions[key]
		a, ok := s.axes[key]
		switch {
		case !ok || a.indexType != cfg.IndexType || a.plotType != cfg.PlotType || dim.AxisMode == "":
			a = &axis{
				r:         resolver.New(s.opts.Computer, dim, s.resolverConfig(key, cfg)),
				indexType: cfg.IndexType,
				plotType:  cfg.PlotType,
			}
			s.axes[key] = a
		case !reflect.DeepEqual(a.synced, dim):
			a.r.Reset(dim, cfg.IndexType, cfg.PlotType)
		default:
			continue
		}
		a.synced = dim.Clone()
		pending = append(pending, key)
	}
	s.mu.Unlock()

	for _, key := range pending {
		s.mu.Lock()
		a, ok := s.axes[key]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if st := a.r.Init(ctx); st.Dirty {
			s.commit(key, a, st.Dimension)
		}
	}
}

// commit writes a resolved dimension back to the configuration.
func (s *Session) commit(key string, a *axis, dim types.Dimension) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = s.norm.Reduce(s.cfg, normalizer.SelectDimension{Axis: key, Dimension: dim})
	a.synced = dim.Clone()
}

func (s *Session) resolverConfig(key string, cfg types.PlotConfig) resolver.Config {
	mode := resolver.ModeEither
	if key == types.AxisX && cfg.PlotType == types.PlotCorrelationHeatmap {
		mode = resolver.ModeContextOnly
	}
	return resolver.Config{
		Mode:            mode,
		DefaultAxisMode: s.opts.DefaultAxisMode,
		IndexType:       cfg.IndexType,
		PlotType:        cfg.PlotType,
		DiscardStale:    s.opts.DiscardStale,
		Logger:          s.logger.With(slog.String("axis", key)),
	}
}

// recordIfComplete emits config_completed when the configuration is
// executable and differs from the last one recorded.
func (s *Session) recordIfComplete(ctx context.Context) {
	s.mu.Lock()
	cfg := s.cfg.Clone()
	if !validator.IsComplete(cfg) || (s.recorded != nil && reflect.DeepEqual(*s.recorded, cfg)) {
		s.mu.Unlock()
		return
	}
	s.recorded = &cfg
	s.mu.Unlock()

	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.Record(ctx, event.NewConfigCompleted(s.ID, cfg)); err != nil {
		s.logger.Error("recording completed configuration", slog.String("error", err.Error()))
	}
}
