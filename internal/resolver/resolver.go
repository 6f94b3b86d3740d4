// Package resolver implements the per-axis state machine that applies a
// field change to a dimension selection, recomputes every option list and
// auto-assigns fields left with a single enabled option.
//
// A resolve cycle is the only place the editor waits on the catalog. Cycles
// may overlap; with DiscardStale set, a cycle that finishes after a newer one
// started is dropped instead of being applied.
package resolver

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matthewbaird/plotconfig/internal/options"
	"github.com/matthewbaird/plotconfig/internal/types"
)

var (
	cycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plotd_resolver_cycles_total",
		Help: "Resolve cycles by outcome",
	}, []string{"outcome"}) // "applied", "unchanged", "stale", "error"

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "plotd_resolver_cycle_duration_seconds",
		Help:    "Resolve cycle duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

// Mode restricts which axis modes a dimension may take.
type Mode int

const (
	// ModeEither lets the user pick; the initial mode comes from Config.
	ModeEither Mode = iota
	// ModeContextOnly forces aggregate dimensions.
	ModeContextOnly
	// ModeEntityOnly forces single-entity dimensions.
	ModeEntityOnly
)

// Config configures a Resolver.
type Config struct {
	Mode            Mode
	DefaultAxisMode types.AxisMode
	IndexType       string
	PlotType        types.PlotType

	// DiscardStale drops results of cycles overtaken by a newer cycle.
	DiscardStale bool

	// OnChange is called with the new selection after a cycle that changed
	// any of entityType, datasetId, context, axisMode or aggregationMethod.
	OnChange func(types.Dimension)

	Logger *slog.Logger
}

// State is the externally visible result of the last applied cycle.
type State struct {
	Dimension types.Dimension `json:"value"`
	Options   *options.Set    `json:"options"`
	Dirty     bool            `json:"-"`
}

// Resolver owns the selection of one axis.
type Resolver struct {
	computer *options.Computer
	cfg      Config
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	gen   uint64

	inflight atomic.Int32
}

// New creates a resolver. A zero initial selection is replaced by the
// defaults of cfg.Mode.
func New(computer *options.Computer, initial types.Dimension, cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultAxisMode == "" {
		cfg.DefaultAxisMode = types.AxisSingle
	}
	r := &Resolver{computer: computer, cfg: cfg, logger: logger}
	if initial.AxisMode == "" {
		initial.AxisMode = r.initialAxisMode()
		initial.AggregationMethod = r.aggregationFor(initial.AxisMode)
	}
	r.state = State{Dimension: initial.Clone(), Options: &options.Set{}}
	return r
}

func (r *Resolver) initialAxisMode() types.AxisMode {
	switch r.cfg.Mode {
	case ModeContextOnly:
		return types.AxisAggregate
	case ModeEntityOnly:
		return types.AxisSingle
	default:
		return r.cfg.DefaultAxisMode
	}
}

// aggregationFor returns the method implied by mode under the current plot type.
func (r *Resolver) aggregationFor(mode types.AxisMode) types.AggregationMethod {
	if r.cfg.PlotType == types.PlotCorrelationHeatmap {
		return types.AggCorrelation
	}
	return types.DefaultAggregation(mode)
}

// State returns a copy of the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Dimension: r.state.Dimension.Clone(), Options: r.state.Options, Dirty: r.state.Dirty}
}

// IsLoading reports whether a resolve cycle is in flight.
func (r *Resolver) IsLoading() bool {
	return r.inflight.Load() > 0
}

// Reset replaces the selection and the plot context without running a
// cycle. In-flight cycles become stale.
func (r *Resolver) Reset(dim types.Dimension, indexType string, plotType types.PlotType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.cfg.IndexType = indexType
	r.cfg.PlotType = plotType
	r.state = State{Dimension: dim.Clone(), Options: r.state.Options}
}

// Init runs a cycle without a field change, computing the initial option
// lists and auto-assigning single-option fields.
func (r *Resolver) Init(ctx context.Context) State {
	return r.run(ctx, nil)
}

// Change applies ch and runs a resolve cycle. Catalog failures are logged
// and leave the previous state in place.
func (r *Resolver) Change(ctx context.Context, ch Change) State {
	return r.run(ctx, &ch)
}

func (r *Resolver) run(ctx context.Context, ch *Change) State {
	start := time.Now()
	r.inflight.Add(1)
	defer r.inflight.Add(-1)
	defer func() { cycleDuration.Observe(time.Since(start).Seconds()) }()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	prev := State{Dimension: r.state.Dimension.Clone(), Options: r.state.Options}
	cfg := r.cfg
	r.mu.Unlock()

	next, err := r.resolve(ctx, cfg, prev, ch)
	if err != nil {
		cycleTotal.WithLabelValues("error").Inc()
		r.logger.Error("resolve cycle failed; keeping previous selection",
			slog.String("index_type", cfg.IndexType),
			slog.String("field", changedField(ch)),
			slog.String("error", err.Error()))
		return r.State()
	}

	r.mu.Lock()
	if cfg.DiscardStale && gen != r.gen {
		r.mu.Unlock()
		cycleTotal.WithLabelValues("stale").Inc()
		r.logger.Debug("discarding stale resolve result",
			slog.String("field", changedField(ch)),
			slog.Uint64("generation", gen))
		return r.State()
	}
	r.state = next
	r.mu.Unlock()

	if !next.Dirty {
		cycleTotal.WithLabelValues("unchanged").Inc()
		return next
	}
	cycleTotal.WithLabelValues("applied").Inc()
	if cfg.OnChange != nil {
		cfg.OnChange(next.Dimension.Clone())
	}
	return next
}

// resolve computes the next state. It does not touch r.state.
func (r *Resolver) resolve(ctx context.Context, cfg Config, prev State, ch *Change) (State, error) {
	idx, err := r.computer.Lookup(ctx, cfg.IndexType)
	if err != nil {
		return State{}, err
	}

	dim := prev.Dimension.Clone()
	if ch != nil {
		dim = r.apply(cfg, dim, prev.Options, idx, *ch)
	}

	opts, err := r.computer.ComputeWithIndex(ctx, dim, cfg.IndexType, idx)
	if err != nil {
		return State{}, err
	}

	if ch != nil && ch.Field == FieldUnits && dim.DatasetID != "" && types.EnabledCount(opts.Datasets) > 1 {
		dim.DatasetID = ""
	}
	autoAssign(&dim, opts)

	return State{Dimension: dim, Options: opts, Dirty: dirty(prev.Dimension, dim)}, nil
}

// autoAssign fills each unset field whose options have exactly one enabled
// entry. It is a single pass over the options just computed.
func autoAssign(dim *types.Dimension, opts *options.Set) {
	if dim.DataType == "" {
		if v, ok := types.SoleEnabled(opts.DataTypes); ok {
			dim.DataType = v
		}
	}
	if dim.EntityType == "" {
		if v, ok := types.SoleEnabled(opts.EntityTypes); ok {
			dim.EntityType = v
		}
	}
	if dim.DatasetID == "" {
		if v, ok := types.SoleEnabled(opts.Datasets); ok {
			dim.DatasetID = v
		}
	}
}

func dirty(prev, next types.Dimension) bool {
	return prev.EntityType != next.EntityType ||
		prev.DatasetID != next.DatasetID ||
		prev.AxisMode != next.AxisMode ||
		prev.AggregationMethod != next.AggregationMethod ||
		!sameContext(prev.Context, next.Context)
}

func sameContext(a, b *types.Context) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func changedField(ch *Change) string {
	if ch == nil {
		return "init"
	}
	return string(ch.Field)
}
