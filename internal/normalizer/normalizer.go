// Package normalizer is the top-level reducer over a PlotConfig. Every user
// action on the whole configuration is an Intent; Reduce applies its cascade
// rules and, for most intents, finishes with Normalize, which strips fields
// the resulting plot type does not use.
//
// Reduce performs no I/O and is deterministic: the same configuration and
// intent always produce structurally equal results.
package normalizer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/matthewbaird/plotconfig/internal/predicate"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// ErrUnknownIntent marks an intent Reduce has no rule for.
var ErrUnknownIntent = errors.New("normalizer: unknown intent")

// Normalizer reduces intents. The only state it keeps is the set of
// warnings already logged, so each one is reported once per Normalizer.
type Normalizer struct {
	logger *slog.Logger

	mu     sync.Mutex
	warned map[string]bool
}

// New creates a Normalizer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger, warned: make(map[string]bool)}
}

// Reduce returns the configuration that results from applying in to cfg.
// cfg is not modified. An unknown intent is a programming error and panics.
func (n *Normalizer) Reduce(cfg types.PlotConfig, in Intent) types.PlotConfig {
	cfg = cfg.Clone()
	switch it := in.(type) {
	case SetConfig:
		return it.Config.Clone()
	case SelectPlotType:
		return Normalize(selectPlotType(cfg, it.PlotType))
	case SelectIndexType:
		if it.IndexType == cfg.IndexType {
			return cfg
		}
		return Normalize(selectIndexType(cfg, it.IndexType))
	case SelectDimension:
		if cfg.Dimensions == nil {
			cfg.Dimensions = make(map[string]types.Dimension)
		}
		cfg.Dimensions[it.Axis] = it.Dimension.Clone()
		return cfg
	case SelectFilter:
		return Normalize(selectFilter(cfg, it.Key, it.Context))
	case SelectColorBy:
		return Normalize(selectColorBy(cfg, it.ColorBy))
	case SelectSortBy:
		cfg.SortBy = it.SortBy
		return Normalize(cfg)
	case SelectColorProperty:
		return Normalize(setColorProperty(cfg, it.Entry))
	case SelectLegacyColorProperty:
		entry, err := ParseSliceID(it.SliceID)
		if err != nil {
			n.warnOnce("slice:"+it.SliceID, "ignoring malformed legacy color property", slog.String("slice_id", it.SliceID))
			return Normalize(cfg)
		}
		return Normalize(setColorProperty(cfg, entry))
	case SelectFlag:
		return n.selectFlag(cfg, it.Flag, it.Value)
	case SelectScatterYSlice:
		return Normalize(selectScatterYSlice(cfg, it))
	default:
		panic(fmt.Errorf("%w: %T", ErrUnknownIntent, in))
	}
}

func (n *Normalizer) warnOnce(key, msg string, attrs ...any) {
	n.mu.Lock()
	seen := n.warned[key]
	n.warned[key] = true
	n.mu.Unlock()
	if !seen {
		n.logger.Warn(msg, attrs...)
	}
}

// selectFlag stores the flag even when the current plot type ignores it, so
// it applies after a later plot type change.
func (n *Normalizer) selectFlag(cfg types.PlotConfig, f types.DisplayFlag, v bool) types.PlotConfig {
	field := cfg.Flag(f)
	if field == nil {
		n.warnOnce("flag:"+string(f), "ignoring unknown display flag", slog.String("flag", string(f)))
		return Normalize(cfg)
	}
	if want := types.FlagPlotType(f); want != cfg.PlotType {
		n.warnOnce("flag:"+string(f)+":"+string(cfg.PlotType), "display flag has no effect on this plot type",
			slog.String("flag", string(f)),
			slog.String("plot_type", string(cfg.PlotType)),
			slog.String("applies_to", string(want)))
	}
	*field = types.Bool(v)
	return normalize(cfg, f)
}

func selectIndexType(cfg types.PlotConfig, indexType string) types.PlotConfig {
	cfg.IndexType = indexType
	mode := types.AxisSingle
	if cfg.PlotType == types.PlotCorrelationHeatmap {
		mode = types.AxisAggregate
	}
	cfg.Dimensions = make(map[string]types.Dimension)
	for _, axis := range types.RequiredAxes(cfg.PlotType) {
		cfg.Dimensions[axis] = freshDimension(cfg.PlotType, mode)
	}
	cfg.ColorBy = ""
	cfg.Filters = nil
	cfg.Metadata = nil
	return cfg
}

// freshDimension returns an empty selection honoring the correlation
// invariant of plotType.
func freshDimension(pt types.PlotType, mode types.AxisMode) types.Dimension {
	d := types.NewDimension(mode)
	if pt == types.PlotCorrelationHeatmap {
		d.AggregationMethod = types.AggCorrelation
	}
	return d
}

func selectFilter(cfg types.PlotConfig, key string, c *types.Context) types.PlotConfig {
	if c == nil {
		delete(cfg.Filters, key)
		return cfg
	}
	if cfg.Filters == nil {
		cfg.Filters = make(map[string]types.Context)
	}
	cfg.Filters[key] = *c
	return cfg
}

func selectColorBy(cfg types.PlotConfig, mode types.ColorBy) types.PlotConfig {
	cfg.ColorBy = mode
	if mode == types.ColorByCustom {
		if cfg.Dimensions == nil {
			cfg.Dimensions = make(map[string]types.Dimension)
		}
		if _, ok := cfg.Dimensions[types.AxisColor]; !ok {
			cfg.Dimensions[types.AxisColor] = types.NewDimension(types.AxisSingle)
		}
	} else {
		delete(cfg.Dimensions, types.AxisColor)
	}
	cfg.SortBy = types.SortAlphabetical
	if visible, ok := cfg.Filters[types.FilterVisible]; ok {
		cfg.Filters = map[string]types.Context{types.FilterVisible: visible}
	} else {
		cfg.Filters = nil
	}
	cfg.Metadata = nil
	return cfg
}

func setColorProperty(cfg types.PlotConfig, entry *types.MetadataEntry) types.PlotConfig {
	if entry == nil {
		delete(cfg.Metadata, types.MetadataColorProp)
		return cfg
	}
	if cfg.Metadata == nil {
		cfg.Metadata = make(map[string]types.MetadataEntry)
	}
	cfg.Metadata[types.MetadataColorProp] = *entry
	return cfg
}

// ParseSliceID parses slice/<dataset_id>/<identifier>/<identifier_type>.
func ParseSliceID(id string) (*types.MetadataEntry, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 4 || parts[0] != "slice" || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("malformed slice id %q", id)
	}
	return &types.MetadataEntry{DatasetID: parts[1], Identifier: parts[2], IdentifierType: parts[3]}, nil
}

func selectScatterYSlice(cfg types.PlotConfig, in SelectScatterYSlice) types.PlotConfig {
	if cfg.PlotType == types.PlotCorrelationHeatmap {
		cfg.Filters = nil
	}
	cfg.PlotType = types.PlotScatter
	if cfg.Dimensions == nil {
		cfg.Dimensions = make(map[string]types.Dimension)
	}
	if x, ok := cfg.Dimensions[types.AxisX]; !ok {
		cfg.Dimensions[types.AxisX] = types.NewDimension(types.AxisSingle)
	} else if x.AggregationMethod == types.AggCorrelation {
		x.AggregationMethod = types.DefaultAggregation(x.AxisMode)
		cfg.Dimensions[types.AxisX] = x
	}

	expr := predicate.EntityExpr(predicate.PropLabel, in.Label)
	if in.GivenID != "" {
		expr = predicate.EntityExpr(predicate.PropGivenID, in.GivenID)
	}
	y := types.NewDimension(types.AxisSingle)
	y.EntityType = in.EntityType
	y.DatasetID = in.DatasetID
	y.Context = &types.Context{Name: in.Label, ContextType: in.EntityType, Expr: expr}
	cfg.Dimensions[types.AxisY] = y
	return cfg
}
