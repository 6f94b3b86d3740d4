package normalizer

import (
	"github.com/matthewbaird/plotconfig/internal/predicate"
	"github.com/matthewbaird/plotconfig/internal/types"
)

func selectPlotType(cfg types.PlotConfig, pt types.PlotType) types.PlotConfig {
	if pt == types.PlotScatter && cfg.IndexType == types.IndexTypeOther {
		return emptyScatter()
	}

	prev := cfg.PlotType
	cfg.PlotType = pt

	x, hasX := cfg.Dimensions[types.AxisX]
	if !hasX {
		// Nothing to cascade; only make sure the required axes exist.
		ensureAxes(&cfg, pt)
		return cfg
	}

	if pt != types.PlotCorrelationHeatmap && x.AggregationMethod == types.AggCorrelation {
		x.AggregationMethod = types.DefaultAggregation(x.AxisMode)
	}
	if pt == types.PlotCorrelationHeatmap {
		x = toHeatmapDimension(x)
		cfg.ColorBy = ""
		cfg.SortBy = ""
		cfg.Filters = nil
		cfg.Metadata = nil
	}

	dims := map[string]types.Dimension{types.AxisX: x}
	if color, ok := cfg.Dimensions[types.AxisColor]; ok && pt != types.PlotCorrelationHeatmap {
		dims[types.AxisColor] = color
	}
	for _, axis := range types.RequiredAxes(pt) {
		if _, ok := dims[axis]; ok {
			continue
		}
		if d, ok := cfg.Dimensions[axis]; ok {
			dims[axis] = d
		} else {
			dims[axis] = types.NewDimension(types.AxisSingle)
		}
	}
	if pt == types.PlotScatter && cfg.IndexType != types.DefaultEntityDomain {
		if y := dims[types.AxisY]; y.EntityType != types.DefaultEntityDomain || y.AxisMode != types.AxisSingle {
			y = types.NewDimension(types.AxisSingle)
			y.EntityType = types.DefaultEntityDomain
			dims[types.AxisY] = y
		}
	}
	cfg.Dimensions = dims

	if prev == types.PlotCorrelationHeatmap && pt != types.PlotCorrelationHeatmap {
		cfg.Filters = nil
	}
	if types.RequiredAxisCount(pt) == 1 && cfg.ColorBy == types.ColorByProperty && cfg.SortBy == "" {
		cfg.SortBy = types.SortAlphabetical
	}
	return cfg
}

// toHeatmapDimension forces x into the shape a correlation heatmap needs.
// A single-entity or match-all context is meaningless there and is dropped.
func toHeatmapDimension(x types.Dimension) types.Dimension {
	x.AxisMode = types.AxisAggregate
	x.AggregationMethod = types.AggCorrelation
	if x.Context != nil {
		if _, _, single := predicate.SingleEntity(x.Context.Expr); single || predicate.IsMatchAll(x.Context.Expr) {
			x.Context = nil
		}
	}
	if x.EntityType == types.EntityTypeCustom {
		x.EntityType = ""
	}
	return x
}

func emptyScatter() types.PlotConfig {
	return types.PlotConfig{
		PlotType: types.PlotScatter,
		Dimensions: map[string]types.Dimension{
			types.AxisX: types.NewDimension(types.AxisSingle),
			types.AxisY: types.NewDimension(types.AxisSingle),
		},
	}
}

func ensureAxes(cfg *types.PlotConfig, pt types.PlotType) {
	mode := types.AxisSingle
	if pt == types.PlotCorrelationHeatmap {
		mode = types.AxisAggregate
	}
	for _, axis := range types.RequiredAxes(pt) {
		if cfg.Dimensions == nil {
			cfg.Dimensions = make(map[string]types.Dimension)
		}
		if _, ok := cfg.Dimensions[axis]; !ok {
			cfg.Dimensions[axis] = freshDimension(pt, mode)
		}
	}
}

// Normalize strips every field the plot type does not use. It is idempotent.
func Normalize(cfg types.PlotConfig) types.PlotConfig {
	return normalize(cfg, "")
}

// normalize is Normalize leaving keep untouched.
func normalize(cfg types.PlotConfig, keep types.DisplayFlag) types.PlotConfig {
	for _, f := range types.AllFlags {
		if f == keep || types.FlagPlotType(f) == cfg.PlotType {
			continue
		}
		*cfg.Flag(f) = nil
	}
	if cfg.PlotType != types.PlotDensity1D && cfg.PlotType != types.PlotWaterfall {
		cfg.SortBy = ""
	}
	if len(cfg.Filters) == 0 {
		cfg.Filters = nil
	}
	if len(cfg.Metadata) == 0 {
		cfg.Metadata = nil
	}
	return cfg
}
