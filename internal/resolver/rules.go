package resolver

import (
	"log/slog"

	"github.com/matthewbaird/plotconfig/internal/options"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// Field names one member of a dimension selection.
type Field string

const (
	FieldDataType          Field = "data_type"
	FieldEntityType        Field = "entity_type"
	FieldAxisMode          Field = "axis_mode"
	FieldContext           Field = "context"
	FieldDatasetID         Field = "dataset_id"
	FieldAggregationMethod Field = "aggregation_method"
	FieldUnits             Field = "units"
)

// Change is a user edit of one field. Context is used only by FieldContext;
// every other field takes Value, and an empty Value clears the field.
type Change struct {
	Field   Field          `json:"field"`
	Value   string         `json:"value,omitempty"`
	Context *types.Context `json:"context,omitempty"`
}

// apply runs the reset and inference rules of the changed field. prevOpts are
// the options of the previous cycle.
func (r *Resolver) apply(cfg Config, dim types.Dimension, prevOpts *options.Set, idx *options.Index, ch Change) types.Dimension {
	switch ch.Field {
	case FieldDataType:
		if ch.Value == "" {
			if prevOpts != nil && types.EnabledCount(prevOpts.DataTypes) == 1 {
				dim.EntityType = ""
				dim.DatasetID = ""
				dim.Context = nil
				dim.Units = ""
			}
			dim.DataType = ""
			return dim
		}
		dim.DataType = ch.Value
		if dim.EntityType == "" {
			if ets := idx.EntityTypesFor(ch.Value); len(ets) == 1 {
				dim.EntityType = ets[0]
			}
		}
		if it, ok := idx.Item(dim.DatasetID); ok && it.DataType != dim.DataType {
			dim.DatasetID = ""
		}

	case FieldEntityType:
		dim.EntityType = ch.Value
		if dim.Context != nil && dim.Context.ContextType != ch.Value {
			dim.Context = nil
		}
		if ch.Value != "" && dim.DataType == "" {
			if dts := idx.DataTypesFor(ch.Value); len(dts) == 1 {
				dim.DataType = dts[0]
			}
		}
		if it, ok := idx.Item(dim.DatasetID); ok && it.EntityType != dim.EntityType {
			dim.DatasetID = ""
		}

	case FieldAxisMode:
		mode := types.AxisMode(ch.Value)
		switch {
		case cfg.Mode == ModeContextOnly && mode != types.AxisAggregate,
			cfg.Mode == ModeEntityOnly && mode != types.AxisSingle:
			r.logger.Warn("axis mode not allowed for this dimension",
				slog.String("axis_mode", ch.Value))
			return dim
		case mode != types.AxisSingle && mode != types.AxisAggregate:
			r.logger.Warn("unknown axis mode", slog.String("axis_mode", ch.Value))
			return dim
		}
		dim.AxisMode = mode
		dim.Context = nil
		if cfg.PlotType == types.PlotCorrelationHeatmap {
			dim.AggregationMethod = types.AggCorrelation
		} else {
			dim.AggregationMethod = types.DefaultAggregation(mode)
		}

	case FieldContext:
		if ch.Context == nil {
			dim.Context = nil
			return dim
		}
		c := *ch.Context
		dim.Context = &c
		if dim.EntityType == "" {
			dim.EntityType = c.ContextType
		}
		if dim.DataType == "" {
			// Best effort: only the context's entity type is known here.
			if dts := idx.DataTypesFor(c.ContextType); len(dts) == 1 {
				dim.DataType = dts[0]
			}
		}

	case FieldDatasetID:
		dim.DatasetID = ch.Value

	case FieldAggregationMethod:
		m := types.AggregationMethod(ch.Value)
		if !types.AggregationAllowed(cfg.PlotType, dim.AxisMode, m) {
			r.logger.Warn("aggregation method not allowed for this dimension",
				slog.String("aggregation_method", ch.Value),
				slog.String("axis_mode", string(dim.AxisMode)),
				slog.String("plot_type", string(cfg.PlotType)))
			return dim
		}
		dim.AggregationMethod = m

	case FieldUnits:
		// Dataset re-selection is decided after options are recomputed.
		dim.Units = ch.Value

	default:
		r.logger.Warn("ignoring change of unknown field", slog.String("field", string(ch.Field)))
	}
	return dim
}
