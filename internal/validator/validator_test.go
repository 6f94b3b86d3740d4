package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/plotconfig/internal/types"
)

func completeDimension() types.Dimension {
	return types.Dimension{
		DataType:          "CRISPR",
		EntityType:        "gene",
		AxisMode:          types.AxisSingle,
		AggregationMethod: types.AggFirst,
		DatasetID:         "Chronos_Combined",
		Context:           &types.Context{Name: "SOX10", ContextType: "gene", Expr: `given_id = "6663"`},
	}
}

func TestCheck(t *testing.T) {
	partial := completeDimension()
	partial.DatasetID = ""
	partial.Context = nil

	tests := []struct {
		name    string
		cfg     types.PlotConfig
		missing []string
	}{
		{
			name: "complete density",
			cfg: types.PlotConfig{
				PlotType:   types.PlotDensity1D,
				IndexType:  "depmap_model",
				Dimensions: map[string]types.Dimension{types.AxisX: completeDimension()},
			},
		},
		{
			name:    "empty",
			cfg:     types.PlotConfig{},
			missing: []string{"plot_type", "index_type", "dimensions"},
		},
		{
			name: "scatter missing y",
			cfg: types.PlotConfig{
				PlotType:   types.PlotScatter,
				IndexType:  "depmap_model",
				Dimensions: map[string]types.Dimension{types.AxisX: completeDimension()},
			},
			missing: []string{"dimensions.y"},
		},
		{
			name: "incomplete axis",
			cfg: types.PlotConfig{
				PlotType:  types.PlotScatter,
				IndexType: "depmap_model",
				Dimensions: map[string]types.Dimension{
					types.AxisX: completeDimension(),
					types.AxisY: partial,
				},
			},
			missing: []string{"dimensions.y.dataset_id", "dimensions.y.context"},
		},
		{
			name: "optional color axis must be complete too",
			cfg: types.PlotConfig{
				PlotType:  types.PlotWaterfall,
				IndexType: "depmap_model",
				Dimensions: map[string]types.Dimension{
					types.AxisX:     completeDimension(),
					types.AxisColor: {},
				},
			},
			missing: []string{
				"dimensions.color.axis_mode", "dimensions.color.entity_type",
				"dimensions.color.dataset_id", "dimensions.color.context",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.cfg)
			assert.Equal(t, tt.missing, res.Missing)
			assert.Equal(t, len(tt.missing) == 0, res.Complete)
			assert.Equal(t, res.Complete, IsComplete(tt.cfg))
		})
	}
}
