// Package validator decides whether a PlotConfig is ready to execute.
package validator

import (
	"fmt"

	"github.com/matthewbaird/plotconfig/internal/types"
)

// Result lists what a configuration is missing. Missing entries are
// dotted paths such as "dimensions.x.dataset_id".
type Result struct {
	Complete bool     `json:"is_complete"`
	Missing  []string `json:"missing,omitempty"`
}

// IsComplete reports whether cfg can be executed.
func IsComplete(cfg types.PlotConfig) bool {
	return Check(cfg).Complete
}

// Check reports every missing part of cfg in a stable order.
func Check(cfg types.PlotConfig) Result {
	var missing []string
	if cfg.PlotType == "" {
		missing = append(missing, "plot_type")
	}
	if cfg.IndexType == "" {
		missing = append(missing, "index_type")
	}

	for _, axis := range types.RequiredAxes(cfg.PlotType) {
		if _, ok := cfg.Dimensions[axis]; !ok {
			missing = append(missing, "dimensions."+axis)
		}
	}
	if cfg.PlotType == "" && len(cfg.Dimensions) == 0 {
		missing = append(missing, "dimensions")
	}

	for _, axis := range cfg.AxisKeys() {
		missing = append(missing, checkDimension(axis, cfg.Dimensions[axis])...)
	}
	return Result{Complete: len(missing) == 0, Missing: missing}
}

func checkDimension(axis string, d types.Dimension) []string {
	var missing []string
	field := func(name string) string { return fmt.Sprintf("dimensions.%s.%s", axis, name) }
	if d.AxisMode == "" {
		missing = append(missing, field("axis_mode"))
	}
	if d.EntityType == "" {
		missing = append(missing, field("entity_type"))
	}
	if d.DatasetID == "" {
		missing = append(missing, field("dataset_id"))
	}
	if d.Context == nil {
		missing = append(missing, field("context"))
	}
	return missing
}
