package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/plotconfig/internal/types"
)

// Intent is a whole-configuration user action. The set of intents is closed.
type Intent interface {
	// Kind is the wire name of the intent.
	Kind() string
	intent()
}

// SetConfig replaces the configuration unconditionally.
type SetConfig struct {
	Config types.PlotConfig `json:"config"`
}

type SelectPlotType struct {
	PlotType types.PlotType `json:"plot_type"`
}

type SelectIndexType struct {
	IndexType string `json:"index_type"`
}

// SelectDimension replaces one axis. The result is not normalized.
type SelectDimension struct {
	Axis      string          `json:"axis"`
	Dimension types.Dimension `json:"dimension"`
}

// SelectFilter sets a filter; a nil Context deletes the key.
type SelectFilter struct {
	Key     string         `json:"key"`
	Context *types.Context `json:"context"`
}

type SelectColorBy struct {
	ColorBy types.ColorBy `json:"color_by"`
}

type SelectSortBy struct {
	SortBy string `json:"sort_by"`
}

// SelectColorProperty points the color property at an entity; nil clears it.
type SelectColorProperty struct {
	Entry *types.MetadataEntry `json:"entry"`
}

// SelectLegacyColorProperty takes the color property as a slice id of the
// form slice/<dataset_id>/<identifier>/<identifier_type>.
type SelectLegacyColorProperty struct {
	SliceID string `json:"slice_id"`
}

// SelectFlag toggles a display flag.
type SelectFlag struct {
	Flag  types.DisplayFlag `json:"flag"`
	Value bool              `json:"value"`
}

// SelectScatterYSlice turns the plot into a scatter whose y axis is one
// entity of a dataset.
type SelectScatterYSlice struct {
	DatasetID  string `json:"dataset_id"`
	Label      string `json:"label"`
	EntityType string `json:"entity_type"`
	GivenID    string `json:"given_id,omitempty"`
}

func (SetConfig) Kind() string                 { return "set" }
func (SelectPlotType) Kind() string            { return "select_plot_type" }
func (SelectIndexType) Kind() string           { return "select_index_type" }
func (SelectDimension) Kind() string           { return "select_dimension" }
func (SelectFilter) Kind() string              { return "select_filter" }
func (SelectColorBy) Kind() string             { return "select_color_by" }
func (SelectSortBy) Kind() string              { return "select_sort_by" }
func (SelectColorProperty) Kind() string       { return "select_color_property" }
func (SelectLegacyColorProperty) Kind() string { return "select_legacy_color_property" }
func (SelectFlag) Kind() string                { return "select_flag" }
func (SelectScatterYSlice) Kind() string       { return "select_scatter_y_slice" }

func (SetConfig) intent()                 {}
func (SelectPlotType) intent()            {}
func (SelectIndexType) intent()           {}
func (SelectDimension) intent()           {}
func (SelectFilter) intent()              {}
func (SelectColorBy) intent()             {}
func (SelectSortBy) intent()              {}
func (SelectColorProperty) intent()       {}
func (SelectLegacyColorProperty) intent() {}
func (SelectFlag) intent()                {}
func (SelectScatterYSlice) intent()       {}

// DecodeIntent decodes the payload of an intent of the given kind. An
// unknown kind yields an error wrapping ErrUnknownIntent.
func DecodeIntent(kind string, payload json.RawMessage) (Intent, error) {
	var in Intent
	switch kind {
	case "set":
		in = &SetConfig{}
	case "select_plot_type":
		in = &SelectPlotType{}
	case "select_index_type":
		in = &SelectIndexType{}
	case "select_dimension":
		in = &SelectDimension{}
	case "select_filter":
		in = &SelectFilter{}
	case "select_color_by":
		in = &SelectColorBy{}
	case "select_sort_by":
		in = &SelectSortBy{}
	case "select_color_property":
		in = &SelectColorProperty{}
	case "select_legacy_color_property":
		in = &SelectLegacyColorProperty{}
	case "select_flag":
		in = &SelectFlag{}
	case "select_scatter_y_slice":
		in = &SelectScatterYSlice{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, kind)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, in); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", kind, err)
		}
	}
	return deref(in), nil
}

// deref returns the value form of a decoded intent, so Reduce sees the same
// types whether an intent was built in code or decoded.
func deref(in Intent) Intent {
	switch v := in.(type) {
	case *SetConfig:
		return *v
	case *SelectPlotType:
		return *v
	case *SelectIndexType:
		return *v
	case *SelectDimension:
		return *v
	case *SelectFilter:
		return *v
	case *SelectColorBy:
		return *v
	case *SelectSortBy:
		return *v
	case *SelectColorProperty:
		return *v
	case *SelectLegacyColorProperty:
		return *v
	case *SelectFlag:
		return *v
	case *SelectScatterYSlice:
		return *v
	}
	return in
}
