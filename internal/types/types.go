// Package types provides the Go structs shared by every layer of the plot
// configuration engine: the per-axis DimensionSelection, predicate contexts,
// option lists, and the top-level PlotConfig.
package types

import "sort"

// PlotType identifies the visualization a PlotConfig describes.
type PlotType string

const (
	PlotDensity1D          PlotType = "density_1d"
	PlotWaterfall          PlotType = "waterfall"
	PlotScatter            PlotType = "scatter"
	PlotCorrelationHeatmap PlotType = "correlation_heatmap"
)

// AxisMode is whether a dimension resolves to one entity or to values
// aggregated over a predicate-defined set.
type AxisMode string

const (
	AxisSingle    AxisMode = "single"
	AxisAggregate AxisMode = "aggregate"
)

// AggregationMethod reduces a set of values to one value per index entry.
type AggregationMethod string

const (
	// AggFirst is the identity method used by single-entity dimensions.
	AggFirst       AggregationMethod = "first"
	AggMean        AggregationMethod = "mean"
	AggMedian      AggregationMethod = "median"
	AggQuantile25  AggregationMethod = "25%tile"
	AggQuantile75  AggregationMethod = "75%tile"
	AggStddev      AggregationMethod = "stddev"
	AggCorrelation AggregationMethod = "correlation"
)

// ColorBy selects how points are colored.
type ColorBy string

const (
	ColorByRawSlice        ColorBy = "raw_slice"
	ColorByAggregatedSlice ColorBy = "aggregated_slice"
	ColorByProperty        ColorBy = "property"
	ColorByCustom          ColorBy = "custom"
)

// Well-known axis keys.
const (
	AxisX     = "x"
	AxisY     = "y"
	AxisColor = "color"
)

// Well-known filter and metadata keys.
const (
	FilterVisible       = "visible"
	FilterDistinguish1  = "distinguish1"
	FilterDistinguish2  = "distinguish2"
	MetadataColorProp   = "color_property"
	SortAlphabetical    = "alphabetical"
	DefaultEntityDomain = "depmap_model"
	IndexTypeOther      = "other"
	EntityTypeCustom    = "custom"
)

// DisplayFlag names a boolean display option of a PlotConfig.
type DisplayFlag string

const (
	FlagHidePoints         DisplayFlag = "hide_points"
	FlagHideIdentityLine   DisplayFlag = "hide_identity_line"
	FlagShowRegressionLine DisplayFlag = "show_regression_line"
	FlagUseClustering      DisplayFlag = "use_clustering"
)

// AllFlags lists every display flag in a stable order.
var AllFlags = []DisplayFlag{FlagHidePoints, FlagHideIdentityLine, FlagShowRegressionLine, FlagUseClustering}

// FlagPlotType returns the only plot type that uses the given flag.
func FlagPlotType(f DisplayFlag) PlotType {
	switch f {
	case FlagHidePoints:
		return PlotDensity1D
	case FlagHideIdentityLine, FlagShowRegressionLine:
		return PlotScatter
	case FlagUseClustering:
		return PlotCorrelationHeatmap
	default:
		return ""
	}
}

// RequiredAxes returns the axis keys a plot type needs, in display order.
func RequiredAxes(pt PlotType) []string {
	switch pt {
	case PlotDensity1D, PlotWaterfall, PlotCorrelationHeatmap:
		return []string{AxisX}
	case PlotScatter:
		return []string{AxisX, AxisY}
	default:
		return nil
	}
}

// RequiredAxisCount returns len(RequiredAxes(pt)).
func RequiredAxisCount(pt PlotType) int {
	return len(RequiredAxes(pt))
}

// IsAggregate reports whether m is one of the aggregate methods.
func (m AggregationMethod) IsAggregate() bool {
	switch m {
	case AggMean, AggMedian, AggQuantile25, AggQuantile75, AggStddev, AggCorrelation:
		return true
	}
	return false
}

// AggregationAllowed reports whether m may be stored on a dimension with the
// given axis mode in a plot of type pt. A correlation heatmap takes only
// correlation, a single axis only first, and an aggregate axis any other
// aggregate method.
func AggregationAllowed(pt PlotType, mode AxisMode, m AggregationMethod) bool {
	if pt == PlotCorrelationHeatmap {
		return m == AggCorrelation
	}
	switch mode {
	case AxisSingle:
		return m == AggFirst
	case AxisAggregate:
		return m.IsAggregate() && m != AggCorrelation
	}
	return false
}

// DefaultAggregation returns the aggregation method implied by an axis mode.
func DefaultAggregation(mode AxisMode) AggregationMethod {
	if mode == AxisAggregate {
		return AggMean
	}
	return AggFirst
}

// Context references one entity or a named boolean predicate over entity
// properties. Expr is written in the predicate expression language; "true"
// matches every entity of ContextType.
type Context struct {
	Name        string `json:"name"`
	ContextType string `json:"context_type"`
	Expr        string `json:"expr"`
}

// EntityReference denotes one row or column of a dataset.
type EntityReference struct {
	DatasetID  string `json:"dataset_id"`
	Identifier string `json:"identifier"`
}

// Dimension is one axis' DimensionSelection. Empty strings and a nil
// Context mean "unset".
type Dimension struct {
	DataType          string            `json:"data_type,omitempty"`
	EntityType        string            `json:"entity_type,omitempty"`
	AxisMode          AxisMode          `json:"axis_mode,omitempty"`
	Context           *Context          `json:"context,omitempty"`
	DatasetID         string            `json:"dataset_id,omitempty"`
	AggregationMethod AggregationMethod `json:"aggregation_method,omitempty"`
	Units             string            `json:"units,omitempty"`
}

// Clone returns a deep copy of d.
func (d Dimension) Clone() Dimension {
	if d.Context != nil {
		c := *d.Context
		d.Context = &c
	}
	return d
}

// NewDimension returns an empty selection in the given mode.
func NewDimension(mode AxisMode) Dimension {
	return Dimension{AxisMode: mode, AggregationMethod: DefaultAggregation(mode)}
}

// MetadataEntry points a metadata slot (e.g. the color property) at an
// entity of a dataset.
type MetadataEntry struct {
	DatasetID      string `json:"dataset_id"`
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type,omitempty"`
}

// PlotConfig is the complete, serializable description of a plot.
type PlotConfig struct {
	PlotType   PlotType                 `json:"plot_type,omitempty"`
	IndexType  string                   `json:"index_type,omitempty"`
	Dimensions map[string]Dimension     `json:"dimensions,omitempty"`
	Filters    map[string]Context       `json:"filters,omitempty"`
	Metadata   map[string]MetadataEntry `json:"metadata,omitempty"`
	ColorBy    ColorBy                  `json:"color_by,omitempty"`
	SortBy     string                   `json:"sort_by,omitempty"`

	HidePoints         *bool `json:"hide_points,omitempty"`
	HideIdentityLine   *bool `json:"hide_identity_line,omitempty"`
	ShowRegressionLine *bool `json:"show_regression_line,omitempty"`
	UseClustering      *bool `json:"use_clustering,omitempty"`
}

// Clone returns a deep copy of c. Nil maps stay nil.
func (c PlotConfig) Clone() PlotConfig {
	out := c
	if c.Dimensions != nil {
		out.Dimensions = make(map[string]Dimension, len(c.Dimensions))
		for k, d := range c.Dimensions {
			out.Dimensions[k] = d.Clone()
		}
	}
	if c.Filters != nil {
		out.Filters = make(map[string]Context, len(c.Filters))
		for k, f := range c.Filters {
			out.Filters[k] = f
		}
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]MetadataEntry, len(c.Metadata))
		for k, m := range c.Metadata {
			out.Metadata[k] = m
		}
	}
	out.HidePoints = cloneBool(c.HidePoints)
	out.HideIdentityLine = cloneBool(c.HideIdentityLine)
	out.ShowRegressionLine = cloneBool(c.ShowRegressionLine)
	out.UseClustering = cloneBool(c.UseClustering)
	return out
}

// Flag returns the pointer field backing f, or nil for an unknown flag.
func (c *PlotConfig) Flag(f DisplayFlag) **bool {
	switch f {
	case FlagHidePoints:
		return &c.HidePoints
	case FlagHideIdentityLine:
		return &c.HideIdentityLine
	case FlagShowRegressionLine:
		return &c.ShowRegressionLine
	case FlagUseClustering:
		return &c.UseClustering
	default:
		return nil
	}
}

// AxisKeys returns the populated axis keys in sorted order.
func (c PlotConfig) AxisKeys() []string {
	keys := make([]string, 0, len(c.Dimensions))
	for k := range c.Dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Option is one candidate value for a field. A disabled option always
// carries a non-empty DisabledReason.
type Option struct {
	Value          string `json:"value"`
	Label          string `json:"label"`
	IsDisabled     bool   `json:"is_disabled"`
	DisabledReason string `json:"disabled_reason,omitempty"`
	IsDefault      bool   `json:"is_default,omitempty"`
}

// EnabledCount returns how many options are not disabled.
func EnabledCount(opts []Option) int {
	n := 0
	for _, o := range opts {
		if !o.IsDisabled {
			n++
		}
	}
	return n
}

// SoleEnabled returns the value of the only enabled option, if exactly one
// option is enabled.
func SoleEnabled(opts []Option) (string, bool) {
	var val string
	n := 0
	for _, o := range opts {
		if !o.IsDisabled {
			val = o.Value
			n++
		}
	}
	return val, n == 1
}
