package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/plotconfig/internal/catalog"
	"github.com/matthewbaird/plotconfig/internal/options"
	"github.com/matthewbaird/plotconfig/internal/types"
)

const index = "depmap_model"

func testCatalog() *catalog.MemoryCatalog {
	c := catalog.NewMemoryCatalog()
	c.AddItems(
		catalog.Item{ID: "crispr_a", DataType: "CRISPR", EntityType: "gene", DatasetLabel: "CRISPR A", Priority: 1, Units: "Gene Effect", IndexType: index},
		catalog.Item{ID: "crispr_b", DataType: "CRISPR", EntityType: "gene", DatasetLabel: "CRISPR B", Priority: 2, Units: "Gene Effect", IndexType: index},
		catalog.Item{ID: "rnai", DataType: "RNAi", EntityType: "gene", DatasetLabel: "RNAi", Units: "Gene Effect", IndexType: index},
		catalog.Item{ID: "expr", DataType: "Expression", EntityType: "gene", DatasetLabel: "Expression", Units: "TPM", IndexType: index},
		catalog.Item{ID: "prism", DataType: "Drug screen", EntityType: "compound", DatasetLabel: "PRISM", Units: "LFC", IndexType: index},
	)
	c.AddEntities(
		catalog.Entity{EntityType: "gene", ID: "6663", Label: "SOX10"},
		catalog.Entity{EntityType: "gene", ID: "3845", Label: "KRAS", Datasets: []string{"crispr_a"}},
		catalog.Entity{EntityType: "compound", ID: "PRC-1", Label: "dabrafenib"},
	)
	return c
}

func newResolver(c catalog.Client, initial types.Dimension, cfg Config) *Resolver {
	if cfg.IndexType == "" {
		cfg.IndexType = index
	}
	return New(options.New(c), initial, cfg)
}

func TestNew_InitialMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		mode types.AxisMode
		agg  types.AggregationMethod
	}{
		{"either defaults to single", Config{}, types.AxisSingle, types.AggFirst},
		{"either with aggregate default", Config{DefaultAxisMode: types.AxisAggregate}, types.AxisAggregate, types.AggMean},
		{"context only", Config{Mode: ModeContextOnly}, types.AxisAggregate, types.AggMean},
		{"entity only", Config{Mode: ModeEntityOnly, DefaultAxisMode: types.AxisAggregate}, types.AxisSingle, types.AggFirst},
		{"heatmap", Config{Mode: ModeContextOnly, PlotType: types.PlotCorrelationHeatmap}, types.AxisAggregate, types.AggCorrelation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dim := newResolver(testCatalog(), types.Dimension{}, tt.cfg).State().Dimension
			assert.Equal(t, tt.mode, dim.AxisMode)
			assert.Equal(t, tt.agg, dim.AggregationMethod)
		})
	}
}

func TestInit_AutoAssignsSingleDataType(t *testing.T) {
	c := catalog.NewMemoryCatalog()
	c.AddItems(catalog.Item{ID: "only", DataType: "CRISPR", EntityType: "gene", DatasetLabel: "Only", IndexType: index})

	var notified []types.Dimension
	r := newResolver(c, types.Dimension{}, Config{OnChange: func(d types.Dimension) { notified = append(notified, d) }})
	st := r.Init(context.Background())

	require.Len(t, st.Options.DataTypes, 1)
	assert.False(t, st.Options.DataTypes[0].IsDisabled)
	assert.Equal(t, "CRISPR", st.Dimension.DataType)
	assert.Equal(t, "gene", st.Dimension.EntityType)
	assert.Equal(t, "only", st.Dimension.DatasetID)
	assert.True(t, st.Dirty)
	assert.Len(t, notified, 1)

	// nothing left to change
	st = r.Init(context.Background())
	assert.False(t, st.Dirty)
	assert.Len(t, notified, 1)
}

func TestChange_DataTypeInfersEntityType(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{}, Config{})
	r.Init(ctx)

	st := r.Change(ctx, Change{Field: FieldDataType, Value: "CRISPR"})
	assert.Equal(t, "gene", st.Dimension.EntityType)
	assert.Empty(t, st.Dimension.DatasetID, "two CRISPR datasets remain")
	assert.True(t, st.Dirty)

	st = r.Change(ctx, Change{Field: FieldDataType, Value: "Drug screen"})
	assert.Equal(t, "gene", st.Dimension.EntityType, "entity type already set")
}

func TestChange_DataTypeAutoSelectsDataset(t *testing.T) {
	ctx := context.Background()
	var notified int
	r := newResolver(testCatalog(), types.Dimension{}, Config{OnChange: func(types.Dimension) { notified++ }})

	st := r.Change(ctx, Change{Field: FieldDataType, Value: "Drug screen"})
	assert.Equal(t, "compound", st.Dimension.EntityType)
	assert.Equal(t, "prism", st.Dimension.DatasetID)
	assert.Equal(t, 1, notified)
}

func TestChange_DataTypeClearsMismatchedDataset(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle, EntityType: "gene", DatasetID: "crispr_a"}, Config{})

	st := r.Change(ctx, Change{Field: FieldDataType, Value: "RNAi"})
	assert.Equal(t, "rnai", st.Dimension.DatasetID, "cleared then auto-assigned")
}

func TestChange_DataTypeClearedHeuristic(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle, EntityType: "compound"}, Config{})
	st := r.Init(ctx)
	require.Equal(t, 1, types.EnabledCount(st.Options.DataTypes))
	require.Equal(t, "Drug screen", st.Dimension.DataType)
	require.Equal(t, "prism", st.Dimension.DatasetID)

	st = r.Change(ctx, Change{Field: FieldDataType, Value: ""})
	assert.Empty(t, st.Dimension.DataType)
	assert.Empty(t, st.Dimension.EntityType)
	assert.Empty(t, st.Dimension.DatasetID)
	assert.Empty(t, st.Dimension.Units)
}

func TestChange_DataTypeClearedKeepsEntity(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle, EntityType: "gene", DataType: "CRISPR", DatasetID: "crispr_a"}, Config{})
	st := r.Init(ctx)
	require.Greater(t, types.EnabledCount(st.Options.DataTypes), 1)

	st = r.Change(ctx, Change{Field: FieldDataType, Value: ""})
	assert.Empty(t, st.Dimension.DataType)
	assert.Equal(t, "gene", st.Dimension.EntityType)
	assert.Equal(t, "crispr_a", st.Dimension.DatasetID)
}

func TestChange_EntityTypeDropsContext(t *testing.T) {
	ctx := context.Background()
	sel := &types.Context{Name: "dabrafenib", ContextType: "compound", Expr: `given_id = "PRC-1"`}
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle, EntityType: "compound", Context: sel}, Config{})

	st := r.Change(ctx, Change{Field: FieldEntityType, Value: "gene"})
	assert.Nil(t, st.Dimension.Context)
	assert.Empty(t, st.Dimension.DataType, "gene has three data types")
	assert.True(t, st.Dirty)
}

func TestChange_EntityTypeInfersDataType(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{}, Config{})

	st := r.Change(ctx, Change{Field: FieldEntityType, Value: "compound"})
	assert.Equal(t, "Drug screen", st.Dimension.DataType)
	assert.Equal(t, "prism", st.Dimension.DatasetID)
}

func TestChange_AxisMode(t *testing.T) {
	ctx := context.Background()
	sel := &types.Context{Name: "SOX10", ContextType: "gene", Expr: `entity_label = "SOX10"`}
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle, AggregationMethod: types.AggFirst, EntityType: "gene", Context: sel}, Config{})

	st := r.Change(ctx, Change{Field: FieldAxisMode, Value: string(types.AxisAggregate)})
	assert.Equal(t, types.AxisAggregate, st.Dimension.AxisMode)
	assert.Equal(t, types.AggMean, st.Dimension.AggregationMethod)
	assert.Nil(t, st.Dimension.Context)

	st = r.Change(ctx, Change{Field: FieldAxisMode, Value: string(types.AxisSingle)})
	assert.Equal(t, types.AggFirst, st.Dimension.AggregationMethod)
}

func TestChange_AxisModeUnderHeatmap(t *testing.T) {
	r := newResolver(testCatalog(), types.Dimension{}, Config{PlotType: types.PlotCorrelationHeatmap, DefaultAxisMode: types.AxisAggregate})
	st := r.Change(context.Background(), Change{Field: FieldAxisMode, Value: string(types.AxisAggregate)})
	assert.Equal(t, types.AggCorrelation, st.Dimension.AggregationMethod)
}

func TestChange_AxisModeRestricted(t *testing.T) {
	r := newResolver(testCatalog(), types.Dimension{}, Config{Mode: ModeContextOnly})
	st := r.Change(context.Background(), Change{Field: FieldAxisMode, Value: string(types.AxisSingle)})
	assert.Equal(t, types.AxisAggregate, st.Dimension.AxisMode)
}

func TestChange_ContextInfersAndAutoAssigns(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{}, Config{})

	st := r.Change(ctx, Change{Field: FieldContext, Context: &types.Context{
		Name: "KRAS", ContextType: "gene", Expr: `entity_label = "KRAS"`,
	}})
	assert.Equal(t, "gene", st.Dimension.EntityType)
	// KRAS is only in crispr_a, leaving one enabled data type and dataset
	assert.Equal(t, "CRISPR", st.Dimension.DataType)
	assert.Equal(t, "crispr_a", st.Dimension.DatasetID)

	st = r.Change(ctx, Change{Field: FieldContext})
	assert.Nil(t, st.Dimension.Context)
}

func TestChange_DatasetNoBackInference(t *testing.T) {
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle}, Config{})
	st := r.Change(context.Background(), Change{Field: FieldDatasetID, Value: "rnai"})
	assert.Equal(t, "rnai", st.Dimension.DatasetID)
	assert.Empty(t, st.Dimension.DataType)
	assert.Empty(t, st.Dimension.EntityType)
}

func TestChange_UnitsClearsDataset(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisSingle, EntityType: "gene", DatasetID: "crispr_a"}, Config{})

	st := r.Change(ctx, Change{Field: FieldUnits, Value: "Gene Effect"})
	assert.Equal(t, "Gene Effect", st.Dimension.Units)
	assert.Empty(t, st.Dimension.DatasetID)
	assert.True(t, st.Dirty)
}

func TestChange_AggregationMethod(t *testing.T) {
	r := newResolver(testCatalog(), types.Dimension{AxisMode: types.AxisAggregate, AggregationMethod: types.AggMean}, Config{})
	st := r.Change(context.Background(), Change{Field: FieldAggregationMethod, Value: string(types.AggMedian)})
	assert.Equal(t, types.AggMedian, st.Dimension.AggregationMethod)
	assert.True(t, st.Dirty)
}

func TestChange_AggregationMethodRejected(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		dim   types.Dimension
		cfg   Config
		value types.AggregationMethod
	}{
		{"correlation outside heatmap", types.Dimension{AxisMode: types.AxisAggregate, AggregationMethod: types.AggMean}, Config{PlotType: types.PlotDensity1D}, types.AggCorrelation},
		{"aggregate method on single axis", types.Dimension{AxisMode: types.AxisSingle, AggregationMethod: types.AggFirst}, Config{PlotType: types.PlotScatter}, types.AggMean},
		{"unknown method", types.Dimension{AxisMode: types.AxisAggregate, AggregationMethod: types.AggMean}, Config{PlotType: types.PlotWaterfall}, "bogus"},
		{"cleared method", types.Dimension{AxisMode: types.AxisSingle, AggregationMethod: types.AggFirst}, Config{}, ""},
		{"leaving correlation in heatmap", types.Dimension{AxisMode: types.AxisAggregate, AggregationMethod: types.AggCorrelation}, Config{Mode: ModeContextOnly, PlotType: types.PlotCorrelationHeatmap}, types.AggMedian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(testCatalog(), tt.dim, tt.cfg)
			st := r.Change(ctx, Change{Field: FieldAggregationMethod, Value: string(tt.value)})
			assert.Equal(t, tt.dim.AggregationMethod, st.Dimension.AggregationMethod)
			assert.False(t, st.Dirty)
		})
	}
}

// P5: every unset field with exactly one enabled option ends up assigned.
func TestChange_AssignsSoleOptions(t *testing.T) {
	ctx := context.Background()
	changes := []Change{
		{Field: FieldDataType, Value: "Drug screen"},
		{Field: FieldEntityType, Value: "gene"},
		{Field: FieldUnits, Value: "TPM"},
		{Field: FieldContext, Context: &types.Context{Name: "KRAS", ContextType: "gene", Expr: `given_id = "3845"`}},
	}
	for _, ch := range changes {
		t.Run(string(ch.Field), func(t *testing.T) {
			r := newResolver(testCatalog(), types.Dimension{}, Config{})
			st := r.Change(ctx, ch)
			check := []struct {
				value string
				opts  []types.Option
			}{
				{st.Dimension.DataType, st.Options.DataTypes},
				{st.Dimension.EntityType, st.Options.EntityTypes},
				{st.Dimension.DatasetID, st.Options.Datasets},
			}
			for _, c := range check {
				if v, ok := types.SoleEnabled(c.opts); ok {
					assert.NotEmpty(t, c.value, "sole option %q not assigned", v)
				}
			}
		})
	}
}

type flakyCatalog struct {
	catalog.Client
	fail atomic.Bool
}

func (f *flakyCatalog) ListCompatibleItems(ctx context.Context, indexType string) ([]catalog.Item, error) {
	if f.fail.Load() {
		return nil, errors.New("catalog unavailable")
	}
	return f.Client.ListCompatibleItems(ctx, indexType)
}

func TestChange_FailureRetainsState(t *testing.T) {
	ctx := context.Background()
	fc := &flakyCatalog{Client: testCatalog()}
	var notified int
	r := newResolver(fc, types.Dimension{}, Config{OnChange: func(types.Dimension) { notified++ }})

	before := r.Change(ctx, Change{Field: FieldDataType, Value: "CRISPR"})
	require.Equal(t, 1, notified)

	fc.fail.Store(true)
	after := r.Change(ctx, Change{Field: FieldDataType, Value: "Drug screen"})
	assert.Equal(t, before.Dimension, after.Dimension)
	assert.Same(t, before.Options, after.Options)
	assert.False(t, r.IsLoading())
	assert.Equal(t, 1, notified)
}

// gatedCatalog blocks item lookups while armed until the gate is closed.
type gatedCatalog struct {
	catalog.Client
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedCatalog) ListCompatibleItems(ctx context.Context, indexType string) ([]catalog.Item, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.gate
	}
	return g.Client.ListCompatibleItems(ctx, indexType)
}

func racingChanges(t *testing.T, discardStale bool) (*Resolver, State) {
	t.Helper()
	ctx := context.Background()
	g := &gatedCatalog{Client: testCatalog(), entered: make(chan struct{}), gate: make(chan struct{})}
	g.armed.Store(true)
	r := newResolver(g, types.Dimension{}, Config{DiscardStale: discardStale})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Change(ctx, Change{Field: FieldDataType, Value: "Drug screen"})
	}()
	<-g.entered
	assert.True(t, r.IsLoading())

	r.Change(ctx, Change{Field: FieldDataType, Value: "CRISPR"})
	close(g.gate)
	wg.Wait()

	assert.False(t, r.IsLoading())
	return r, r.State()
}

func TestChange_DiscardStale(t *testing.T) {
	_, st := racingChanges(t, true)
	assert.Equal(t, "CRISPR", st.Dimension.DataType)
}

func TestChange_LastWriterWins(t *testing.T) {
	_, st := racingChanges(t, false)
	assert.Equal(t, "Drug screen", st.Dimension.DataType)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	r := newResolver(testCatalog(), types.Dimension{}, Config{})
	r.Change(ctx, Change{Field: FieldDataType, Value: "CRISPR"})

	r.Reset(types.NewDimension(types.AxisAggregate), index, types.PlotCorrelationHeatmap)
	st := r.State()
	assert.Empty(t, st.Dimension.DataType)
	assert.Equal(t, types.AxisAggregate, st.Dimension.AxisMode)

	st = r.Change(ctx, Change{Field: FieldAxisMode, Value: string(types.AxisAggregate)})
	assert.Equal(t, types.AggCorrelation, st.Dimension.AggregationMethod)
}
