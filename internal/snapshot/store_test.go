package snapshot

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/types"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func completed(sessionID string, pt types.PlotType, minutes int) event.Event {
	cfg := types.PlotConfig{
		PlotType:  pt,
		IndexType: types.DefaultEntityDomain,
		Dimensions: map[string]types.Dimension{
			types.AxisX: {DataType: "CRISPR", EntityType: "gene", AxisMode: types.AxisSingle, DatasetID: "Chronos_Combined"},
		},
	}
	evt := event.NewConfigCompleted(sessionID, cfg)
	evt.OccurredAt = base.Add(time.Duration(minutes) * time.Minute)
	return evt
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(db)
	require.NoError(t, s.CreateTable(context.Background()))
	require.NoError(t, s.CreateTable(context.Background()), "CreateTable is idempotent")
	return s
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sql":    func(t *testing.T) Store { return newSQLStore(t) },
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("write and get", func(t *testing.T) { testWriteAndGet(t, mk(t)) })
			t.Run("filters", func(t *testing.T) { testFilters(t, mk(t)) })
			t.Run("pagination", func(t *testing.T) { testPagination(t, mk(t)) })
		})
	}
}

func testWriteAndGet(t *testing.T, s Store) {
	ctx := context.Background()
	evt := completed("s1", types.PlotScatter, 0)
	require.NoError(t, s.Write(ctx, evt))
	require.NoError(t, s.Write(ctx, event.NewSessionClosed("s1", "expired")))

	got, err := s.Get(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, types.PlotScatter, got.PlotType)
	assert.Equal(t, evt.Summary, got.Summary)
	assert.True(t, got.CreatedAt.Equal(evt.OccurredAt))

	cfg, err := got.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Chronos_Combined", cfg.Dimensions[types.AxisX].DatasetID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, _, total, err := s.List(ctx, DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, total, "session_closed events are not stored")
	assert.Len(t, all, 1)
}

func testFilters(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, completed("s1", types.PlotScatter, 0)))
	require.NoError(t, s.Write(ctx, completed("s1", types.PlotDensity1D, 10)))
	require.NoError(t, s.Write(ctx, completed("s2", types.PlotScatter, 20)))

	opts := DefaultQueryOptions()
	opts.SessionID = "s1"
	got, _, total, err := s.List(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, types.PlotDensity1D, got[0].PlotType, "newest first")

	opts = DefaultQueryOptions()
	opts.PlotType = types.PlotScatter
	_, _, total, err = s.List(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	since := base.Add(5 * time.Minute)
	until := base.Add(15 * time.Minute)
	opts = DefaultQueryOptions()
	opts.Since, opts.Until = &since, &until
	got, _, total, err = s.List(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, types.PlotDensity1D, got[0].PlotType)
}

func testPagination(t *testing.T, s Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Write(ctx, completed("s1", types.PlotScatter, i)))
	}

	opts := DefaultQueryOptions()
	opts.Limit = 2
	page1, cursor, total, err := s.List(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	require.NotEmpty(t, cursor)

	opts.Cursor = cursor
	page2, cursor, _, err := s.List(ctx, opts)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.True(t, page2[0].CreatedAt.Before(page1[1].CreatedAt))

	opts.Cursor = cursor
	page3, cursor, _, err := s.List(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.Empty(t, cursor)
}

func TestQueryOptionsLimit(t *testing.T) {
	assert.Equal(t, 50, QueryOptions{}.limit())
	assert.Equal(t, 50, QueryOptions{Limit: 501}.limit())
	assert.Equal(t, 7, QueryOptions{Limit: 7}.limit())
}
