package snapshot

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/plotconfig/internal/event"
	"github.com/matthewbaird/plotconfig/internal/types"
)

const table = "plot_snapshots"

var columns = []string{"id", "session_id", "created_at", "plot_type", "index_type", "summary", "config"}

// SQLStore implements Store on SQLite. Timestamps are stored as RFC 3339
// text with nanoseconds so they sort lexically.
type SQLStore struct {
	drv *sql.Driver
}

// NewSQLStore wraps an open SQLite database.
func NewSQLStore(db *stdsql.DB) *SQLStore {
	return &SQLStore{drv: sql.OpenDB(dialect.SQLite, db)}
}

func (s *SQLStore) builder() *sql.DialectBuilder {
	return sql.Dialect(s.drv.Dialect())
}

const schema = `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id TEXT NOT NULL PRIMARY KEY,
	session_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	plot_type TEXT NOT NULL,
	index_type TEXT NOT NULL,
	summary TEXT NOT NULL,
	config TEXT NOT NULL
)`

// CreateTable creates the snapshot table if it does not exist.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	if _, err := s.drv.DB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}
	return nil
}

func (s *SQLStore) Write(ctx context.Context, evt event.Event) error {
	snap, ok := fromEvent(evt)
	if !ok {
		return nil
	}
	query, args := s.builder().Insert(table).
		Columns(columns...).
		Values(snap.ID, snap.SessionID, snap.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(snap.PlotType), snap.IndexType, snap.Summary, string(snap.Config)).
		Query()
	if _, err := s.drv.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Snapshot, error) {
	b := s.builder()
	query, args := b.Select(columns...).
		From(b.Table(table)).
		Where(sql.EQ("id", id)).
		Query()
	row := s.drv.DB().QueryRowContext(ctx, query, args...)
	snap, err := scan(row)
	if errors.Is(err, stdsql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snap, err
}

func (s *SQLStore) List(ctx context.Context, opts QueryOptions) ([]Snapshot, string, int, error) {
	var preds []*sql.Predicate
	if opts.SessionID != "" {
		preds = append(preds, sql.EQ("session_id", opts.SessionID))
	}
	if opts.PlotType != "" {
		preds = append(preds, sql.EQ("plot_type", string(opts.PlotType)))
	}
	if opts.Since != nil {
		preds = append(preds, sql.GTE("created_at", opts.Since.UTC().Format(time.RFC3339Nano)))
	}
	if opts.Until != nil {
		preds = append(preds, sql.LTE("created_at", opts.Until.UTC().Format(time.RFC3339Nano)))
	}

	b := s.builder()
	count := b.Select(sql.Count("*")).From(b.Table(table))
	if len(preds) > 0 {
		count.Where(sql.And(preds...))
	}
	query, args := count.Query()
	var total int
	if err := s.drv.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, "", 0, fmt.Errorf("counting snapshots: %w", err)
	}

	if opts.Cursor != "" {
		// Cursor is the created_at timestamp of the last result.
		if t, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			preds = append(preds, sql.LT("created_at", t.UTC().Format(time.RFC3339Nano)))
		}
	}
	limit := opts.limit()
	sel := b.Select(columns...).From(b.Table(table)).
		OrderBy(sql.Desc("created_at")).
		Limit(limit + 1) // fetch one extra for cursor
	if len(preds) > 0 {
		sel.Where(sql.And(preds...))
	}
	query, args = sel.Query()

	rows, err := s.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", 0, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scan(rows)
		if err != nil {
			return nil, "", 0, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, "", 0, fmt.Errorf("iterating snapshots: %w", err)
	}

	var nextCursor string
	if len(out) > limit {
		out = out[:limit]
		nextCursor = out[len(out)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return out, nextCursor, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (Snapshot, error) {
	var (
		snap              Snapshot
		created, plotType string
		config            string
	)
	if err := r.Scan(&snap.ID, &snap.SessionID, &created, &plotType, &snap.IndexType, &snap.Summary, &config); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("scanning snapshot: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parsing created_at of %s: %w", snap.ID, err)
	}
	snap.CreatedAt = t
	snap.PlotType = types.PlotType(plotType)
	snap.Config = []byte(config)
	return snap, nil
}
