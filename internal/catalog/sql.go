package catalog

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
)

const (
	itemsTable    = "catalog_items"
	entitiesTable = "catalog_entities"
)

// SQLCatalog is a Client backed by two SQLite tables. Dataset membership of
// an entity is stored as a JSON array.
type SQLCatalog struct {
	drv *sql.Driver
}

// NewSQLCatalog wraps an open SQLite database.
func NewSQLCatalog(db *stdsql.DB) *SQLCatalog {
	return &SQLCatalog{drv: sql.OpenDB(dialect.SQLite, db)}
}

func (c *SQLCatalog) builder() *sql.DialectBuilder {
	return sql.Dialect(c.drv.Dialect())
}

// catalogSchema holds the catalog DDL. ent's builder has no DDL support.
var catalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + itemsTable + ` (
	id TEXT NOT NULL,
	index_type TEXT NOT NULL,
	data_type TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	dataset_label TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	value_kind TEXT NOT NULL DEFAULT '',
	units TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (index_type, id)
)`,
	`CREATE TABLE IF NOT EXISTS ` + entitiesTable + ` (
	entity_type TEXT NOT NULL,
	id TEXT NOT NULL,
	label TEXT NOT NULL,
	datasets TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (entity_type, id)
)`,
}

// CreateTables creates the catalog tables if they do not exist.
func (c *SQLCatalog) CreateTables(ctx context.Context) error {
	for _, stmt := range catalogSchema {
		if _, err := c.drv.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating catalog table: %w", err)
		}
	}
	return nil
}

// InsertItems adds datasets to the catalog.
func (c *SQLCatalog) InsertItems(ctx context.Context, items ...Item) error {
	if len(items) == 0 {
		return nil
	}
	ins := c.builder().Insert(itemsTable).
		Columns("id", "index_type", "data_type", "entity_type", "dataset_label", "priority", "value_kind", "units")
	for _, it := range items {
		ins.Values(it.ID, it.IndexType, it.DataType, it.EntityType, it.DatasetLabel, it.Priority, it.ValueKind, it.Units)
	}
	query, args := ins.Query()
	if _, err := c.drv.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting catalog items: %w", err)
	}
	return nil
}

// InsertEntities adds identifiers to the catalog.
func (c *SQLCatalog) InsertEntities(ctx context.Context, entities ...Entity) error {
	if len(entities) == 0 {
		return nil
	}
	ins := c.builder().Insert(entitiesTable).Columns("entity_type", "id", "label", "datasets")
	for _, e := range entities {
		ds := e.Datasets
		if ds == nil {
			ds = []string{}
		}
		raw, err := json.Marshal(ds)
		if err != nil {
			return fmt.Errorf("encoding datasets of %s: %w", e.ID, err)
		}
		ins.Values(e.EntityType, e.ID, e.Label, string(raw))
	}
	query, args := ins.Query()
	if _, err := c.drv.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting catalog entities: %w", err)
	}
	return nil
}

func (c *SQLCatalog) ListCompatibleItems(ctx context.Context, indexType string) ([]Item, error) {
	b := c.builder()
	query, args := b.Select("id", "index_type", "data_type", "entity_type", "dataset_label", "priority", "value_kind", "units").
		From(b.Table(itemsTable)).
		Where(sql.EQ("index_type", indexType)).
		OrderBy("id").
		Query()

	rows, err := c.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.IndexType, &it.DataType, &it.EntityType, &it.DatasetLabel, &it.Priority, &it.ValueKind, &it.Units); err != nil {
			return nil, fmt.Errorf("scanning catalog item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

func (c *SQLCatalog) ListIdentifiers(ctx context.Context, entityType, datasetID string) ([]Identifier, error) {
	b := c.builder()
	query, args := b.Select("id", "label", "datasets").
		From(b.Table(entitiesTable)).
		Where(sql.EQ("entity_type", entityType)).
		OrderBy("id").
		Query()

	rows, err := c.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog identifiers: %w", err)
	}
	defer rows.Close()

	var (
		out   []Identifier
		found bool
	)
	for rows.Next() {
		var (
			e   Entity
			raw string
		)
		if err := rows.Scan(&e.ID, &e.Label, &raw); err != nil {
			return nil, fmt.Errorf("scanning catalog identifier: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.Datasets); err != nil {
			return nil, fmt.Errorf("decoding datasets of %s: %w", e.ID, err)
		}
		found = true
		if datasetID != "" && !e.InDataset(datasetID) {
			continue
		}
		out = append(out, Identifier{ID: e.ID, Label: e.Label})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog identifiers: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}
