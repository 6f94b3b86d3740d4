package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource []byte

// Seed is the decoded content of a catalog seed file.
type Seed struct {
	Items    []Item   `json:"items"`
	Entities []Entity `json:"entities"`
}

// LoadSeed reads a CUE seed file and validates it against the #Catalog schema.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	return ParseSeed(path, data)
}

// ParseSeed validates and decodes CUE seed source. filename is only used in
// error positions.
func ParseSeed(filename string, data []byte) (*Seed, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", err)
	}

	val := ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}

	var seed Seed
	if err := unified.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	if err := seed.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &seed, nil
}

// check enforces the cross-record rules CUE cannot express on lists.
func (s *Seed) check() error {
	ids := make(map[string]bool, len(s.Items))
	for _, it := range s.Items {
		if ids[it.ID] {
			return fmt.Errorf("duplicate dataset id %q", it.ID)
		}
		ids[it.ID] = true
	}
	for _, e := range s.Entities {
		for _, d := range e.Datasets {
			if !ids[d] {
				return fmt.Errorf("entity %s/%s references unknown dataset %q", e.EntityType, e.ID, d)
			}
		}
	}
	return nil
}

// Memory builds a MemoryCatalog holding the seed.
func (s *Seed) Memory() *MemoryCatalog {
	c := NewMemoryCatalog()
	c.AddItems(s.Items...)
	c.AddEntities(s.Entities...)
	return c
}

// Import writes the seed into a SQL catalog.
func (s *Seed) Import(ctx context.Context, c *SQLCatalog) error {
	if err := c.InsertItems(ctx, s.Items...); err != nil {
		return err
	}
	return c.InsertEntities(ctx, s.Entities...)
}
