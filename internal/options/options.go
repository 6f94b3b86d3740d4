// Package options computes, for every field of a dimension selection, the
// ordered list of candidate values the catalog allows, with a reason on every
// disabled entry.
package options

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/plotconfig/internal/catalog"
	"github.com/matthewbaird/plotconfig/internal/predicate"
	"github.com/matthewbaird/plotconfig/internal/types"
)

// Set holds the option lists of one dimension.
type Set struct {
	DataTypes   []types.Option `json:"data_types"`
	EntityTypes []types.Option `json:"entity_types"`
	Datasets    []types.Option `json:"datasets"`
	Units       []types.Option `json:"units"`
}

// Computer derives option sets from a catalog. It holds no state of its own;
// wrap the catalog in catalog.Cached to memoize lookups.
type Computer struct {
	catalog catalog.Client
}

// New creates a Computer over c.
func New(c catalog.Client) *Computer {
	return &Computer{catalog: c}
}

// Lookup returns the compatibility index for indexType. An index type
// unknown to the catalog yields an empty index.
func (c *Computer) Lookup(ctx context.Context, indexType string) (*Index, error) {
	if indexType == "" {
		return NewIndex(nil), nil
	}
	items, err := c.catalog.ListCompatibleItems(ctx, indexType)
	if errors.Is(err, catalog.ErrNotFound) {
		return NewIndex(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing items for %s: %w", indexType, err)
	}
	return NewIndex(items), nil
}

// Compute returns the option set for dim under indexType. Only catalog
// failures produce an error; missing inputs produce empty lists.
func (c *Computer) Compute(ctx context.Context, dim types.Dimension, indexType string) (*Set, error) {
	if indexType == "" {
		return &Set{}, nil
	}
	idx, err := c.Lookup(ctx, indexType)
	if err != nil {
		return nil, err
	}
	return c.ComputeWithIndex(ctx, dim, indexType, idx)
}

// ComputeWithIndex is Compute over an index already fetched by Lookup.
func (c *Computer) ComputeWithIndex(ctx context.Context, dim types.Dimension, indexType string, idx *Index) (*Set, error) {
	inContext, err := c.contextMatches(ctx, dim.Context, idx.Items())
	if err != nil {
		return nil, err
	}
	q := query{dim: dim, indexType: indexType, idx: idx, inContext: inContext}
	return &Set{
		DataTypes:   q.dataTypeOptions(),
		EntityTypes: q.entityTypeOptions(),
		Datasets:    q.datasetOptions(),
		Units:       q.unitsOptions(),
	}, nil
}

// contextMatches reports, per dataset id, whether the dataset contains at
// least one identifier matched by the context. A nil result means no context
// is set and every dataset is compatible.
func (c *Computer) contextMatches(ctx context.Context, sel *types.Context, items []catalog.Item) (map[string]bool, error) {
	if sel == nil {
		return nil, nil
	}
	out := make(map[string]bool, len(items))
	matcher, err := predicate.Compile(sel.Expr)
	if err != nil {
		// An unparseable context matches nothing.
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, it := range items {
		if it.EntityType != sel.ContextType {
			continue
		}
		g.Go(func() error {
			ids, err := c.catalog.ListIdentifiers(gctx, it.EntityType, it.ID)
			if errors.Is(err, catalog.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("listing identifiers of %s: %w", it.ID, err)
			}
			for _, id := range ids {
				if matcher.Match(predicate.IdentifierProps(id.ID, id.Label)) {
					mu.Lock()
					out[it.ID] = true
					mu.Unlock()
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type query struct {
	dim       types.Dimension
	indexType string
	idx       *Index
	inContext map[string]bool
}

func (q query) contextOK(it catalog.Item) bool {
	return q.inContext == nil || q.inContext[it.ID]
}

func (q query) contextReason() string {
	c := q.dim.Context
	return fmt.Sprintf("no entities match context %q (%s)", c.Name, c.ContextType)
}

func (q query) dataTypeOptions() []types.Option {
	return q.typeOptions(
		func(it catalog.Item) string { return it.DataType },
		func(it catalog.Item) bool { return q.dim.EntityType == "" || it.EntityType == q.dim.EntityType },
		fmt.Sprintf("not available for entity type %q", q.dim.EntityType),
		q.dim.DataType,
	)
}

func (q query) entityTypeOptions() []types.Option {
	return q.typeOptions(
		func(it catalog.Item) string { return it.EntityType },
		func(it catalog.Item) bool { return q.dim.DataType == "" || it.DataType == q.dim.DataType },
		fmt.Sprintf("not available for data type %q", q.dim.DataType),
		q.dim.EntityType,
	)
}

// typeOptions lists the distinct values of key across all items. A value is
// disabled when none of its items satisfies the prior selection (compatible),
// or when none of the compatible ones intersects the context.
func (q query) typeOptions(key func(catalog.Item) string, compatible func(catalog.Item) bool, conflict, selected string) []types.Option {
	type state struct{ any, compatible, inContext bool }
	seen := make(map[string]*state)
	var order []string
	for _, it := range q.idx.Items() {
		k := key(it)
		st, ok := seen[k]
		if !ok {
			st = &state{}
			seen[k] = st
			order = append(order, k)
		}
		st.any = true
		if compatible(it) {
			st.compatible = true
			if q.contextOK(it) {
				st.inContext = true
			}
		}
	}

	opts := make([]types.Option, 0, len(order)+1)
	for _, k := range order {
		st := seen[k]
		opt := types.Option{Value: k, Label: k}
		switch {
		case !st.compatible:
			opt.IsDisabled, opt.DisabledReason = true, conflict
		case !st.inContext:
			opt.IsDisabled, opt.DisabledReason = true, q.contextReason()
		}
		opts = append(opts, opt)
	}
	sortOptions(opts)
	if selected != "" && seen[selected] == nil {
		opts = append(opts, unknownOption(selected, selected+" (unknown)", q.indexType))
	}
	return opts
}

func (q query) datasetOptions() []types.Option {
	var opts []types.Option
	bestPriority, best := 0, -1
	found := false
	for _, it := range q.idx.Items() {
		if q.dim.DataType != "" && it.DataType != q.dim.DataType {
			continue
		}
		if it.ID == q.dim.DatasetID {
			found = true
		}
		opt := types.Option{Value: it.ID, Label: it.DatasetLabel}
		switch {
		case q.dim.EntityType != "" && it.EntityType != q.dim.EntityType:
			opt.IsDisabled = true
			opt.DisabledReason = fmt.Sprintf("not available for entity type %q", q.dim.EntityType)
		case !q.contextOK(it):
			opt.IsDisabled, opt.DisabledReason = true, q.contextReason()
		case q.dim.Units != "" && it.Units != q.dim.Units:
			opt.IsDisabled = true
			opt.DisabledReason = fmt.Sprintf("not measured in %q", q.dim.Units)
		}
		opts = append(opts, opt)
		if !opt.IsDisabled && it.Priority > 0 && (best < 0 || it.Priority < bestPriority) {
			bestPriority, best = it.Priority, len(opts)-1
		}
	}
	if best >= 0 {
		opts[best].IsDefault = true
	}
	sort.SliceStable(opts, func(i, j int) bool {
		return strings.ToLower(opts[i].Label) < strings.ToLower(opts[j].Label)
	})
	if q.dim.DatasetID != "" && !found {
		if _, ok := q.idx.Item(q.dim.DatasetID); ok {
			// Known dataset of another data type.
			opts = append(opts, types.Option{
				Value:          q.dim.DatasetID,
				Label:          q.dim.DatasetID,
				IsDisabled:     true,
				DisabledReason: fmt.Sprintf("not available for data type %q", q.dim.DataType),
			})
		} else {
			opts = append(opts, unknownOption(q.dim.DatasetID, q.dim.DatasetID+" (unknown version)", q.indexType))
		}
	}
	return opts
}

func (q query) unitsOptions() []types.Option {
	type state struct{ inContext bool }
	seen := make(map[string]*state)
	var order []string
	for _, it := range q.idx.Items() {
		if it.Units == "" {
			continue
		}
		if q.dim.DataType != "" && it.DataType != q.dim.DataType {
			continue
		}
		if q.dim.EntityType != "" && it.EntityType != q.dim.EntityType {
			continue
		}
		st, ok := seen[it.Units]
		if !ok {
			st = &state{}
			seen[it.Units] = st
			order = append(order, it.Units)
		}
		if q.contextOK(it) {
			st.inContext = true
		}
	}

	opts := make([]types.Option, 0, len(order)+1)
	for _, u := range order {
		opt := types.Option{Value: u, Label: u}
		if !seen[u].inContext {
			opt.IsDisabled, opt.DisabledReason = true, q.contextReason()
		}
		opts = append(opts, opt)
	}
	sortOptions(opts)
	if q.dim.Units != "" && seen[q.dim.Units] == nil {
		opts = append(opts, unknownOption(q.dim.Units, q.dim.Units+" (unknown)", q.indexType))
	}
	return opts
}

func unknownOption(value, label, indexType string) types.Option {
	return types.Option{
		Value:          value,
		Label:          label,
		IsDisabled:     true,
		DisabledReason: fmt.Sprintf("not found in the catalog for index type %q", indexType),
	}
}

// sortOptions orders enabled options before disabled ones, then by label
// ignoring case.
func sortOptions(opts []types.Option) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].IsDisabled != opts[j].IsDisabled {
			return !opts[i].IsDisabled
		}
		return strings.ToLower(opts[i].Label) < strings.ToLower(opts[j].Label)
	})
}
