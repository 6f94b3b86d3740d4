package options

import (
	"sort"

	"github.com/matthewbaird/plotconfig/internal/catalog"
)

// Index answers compatibility questions over the catalog items of one
// index type.
type Index struct {
	items []catalog.Item
	byID  map[string]catalog.Item
}

// NewIndex builds an Index over items.
func NewIndex(items []catalog.Item) *Index {
	idx := &Index{items: items, byID: make(map[string]catalog.Item, len(items))}
	for _, it := range items {
		idx.byID[it.ID] = it
	}
	return idx
}

// Items returns every item in catalog order.
func (idx *Index) Items() []catalog.Item { return idx.items }

// Item looks up a dataset by id.
func (idx *Index) Item(id string) (catalog.Item, bool) {
	it, ok := idx.byID[id]
	return it, ok
}

// EntityTypesFor returns the distinct entity types of datasets with the
// given data type, sorted. An empty dataType matches every dataset.
func (idx *Index) EntityTypesFor(dataType string) []string {
	set := make(map[string]bool)
	for _, it := range idx.items {
		if dataType == "" || it.DataType == dataType {
			set[it.EntityType] = true
		}
	}
	return keys(set)
}

// DataTypesFor returns the distinct data types of datasets with the given
// entity type, sorted. An empty entityType matches every dataset.
func (idx *Index) DataTypesFor(entityType string) []string {
	set := make(map[string]bool)
	for _, it := range idx.items {
		if entityType == "" || it.EntityType == entityType {
			set[it.DataType] = true
		}
	}
	return keys(set)
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
