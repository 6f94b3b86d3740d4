package catalog

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	// cacheHits counts lookups served from memory, by query kind
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plotd_catalog_cache_hits_total",
		Help: "Catalog lookups served from the session cache",
	}, []string{"query"}) // "items" or "identifiers"

	// cacheMisses counts lookups that reached the backing client
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plotd_catalog_cache_misses_total",
		Help: "Catalog lookups forwarded to the backing client",
	}, []string{"query"})

	lookupErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plotd_catalog_lookup_errors_total",
		Help: "Catalog lookups that failed",
	}, []string{"query"})
)

// Cached memoizes every distinct query against the wrapped Client. The
// catalog is immutable for the life of a Cached value, so entries are never
// invalidated. Failed lookups are not cached. Concurrent identical lookups
// share one call to the backing client.
type Cached struct {
	next  Client
	group singleflight.Group

	mu          sync.RWMutex
	items       map[string][]Item
	identifiers map[identKey][]Identifier
}

type identKey struct {
	entityType string
	datasetID  string
}

// NewCached wraps next.
func NewCached(next Client) *Cached {
	return &Cached{
		next:        next,
		items:       make(map[string][]Item),
		identifiers: make(map[identKey][]Identifier),
	}
}

func (c *Cached) ListCompatibleItems(ctx context.Context, indexType string) ([]Item, error) {
	c.mu.RLock()
	items, ok := c.items[indexType]
	c.mu.RUnlock()
	if ok {
		cacheHits.WithLabelValues("items").Inc()
		return items, nil
	}
	cacheMisses.WithLabelValues("items").Inc()

	v, err := c.do(ctx, "items\x00"+indexType, func(ctx context.Context) (any, error) {
		items, err := c.next.ListCompatibleItems(ctx, indexType)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[indexType] = items
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		lookupErrors.WithLabelValues("items").Inc()
		return nil, err
	}
	return v.([]Item), nil
}

func (c *Cached) ListIdentifiers(ctx context.Context, entityType, datasetID string) ([]Identifier, error) {
	key := identKey{entityType: entityType, datasetID: datasetID}
	c.mu.RLock()
	ids, ok := c.identifiers[key]
	c.mu.RUnlock()
	if ok {
		cacheHits.WithLabelValues("identifiers").Inc()
		return ids, nil
	}
	cacheMisses.WithLabelValues("identifiers").Inc()

	v, err := c.do(ctx, "identifiers\x00"+entityType+"\x00"+datasetID, func(ctx context.Context) (any, error) {
		ids, err := c.next.ListIdentifiers(ctx, entityType, datasetID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.identifiers[key] = ids
		c.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		lookupErrors.WithLabelValues("identifiers").Inc()
		return nil, err
	}
	return v.([]Identifier), nil
}

// do runs fn once per key among concurrent callers. The shared call is
// detached from the caller's cancellation; each caller still stops waiting
// when its own ctx is done.
func (c *Cached) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) { return fn(shared) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}
