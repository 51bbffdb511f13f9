package catalog

import (
	"context"
	"sync"

	"github.com/kosarica/catalog-service/internal/types"
)

// CachedStore memoizes the full product list of another store. The cache is refreshed by
// SaveAll and dropped by Invalidate; it never expires on its own.
type CachedStore struct {
	next Store

	mu       sync.RWMutex
	products []types.Product
	loaded   bool
}

// NewCachedStore wraps next with an in-memory cache
func NewCachedStore(next Store) *CachedStore {
	return &CachedStore{next: next}
}

// LoadAll returns the cached list, loading it on first use
func (c *CachedStore) LoadAll(ctx context.Context) ([]types.Product, error) {
	c.mu.RLock()
	if c.loaded {
		out := cloneAll(c.products)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		products, err := c.next.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		c.products = products
		c.loaded = true
	}
	return cloneAll(c.products), nil
}

// LoadVendor filters the cached list
func (c *CachedStore) LoadVendor(ctx context.Context, vendorCode string) ([]types.Product, error) {
	products, err := c.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterVendor(products, vendorCode), nil
}

// SaveAll writes through and replaces the cache. A failed write drops the cache.
func (c *CachedStore) SaveAll(ctx context.Context, products []types.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.next.SaveAll(ctx, products); err != nil {
		c.products = nil
		c.loaded = false
		return err
	}
	c.products = cloneAll(products)
	c.loaded = true
	return nil
}

// Invalidate drops the cached list; the next load reads the underlying store
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.products = nil
	c.loaded = false
	c.mu.Unlock()
}

func cloneAll(products []types.Product) []types.Product {
	out := make([]types.Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
