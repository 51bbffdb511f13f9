package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/storage"
	"github.com/kosarica/catalog-service/internal/types"
)

func sampleProducts() []types.Product {
	return []types.Product{
		{
			ProductID: "acme:A", VendorCode: "acme", SKU: "A", Name: "Widget",
			CollectionCode: "alpha", CollectionName: "Alpha", Status: types.StatusActive,
			Prices: []types.Price{{Tier: "MSRP", Currency: "USD", Amount: 10}},
			Specs:  map[string]any{"Width": "10in"},
		},
		{
			ProductID: "globex:B", VendorCode: "globex", SKU: "B", Name: "Gizmo",
			Status: types.StatusDiscontinued, Prices: []types.Price{}, Specs: map[string]any{},
		},
	}
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	blob, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := NewSnapshotStore(blob)

	empty, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveAll(ctx, sampleProducts()))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleProducts(), all)

	acme, err := store.LoadVendor(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, "acme:A", acme[0].ProductID)
}

func TestSnapshotStoreCorrupt(t *testing.T) {
	ctx := context.Background()
	blob, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blob.Put(ctx, storage.CatalogKey, []byte("{not json")))

	_, err = NewSnapshotStore(blob).LoadAll(ctx)
	assert.Error(t, err)
}

type countingStore struct {
	products []types.Product
	loads    atomic.Int32
	saveErr  error
}

func (s *countingStore) LoadAll(ctx context.Context) ([]types.Product, error) {
	s.loads.Add(1)
	return cloneAll(s.products), nil
}

func (s *countingStore) LoadVendor(ctx context.Context, vendorCode string) ([]types.Product, error) {
	all, _ := s.LoadAll(ctx)
	return FilterVendor(all, vendorCode), nil
}

func (s *countingStore) SaveAll(ctx context.Context, products []types.Product) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.products = cloneAll(products)
	return nil
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{products: sampleProducts()}
	cache := NewCachedStore(next)

	_, err := cache.LoadAll(ctx)
	require.NoError(t, err)
	acme, err := cache.LoadVendor(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, acme, 1)
	assert.Equal(t, int32(1), next.loads.Load())

	// callers get copies
	acme[0].Specs["Width"] = "99in"
	again, err := cache.LoadVendor(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "10in", again[0].Specs["Width"])

	// writes refresh the cache without a reload
	require.NoError(t, cache.SaveAll(ctx, sampleProducts()[:1]))
	all, err := cache.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, int32(1), next.loads.Load())

	cache.Invalidate()
	_, err = cache.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.loads.Load())
}

func TestCachedStoreDropsCacheOnFailedWrite(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{products: sampleProducts()}
	cache := NewCachedStore(next)

	_, err := cache.LoadAll(ctx)
	require.NoError(t, err)

	next.saveErr = errors.New("disk full")
	assert.Error(t, cache.SaveAll(ctx, nil))

	_, err = cache.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.loads.Load())
}
