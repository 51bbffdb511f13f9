package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kosarica/catalog-service/internal/storage"
	"github.com/kosarica/catalog-service/internal/types"
)

// SnapshotStore keeps the catalog as a single JSON document in blob storage
type SnapshotStore struct {
	store storage.Storage
	key   string
}

// NewSnapshotStore creates a snapshot store at the default catalog key
func NewSnapshotStore(store storage.Storage) *SnapshotStore {
	return &SnapshotStore{store: store, key: storage.CatalogKey}
}

// LoadAll reads the snapshot. A missing snapshot is an empty catalog.
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]types.Product, error) {
	content, err := s.store.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []types.Product{}, nil
		}
		return nil, fmt.Errorf("failed to read catalog snapshot: %w", err)
	}

	products := make([]types.Product, 0)
	if err := json.Unmarshal(content, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog snapshot: %w", err)
	}
	return products, nil
}

// LoadVendor reads the snapshot and keeps one vendor's products
func (s *SnapshotStore) LoadVendor(ctx context.Context, vendorCode string) ([]types.Product, error) {
	products, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterVendor(products, vendorCode), nil
}

// SaveAll writes the snapshot atomically
func (s *SnapshotStore) SaveAll(ctx context.Context, products []types.Product) error {
	if products == nil {
		products = []types.Product{}
	}
	content, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog snapshot: %w", err)
	}
	if err := s.store.Put(ctx, s.key, content); err != nil {
		return fmt.Errorf("failed to write catalog snapshot: %w", err)
	}
	return nil
}
