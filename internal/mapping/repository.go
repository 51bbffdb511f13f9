package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kosarica/catalog-service/internal/storage"
)

// ErrNotFound is returned when no mapping exists for a vendor (or version)
var ErrNotFound = errors.New("mapping not found")

// Repository persists versioned Mapping Definitions in blob storage.
// Every save writes a new version; old versions are kept.
type Repository struct {
	store storage.Storage
	now   func() time.Time
	mu    sync.Mutex
}

// NewRepository creates a repository on the given storage
func NewRepository(store storage.Storage) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Save validates def and stores it as the vendor's next version.
// The stored copy (with Version and UpdatedAt set) is returned.
func (r *Repository) Save(ctx context.Context, def Definition, updatedBy string) (*Definition, error) {
	if err := Validate(&def); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	versions, err := r.versions(ctx, def.VendorCode)
	if err != nil {
		return nil, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	now := r.now().UTC()
	def.Version = next
	def.UpdatedAt = &now
	def.UpdatedBy = updatedBy

	content, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mapping: %w", err)
	}
	if err := r.store.Put(ctx, storage.MappingKey(def.VendorCode, next), content); err != nil {
		return nil, fmt.Errorf("failed to store mapping: %w", err)
	}

	return &def, nil
}

// Latest returns the newest version of a vendor's mapping
func (r *Repository) Latest(ctx context.Context, vendorCode string) (*Definition, error) {
	versions, err := r.versions(ctx, vendorCode)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: vendor %s", ErrNotFound, vendorCode)
	}
	return r.Version(ctx, vendorCode, versions[len(versions)-1])
}

// Version returns a specific version of a vendor's mapping
func (r *Repository) Version(ctx context.Context, vendorCode string, version int) (*Definition, error) {
	content, err := r.store.Get(ctx, storage.MappingKey(vendorCode, version))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: vendor %s version %d", ErrNotFound, vendorCode, version)
		}
		return nil, err
	}

	var def Definition
	if err := json.Unmarshal(content, &def); err != nil {
		return nil, fmt.Errorf("failed to decode mapping %s v%d: %w", vendorCode, version, err)
	}
	return &def, nil
}

// Versions lists the stored version numbers for a vendor, ascending
func (r *Repository) Versions(ctx context.Context, vendorCode string) ([]int, error) {
	return r.versions(ctx, vendorCode)
}

func (r *Repository) versions(ctx context.Context, vendorCode string) ([]int, error) {
	keys, err := r.store.List(ctx, storage.MappingPrefix(vendorCode))
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings for %s: %w", vendorCode, err)
	}

	prefix := storage.MappingPrefix(vendorCode)
	versions := make([]int, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json")
		v, err := strconv.Atoi(strings.TrimPrefix(name, "v"))
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	// keys are sorted and zero-padded, so versions are ascending
	return versions, nil
}
