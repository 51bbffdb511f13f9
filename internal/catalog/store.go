// Package catalog provides the persisted product catalog shared by all vendors. The whole
// catalog is read and rewritten wholesale; there is no per-vendor locking.
package catalog

import (
	"context"

	"github.com/kosarica/catalog-service/internal/types"
)

// Store reads and writes the persisted catalog
type Store interface {
	// LoadAll returns every product of every vendor
	LoadAll(ctx context.Context) ([]types.Product, error)
	// LoadVendor returns the products of one vendor
	LoadVendor(ctx context.Context, vendorCode string) ([]types.Product, error)
	// SaveAll replaces the full product list in one write
	SaveAll(ctx context.Context, products []types.Product) error
}

// FilterVendor returns the products belonging to vendorCode
func FilterVendor(products []types.Product, vendorCode string) []types.Product {
	out := make([]types.Product, 0)
	for _, p := range products {
		if p.VendorCode == vendorCode {
			out = append(out, p)
		}
	}
	return out
}
