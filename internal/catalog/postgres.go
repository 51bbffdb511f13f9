package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kosarica/catalog-service/internal/types"
)

// PostgresStore keeps the catalog in the catalog_products table. SaveAll replaces the
// whole table inside one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an open pool. The schema must already be migrated.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var productColumns = []string{
	"product_id", "vendor_code", "sku", "name", "collection_code", "collection_name",
	"status", "prices", "specs", "position",
}

const selectProducts = `
	SELECT product_id, vendor_code, sku, name, collection_code, collection_name,
	       status, prices, specs
	FROM catalog_products`

// LoadAll returns every product in stored order
func (s *PostgresStore) LoadAll(ctx context.Context) ([]types.Product, error) {
	rows, err := s.pool.Query(ctx, selectProducts+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	return scanProducts(rows)
}

// LoadVendor returns one vendor's products in stored order
func (s *PostgresStore) LoadVendor(ctx context.Context, vendorCode string) ([]types.Product, error) {
	rows, err := s.pool.Query(ctx, selectProducts+` WHERE vendor_code = $1 ORDER BY position`, vendorCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog for %s: %w", vendorCode, err)
	}
	return scanProducts(rows)
}

// SaveAll deletes every row and copies the new list in, atomically
func (s *PostgresStore) SaveAll(ctx context.Context, products []types.Product) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin catalog transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_products`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	rows := make([][]any, 0, len(products))
	for i, p := range products {
		prices, err := json.Marshal(nonNilPrices(p.Prices))
		if err != nil {
			return fmt.Errorf("failed to encode prices of %s: %w", p.ProductID, err)
		}
		specs, err := json.Marshal(nonNilSpecs(p.Specs))
		if err != nil {
			return fmt.Errorf("failed to encode specs of %s: %w", p.ProductID, err)
		}
		rows = append(rows, []any{
			p.ProductID, p.VendorCode, p.SKU, p.Name, p.CollectionCode, p.CollectionName,
			string(p.Status), prices, specs, int32(i),
		})
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"catalog_products"}, productColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy catalog rows: %w", err)
	}
	if int(copied) != len(products) {
		return fmt.Errorf("copied %d catalog rows, expected %d", copied, len(products))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit catalog transaction: %w", err)
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]types.Product, error) {
	defer rows.Close()

	products := make([]types.Product, 0)
	for rows.Next() {
		var (
			p             types.Product
			status        string
			prices, specs []byte
		)
		if err := rows.Scan(&p.ProductID, &p.VendorCode, &p.SKU, &p.Name, &p.CollectionCode,
			&p.CollectionName, &status, &prices, &specs); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		p.Status = types.ProductStatus(status)
		if err := json.Unmarshal(prices, &p.Prices); err != nil {
			return nil, fmt.Errorf("failed to decode prices of %s: %w", p.ProductID, err)
		}
		if err := json.Unmarshal(specs, &p.Specs); err != nil {
			return nil, fmt.Errorf("failed to decode specs of %s: %w", p.ProductID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	return products, nil
}

func nonNilPrices(prices []types.Price) []types.Price {
	if prices == nil {
		return []types.Price{}
	}
	return prices
}

func nonNilSpecs(specs map[string]any) map[string]any {
	if specs == nil {
		return map[string]any{}
	}
	return specs
}
