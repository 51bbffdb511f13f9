package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS catalog_products (
		product_id      text PRIMARY KEY,
		vendor_code     text NOT NULL,
		sku             text NOT NULL,
		name            text NOT NULL,
		collection_code text NOT NULL DEFAULT '',
		collection_name text NOT NULL DEFAULT '',
		status          text NOT NULL DEFAULT 'active',
		prices          jsonb NOT NULL DEFAULT '[]',
		specs           jsonb NOT NULL DEFAULT '{}',
		position        integer NOT NULL,
		updated_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_products_vendor ON catalog_products (vendor_code)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_products_position ON catalog_products (position)`,
}

// Migrate creates the catalog schema. Every statement is idempotent.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return fmt.Errorf("database not initialized")
	}
	for i, stmt := range migrations {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
