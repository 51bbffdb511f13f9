// Package app builds the import pipeline from configuration for the server and the CLI
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kosarica/catalog-service/config"
	"github.com/kosarica/catalog-service/internal/audit"
	"github.com/kosarica/catalog-service/internal/catalog"
	"github.com/kosarica/catalog-service/internal/commit"
	"github.com/kosarica/catalog-service/internal/database"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/pipeline"
	"github.com/kosarica/catalog-service/internal/staging"
	"github.com/kosarica/catalog-service/internal/storage"
)

// App holds the wired collaborators
type App struct {
	Storage  storage.Storage
	Catalog  catalog.Store
	Mappings *mapping.Repository
	Audit    *audit.Log
	Staging  staging.Store
	Engine   *commit.Engine
	Pipeline *pipeline.Service
	// Sweeper is set only for the in-memory staging backend
	Sweeper *staging.Sweeper

	closers []func()
}

// New connects the configured backends. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{}

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Storage = store

	cat, err := a.newCatalog(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Catalog.Cache {
		cat = catalog.NewCachedStore(cat)
	}
	a.Catalog = cat

	if err := a.newStaging(ctx, cfg.Staging, logger); err != nil {
		a.Close()
		return nil, err
	}

	a.Mappings = mapping.NewRepository(store)
	a.Audit = audit.NewLog(store, logger)
	a.Engine = commit.NewEngine(a.Catalog, a.Audit, nil, nil, logger)
	a.Pipeline = pipeline.NewService(pipeline.Dependencies{
		Mappings: a.Mappings,
		Catalog:  a.Catalog,
		Staging:  a.Staging,
		Engine:   a.Engine,
		Logger:   logger,
	}, pipeline.Options{
		StagingTTL:      cfg.Staging.TTL,
		SampleSize:      cfg.Import.SampleSize,
		DefaultCurrency: cfg.Import.DefaultCurrency,
	})

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Str("catalog", cfg.Catalog.Backend).
		Bool("catalogCache", cfg.Catalog.Cache).
		Str("staging", cfg.Staging.Backend).
		Msg("Import pipeline ready")

	return a, nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	return storage.New(ctx, storage.Options{
		Type:     storage.StorageType(cfg.Type),
		BasePath: cfg.BasePath,
		Bucket:   cfg.S3.Bucket,
		Prefix:   cfg.S3.Prefix,
		Region:   cfg.S3.Region,
		Endpoint: cfg.S3.Endpoint,
	})
}

func (a *App) newCatalog(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	switch cfg.Catalog.Backend {
	case config.CatalogPostgres:
		if err := database.Connect(ctx, cfg.Database.URL, database.PoolConfig{
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		}); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)

		if err := database.Migrate(ctx, database.Pool()); err != nil {
			return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
		}
		return catalog.NewPostgresStore(database.Pool()), nil
	case config.CatalogSnapshot:
		return catalog.NewSnapshotStore(a.Storage), nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}
}

func (a *App) newStaging(ctx context.Context, cfg config.StagingConfig, logger zerolog.Logger) error {
	switch cfg.Backend {
	case config.StagingRedis:
		client, err := staging.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { client.Close() })
		a.Staging = staging.NewRedisStore(client)
	case config.StagingMemory:
		store := staging.NewMemoryStore()
		a.Staging = store
		sweepLogger := logger.With().Str("component", "staging-sweeper").Logger()
		a.Sweeper = staging.NewSweeper(store, &sweepLogger, cfg.SweepInterval)
	default:
		return fmt.Errorf("unknown staging backend %q", cfg.Backend)
	}
	return nil
}
