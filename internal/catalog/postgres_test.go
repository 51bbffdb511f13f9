package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kosarica/catalog-service/internal/database"
	"github.com/kosarica/catalog-service/internal/types"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Connect(ctx, connStr, database.PoolConfig{MaxConns: 4}))
	defer database.Close()
	require.NoError(t, database.Migrate(ctx, database.Pool()))

	store := NewPostgresStore(database.Pool())

	empty, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveAll(ctx, sampleProducts()))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleProducts(), all)

	globex, err := store.LoadVendor(ctx, "globex")
	require.NoError(t, err)
	require.Len(t, globex, 1)
	assert.Equal(t, types.StatusDiscontinued, globex[0].Status)

	// a second save replaces the table
	require.NoError(t, store.SaveAll(ctx, sampleProducts()[:1]))
	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
