package staging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client)
	require.NoError(t, store.Save(ctx, stagedImport("stg_1", time.Now().Add(time.Hour))))

	got, err := store.Get(ctx, "stg_1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.VendorCode)

	_, err = store.Transition(ctx, "stg_1", StateStaged, StateCommitting, nil)
	require.NoError(t, err)
	_, err = store.Transition(ctx, "stg_1", StateStaged, StateCommitting, nil)
	assert.True(t, errors.Is(err, ErrNotStaged))

	ttl, err := client.TTL(ctx, redisKeyPrefix+"stg_1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	_, err = store.Get(ctx, "stg_missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
