package staging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/types"
)

func stagedImport(id string, expiresAt time.Time) *StagedImport {
	return &StagedImport{
		ID:         id,
		VendorCode: "acme",
		State:      StateStaged,
		Toggles:    types.SafetyToggles{PricesOnly: true},
		Preview:    diff.NewPreview("acme", 0),
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, stagedImport("stg_1", time.Now().Add(time.Hour))))

	got, err := store.Get(ctx, "stg_1")
	require.NoError(t, err)
	assert.Equal(t, StateStaged, got.State)
	assert.True(t, got.Toggles.PricesOnly)

	moved, err := store.Transition(ctx, "stg_1", StateStaged, StateCommitting, nil)
	require.NoError(t, err)
	assert.Equal(t, StateCommitting, moved.State)

	_, err = store.Transition(ctx, "stg_1", StateStaged, StateCommitting, nil)
	assert.True(t, errors.Is(err, ErrNotStaged))

	done, err := store.Transition(ctx, "stg_1", StateCommitting, StateCommitted, func(imp *StagedImport) {
		imp.Result = &types.CommitResult{Success: true, ImportID: "imp_1"}
	})
	require.NoError(t, err)
	require.NotNil(t, done.Result)

	got, err = store.Get(ctx, "stg_1")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, got.State)
	assert.Equal(t, "imp_1", got.Result.ImportID)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, stagedImport("stg_1", time.Time{})))

	got, err := store.Get(ctx, "stg_1")
	require.NoError(t, err)
	got.State = StateFailed

	again, err := store.Get(ctx, "stg_1")
	require.NoError(t, err)
	assert.Equal(t, StateStaged, again.State)
}

func TestMemoryStoreSingleCommitter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, stagedImport("stg_1", time.Time{})))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Transition(ctx, "stg_1", StateStaged, StateCommitting, nil); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	require.NoError(t, store.Save(ctx, stagedImport("stg_old", now.Add(-time.Minute))))
	require.NoError(t, store.Save(ctx, stagedImport("stg_new", now.Add(time.Hour))))

	_, err := store.Get(ctx, "stg_old")
	assert.True(t, errors.Is(err, ErrNotFound))

	logger := zerolog.Nop()
	sweeper := NewSweeper(store, &logger, time.Minute)
	assert.Equal(t, 1, sweeper.Sweep(ctx))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, "stg_new")
	assert.NoError(t, err)
}

func TestSweeperStops(t *testing.T) {
	logger := zerolog.Nop()
	sweeper := NewSweeper(NewMemoryStore(), &logger, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()
	sweeper.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "stg_missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
