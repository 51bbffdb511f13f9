package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/storage"
	"github.com/kosarica/catalog-service/internal/types"
)

func newTestLog(t *testing.T) (*Log, storage.Storage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewLog(store, zerolog.Nop()), store
}

func record(id, vendor string, ts time.Time) *Record {
	return &Record{
		ID:            id,
		VendorCode:    vendor,
		Timestamp:     ts,
		ImportedBy:    "alice",
		EffectiveFrom: ts.Format("2006-01-02"),
		SafetyToggles: types.SafetyToggles{PricesOnly: true},
		Success:       true,
		Summary:       types.CommitSummary{Added: 1},
		Added:         []string{vendor + ":A"},
		Updated:       []string{},
		PriceChanged:  []string{},
		Discontinued:  []string{},
	}
}

func TestLogWriteAndGet(t *testing.T) {
	ctx := context.Background()
	log, store := newTestLog(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, log.Write(ctx, record("imp_1", "acme", ts)))

	got, err := log.Get(ctx, "imp_1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.VendorCode)
	assert.True(t, got.SafetyToggles.PricesOnly)
	assert.Equal(t, []string{"acme:A"}, got.Added)
	assert.True(t, ts.Equal(got.Timestamp))

	raw, err := store.Get(ctx, storage.AuditLogKey)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"id":"imp_1"`)
}

func TestLogIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	log, store := newTestLog(t)
	ts := time.Now().UTC()

	require.NoError(t, log.Write(ctx, record("imp_1", "acme", ts)))
	err := log.Write(ctx, record("imp_1", "globex", ts))
	assert.True(t, errors.Is(err, ErrExists))

	got, err := log.Get(ctx, "imp_1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.VendorCode)

	raw, err := store.Get(ctx, storage.AuditLogKey)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "\n"))
}

func TestLogGetMissing(t *testing.T) {
	log, _ := newTestLog(t)
	_, err := log.Get(context.Background(), "imp_missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLogList(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, log.Write(ctx, record("imp_a", "acme", base)))
	require.NoError(t, log.Write(ctx, record("imp_b", "globex", base.Add(time.Hour))))
	require.NoError(t, log.Write(ctx, record("imp_c", "acme", base.Add(2*time.Hour))))

	all, err := log.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "imp_c", all[0].ID)
	assert.Equal(t, "imp_a", all[2].ID)

	acme, err := log.List(ctx, "acme", 1)
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, "imp_c", acme[0].ID)
}

func TestLogWriteRequiresID(t *testing.T) {
	log, _ := newTestLog(t)
	assert.Error(t, log.Write(context.Background(), &Record{}))
}
