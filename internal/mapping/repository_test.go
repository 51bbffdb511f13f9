package mapping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/storage"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewRepository(store)
}

func TestRepositorySaveIncrementsVersion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first, err := repo.Save(ctx, validDefinition(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "alice", first.UpdatedBy)
	require.NotNil(t, first.UpdatedAt)

	def := validDefinition()
	def.Name = Column("Title")
	second, err := repo.Save(ctx, def, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	latest, err := repo.Latest(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "Title", latest.Name.Column)

	v1, err := repo.Version(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, "Product Name", v1.Name.Column)

	versions, err := repo.Versions(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestRepositoryRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	def := validDefinition()
	def.Prices = nil
	_, err := repo.Save(ctx, def, "alice")
	assert.True(t, IsValidationError(err))

	versions, err := repo.Versions(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Latest(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.Save(ctx, validDefinition(), "alice")
	require.NoError(t, err)
	_, err = repo.Version(ctx, "acme", 9)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryVendorsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Save(ctx, validDefinition(), "alice")
	require.NoError(t, err)

	other := validDefinition()
	other.VendorCode = "acme-outdoor"
	saved, err := repo.Save(ctx, other, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
}
