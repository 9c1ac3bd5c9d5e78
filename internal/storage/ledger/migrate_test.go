package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/structview/internal/database"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	src := NewMemoryStore()
	legacy := item("OLD1", 1000)
	legacy.FileSize = 0
	require.NoError(t, src.Append(ctx, legacy))
	require.NoError(t, src.Append(ctx, item("OLD2", 2000)))
	require.NoError(t, src.Append(ctx, item("OLD3", 3000)))

	dst := NewGormStore(setupTestDB(t))
	require.NoError(t, dst.Append(ctx, item("OLD2", 2000)))

	sizer := SizerFunc(func(name string) (int64, error) {
		if name == "OLD1.cif" {
			return 42, nil
		}
		return 0, errors.New("unexpected lookup")
	})

	report, err := Migrate(ctx, src, dst, sizer)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Migrated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	items, err := dst.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD3", "OLD2", "OLD1"}, ids(items))

	got, err := dst.Get(ctx, "OLD1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.FileSize)

	t.Run("重复执行全部跳过", func(t *testing.T) {
		report, err := Migrate(ctx, src, dst, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Migrated)
		assert.Equal(t, 3, report.Skipped)
	})
}

type brokenStore struct{ *MemoryStore }

func (brokenStore) List(context.Context) ([]database.HistoryItem, error) {
	return nil, ErrUnavailable
}

func TestMigrateSourceUnavailable(t *testing.T) {
	_, err := Migrate(context.Background(), brokenStore{NewMemoryStore()}, NewMemoryStore(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
