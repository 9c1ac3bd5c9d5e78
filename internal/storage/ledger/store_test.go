package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/database"
	"gorm.io/gorm"
)

// setupTestDB 使用内存SQLite创建已迁移的数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Init(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// stores 返回所有无需外部服务的后端
func stores(t *testing.T) map[string]Store {
	jsonStore, err := NewJSONStore(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = jsonStore.Close() })

	return map[string]Store{
		"memory":   NewMemoryStore(),
		"json":     jsonStore,
		"database": NewGormStore(setupTestDB(t)),
	}
}

func item(id string, ts int64) *database.HistoryItem {
	return &database.HistoryItem{
		ID:           id,
		OriginalName: id + ".cif",
		Path:         id + ".cif",
		FileSize:     10,
		Timestamp:    ts,
	}
}

func ids(items []database.HistoryItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			t.Run("空账本返回空列表", func(t *testing.T) {
				items, err := store.List(ctx)
				require.NoError(t, err)
				assert.NotNil(t, items)
				assert.Empty(t, items)
			})

			t.Run("追加后立即可见", func(t *testing.T) {
				require.NoError(t, store.Append(ctx, item("AB12", 1000)))

				got, err := store.Get(ctx, "AB12")
				require.NoError(t, err)
				assert.Equal(t, "AB12.cif", got.OriginalName)
				assert.Equal(t, int64(10), got.FileSize)
				assert.Equal(t, int64(1000), got.Timestamp)

				exists, err := store.Exists(ctx, "AB12")
				require.NoError(t, err)
				assert.True(t, exists)
			})

			t.Run("按时间倒序列出", func(t *testing.T) {
				require.NoError(t, store.Append(ctx, item("CD34", 2000)))
				require.NoError(t, store.Append(ctx, item("EF56", 2000)))

				items, err := store.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"EF56", "CD34", "AB12"}, ids(items))
			})

			t.Run("重复ID被拒绝", func(t *testing.T) {
				err := store.Append(ctx, item("AB12", 3000))
				assert.ErrorIs(t, err, ErrDuplicateID)

				items, err := store.List(ctx)
				require.NoError(t, err)
				assert.Len(t, items, 3)
			})

			t.Run("较早的记录后追加时按时间排序", func(t *testing.T) {
				require.NoError(t, store.Append(ctx, item("GH78", 1500)))

				items, err := store.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"EF56", "CD34", "GH78", "AB12"}, ids(items))
			})

			t.Run("未知ID", func(t *testing.T) {
				_, err := store.Get(ctx, "ZZZZ")
				assert.ErrorIs(t, err, ErrNotFound)

				exists, err := store.Exists(ctx, "ZZZZ")
				require.NoError(t, err)
				assert.False(t, exists)
			})
		})
	}
}

func TestJSONStore(t *testing.T) {
	ctx := context.Background()

	t.Run("不存在时创建空数组", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "history.json")
		s, err := NewJSONStore(path)
		require.NoError(t, err)
		defer s.Close()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(data))
	})

	t.Run("保留已有内容", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		legacy := `[{"id":"OLD1","originalName":"a.cif","path":"OLD1.cif","timestamp":5}]`
		require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

		s, err := NewJSONStore(path)
		require.NoError(t, err)
		defer s.Close()

		got, err := s.Get(ctx, "OLD1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.FileSize)
		assert.Equal(t, int64(5), got.Timestamp)
	})

	t.Run("文件损坏时不可用", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		s, err := NewJSONStore(path)
		require.NoError(t, err)
		defer s.Close()

		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err = s.List(ctx)
		assert.ErrorIs(t, err, ErrUnavailable)

		err = s.Append(ctx, item("AB12", 1))
		assert.ErrorIs(t, err, ErrUnavailable)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "{not json", string(data), "损坏的账本不应被覆盖")
	})

	t.Run("并发追加不丢记录", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		first, err := NewJSONStore(path)
		require.NoError(t, err)
		defer first.Close()
		second, err := NewJSONStore(path)
		require.NoError(t, err)
		defer second.Close()

		const perStore = 20
		var wg sync.WaitGroup
		errs := make(chan error, 2*perStore)
		for i := 0; i < perStore; i++ {
			for j, s := range []*JSONStore{first, second} {
				wg.Add(1)
				go func(s *JSONStore, id string) {
					defer wg.Done()
					errs <- s.Append(ctx, item(id, 1))
				}(s, fmt.Sprintf("%d%03d", j, i))
			}
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		items, err := first.List(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 2*perStore)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("按配置选择后端", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{
			Backend:    config.BackendJSON,
			LedgerPath: filepath.Join(t.TempDir(), "history.json"),
		}}
		s, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &JSONStore{}, s)

		cfg.Storage.Backend = config.BackendMemory
		s, err = Open(ctx, cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)

		cfg.Storage.Backend = config.BackendDatabase
		s, err = Open(ctx, cfg, setupTestDB(t))
		require.NoError(t, err)
		assert.IsType(t, &GormStore{}, s)
	})

	t.Run("数据库后端缺少连接", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendDatabase}}
		_, err := Open(ctx, cfg, nil)
		assert.Error(t, err)
	})

	t.Run("未知后端", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Backend: "redis"}}
		_, err := Open(ctx, cfg, nil)
		assert.Error(t, err)
	})
}
