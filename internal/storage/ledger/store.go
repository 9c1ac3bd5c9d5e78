// Package ledger 保存上传历史的元数据记录
// 提供内存、JSON文件、关系型数据库和MongoDB四种可互换的后端
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/database"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 指定ID的记录不存在
	ErrNotFound = errors.New("ledger: record not found")
	// ErrDuplicateID 记录ID已存在
	ErrDuplicateID = errors.New("ledger: duplicate id")
	// ErrUnavailable 后端不可读写（连接失败、文件损坏等）
	ErrUnavailable = errors.New("ledger: store unavailable")
)

// Store 元数据账本
//
// Append 返回后记录立即对 List 和 Get 可见。
// List 按上传时间倒序返回全部记录；读取失败时返回 ErrUnavailable，
// 空切片只表示确实没有记录。
type Store interface {
	Append(ctx context.Context, item *database.HistoryItem) error
	List(ctx context.Context) ([]database.HistoryItem, error)
	Get(ctx context.Context, id string) (*database.HistoryItem, error)
	Exists(ctx context.Context, id string) (bool, error)
	Close() error
}

// unavailable 将底层错误包装为 ErrUnavailable
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Open 按 storage.backend 打开账本
// database 后端需要传入已初始化的 db，其余后端忽略该参数
func Open(ctx context.Context, cfg *config.Config, db *gorm.DB) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendJSON:
		return NewJSONStore(cfg.Storage.LedgerPath)
	case config.BackendDatabase:
		if db == nil {
			return nil, fmt.Errorf("ledger: database backend requires an open database")
		}
		return NewGormStore(db), nil
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("ledger: unsupported backend %q", cfg.Storage.Backend)
	}
}

// insertSorted 将记录插入按时间倒序排列的切片
// 插入到第一条不晚于它的记录之前，同一时间戳后追加的排在前面
func insertSorted(items []database.HistoryItem, item database.HistoryItem) []database.HistoryItem {
	i := sort.Search(len(items), func(i int) bool {
		return items[i].Timestamp <= item.Timestamp
	})
	return slices.Insert(items, i, item)
}
