package ledger

import (
	"context"
	"errors"

	"github.com/weiwangfds/structview/internal/database"
	"gorm.io/gorm"
)

// GormStore 基于gorm的关系型数据库账本，item_id 上有唯一索引
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 使用已迁移的数据库连接创建账本，连接由调用方关闭
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, item *database.HistoryItem) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.HistoryItem{}).Where("item_id = ?", item.ID).Count(&count).Error; err != nil {
			return unavailable("count history item", err)
		}
		if count > 0 {
			return ErrDuplicateID
		}
		if err := tx.Create(item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateID
			}
			return unavailable("insert history item", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrDuplicateID) && !errors.Is(err, ErrUnavailable) {
		return unavailable("append transaction", err)
	}
	return err
}

func (s *GormStore) List(ctx context.Context) ([]database.HistoryItem, error) {
	items := []database.HistoryItem{}
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Order("seq DESC").Find(&items).Error; err != nil {
		return nil, unavailable("list history items", err)
	}
	return items, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*database.HistoryItem, error) {
	var item database.HistoryItem
	if err := s.db.WithContext(ctx).Where("item_id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get history item", err)
	}
	return &item, nil
}

func (s *GormStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.HistoryItem{}).Where("item_id = ?", id).Count(&count).Error; err != nil {
		return false, unavailable("count history item", err)
	}
	return count > 0, nil
}

// Close 不关闭共享的数据库连接
func (s *GormStore) Close() error {
	return nil
}
