package ledger

import (
	"context"
	"sync"

	"github.com/weiwangfds/structview/internal/database"
)

// MemoryStore 进程内账本，记录按时间倒序保存
type MemoryStore struct {
	mu    sync.RWMutex
	items []database.HistoryItem
}

// NewMemoryStore 创建空的内存账本
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, item *database.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.ID == item.ID {
			return ErrDuplicateID
		}
	}
	s.items = insertSorted(s.items, *item)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]database.HistoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.HistoryItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*database.HistoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *MemoryStore) Close() error {
	return nil
}
