package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/weiwangfds/structview/internal/database"
)

// JSONStore 以单个JSON数组文件保存账本，数组按时间倒序排列
//
// 追加是一次读-改-写：进程内由互斥锁串行化，跨进程由 <path>.lock 文件锁串行化，
// 写入先落临时文件再 rename，读者不会看到半写入的内容。
type JSONStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewJSONStore 打开账本文件，不存在时写入空数组
func NewJSONStore(path string) (*JSONStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create ledger dir: %w", err)
	}

	s := &JSONStore{
		path: abs,
		lock: flock.New(abs + ".lock"),
	}

	if err := s.withLock(func() error {
		if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
			return s.write(nil)
		} else if err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("ledger: init %s: %w", abs, err)
	}
	return s, nil
}

// Path 返回账本文件的绝对路径
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) Append(_ context.Context, item *database.HistoryItem) error {
	return s.withLock(func() error {
		items, err := s.read()
		if err != nil {
			return unavailable("read ledger", err)
		}
		for _, existing := range items {
			if existing.ID == item.ID {
				return ErrDuplicateID
			}
		}
		items = insertSorted(items, *item)
		if err := s.write(items); err != nil {
			return unavailable("write ledger", err)
		}
		return nil
	})
}

func (s *JSONStore) List(_ context.Context) ([]database.HistoryItem, error) {
	var items []database.HistoryItem
	err := s.withLock(func() error {
		var err error
		items, err = s.read()
		if err != nil {
			return unavailable("read ledger", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []database.HistoryItem{}
	}
	return items, nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (*database.HistoryItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *JSONStore) Close() error {
	return s.lock.Close()
}

// withLock 在进程内互斥锁和文件锁的保护下执行 fn
func (s *JSONStore) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return unavailable("lock ledger", err)
	}
	defer s.lock.Unlock()

	return fn()
}

// read 读取整个账本，调用方需持有锁
func (s *JSONStore) read() ([]database.HistoryItem, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var items []database.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("corrupt ledger %s: %w", s.path, err)
	}
	return items, nil
}

// write 原子替换账本文件，调用方需持有锁
func (s *JSONStore) write(items []database.HistoryItem) error {
	if items == nil {
		items = []database.HistoryItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
