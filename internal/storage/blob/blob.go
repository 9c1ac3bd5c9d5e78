// Package blob 将上传的结构文件以 <id><ext> 的文件名保存在内容目录中
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tmpDirName = ".tmp"

var (
	// ErrExists 目标文件名已被占用
	ErrExists = errors.New("blob: already exists")
	// ErrNotFound 文件不存在
	ErrNotFound = errors.New("blob: not found")
	// ErrInvalidName 文件名包含路径分隔符或为空
	ErrInvalidName = errors.New("blob: invalid name")
)

// Store 本地内容目录
// 已写入的文件不会被覆盖或修改
type Store struct {
	root string
}

// New 创建内容目录（不存在时自动创建）
func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root 返回内容目录的绝对路径
func (s *Store) Root() string {
	return s.root
}

// Put 以独占方式写入文件
// 先写临时文件再硬链接到目标名，目标已存在时返回 ErrExists，不会出现半写入的文件
func (s *Store) Put(name string, data []byte) error {
	dst, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDirName), "put-*")
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

	if err := os.Link(tmpPath, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return err
	}
	return nil
}

// Resolve 返回文件的绝对路径，不检查是否存在
func (s *Store) Resolve(name string) (string, error) {
	return s.path(name)
}

// Exists 判断文件是否存在
func (s *Store) Exists(name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Size 返回文件大小
func (s *Store) Size(name string) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open 打开文件用于读取，调用者负责关闭
func (s *Store) Open(name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

// Remove 删除文件，仅用于写入元数据失败后的补偿
func (s *Store) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Names 列出内容目录中的所有文件名（已排序）
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// path 校验文件名并拼接绝对路径
func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name == tmpDirName ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, name), nil
}
