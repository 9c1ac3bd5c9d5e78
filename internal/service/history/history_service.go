// Package service 组合ID生成器、文件存储和元数据账本，提供上传历史的核心业务逻辑
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/weiwangfds/structview/internal/database"
	apperrors "github.com/weiwangfds/structview/internal/errors"
	"github.com/weiwangfds/structview/internal/idgen"
	"github.com/weiwangfds/structview/internal/logger"
	"github.com/weiwangfds/structview/internal/storage/blob"
	"github.com/weiwangfds/structview/internal/storage/ledger"
)

// maxIngestAttempts 写入时发现ID冲突后重新生成ID的次数上限
const maxIngestAttempts = 3

// HistoryService 上传历史服务接口
type HistoryService interface {
	// Ingest 保存一个新上传的结构文件并追加元数据记录
	// 参数:
	//   ctx - 上下文
	//   originalName - 用户上传时的文件名
	//   content - 文件内容
	// 返回:
	//   *database.HistoryItem - 新建的记录
	//   error - 应用错误（类型不允许、超限、存储不可用等）
	Ingest(ctx context.Context, originalName string, content io.Reader) (*database.HistoryItem, error)

	// ResolvePath 返回记录对应文件的绝对路径
	// 未知ID和文件缺失都返回 ErrFileNotFound
	ResolvePath(ctx context.Context, id string) (string, error)

	// Resolve 同 ResolvePath，同时返回记录本身
	Resolve(ctx context.Context, id string) (*database.HistoryItem, string, error)

	// Get 按ID获取记录
	Get(ctx context.Context, id string) (*database.HistoryItem, error)

	// List 按时间倒序列出全部记录，账本不可读时返回 ErrStoreUnavailable
	List(ctx context.Context) ([]database.HistoryItem, error)

	// Check 只读地比对账本与文件目录
	Check(ctx context.Context) (*ConsistencyReport, error)
}

// BlobStore 结构文件存储
type BlobStore interface {
	Put(name string, data []byte) error
	Resolve(name string) (string, error)
	Exists(name string) (bool, error)
	Remove(name string) error
	Names() ([]string, error)
}

// IDGenerator 生成未被占用的ID
type IDGenerator interface {
	Generate(taken idgen.Taken) (string, error)
}

// Enqueuer 接收新记录的镜像任务
type Enqueuer interface {
	Enqueue(item database.HistoryItem) error
}

// Config 服务配置
type Config struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// ConsistencyReport 一致性检查结果
type ConsistencyReport struct {
	Records int                    `json:"records"`
	Blobs   int                    `json:"blobs"`
	Missing []database.HistoryItem `json:"missing"` // 记录存在但文件缺失
	Orphans []string               `json:"orphans"` // 文件存在但没有记录
}

// Healthy 没有发现任何不一致
func (r *ConsistencyReport) Healthy() bool {
	return len(r.Missing) == 0 && len(r.Orphans) == 0
}

// Option 服务可选项
type Option func(*historyService)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(s *historyService) { s.now = now }
}

// WithMirror 上传成功后把记录交给镜像服务
func WithMirror(m Enqueuer) Option {
	return func(s *historyService) { s.mirror = m }
}

type historyService struct {
	ids    IDGenerator
	blobs  BlobStore
	store  ledger.Store
	cfg    Config
	mirror Enqueuer
	now    func() time.Time
}

// NewHistoryService 创建上传历史服务实例
func NewHistoryService(ids IDGenerator, blobs BlobStore, store ledger.Store, cfg Config, opts ...Option) HistoryService {
	s := &historyService{
		ids:   ids,
		blobs: blobs,
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Infof("History service initialized. Max file size: %s, Allowed extensions: %v",
		humanize.IBytes(uint64(cfg.MaxFileSize)), cfg.AllowedExtensions)
	return s
}

func (s *historyService) Ingest(ctx context.Context, originalName string, content io.Reader) (*database.HistoryItem, error) {
	name := SanitizeName(originalName)
	if name == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "invalid file name %q", originalName)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !s.isAllowedExtension(ext) {
		logger.Warnf("拒绝上传 %s: 扩展名 %q 不在允许列表 %v 中", name, ext, s.cfg.AllowedExtensions)
		return nil, apperrors.Newf(apperrors.ErrFileTypeNotAllowed, "extension %q is not allowed", ext)
	}

	data, err := io.ReadAll(io.LimitReader(content, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFileReadFailed, err)
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, apperrors.Newf(apperrors.ErrFileSizeTooLarge, "file exceeds %s", humanize.IBytes(uint64(s.cfg.MaxFileSize)))
	}
	if len(data) == 0 {
		return nil, apperrors.ErrFileEmptyError
	}
	if !isText(data) {
		logger.Warnf("拒绝上传 %s: 内容不是文本", name)
		return nil, apperrors.Newf(apperrors.ErrFileTypeNotAllowed, "binary content (%s)", mimetype.Detect(data).String())
	}

	for attempt := 1; attempt <= maxIngestAttempts; attempt++ {
		item, retry, err := s.ingestOnce(ctx, name, ext, data)
		if err != nil {
			return nil, err
		}
		if !retry {
			s.enqueueMirror(*item)
			logger.Infof("Ingested %s as %s (%s)", name, item.ID, humanize.Bytes(uint64(item.FileSize)))
			return item, nil
		}
		logger.Warnf("ID冲突，重新生成ID (第 %d/%d 次)", attempt, maxIngestAttempts)
	}
	return nil, apperrors.Newf(apperrors.ErrIDExhausted, "id collided %d times", maxIngestAttempts)
}

// ingestOnce 生成ID并依次写入文件和账本
// 返回 retry=true 表示ID在写入时被占用，需要换一个ID
func (s *historyService) ingestOnce(ctx context.Context, name, ext string, data []byte) (*database.HistoryItem, bool, error) {
	id, err := s.ids.Generate(func(id string) (bool, error) {
		if ok, err := s.blobs.Exists(id + ext); err != nil || ok {
			return ok, err
		}
		return s.store.Exists(ctx, id)
	})
	if err != nil {
		if errors.Is(err, idgen.ErrExhausted) {
			return nil, false, apperrors.Wrap(apperrors.ErrIDExhausted, err)
		}
		return nil, false, storeError(err)
	}

	fileName := id + ext
	if err := s.blobs.Put(fileName, data); err != nil {
		if errors.Is(err, blob.ErrExists) {
			return nil, true, nil
		}
		logger.Errorf("写入文件 %s 失败: %v", fileName, err)
		return nil, false, apperrors.Wrap(apperrors.ErrFileWriteFailed, err)
	}

	item := &database.HistoryItem{
		ID:           id,
		OriginalName: name,
		Path:         fileName,
		FileSize:     int64(len(data)),
		Timestamp:    s.now().UnixMilli(),
	}

	if err := s.store.Append(ctx, item); err != nil {
		// 账本写入失败时删除已写入的文件，避免出现无记录的孤儿文件
		if rmErr := s.blobs.Remove(fileName); rmErr != nil {
			logger.Errorf("回滚文件 %s 失败: %v", fileName, rmErr)
		}
		if errors.Is(err, ledger.ErrDuplicateID) {
			return nil, true, nil
		}
		logger.Errorf("追加记录 %s 失败，已回滚文件: %v", id, err)
		return nil, false, storeError(err)
	}
	return item, false, nil
}

func (s *historyService) enqueueMirror(item database.HistoryItem) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Enqueue(item); err != nil {
		logger.Warnf("镜像任务入队失败 %s: %v", item.ID, err)
	}
}

func (s *historyService) Get(ctx context.Context, id string) (*database.HistoryItem, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.ErrFileNotFound, "unknown id %q", id)
		}
		return nil, storeError(err)
	}
	return item, nil
}

func (s *historyService) Resolve(ctx context.Context, id string) (*database.HistoryItem, string, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrFileNotFound {
			logger.Debugf("Resolve %s: no such record", id)
		}
		return nil, "", err
	}

	path, err := s.blobs.Resolve(item.Path)
	if err != nil {
		logger.Errorf("记录 %s 的文件名 %q 无效: %v", id, item.Path, err)
		return nil, "", apperrors.Newf(apperrors.ErrFileNotFound, "invalid stored path for %q", id)
	}
	exists, err := s.blobs.Exists(item.Path)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrFileReadFailed, err)
	}
	if !exists {
		logger.Warnf("记录 %s 存在但文件 %s 缺失", id, item.Path)
		return nil, "", apperrors.Newf(apperrors.ErrFileNotFound, "file for %q is missing", id)
	}
	return item, path, nil
}

func (s *historyService) ResolvePath(ctx context.Context, id string) (string, error) {
	_, path, err := s.Resolve(ctx, id)
	return path, err
}

func (s *historyService) List(ctx context.Context) ([]database.HistoryItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		logger.Errorf("读取上传历史失败: %v", err)
		return nil, storeError(err)
	}
	return items, nil
}

func (s *historyService) Check(ctx context.Context) (*ConsistencyReport, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.blobs.Names()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFileReadFailed, err)
	}

	onDisk := make(map[string]struct{}, len(names))
	for _, name := range names {
		onDisk[name] = struct{}{}
	}

	report := &ConsistencyReport{
		Records: len(items),
		Blobs:   len(names),
		Missing: []database.HistoryItem{},
		Orphans: []string{},
	}
	referenced := make(map[string]struct{}, len(items))
	for _, item := range items {
		referenced[item.Path] = struct{}{}
		if _, ok := onDisk[item.Path]; !ok {
			report.Missing = append(report.Missing, item)
		}
	}
	for _, name := range names {
		if _, ok := referenced[name]; !ok {
			report.Orphans = append(report.Orphans, name)
		}
	}
	sort.Strings(report.Orphans)

	if !report.Healthy() {
		logger.Warnf("一致性检查发现问题: 缺失文件 %d 个, 孤儿文件 %d 个", len(report.Missing), len(report.Orphans))
	}
	return report, nil
}

// isAllowedExtension 检查扩展名是否在允许列表中，"*" 表示全部允许
func (s *historyService) isAllowedExtension(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedExtensions {
		if allowed == "*" || strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// storeError 将账本错误转换为应用错误
func storeError(err error) error {
	if errors.Is(err, ledger.ErrUnavailable) {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("ledger: %w", err))
}

// isText 判断内容是否为文本，mmCIF 是纯文本格式
func isText(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// SanitizeName 去掉目录部分和控制字符，返回可安全用于展示和响应头的文件名
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
