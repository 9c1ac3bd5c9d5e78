package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/database"
	apperrors "github.com/weiwangfds/structview/internal/errors"
	"github.com/weiwangfds/structview/internal/logger"
	"github.com/weiwangfds/structview/internal/storage/blob"
)

// ContentType mmCIF 对象的内容类型
const ContentType = "chemical/x-mmcif"

// BlobOpener 读取本地结构文件
type BlobOpener interface {
	Open(name string) (io.ReadCloser, error)
}

// retryItem 等待重试的镜像任务
type retryItem struct {
	item       database.HistoryItem
	retryCount int       // 已重试次数
	nextRetry  time.Time // 下次重试时间
}

// Stats 镜像统计
type Stats struct {
	Uploaded int64 `json:"uploaded"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
	Pending  int   `json:"pending"`

	// LastError 最近一次放弃镜像的原因
	LastError string `json:"last_error,omitempty"`
}

// Service 镜像服务
// Enqueue 只负责入队，上传由后台协程完成，失败按 重试次数² × retry_interval 退避
type Service struct {
	provider Provider
	blobs    BlobOpener
	prefix   string

	queue    chan database.HistoryItem
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	running  bool
	retries  []*retryItem
	lastErr  error
	maxRetry int
	interval time.Duration
	tick     time.Duration

	uploaded atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// NewService 创建镜像服务
func NewService(provider Provider, blobs BlobOpener, cfg config.MirrorConfig) *Service {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	tick := interval
	if tick > time.Second {
		tick = time.Second
	}

	logger.Infof("[镜像服务] 初始化，队列大小: %d, 最大重试次数: %d, 重试间隔: %v", queueSize, cfg.MaxRetries, interval)
	return &Service{
		provider: provider,
		blobs:    blobs,
		prefix:   cfg.Prefix,
		queue:    make(chan database.HistoryItem, queueSize),
		stopChan: make(chan struct{}),
		maxRetry: cfg.MaxRetries,
		interval: interval,
		tick:     tick,
	}
}

// Start 启动上传协程和重试协程
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("mirror service is already running")
	}
	s.running = true

	s.wg.Add(2)
	go s.syncWorker(ctx)
	go s.retryWorker(ctx)

	logger.Infof("[镜像服务] 已启动")
	return nil
}

// Stop 停止后台协程并等待其退出，队列中未处理的任务被丢弃
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	logger.Infof("[镜像服务] 已停止")
}

// Enqueue 将记录加入镜像队列，队列已满时返回 ErrMirrorQueueFull
func (s *Service) Enqueue(item database.HistoryItem) error {
	select {
	case s.queue <- item:
		logger.Debugf("[镜像服务] 已加入队列: %s", item.ID)
		return nil
	default:
		logger.Warnf("[镜像服务] 队列已满，丢弃镜像任务: %s", item.ID)
		return apperrors.Newf(apperrors.ErrMirrorQueueFull, "item %s", item.ID)
	}
}

// Stats 返回当前统计
func (s *Service) Stats() Stats {
	s.mu.Lock()
	pending := len(s.retries)
	lastErr := s.lastErr
	s.mu.Unlock()

	stats := Stats{
		Uploaded: s.uploaded.Load(),
		Skipped:  s.skipped.Load(),
		Failed:   s.failed.Load(),
		Pending:  pending + len(s.queue),
	}
	if lastErr != nil {
		stats.LastError = lastErr.Error()
	}
	return stats
}

// ObjectKey 返回记录在对象存储中的键
func (s *Service) ObjectKey(item database.HistoryItem) string {
	return path.Join(s.prefix, item.Path)
}

func (s *Service) syncWorker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case item := <-s.queue:
			s.sync(item, 0)
		}
	}
}

func (s *Service) retryWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			for _, r := range s.dueRetries(now) {
				s.sync(r.item, r.retryCount)
			}
		}
	}
}

// dueRetries 取出到期的重试项
func (s *Service) dueRetries(now time.Time) []*retryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*retryItem
	kept := s.retries[:0]
	for _, r := range s.retries {
		if !r.nextRetry.After(now) {
			due = append(due, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.retries = kept
	return due
}

// giveUp 记录放弃镜像的任务
func (s *Service) giveUp(item database.HistoryItem, cause error) {
	err := apperrors.Wrap(apperrors.ErrMirrorUploadFailed, fmt.Errorf("%s: %w", item.ID, cause))
	s.failed.Add(1)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	logger.Errorf("[镜像服务] 放弃镜像: %v", err)
}

// scheduleRetry 安排下一次重试，超过最大次数后放弃
func (s *Service) scheduleRetry(item database.HistoryItem, retryCount int, cause error) {
	if retryCount >= s.maxRetry {
		s.giveUp(item, fmt.Errorf("after %d retries: %w", s.maxRetry, cause))
		return
	}

	next := retryCount + 1
	backoff := time.Duration(next*next) * s.interval

	s.mu.Lock()
	s.retries = append(s.retries, &retryItem{
		item:       item,
		retryCount: next,
		nextRetry:  time.Now().Add(backoff),
	})
	s.mu.Unlock()

	logger.Infof("[镜像服务] %s 将在 %v 后进行第 %d/%d 次重试", item.ID, backoff, next, s.maxRetry)
}

// sync 上传单条记录对应的文件
func (s *Service) sync(item database.HistoryItem, retryCount int) {
	key := s.ObjectKey(item)

	exists, err := s.provider.FileExists(key)
	if err != nil {
		logger.Warnf("[镜像服务] 检查对象 %s 失败: %v", key, err)
	} else if exists {
		s.skipped.Add(1)
		logger.Debugf("[镜像服务] 对象已存在，跳过: %s", key)
		return
	}

	reader, err := s.blobs.Open(item.Path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.giveUp(item, err)
			return
		}
		logger.Errorf("[镜像服务] 打开本地文件 %s 失败: %v", item.Path, err)
		s.scheduleRetry(item, retryCount, err)
		return
	}
	defer reader.Close()

	start := time.Now()
	if err := s.provider.UploadFile(key, reader, ContentType); err != nil {
		logger.Errorf("[镜像服务] 上传 %s 失败: %v", key, err)
		s.scheduleRetry(item, retryCount, err)
		return
	}

	s.uploaded.Add(1)
	logger.Infof("[镜像服务] 已上传 %s (%s, 耗时 %v)", key, humanize.Bytes(uint64(item.FileSize)), time.Since(start))
}
