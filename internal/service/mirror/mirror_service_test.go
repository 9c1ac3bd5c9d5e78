package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/database"
	apperrors "github.com/weiwangfds/structview/internal/errors"
	"github.com/weiwangfds/structview/internal/storage/blob"
)

// fakeProvider 内存中的对象存储，前 failUploads 次上传失败
type fakeProvider struct {
	mu          sync.Mutex
	objects     map[string][]byte
	types       map[string]string
	failUploads int
	uploads     int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{objects: map[string][]byte{}, types: map[string]string{}}
}

func (p *fakeProvider) UploadFile(key string, r io.Reader, contentType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads++
	if p.uploads <= p.failUploads {
		return errors.New("network down")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.objects[key] = data
	p.types[key] = contentType
	return nil
}

func (p *fakeProvider) FileExists(key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.objects[key]
	return ok, nil
}

func (p *fakeProvider) TestConnection() error { return nil }

func (p *fakeProvider) object(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.objects[key]
	return data, ok
}

func (p *fakeProvider) uploadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploads
}

func setupBlobs(t *testing.T, files map[string]string) *blob.Store {
	store, err := blob.New(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, store.Put(name, []byte(content)))
	}
	return store
}

func testConfig() config.MirrorConfig {
	return config.MirrorConfig{
		Prefix:        "structures",
		QueueSize:     4,
		MaxRetries:    3,
		RetryInterval: 10 * time.Millisecond,
	}
}

func TestMirrorService(t *testing.T) {
	t.Run("上传新文件", func(t *testing.T) {
		provider := newFakeProvider()
		blobs := setupBlobs(t, map[string]string{"AB12.cif": "data_AB12\n"})
		svc := NewService(provider, blobs, testConfig())
		require.NoError(t, svc.Start(context.Background()))
		defer svc.Stop()

		require.NoError(t, svc.Enqueue(database.HistoryItem{ID: "AB12", Path: "AB12.cif", FileSize: 10}))

		require.Eventually(t, func() bool {
			_, ok := provider.object("structures/AB12.cif")
			return ok
		}, 2*time.Second, 5*time.Millisecond)

		data, _ := provider.object("structures/AB12.cif")
		assert.Equal(t, "data_AB12\n", string(data))
		assert.Equal(t, ContentType, provider.types["structures/AB12.cif"])
		assert.Equal(t, int64(1), svc.Stats().Uploaded)
	})

	t.Run("已存在的对象跳过", func(t *testing.T) {
		provider := newFakeProvider()
		provider.objects["structures/AB12.cif"] = []byte("old")
		blobs := setupBlobs(t, map[string]string{"AB12.cif": "data_AB12\n"})
		svc := NewService(provider, blobs, testConfig())
		require.NoError(t, svc.Start(context.Background()))
		defer svc.Stop()

		require.NoError(t, svc.Enqueue(database.HistoryItem{ID: "AB12", Path: "AB12.cif"}))

		require.Eventually(t, func() bool {
			return svc.Stats().Skipped == 1
		}, 2*time.Second, 5*time.Millisecond)
		data, _ := provider.object("structures/AB12.cif")
		assert.Equal(t, "old", string(data))
	})

	t.Run("失败后重试成功", func(t *testing.T) {
		provider := newFakeProvider()
		provider.failUploads = 2
		blobs := setupBlobs(t, map[string]string{"AB12.cif": "data_AB12\n"})
		svc := NewService(provider, blobs, testConfig())
		require.NoError(t, svc.Start(context.Background()))
		defer svc.Stop()

		require.NoError(t, svc.Enqueue(database.HistoryItem{ID: "AB12", Path: "AB12.cif"}))

		require.Eventually(t, func() bool {
			return svc.Stats().Uploaded == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, int64(0), svc.Stats().Failed)
	})

	t.Run("超过最大重试次数放弃", func(t *testing.T) {
		provider := newFakeProvider()
		provider.failUploads = 100
		blobs := setupBlobs(t, map[string]string{"AB12.cif": "data_AB12\n"})
		cfg := testConfig()
		cfg.MaxRetries = 1
		svc := NewService(provider, blobs, cfg)
		require.NoError(t, svc.Start(context.Background()))
		defer svc.Stop()

		require.NoError(t, svc.Enqueue(database.HistoryItem{ID: "AB12", Path: "AB12.cif"}))

		require.Eventually(t, func() bool {
			return svc.Stats().Failed == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, svc.Stats().Pending)
		assert.Contains(t, svc.Stats().LastError, "[3003]")
		assert.Contains(t, svc.Stats().LastError, "AB12")
	})

	t.Run("本地文件缺失不重试", func(t *testing.T) {
		provider := newFakeProvider()
		svc := NewService(provider, setupBlobs(t, nil), testConfig())
		require.NoError(t, svc.Start(context.Background()))
		defer svc.Stop()

		require.NoError(t, svc.Enqueue(database.HistoryItem{ID: "GONE", Path: "GONE.cif"}))

		require.Eventually(t, func() bool {
			return svc.Stats().Failed == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, provider.uploadCount())
	})

	t.Run("队列已满", func(t *testing.T) {
		cfg := testConfig()
		cfg.QueueSize = 1
		svc := NewService(newFakeProvider(), setupBlobs(t, nil), cfg)

		require.NoError(t, svc.Enqueue(database.HistoryItem{ID: "A1"}))
		err := svc.Enqueue(database.HistoryItem{ID: "A2"})
		assert.ErrorIs(t, err, apperrors.ErrMirrorQueueFullError)
	})

	t.Run("重复启动", func(t *testing.T) {
		svc := NewService(newFakeProvider(), setupBlobs(t, nil), testConfig())
		require.NoError(t, svc.Start(context.Background()))
		defer svc.Stop()
		assert.Error(t, svc.Start(context.Background()))
	})
}

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(config.MirrorConfig{Provider: "s3"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrMirrorProviderNotSupported, apperrors.CodeOf(err))
}

func TestNewProviderMissingCredentials(t *testing.T) {
	for _, provider := range []string{ProviderAliyun, ProviderTencent, ProviderQiniu} {
		_, err := NewProvider(config.MirrorConfig{Provider: provider, Bucket: "models"})
		require.Error(t, err, provider)
		assert.Equal(t, apperrors.ErrMirrorConfigInvalid, apperrors.CodeOf(err), provider)
	}
}
