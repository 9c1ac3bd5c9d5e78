// Package app 持有进程级资源：数据库连接、账本、文件存储、ID生成器、镜像服务和历史服务
// 由 New 显式创建，Close 统一释放
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/database"
	"github.com/weiwangfds/structview/internal/idgen"
	"github.com/weiwangfds/structview/internal/logger"
	historyservice "github.com/weiwangfds/structview/internal/service/history"
	mirrorservice "github.com/weiwangfds/structview/internal/service/mirror"
	"github.com/weiwangfds/structview/internal/storage/blob"
	"github.com/weiwangfds/structview/internal/storage/ledger"
	"gorm.io/gorm"
)

// App 应用上下文
type App struct {
	Config  *config.Config
	DB      *gorm.DB // 仅 database 后端
	Ledger  ledger.Store
	Blobs   *blob.Store
	IDs     *idgen.Generator
	Mirror  *mirrorservice.Service // 未启用镜像时为nil
	History historyservice.HistoryService

	cancelMirror context.CancelFunc
}

// New 按配置初始化全部资源，任一步失败时释放已创建的资源
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if cfg.Storage.Backend == config.BackendDatabase {
		if a.DB, err = database.Init(cfg.Database); err != nil {
			return nil, err
		}
	}

	if a.Ledger, err = ledger.Open(ctx, cfg, a.DB); err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if a.Blobs, err = blob.New(cfg.Storage.UploadDir); err != nil {
		return nil, err
	}

	if a.IDs, err = idgen.New(idgen.Policy(cfg.Storage.IDPolicy), cfg.Storage.MaxIDAttempts); err != nil {
		return nil, err
	}

	var opts []historyservice.Option
	if cfg.Mirror.Enabled {
		provider, perr := mirrorservice.NewProvider(cfg.Mirror)
		if perr != nil {
			return nil, fmt.Errorf("create mirror provider: %w", perr)
		}
		if terr := provider.TestConnection(); terr != nil {
			logger.Warnf("镜像存储连接测试失败，上传将在后台重试: %v", terr)
		}

		a.Mirror = mirrorservice.NewService(provider, a.Blobs, cfg.Mirror)
		mirrorCtx, cancel := context.WithCancel(context.Background())
		a.cancelMirror = cancel
		if err = a.Mirror.Start(mirrorCtx); err != nil {
			return nil, err
		}
		opts = append(opts, historyservice.WithMirror(a.Mirror))
	}

	a.History = historyservice.NewHistoryService(a.IDs, a.Blobs, a.Ledger, historyservice.Config{
		MaxFileSize:       cfg.Storage.MaxFileSize,
		AllowedExtensions: cfg.Storage.AllowedExtensions,
	}, opts...)

	logger.Infof("Application initialized (backend: %s, upload dir: %s, id policy: %s)",
		cfg.Storage.Backend, a.Blobs.Root(), cfg.Storage.IDPolicy)
	return a, nil
}

// Close 停止镜像服务并关闭账本和数据库
func (a *App) Close() error {
	var errs []error

	if a.Mirror != nil {
		a.Mirror.Stop()
	}
	if a.cancelMirror != nil {
		a.cancelMirror()
	}
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
