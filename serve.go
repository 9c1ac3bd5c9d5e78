package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/app"
	"github.com/weiwangfds/structview/internal/logger"
	"github.com/weiwangfds/structview/internal/router"
	"golang.org/x/net/http2"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP(S) server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg)
		},
	}
}

// serve 启动服务并阻塞到 ctx 取消，然后优雅关闭
func serve(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Errorf("释放资源失败: %v", err)
		}
	}()

	engine := router.NewRouter(a).GetEngine()
	servers := make([]*http.Server, 0, 2)
	errCh := make(chan error, 2)

	httpSrv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	servers = append(servers, httpSrv)
	go func() {
		logger.Infof("HTTP服务器启动在端口 %d", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Server.EnableHTTPS {
		httpsSrv := &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.Server.HTTPSPort),
			Handler:      engine,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				NextProtos: []string{"h2", "http/1.1"},
			},
		}
		if cfg.Server.EnableHTTP2 {
			if err := http2.ConfigureServer(httpsSrv, &http2.Server{}); err != nil {
				return err
			}
		}
		servers = append(servers, httpsSrv)
		go func() {
			logger.Infof("HTTPS服务器启动在端口 %d (HTTP/2: %v)", cfg.Server.HTTPSPort, cfg.Server.EnableHTTP2)
			if err := httpsSrv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("正在关闭服务器...")
	case serveErr = <-errCh:
		logger.Errorf("服务器启动失败: %v", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("服务器 %s 强制关闭: %v", srv.Addr, err)
		}
	}

	logger.Info("服务器已退出")
	return serveErr
}
