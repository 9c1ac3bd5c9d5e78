// Package service 将新上传的结构文件异步镜像到对象存储
package service

import (
	"io"

	"github.com/weiwangfds/structview/config"
	apperrors "github.com/weiwangfds/structview/internal/errors"
)

// 支持的对象存储提供商
const (
	ProviderAliyun  = "aliyun"
	ProviderTencent = "tencent"
	ProviderQiniu   = "qiniu"
)

// Provider 对象存储提供商接口
type Provider interface {
	// 上传对象
	UploadFile(objectKey string, reader io.Reader, contentType string) error

	// 检查对象是否存在
	FileExists(objectKey string) (bool, error)

	// 测试连接
	TestConnection() error
}

// NewProvider 根据镜像配置创建提供商实例
// 缺少桶或密钥、SDK客户端创建失败时返回 ErrMirrorConfigInvalid
func NewProvider(cfg config.MirrorConfig) (Provider, error) {
	var newFn func(config.MirrorConfig) (Provider, error)
	switch cfg.Provider {
	case ProviderAliyun:
		newFn = func(c config.MirrorConfig) (Provider, error) { return NewAliyunProvider(c) }
	case ProviderTencent:
		newFn = func(c config.MirrorConfig) (Provider, error) { return NewTencentProvider(c) }
	case ProviderQiniu:
		newFn = func(c config.MirrorConfig) (Provider, error) { return NewQiniuProvider(c) }
	default:
		return nil, apperrors.Newf(apperrors.ErrMirrorProviderNotSupported, "provider %q", cfg.Provider)
	}

	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, apperrors.Newf(apperrors.ErrMirrorConfigInvalid, "%s: bucket, access_key and secret_key are required", cfg.Provider)
	}
	p, err := newFn(cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMirrorConfigInvalid, err)
	}
	return p, nil
}
