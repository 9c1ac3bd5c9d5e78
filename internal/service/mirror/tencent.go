package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/weiwangfds/structview/config"
)

// TencentProvider 腾讯云COS
type TencentProvider struct {
	client *cos.Client
}

// NewTencentProvider 创建腾讯云COS提供商实例
func NewTencentProvider(cfg config.MirrorConfig) (*TencentProvider, error) {
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		bucketURL = cfg.Endpoint
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		},
	})
	return &TencentProvider{client: client}, nil
}

func (p *TencentProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	opt := &cos.ObjectPutOptions{}
	if contentType != "" {
		opt.ObjectPutHeaderOptions = &cos.ObjectPutHeaderOptions{ContentType: contentType}
	}
	if _, err := p.client.Object.Put(context.Background(), objectKey, reader, opt); err != nil {
		return fmt.Errorf("failed to upload %s to tencent cos: %w", objectKey, err)
	}
	return nil
}

func (p *TencentProvider) FileExists(objectKey string) (bool, error) {
	_, err := p.client.Object.Head(context.Background(), objectKey, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s in tencent cos: %w", objectKey, err)
	}
	return true, nil
}

func (p *TencentProvider) TestConnection() error {
	if _, err := p.client.Bucket.Head(context.Background()); err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}
	return nil
}
