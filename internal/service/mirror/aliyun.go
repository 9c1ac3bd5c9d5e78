package service

import (
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/weiwangfds/structview/config"
)

// AliyunProvider 阿里云OSS
type AliyunProvider struct {
	client *oss.Client
	bucket *oss.Bucket
	name   string
}

// NewAliyunProvider 创建阿里云OSS提供商实例
func NewAliyunProvider(cfg config.MirrorConfig) (*AliyunProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", cfg.Region)
	}

	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	return &AliyunProvider{client: client, bucket: bucket, name: cfg.Bucket}, nil
}

func (p *AliyunProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	var options []oss.Option
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if err := p.bucket.PutObject(objectKey, reader, options...); err != nil {
		return fmt.Errorf("failed to upload %s to aliyun oss: %w", objectKey, err)
	}
	return nil
}

func (p *AliyunProvider) FileExists(objectKey string) (bool, error) {
	exists, err := p.bucket.IsObjectExist(objectKey)
	if err != nil {
		return false, fmt.Errorf("failed to check %s in aliyun oss: %w", objectKey, err)
	}
	return exists, nil
}

func (p *AliyunProvider) TestConnection() error {
	if _, err := p.client.GetBucketInfo(p.name); err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}
	return nil
}
