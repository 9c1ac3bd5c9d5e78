package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/weiwangfds/structview/config"
)

// QiniuProvider 七牛云Kodo
type QiniuProvider struct {
	mac    *qbox.Mac
	bucket string
	region *storage.Region
}

// NewQiniuProvider 创建七牛云Kodo提供商实例
func NewQiniuProvider(cfg config.MirrorConfig) (*QiniuProvider, error) {
	mac := qbox.NewMac(cfg.AccessKey, cfg.SecretKey)

	region, err := storage.GetRegion(cfg.AccessKey, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	return &QiniuProvider{mac: mac, bucket: cfg.Bucket, region: region}, nil
}

func (p *QiniuProvider) manager() *storage.BucketManager {
	return storage.NewBucketManager(p.mac, &storage.Config{Region: p.region, UseHTTPS: true})
}

func (p *QiniuProvider) UploadFile(objectKey string, reader io.Reader, contentType string) error {
	putPolicy := storage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucket, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	uploader := storage.NewFormUploader(&storage.Config{
		Region:   p.region,
		UseHTTPS: true,
	})

	putExtra := storage.PutExtra{MimeType: contentType}
	ret := storage.PutRet{}
	if err := uploader.Put(context.Background(), &ret, upToken, objectKey, reader, -1, &putExtra); err != nil {
		return fmt.Errorf("failed to upload %s to qiniu kodo: %w", objectKey, err)
	}
	return nil
}

func (p *QiniuProvider) FileExists(objectKey string) (bool, error) {
	if _, err := p.manager().Stat(p.bucket, objectKey); err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s in qiniu kodo: %w", objectKey, err)
	}
	return true, nil
}

func (p *QiniuProvider) TestConnection() error {
	if _, _, _, _, err := p.manager().ListFiles(p.bucket, "", "", "", 1); err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}
