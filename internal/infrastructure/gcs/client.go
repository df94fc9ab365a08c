package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
)

// ObjectStorage 封装 GCS 对象的下载、上传与删除。
// 对象地址统一使用 gs://bucket/object 形式。
type ObjectStorage struct {
	client *storage.Client
	bucket string
	log    *log.Helper
}

// NewObjectStorage 创建 ObjectStorage 并返回清理函数。
func NewObjectStorage(ctx context.Context, bucket string, logger log.Logger) (*ObjectStorage, func(), error) {
	if bucket == "" {
		return nil, nil, errors.New("gcs: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs: create client: %w", err)
	}

	helper := log.NewHelper(logger)
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Warnf("gcs: close client failed: err=%v", err)
		}
	}
	return &ObjectStorage{client: client, bucket: bucket, log: helper}, cleanup, nil
}

// ProvideObjectStorage 从存储配置装配 ObjectStorage，供 Wire 注入使用。
func ProvideObjectStorage(ctx context.Context, cfg configloader.StorageConfig, logger log.Logger) (*ObjectStorage, func(), error) {
	return NewObjectStorage(ctx, cfg.Bucket, logger)
}

// Download 把 fileURL 指向的对象写入本地 destPath。
func (s *ObjectStorage) Download(ctx context.Context, fileURL, destPath string) error {
	bucket, object, err := parseObjectURL(fileURL, s.bucket)
	if err != nil {
		return err
	}

	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("gcs: open object %s/%s: %w", bucket, object, err)
	}
	defer func() { _ = reader.Close() }()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("gcs: create dest file: %w", err)
	}
	defer func() { _ = dest.Close() }()

	if _, err := io.Copy(dest, reader); err != nil {
		return fmt.Errorf("gcs: download %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Upload 把本地文件上传到配置 bucket 下的 objectName，返回对象地址与大小。
func (s *ObjectStorage) Upload(ctx context.Context, localPath, objectName string) (string, int64, error) {
	source, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("gcs: open local file: %w", err)
	}
	defer func() { _ = source.Close() }()

	writer := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	size, err := io.Copy(writer, source)
	if err != nil {
		_ = writer.Close()
		return "", 0, fmt.Errorf("gcs: upload %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return "", 0, fmt.Errorf("gcs: finalize upload %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), size, nil
}

// Delete 删除配置 bucket 下的对象。对象不存在视为成功。
func (s *ObjectStorage) Delete(ctx context.Context, objectName string) error {
	err := s.client.Bucket(s.bucket).Object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", objectName, err)
	}
	return nil
}

// parseObjectURL 解析 gs://bucket/object 地址。裸对象名退回默认 bucket。
func parseObjectURL(fileURL, defaultBucket string) (bucket, object string, err error) {
	if fileURL == "" {
		return "", "", errors.New("gcs: file url is required")
	}
	if rest, ok := strings.CutPrefix(fileURL, "gs://"); ok {
		bucket, object, ok = strings.Cut(rest, "/")
		if !ok || bucket == "" || object == "" {
			return "", "", fmt.Errorf("gcs: malformed object url %q", fileURL)
		}
		return bucket, object, nil
	}
	if defaultBucket == "" {
		return "", "", fmt.Errorf("gcs: no bucket for object %q", fileURL)
	}
	return defaultBucket, strings.TrimPrefix(fileURL, "/"), nil
}
