package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/AbodeTech/Liquidity-sub001/internal/errs"
	"github.com/google/uuid"
)

// UploadResult 外部对象存储返回的上传结果
// 核心只保存引用 URL,字节内容永不经过生命周期引擎
type UploadResult struct {
	URL         string
	Size        int64
	ContentType string
}

// Uploader 对象存储上传接口
type Uploader interface {
	Upload(ctx context.Context, folder, filename, contentType string, content io.Reader) (*UploadResult, error)
}

// GCSUploader 基于 Google Cloud Storage 的上传实现
type GCSUploader struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewGCSUploader 创建 GCS 上传器
func NewGCSUploader(ctx context.Context, bucketName string) (*GCSUploader, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
	}, nil
}

// Upload 写入对象并返回持久引用 URL
// 失败时返回 Upload 类错误,调用方绝不注册半完成的文档
func (u *GCSUploader) Upload(ctx context.Context, folder, filename, contentType string, content io.Reader) (*UploadResult, error) {
	objectName := path.Join(folder, fmt.Sprintf("%s-%s", uuid.New().String(), filename))
	writer := u.bucket.Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType

	size, err := io.Copy(writer, content)
	if err != nil {
		_ = writer.Close()
		return nil, errs.Upload("failed to write blob", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errs.Upload("failed to finalize blob write", err)
	}

	return &UploadResult{
		URL:         fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, objectName),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// MemoryUploader 内存上传器,用于测试
type MemoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	FailAll bool // 置位后所有上传失败,用于验证失败时不注册文档
}

// NewMemoryUploader 创建内存上传器
func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{objects: make(map[string][]byte)}
}

// Upload 保存到内存并返回伪 URL
func (u *MemoryUploader) Upload(ctx context.Context, folder, filename, contentType string, content io.Reader) (*UploadResult, error) {
	if u.FailAll {
		return nil, errs.Upload("failed to write blob", fmt.Errorf("storage unavailable"))
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, errs.Upload("failed to read content", err)
	}

	objectName := path.Join(folder, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filename))
	u.mu.Lock()
	u.objects[objectName] = data
	u.mu.Unlock()

	return &UploadResult{
		URL:         "memory://" + objectName,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Len 返回已保存对象数
func (u *MemoryUploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}
