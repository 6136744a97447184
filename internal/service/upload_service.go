package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/bitfantasy/fixdesk/internal/model/entity"
)

// ErrUploadsDisabled 对象存储未配置
var ErrUploadsDisabled = errors.New("object storage not configured")

// UploadService 媒体文件上传服务
type UploadService struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewUploadService 创建上传服务
func NewUploadService(client *minio.Client, bucket, publicURL string) *UploadService {
	return &UploadService{client: client, bucket: bucket, publicURL: publicURL}
}

// Enabled 对象存储是否可用
func (s *UploadService) Enabled() bool {
	return s.client != nil
}

// UploadResult 上传结果，可直接追加到工单媒体列表
type UploadResult struct {
	URL  string           `json:"url"`
	Kind entity.MediaKind `json:"kind"`
}

// Upload 保存文件到对象存储并返回公开地址
func (s *UploadService) Upload(ctx context.Context, filename, contentType string, size int64, reader io.Reader) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, ErrUploadsDisabled
	}

	ext := path.Ext(filename)
	objectName := fmt.Sprintf("media/%s/%s%s", time.Now().Format("2006/01"), uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &UploadResult{
		URL:  fmt.Sprintf("%s/%s", strings.TrimRight(s.publicURL, "/"), objectName),
		Kind: kindFromContentType(contentType),
	}, nil
}

// kindFromContentType 按 MIME 类型归类媒体种类
func kindFromContentType(contentType string) entity.MediaKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return entity.MediaKindImage
	case strings.HasPrefix(contentType, "video/"):
		return entity.MediaKindVideo
	default:
		return entity.MediaKindDocument
	}
}
