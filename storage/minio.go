// Package storage 封面和音频存放在 MinIO，服务端只签发直传 URL，不经手文件内容。
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"Tunedrop/config"
	"Tunedrop/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// 媒体种类
const (
	MediaCover = "cover"
	MediaAudio = "audio"
)

// ErrUnsupportedMedia 种类或扩展名不支持
var ErrUnsupportedMedia = errors.New("unsupported media type")

var allowedExt = map[string]map[string]string{
	MediaCover: {
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
	},
	MediaAudio: {
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".mp3":  "audio/mpeg",
	},
}

// Upload 一次直传的签名结果
type Upload struct {
	UploadURL   string    `json:"uploadUrl"`
	ObjectURL   string    `json:"objectUrl"`
	ObjectKey   string    `json:"objectKey"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// MediaStore MinIO 存储桶
type MediaStore struct {
	client *minio.Client
	bucket string
	region string
	ttl    time.Duration
	base   string
}

// NewMediaStore 创建 MinIO 客户端，不做网络请求
func NewMediaStore(cfg *config.Config) (*MediaStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	ttl := cfg.UploadURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &MediaStore{
		client: client,
		bucket: cfg.MinioBucket,
		region: cfg.MinioRegion,
		ttl:    ttl,
		base:   fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket),
	}, nil
}

// EnsureBucket 检查存储桶，不存在时创建
func (s *MediaStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Info("存储桶已存在", logger.String("bucket", s.bucket))
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("已创建存储桶", logger.String("bucket", s.bucket))
	return nil
}

// UploadURL 为用户签发一个 PUT 直传地址
func (s *MediaStore) UploadURL(ctx context.Context, userID int64, kind, fileName string) (*Upload, error) {
	key, contentType, err := ObjectKey(userID, kind, fileName)
	if err != nil {
		return nil, err
	}

	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("签发上传地址失败: %w", err)
	}

	logger.Debug("已签发上传地址",
		logger.Int64("user", userID),
		logger.String("kind", kind),
		logger.String("key", key))
	return &Upload{
		UploadURL:   u.String(),
		ObjectURL:   s.base + "/" + (&url.URL{Path: key}).EscapedPath(),
		ObjectKey:   key,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(s.ttl),
	}, nil
}

// BucketStats 存储桶概况
type BucketStats struct {
	Objects   int
	TotalSize int64
	ByPrefix  map[string]int
}

// Stats 统计 prefix 下的对象，供命令行查看
func (s *MediaStore) Stats(ctx context.Context, prefix string) (*BucketStats, error) {
	stats := &BucketStats{ByPrefix: make(map[string]int)}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("列出对象失败: %w", obj.Err)
		}
		stats.Objects++
		stats.TotalSize += obj.Size
		top := obj.Key
		if i := strings.Index(top, "/"); i > 0 {
			top = top[:i]
		}
		stats.ByPrefix[top]++
	}
	return stats, nil
}

// ObjectKey 生成对象路径 <kind>/<userId>/<uuid><ext>，同时返回 Content-Type
func ObjectKey(userID int64, kind, fileName string) (string, string, error) {
	exts, ok := allowedExt[kind]
	if !ok {
		return "", "", fmt.Errorf("%w: kind must be cover or audio", ErrUnsupportedMedia)
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	contentType, ok := exts[ext]
	if !ok {
		return "", "", fmt.Errorf("%w: %s files cannot be used as %s", ErrUnsupportedMedia, ext, kind)
	}
	return fmt.Sprintf("%s/%d/%s%s", kind, userID, uuid.New().String(), ext), contentType, nil
}
