package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"memory-transition-server/modules/common/config"
)

const (
	BackendFal      = "fal"
	BackendSupabase = "supabase"
	BackendS3       = "s3"
)

// BlobStore writes one object and returns a publicly fetchable URL for it.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New - STORAGE_BACKEND 설정에 맞는 BlobStore 생성
func New(ctx context.Context, cfg *config.Config, httpClient *http.Client) (BlobStore, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	switch cfg.StorageBackend {
	case "", BackendFal:
		return NewFalStore(cfg.FalStorageURL, cfg.FalKey, httpClient), nil
	case BackendSupabase:
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket, httpClient), nil
	case BackendS3:
		return NewS3Store(ctx, S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// ObjectKey - 업로드 파일 경로 생성 (uploads/YYYY/MM/<uuid>.<ext>)
func ObjectKey(now time.Time, contentType string) string {
	return path.Join("uploads", now.UTC().Format("2006/01"), uuid.NewString()+ExtensionFor(contentType))
}

// ExtensionFor maps an image MIME type to a file extension.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
