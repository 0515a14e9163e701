package upload

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/storage"
	"memory-transition-server/modules/common/utils"
)

const uploadFailedMessage = "Failed to upload image. Please try again."

// ImageProcessor inspects and re-encodes images. *imaging.Processor implements it.
type ImageProcessor interface {
	Dimensions(data []byte, contentType string) (int, int, error)
	ToWebP(data []byte) ([]byte, error)
}

// Options - 선택 기능 (기본값: 모두 off)
type Options struct {
	MinDimension int
	ConvertWebP  bool
}

// Service - 이미지 업로드 서비스
type Service struct {
	store     storage.BlobStore
	processor ImageProcessor
	opts      Options
	now       func() time.Time
}

// NewService - Service 생성. processor may be nil when no option needs it.
func NewService(store storage.BlobStore, processor ImageProcessor, opts Options) *Service {
	return &Service{
		store:     store,
		processor: processor,
		opts:      opts,
		now:       time.Now,
	}
}

// Upload - 검증 후 저장소에 업로드, 공개 URL 반환
func (s *Service) Upload(ctx context.Context, contentType string, data []byte) (string, error) {
	contentType = utils.NormalizeContentType(contentType)
	if err := utils.ValidateImage(contentType, int64(len(data))); err != nil {
		return "", err
	}

	if s.opts.MinDimension > 0 && s.processor != nil {
		width, height, err := s.processor.Dimensions(data, contentType)
		if err != nil {
			log.Warn().Err(err).Str("content_type", contentType).Msg("⚠️ [Upload] undecodable image")
			return "", utils.ErrInvalidType
		}
		if err := utils.ValidateDimensions(width, height, s.opts.MinDimension); err != nil {
			return "", err
		}
	}

	if s.opts.ConvertWebP && s.processor != nil && contentType != "image/webp" {
		converted, err := s.processor.ToWebP(data)
		if err != nil {
			// 변환 실패 시 원본 업로드
			log.Warn().Err(err).Msg("⚠️ [Upload] webp conversion failed, storing original")
		} else {
			data = converted
			contentType = "image/webp"
		}
	}

	key := storage.ObjectKey(s.now(), contentType)
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("❌ [Upload] storage write failed")
		return "", apperr.Upstream(uploadFailedMessage, err)
	}

	log.Info().Str("url", url).Int("bytes", len(data)).Msg("✅ [Upload] image stored")
	return url, nil
}
