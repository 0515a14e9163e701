package utils

import (
	"fmt"
	"mime"
	"strings"

	"memory-transition-server/modules/common/apperr"
)

// MaxImageBytes - 업로드 최대 크기 (10MB)
const MaxImageBytes int64 = 10 << 20

// MinImageDimension is the smallest width/height accepted when the dimension check is on.
const MinImageDimension = 300

var (
	ErrNoFile      = apperr.Validation("No file provided")
	ErrInvalidType = apperr.Validation("Please use a JPG, PNG, or WebP image")
	ErrTooLarge    = apperr.Validation("Image must be under 10MB")
	ErrTooSmall    = apperr.Validation("Image must be at least 300x300 pixels")
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// NormalizeContentType lowercases a MIME type and strips its parameters.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// ValidateImage - 업로드 이미지 타입/크기 검증
func ValidateImage(contentType string, size int64) error {
	if _, ok := allowedTypes[NormalizeContentType(contentType)]; !ok {
		return ErrInvalidType
	}
	if size > MaxImageBytes {
		return ErrTooLarge
	}
	return nil
}

// ValidateDimensions - 최소 해상도 검증 (minSize <= 0 이면 생략)
func ValidateDimensions(width, height, minSize int) error {
	if minSize <= 0 {
		return nil
	}
	if width < minSize || height < minSize {
		if minSize == MinImageDimension {
			return ErrTooSmall
		}
		return apperr.Validation(fmt.Sprintf("Image must be at least %dx%d pixels", minSize, minSize))
	}
	return nil
}
