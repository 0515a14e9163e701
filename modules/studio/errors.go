package studio

import (
	"errors"
	"strings"
)

// MaxRetries - 재시도 허용 횟수
const MaxRetries = 2

const (
	msgTimeout   = "The request took too long. Please try again."
	msgRateLimit = "Too many requests. Please wait a moment and try again."
	msgImage     = "There was a problem with your images. Try different photos."
	msgGeneric   = "Something went wrong. Please try again."
	msgExhausted = "Still having trouble. Please try different images or try again later."
)

var (
	ErrNotReady         = errors.New("studio: both images must be uploaded and nothing in flight")
	ErrUploadInProgress = errors.New("studio: upload already in progress for slot")
	ErrRetriesExhausted = errors.New("studio: retries exhausted")
	ErrClosed           = errors.New("studio: session closed")
	ErrUnknownSlot      = errors.New("studio: unknown slot")
)

// FriendlyError - 원본 에러 문자열을 사용자 메시지로 변환
func FriendlyError(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "timeout"):
		return msgTimeout
	case strings.Contains(lower, "rate limit"):
		return msgRateLimit
	case strings.Contains(lower, "image"):
		// "invalid image" 포함
		return msgImage
	default:
		return msgGeneric
	}
}

// ExhaustedMessage is shown once MaxRetries retries have been spent.
func ExhaustedMessage() string {
	return msgExhausted
}
