package model

import "time"

// Slot - 업로드 슬롯 (시작/끝 위치 이미지)
type Slot string

const (
	SlotStart Slot = "start"
	SlotEnd   Slot = "end"
)

// UploadResponse - POST /upload 응답
type UploadResponse struct {
	URL string `json:"url"`
}

// GenerationRequest - POST /generate, POST /api/jobs 요청 본문
type GenerationRequest struct {
	StartImageURL string `json:"startImageUrl"`
	EndImageURL   string `json:"endImageUrl"`
	Prompt        string `json:"prompt,omitempty"`
}

// GenerationResult - 생성 완료 결과
type GenerationResult struct {
	VideoURL string `json:"videoUrl"`
}

// ErrorResponse - 공통 에러 응답
type ErrorResponse struct {
	Error string `json:"error"`
}

// Job status 상수
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// VideoJob - Redis 에 저장되는 비동기 생성 작업
type VideoJob struct {
	JobID         string    `json:"jobId"`
	Status        string    `json:"status"`
	RequestID     string    `json:"requestId,omitempty"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartImageURL string    `json:"startImageUrl"`
	EndImageURL   string    `json:"endImageUrl"`
	Prompt        string    `json:"prompt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the job will not change status again.
func (j *VideoJob) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
