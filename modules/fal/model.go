package fal

import "encoding/json"

// JobState - 생성 작업 상태
type JobState string

const (
	StateSubmitted  JobState = "submitted"
	StateInProgress JobState = "in_progress"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobHandle identifies a submitted request. Treat it as opaque.
type JobHandle struct {
	RequestID   string `json:"requestId"`
	StatusURL   string `json:"statusUrl,omitempty"`
	ResponseURL string `json:"responseUrl,omitempty"`
}

// JobStatus - 폴링 결과
type JobStatus struct {
	State         JobState
	QueuePosition int
	VideoURL      string
	Reason        string
}

// TransitionInput - kling o1 image-to-video 입력 (시작/끝 프레임)
type TransitionInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	StartImageURL  string `json:"start_image_url"`
	EndImageURL    string `json:"end_image_url"`
	Duration       string `json:"duration"`
}

// EdgeInput - kling v2.5 turbo image-to-video 입력
type EdgeInput struct {
	Prompt         string  `json:"prompt"`
	ImageURL       string  `json:"image_url"`
	TailImageURL   string  `json:"tail_image_url,omitempty"`
	Duration       string  `json:"duration"`
	NegativePrompt string  `json:"negative_prompt"`
	CFGScale       float64 `json:"cfg_scale"`
}

// queueSubmitResponse - POST {queue}/{endpoint} 응답
type queueSubmitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
	CancelURL   string `json:"cancel_url"`
}

// queueStatusResponse - GET status_url 응답
type queueStatusResponse struct {
	Status        string          `json:"status"`
	QueuePosition int             `json:"queue_position"`
	Error         string          `json:"error,omitempty"`
	Logs          json.RawMessage `json:"logs,omitempty"`
}

// videoOutput - 모델 결과 (video.url)
type videoOutput struct {
	Video *struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type,omitempty"`
		FileSize    int64  `json:"file_size,omitempty"`
	} `json:"video"`
}

// RawResponse is an upstream reply passed through without interpretation.
type RawResponse struct {
	StatusCode int
	Body       []byte
}
