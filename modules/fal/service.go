package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrMalformedResponse = errors.New("fal: malformed provider response")
	ErrGenerationFailed  = errors.New("fal: generation failed")
	ErrTimeout           = errors.New("fal: generation timed out")
)

// maxPollErrors is how many consecutive transport errors a wait loop tolerates.
const maxPollErrors = 3

// minPollInterval bounds non-positive or tiny intervals passed to WaitForCompletion.
const minPollInterval = time.Millisecond

// maxReasonBytes caps provider error detail kept in a JobStatus.
const maxReasonBytes = 512

// Provider is the asynchronous generation contract.
type Provider interface {
	Submit(ctx context.Context, input TransitionInput) (JobHandle, error)
	Poll(ctx context.Context, handle JobHandle) (JobStatus, error)
}

// Service - fal.ai queue API 클라이언트
type Service struct {
	config     *Config
	httpClient *http.Client
}

// NewService - Service 생성
func NewService(cfg *Config, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Service{config: cfg, httpClient: httpClient}
}

// Config returns the settings the service was built with.
func (s *Service) Config() *Config { return s.config }

// Submit - 전환 비디오 생성 요청 제출
func (s *Service) Submit(ctx context.Context, input TransitionInput) (JobHandle, error) {
	log.Info().Str("endpoint", EndpointTransition).Msg("🚀 [Fal] submitting transition request")

	raw, err := s.SubmitRaw(ctx, EndpointTransition, input)
	if err != nil {
		return JobHandle{}, err
	}
	if raw.StatusCode < 200 || raw.StatusCode >= 300 {
		return JobHandle{}, fmt.Errorf("fal submit returned status %d: %s", raw.StatusCode, truncate(raw.Body))
	}

	var resp queueSubmitResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return JobHandle{}, fmt.Errorf("%w: submit: %v", ErrMalformedResponse, err)
	}
	if resp.RequestID == "" {
		return JobHandle{}, fmt.Errorf("%w: submit: missing request_id", ErrMalformedResponse)
	}

	handle := JobHandle{
		RequestID:   resp.RequestID,
		StatusURL:   resp.StatusURL,
		ResponseURL: resp.ResponseURL,
	}
	if handle.StatusURL == "" || handle.ResponseURL == "" {
		base := fmt.Sprintf("%s/%s/requests/%s", s.config.QueueURL, appID(EndpointTransition), url.PathEscape(resp.RequestID))
		if handle.StatusURL == "" {
			handle.StatusURL = base + "/status"
		}
		if handle.ResponseURL == "" {
			handle.ResponseURL = base
		}
	}

	log.Info().Str("request_id", handle.RequestID).Msg("✅ [Fal] request queued")
	return handle, nil
}

// Poll - 작업 상태 조회 (완료 시 결과까지 조회)
func (s *Service) Poll(ctx context.Context, handle JobHandle) (JobStatus, error) {
	if handle.StatusURL == "" || handle.ResponseURL == "" {
		return JobStatus{}, errors.New("fal poll: incomplete job handle")
	}

	raw, err := s.do(ctx, http.MethodGet, handle.StatusURL, nil)
	if err != nil {
		return JobStatus{}, err
	}
	if raw.StatusCode < 200 || raw.StatusCode >= 300 {
		return JobStatus{}, fmt.Errorf("fal status returned status %d: %s", raw.StatusCode, truncate(raw.Body))
	}

	var status queueStatusResponse
	if err := json.Unmarshal(raw.Body, &status); err != nil {
		return JobStatus{}, fmt.Errorf("%w: status: %v", ErrMalformedResponse, err)
	}

	switch strings.ToUpper(status.Status) {
	case "IN_QUEUE":
		return JobStatus{State: StateSubmitted, QueuePosition: status.QueuePosition}, nil
	case "IN_PROGRESS":
		return JobStatus{State: StateInProgress}, nil
	case "COMPLETED":
		if status.Error != "" {
			return JobStatus{State: StateFailed, Reason: status.Error}, nil
		}
		return s.fetchResult(ctx, handle)
	default:
		log.Warn().Str("status", status.Status).Str("request_id", handle.RequestID).Msg("⚠️ [Fal] unknown status")
		return JobStatus{State: StateInProgress}, nil
	}
}

// fetchResult - response_url 에서 모델 결과 조회
func (s *Service) fetchResult(ctx context.Context, handle JobHandle) (JobStatus, error) {
	raw, err := s.do(ctx, http.MethodGet, handle.ResponseURL, nil)
	if err != nil {
		return JobStatus{}, err
	}
	if raw.StatusCode < 200 || raw.StatusCode >= 300 {
		return JobStatus{State: StateFailed, Reason: fmt.Sprintf("status %d: %s", raw.StatusCode, truncate(raw.Body))}, nil
	}

	var out videoOutput
	if err := json.Unmarshal(raw.Body, &out); err != nil {
		return JobStatus{}, fmt.Errorf("%w: result: %v", ErrMalformedResponse, err)
	}
	if out.Video == nil || out.Video.URL == "" {
		return JobStatus{}, fmt.Errorf("%w: no video url in response: %s", ErrMalformedResponse, truncate(raw.Body))
	}
	return JobStatus{State: StateCompleted, VideoURL: out.Video.URL}, nil
}

// Subscribe - 제출 후 완료까지 대기 (timeout 적용)
func (s *Service) Subscribe(ctx context.Context, input TransitionInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	handle, err := s.Submit(ctx, input)
	if err != nil {
		return "", err
	}

	status, err := WaitForCompletion(ctx, s, handle, s.config.PollInterval)
	if err != nil {
		return "", err
	}
	return status.VideoURL, nil
}

// WaitForCompletion - 작업 완료 대기 (폴링)
// It returns the completed status, or an error for failure, timeout or a malformed response.
func WaitForCompletion(ctx context.Context, p Provider, handle JobHandle, interval time.Duration) (JobStatus, error) {
	log.Info().Str("request_id", handle.RequestID).Msg("⏳ [Fal] waiting for completion")

	if interval < minPollInterval {
		interval = minPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	attempt := 0
	for {
		attempt++
		status, err := p.Poll(ctx, handle)
		switch {
		case err != nil && errors.Is(err, ErrMalformedResponse):
			return JobStatus{}, err
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return JobStatus{}, waitError(ctxErr)
			}
			failures++
			log.Warn().Err(err).Int("attempt", attempt).Msg("⚠️ [Fal] failed to get status")
			if failures >= maxPollErrors {
				return JobStatus{}, fmt.Errorf("fal poll: %d consecutive errors: %w", failures, err)
			}
		default:
			failures = 0
			log.Debug().Int("attempt", attempt).Str("state", string(status.State)).Msg("📊 [Fal] poll")

			switch status.State {
			case StateCompleted:
				log.Info().Str("request_id", handle.RequestID).Msg("✅ [Fal] generation completed")
				return status, nil
			case StateFailed:
				return status, fmt.Errorf("%w: %s", ErrGenerationFailed, status.Reason)
			}
		}

		select {
		case <-ctx.Done():
			return JobStatus{}, waitError(ctx.Err())
		case <-ticker.C:
		}
	}
}

func waitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// SubmitRaw posts input to an endpoint and returns the reply untouched.
func (s *Service) SubmitRaw(ctx context.Context, endpoint string, input interface{}) (*RawResponse, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal fal input: %w", err)
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s", s.config.QueueURL, endpoint), body)
}

// RequestRaw fetches {queue}/{endpoint}/requests/{requestID} and returns the reply untouched.
func (s *Service) RequestRaw(ctx context.Context, endpoint, requestID string) (*RawResponse, error) {
	target := fmt.Sprintf("%s/%s/requests/%s", s.config.QueueURL, endpoint, url.PathEscape(requestID))
	return s.do(ctx, http.MethodGet, target, nil)
}

func (s *Service) do(ctx context.Context, method, target string, body []byte) (*RawResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create fal request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fal %s %s: %w", method, redact(target), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fal response: %w", err)
	}
	return &RawResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// appID returns the owner/app prefix fal uses for queue status routes.
func appID(endpoint string) string {
	parts := strings.SplitN(endpoint, "/", 3)
	if len(parts) < 2 {
		return endpoint
	}
	return parts[0] + "/" + parts[1]
}

func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}

func truncate(b []byte) string {
	if len(b) > maxReasonBytes {
		return string(b[:maxReasonBytes]) + "..."
	}
	return string(b)
}
