package edgeproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/utils"
	"memory-transition-server/modules/fal"
)

const maxRequestBytes = 64 << 10

const (
	ActionGenerate    = "generate"
	ActionCheckStatus = "check_status"
)

var (
	ErrMissingFields    = apperr.Validation("Missing required fields")
	ErrMissingRequestID = apperr.Validation("Missing requestId")
)

// Forwarder passes requests to the fal queue untouched. *fal.Service implements it.
type Forwarder interface {
	SubmitRaw(ctx context.Context, endpoint string, input interface{}) (*fal.RawResponse, error)
	RequestRaw(ctx context.Context, endpoint, requestID string) (*fal.RawResponse, error)
}

// Request - POST /functions/generate-video 요청 본문
type Request struct {
	Action       string `json:"action"`
	Prompt       string `json:"prompt,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	TailImageURL string `json:"tailImageUrl,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

// Handler - 비동기 생성 프록시 (상태 없음, 폴링은 호출자 담당)
type Handler struct {
	forwarder Forwarder
	endpoint  string
}

// NewHandler - Handler 생성
func NewHandler(forwarder Forwarder) *Handler {
	return &Handler{forwarder: forwarder, endpoint: fal.EndpointEdge}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/functions/generate-video", h.HandleGenerateVideo).Methods("POST", "OPTIONS")
	log.Info().Msg("✅ [Edge] Routes registered: /functions/generate-video")
}

// HandleGenerateVideo - action 에 따라 제출 또는 상태 조회
func (h *Handler) HandleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		utils.WritePreflight(w)
		return
	}
	utils.SetCORSHeaders(w)

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}

	var (
		raw *fal.RawResponse
		err error
	)
	switch req.Action {
	case ActionGenerate:
		raw, err = h.generate(r.Context(), req)
	case ActionCheckStatus:
		raw, err = h.checkStatus(r.Context(), req)
	default:
		err = apperr.Validation(fmt.Sprintf("Unknown action: %s", req.Action))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	// 업스트림 응답이 JSON 이 아니면 에러 처리
	if !json.Valid(raw.Body) {
		log.Error().Int("status", raw.StatusCode).Msg("❌ [Edge] upstream returned non-JSON body")
		writeError(w, errors.New("upstream returned non-JSON body"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(raw.StatusCode)
	_, _ = w.Write(raw.Body)
}

func (h *Handler) generate(ctx context.Context, req Request) (*fal.RawResponse, error) {
	if req.ImageURL == "" || req.Prompt == "" {
		return nil, ErrMissingFields
	}

	log.Info().Str("endpoint", h.endpoint).Bool("tail", req.TailImageURL != "").Msg("🚀 [Edge] submitting")
	return h.forwarder.SubmitRaw(ctx, h.endpoint, fal.EdgeInput{
		Prompt:         req.Prompt,
		ImageURL:       req.ImageURL,
		TailImageURL:   req.TailImageURL,
		Duration:       fal.DefaultDuration,
		NegativePrompt: fal.EdgeNegativePrompt,
		CFGScale:       fal.EdgeCFGScale,
	})
}

func (h *Handler) checkStatus(ctx context.Context, req Request) (*fal.RawResponse, error) {
	if req.RequestID == "" {
		return nil, ErrMissingRequestID
	}
	return h.forwarder.RequestRaw(ctx, h.endpoint, req.RequestID)
}

// writeError - 모든 에러는 400 {error}
func writeError(w http.ResponseWriter, err error) {
	if apperr.KindOf(err) != apperr.KindValidation {
		log.Error().Err(err).Msg("❌ [Edge] request failed")
	}
	apperr.WriteErrorStatus(w, http.StatusBadRequest, err)
}
