package upload

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/model"
	"memory-transition-server/modules/common/utils"
)

// multipartOverhead is the allowance for multipart boundaries and headers on top of the file.
const multipartOverhead = 1 << 20

// Handler - Upload HTTP Handler
type Handler struct {
	service *Service
}

// NewHandler - Handler 생성
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/upload", h.HandleUpload).Methods("POST")
	r.HandleFunc("/api/upload", h.HandleUpload).Methods("POST")
	log.Info().Msg("✅ [Upload] Routes registered: /upload, /api/upload")
}

// HandleUpload - POST /upload (multipart field "file")
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, utils.MaxImageBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apperr.WriteError(w, utils.ErrTooLarge)
			return
		}
		log.Warn().Err(err).Msg("⚠️ [Upload] no file in request")
		apperr.WriteError(w, utils.ErrNoFile)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	// 본문을 읽기 전에 타입/크기 검증
	if err := utils.ValidateImage(contentType, header.Size); err != nil {
		apperr.WriteError(w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, utils.MaxImageBytes+1))
	if err != nil {
		log.Error().Err(err).Msg("❌ [Upload] failed to read file")
		apperr.WriteError(w, apperr.Upstream(uploadFailedMessage, err))
		return
	}

	log.Info().Str("name", header.Filename).Str("content_type", contentType).Int64("size", header.Size).
		Msg("📥 [Upload] received image")

	url, err := h.service.Upload(r.Context(), contentType, data)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	apperr.WriteJSON(w, http.StatusOK, model.UploadResponse{URL: url})
}
