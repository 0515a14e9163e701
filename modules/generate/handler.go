package generate

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/model"
)

const maxRequestBytes = 64 << 10

// Handler - Generate HTTP Handler
type Handler struct {
	service *Service
}

// NewHandler - Handler 생성
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods("POST")
	log.Info().Msg("✅ [Generate] Routes registered: /generate, /api/generate")
}

// HandleGenerate - POST /generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("⚠️ [Generate] invalid request body")
		apperr.WriteError(w, ErrMissingInput)
		return
	}

	log.Info().Bool("custom_prompt", req.Prompt != "").Msg("📥 [Generate] request received")

	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	apperr.WriteJSON(w, http.StatusOK, result)
}
