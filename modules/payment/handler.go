package payment

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/database"
	"memory-transition-server/modules/common/utils"
)

const maxRequestBytes = 16 << 10

// Handler - Payment Sheet HTTP Handler
type Handler struct {
	service *Service
}

// NewHandler - Handler 생성
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/functions/payment-sheet", h.HandlePaymentSheet).Methods("POST", "OPTIONS")
	log.Info().Msg("✅ [Payment] Routes registered: /functions/payment-sheet")
}

// HandlePaymentSheet - POST /functions/payment-sheet, 모든 에러는 400
func (h *Handler) HandlePaymentSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		utils.WritePreflight(w)
		return
	}
	utils.SetCORSHeaders(w)

	token := database.BearerToken(r)
	if token == "" {
		apperr.WriteErrorStatus(w, http.StatusBadRequest, ErrUnauthenticated)
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		apperr.WriteErrorStatus(w, http.StatusBadRequest, apperr.Validation("Invalid request body"))
		return
	}

	sheet, err := h.service.CreateSheet(r.Context(), token, req)
	if err != nil {
		apperr.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	apperr.WriteJSON(w, http.StatusOK, sheet)
}
