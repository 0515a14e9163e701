package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/model"
	"memory-transition-server/modules/generate"
)

const maxRequestBytes = 64 << 10

var errJobNotFound = apperr.New(apperr.KindNotFound, "Job not found")

// EnqueueResponse - POST /api/jobs 응답
type EnqueueResponse struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	QueuePosition int64  `json:"queuePosition"`
}

// Handler - Jobs HTTP / WebSocket Handler
type Handler struct {
	store    *Store
	upgrader websocket.Upgrader
	// refresh re-reads the job when no event arrives, covering missed publishes.
	refresh time.Duration
}

// NewHandler - Handler 생성
func NewHandler(store *Store) *Handler {
	return &Handler{
		store: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 모든 origin 허용
				return true
			},
		},
		refresh: 15 * time.Second,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/jobs", h.HandleEnqueue).Methods("POST")
	r.HandleFunc("/api/jobs/{jobId}", h.HandleGet).Methods("GET")
	r.HandleFunc("/ws/jobs/{jobId}", h.HandleStream)
	log.Info().Msg("✅ [Jobs] Routes registered: /api/jobs, /api/jobs/{jobId}, /ws/jobs/{jobId}")
}

// HandleEnqueue - POST /api/jobs
func (h *Handler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		apperr.WriteError(w, generate.ErrMissingInput)
		return
	}

	input, err := generate.BuildInput(req)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	job := &model.VideoJob{
		JobID:         uuid.NewString(),
		Status:        model.StatusPending,
		StartImageURL: input.StartImageURL,
		EndImageURL:   input.EndImageURL,
		Prompt:        input.Prompt,
	}

	position, err := h.store.Enqueue(r.Context(), job)
	if err != nil {
		log.Error().Err(err).Msg("❌ [Jobs] Redis enqueue failed")
		apperr.WriteError(w, apperr.Wrap(apperr.KindInternal, "Failed to queue your memory. Please try again.", err))
		return
	}

	log.Info().Str("job_id", job.JobID).Int64("position", position).Msg("✅ [Jobs] video job enqueued")
	apperr.WriteJSON(w, http.StatusAccepted, EnqueueResponse{
		JobID:         job.JobID,
		Status:        job.Status,
		QueuePosition: position,
	})
}

// HandleGet - GET /api/jobs/{jobId}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.Context(), mux.Vars(r)["jobId"])
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			apperr.WriteError(w, errJobNotFound)
			return
		}
		log.Error().Err(err).Msg("❌ [Jobs] failed to read job")
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, job)
}
