package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/model"
)

const writeWait = 10 * time.Second

// HandleStream - GET /ws/jobs/{jobId}, 상태 변경 시마다 job JSON 전송
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	// 구독 먼저 - 현재 상태 조회와 첫 이벤트 사이의 변경도 받음
	pubsub, err := h.store.Subscribe(r.Context(), jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("❌ [Jobs] subscribe failed")
		apperr.WriteError(w, err)
		return
	}
	defer pubsub.Close()

	job, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			apperr.WriteError(w, errJobNotFound)
			return
		}
		apperr.WriteError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ [Jobs] WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("job_id", jobID).Msg("🔍 [Jobs] stream opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readPump(conn, cancel)

	last := job.Status
	if err := writeJob(conn, job); err != nil || job.IsTerminal() {
		closeStream(conn)
		return
	}

	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()
	events := pubsub.Channel()

	for {
		var next *model.VideoJob
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			var decoded model.VideoJob
			if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
				log.Warn().Err(err).Str("job_id", jobID).Msg("⚠️ [Jobs] bad event payload")
				continue
			}
			next = &decoded
		case <-ticker.C:
			refreshed, err := h.store.Get(ctx, jobID)
			if err != nil {
				log.Warn().Err(err).Str("job_id", jobID).Msg("⚠️ [Jobs] refresh failed")
				continue
			}
			next = refreshed
		}

		if next.Status == last {
			continue
		}
		last = next.Status

		if err := writeJob(conn, next); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("⚠️ [Jobs] WebSocket write error")
			return
		}
		if next.IsTerminal() {
			log.Info().Str("job_id", jobID).Str("status", next.Status).Msg("📤 [Jobs] stream finished")
			closeStream(conn)
			return
		}
	}
}

func writeJob(conn *websocket.Conn, job *model.VideoJob) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(job)
}

func closeStream(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
		time.Now().Add(writeWait))
}

// readPump - 클라이언트 종료 감지
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("[Jobs] WebSocket read error")
			}
			return
		}
	}
}
