package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/model"
	"memory-transition-server/modules/fal"
	"memory-transition-server/modules/generate"
)

const generationFailedMessage = "Failed to create your memory. Please try again."

// Worker - Video Queue Worker
type Worker struct {
	store        *Store
	provider     fal.Provider
	pollInterval time.Duration
	timeout      time.Duration
	// dequeueWait bounds each BLMOVE so shutdown is noticed.
	dequeueWait time.Duration
	retryDelay  time.Duration
}

// NewWorker - Worker 생성
func NewWorker(store *Store, provider fal.Provider, cfg *fal.Config) *Worker {
	return &Worker{
		store:        store,
		provider:     provider,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		dequeueWait:  5 * time.Second,
		retryDelay:   5 * time.Second,
	}
}

// Run - Redis 큐 감시 (ctx 취소 시 종료)
func (w *Worker) Run(ctx context.Context) {
	log.Info().Str("queue", QueueKey).Msg("🔄 [Worker] Starting video queue worker")

	// 이전 프로세스가 처리 중 종료된 작업 복구
	if n, err := w.store.Requeue(ctx); err != nil {
		log.Error().Err(err).Msg("❌ [Worker] failed to requeue interrupted jobs")
	} else if n > 0 {
		log.Warn().Int("count", n).Msg("♻️ [Worker] requeued interrupted jobs")
	}

	for {
		if ctx.Err() != nil {
			log.Info().Msg("🛑 [Worker] stopped")
			return
		}

		jobID, err := w.store.Dequeue(ctx, w.dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("🛑 [Worker] stopped")
				return
			}
			log.Error().Err(err).Msg("❌ [Worker] Redis BLMOVE error")
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}
		if jobID == "" {
			continue
		}

		log.Info().Str("job_id", jobID).Msg("🎯 [Worker] Received video job")
		w.Process(ctx, jobID)
		if err := w.store.Ack(context.WithoutCancel(ctx), jobID); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("❌ [Worker] failed to ack job")
		}
	}
}

// Process - 작업 하나 처리 (제출 → 완료 대기 → 결과 저장)
func (w *Worker) Process(ctx context.Context, jobID string) {
	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("❌ [Worker] failed to fetch job")
		return
	}
	if job.IsTerminal() {
		log.Warn().Str("job_id", jobID).Str("status", job.Status).Msg("⚠️ [Worker] job already finished, skipping")
		return
	}

	input, err := generate.BuildInput(model.GenerationRequest{
		StartImageURL: job.StartImageURL,
		EndImageURL:   job.EndImageURL,
		Prompt:        job.Prompt,
	})
	if err != nil {
		w.fail(ctx, jobID, err)
		return
	}

	if _, err := w.store.Update(ctx, jobID, map[string]interface{}{"status": model.StatusProcessing}); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("⚠️ [Worker] failed to update job status")
	}

	genCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	handle, err := w.provider.Submit(genCtx, input)
	if err != nil {
		w.fail(ctx, jobID, err)
		return
	}
	if _, err := w.store.Update(ctx, jobID, map[string]interface{}{"requestId": handle.RequestID}); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("⚠️ [Worker] failed to store request id")
	}

	status, err := fal.WaitForCompletion(genCtx, w.provider, handle, w.pollInterval)
	if err != nil {
		w.fail(ctx, jobID, err)
		return
	}

	if _, err := w.store.Update(ctx, jobID, map[string]interface{}{
		"status":   model.StatusCompleted,
		"videoUrl": status.VideoURL,
	}); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("❌ [Worker] failed to store result")
		return
	}
	log.Info().Str("job_id", jobID).Str("video", status.VideoURL).Msg("✅ [Worker] job completed")
}

func (w *Worker) fail(ctx context.Context, jobID string, cause error) {
	log.Error().Err(cause).Str("job_id", jobID).Msg("❌ [Worker] job failed")

	// 종료 중이어도 실패 상태는 기록
	writeCtx := ctx
	if errors.Is(ctx.Err(), context.Canceled) {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}

	if _, err := w.store.Update(writeCtx, jobID, map[string]interface{}{
		"status": model.StatusFailed,
		"error":  generationFailedMessage,
	}); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("❌ [Worker] failed to mark job failed")
	}
}
