package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"memory-transition-server/modules/common/model"
)

const (
	QueueKey = "jobs:video"
	// ProcessingKey holds ids taken by a worker until they are acknowledged.
	ProcessingKey = "jobs:video:processing"
	jobKeyFmt     = "job:video:%s"
	eventsFmt     = "job:video:%s:events"
	DefaultTTL    = 24 * time.Hour
)

var ErrJobNotFound = errors.New("job not found")

// Store keeps video jobs as Redis hashes and queues their ids on a list.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: DefaultTTL, now: time.Now}
}

func jobKey(id string) string    { return fmt.Sprintf(jobKeyFmt, id) }
func eventsKey(id string) string { return fmt.Sprintf(eventsFmt, id) }

// Enqueue - 작업 저장 후 큐에 추가 (LPUSH), 큐 길이 반환
func (s *Store) Enqueue(ctx context.Context, job *model.VideoJob) (int64, error) {
	now := s.now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	if job.Status == "" {
		job.Status = model.StatusPending
	}

	var llen *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(job.JobID), toHash(job))
		pipe.Expire(ctx, jobKey(job.JobID), s.ttl)
		pipe.LPush(ctx, QueueKey, job.JobID)
		llen = pipe.LLen(ctx, QueueKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue job %s: %w", job.JobID, err)
	}
	return llen.Val(), nil
}

// Get - 작업 조회 (HGETALL)
func (s *Store) Get(ctx context.Context, id string) (*model.VideoJob, error) {
	fields, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}
	return fromHash(fields), nil
}

// Update - 작업 필드 갱신 후 변경 이벤트 발행
func (s *Store) Update(ctx context.Context, id string, fields map[string]interface{}) (*model.VideoJob, error) {
	exists, err := s.rdb.Exists(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	if exists == 0 {
		return nil, ErrJobNotFound
	}

	fields["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)
	if err := s.rdb.HSet(ctx, jobKey(id), fields).Err(); err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", id, err)
	}
	if err := s.rdb.Publish(ctx, eventsKey(id), payload).Err(); err != nil {
		return nil, fmt.Errorf("publish job %s: %w", id, err)
	}
	return job, nil
}

// Dequeue - 큐에서 작업 id 꺼내 처리 목록으로 이동 (BLMOVE). Returns "" when the wait times out.
// The id stays on ProcessingKey until Ack.
func (s *Store) Dequeue(ctx context.Context, wait time.Duration) (string, error) {
	id, err := s.rdb.BLMove(ctx, QueueKey, ProcessingKey, "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Ack - 처리 완료된 작업 id 를 처리 목록에서 제거
func (s *Store) Ack(ctx context.Context, id string) error {
	if err := s.rdb.LRem(ctx, ProcessingKey, 1, id).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", id, err)
	}
	return nil
}

// Requeue moves every unacknowledged id back to the consuming end of the queue,
// oldest first in line. Call it before any worker of the deployment dequeues.
func (s *Store) Requeue(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := s.rdb.LMove(ctx, ProcessingKey, QueueKey, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("requeue jobs: %w", err)
		}
		moved++
	}
}

// Subscribe returns an active subscription to a job's change events.
func (s *Store) Subscribe(ctx context.Context, id string) (*redis.PubSub, error) {
	pubsub := s.rdb.Subscribe(ctx, eventsKey(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe job %s: %w", id, err)
	}
	return pubsub, nil
}

func toHash(job *model.VideoJob) map[string]interface{} {
	return map[string]interface{}{
		"jobId":         job.JobID,
		"status":        job.Status,
		"requestId":     job.RequestID,
		"videoUrl":      job.VideoURL,
		"error":         job.Error,
		"startImageUrl": job.StartImageURL,
		"endImageUrl":   job.EndImageURL,
		"prompt":        job.Prompt,
		"createdAt":     job.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":     job.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func fromHash(fields map[string]string) *model.VideoJob {
	job := &model.VideoJob{
		JobID:         fields["jobId"],
		Status:        fields["status"],
		RequestID:     fields["requestId"],
		VideoURL:      fields["videoUrl"],
		Error:         fields["error"],
		StartImageURL: fields["startImageUrl"],
		EndImageURL:   fields["endImageUrl"],
		Prompt:        fields["prompt"],
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["createdAt"])
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updatedAt"])
	return job
}
