package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrInFlight = errors.New("webhook payment is in-flight")

// ErrDuplicate may be returned by a Do callback to report work that was already applied.
var ErrDuplicate = errors.New("webhook payment already processed")

const (
	claimKeyFmt = "webhook:stripe:claim:%s"
	doneKeyFmt  = "webhook:stripe:done:%s"
)

// Deduper claims a payment id in Redis so concurrent redeliveries do not race.
type Deduper struct {
	rdb     *redis.Client
	lockTTL time.Duration
	doneTTL time.Duration
	now     func() time.Time
}

func NewDeduper(rdb *redis.Client) *Deduper {
	return &Deduper{
		rdb:     rdb,
		lockTTL: 10 * time.Minute,
		doneTTL: 7 * 24 * time.Hour,
		now:     time.Now,
	}
}

// Do runs fn once per id. It reports already=true when the id was handled before,
// and ErrInFlight when another delivery holds the claim.
func (d *Deduper) Do(ctx context.Context, id string, fn func(context.Context) error) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("dedupe id is required")
	}

	doneKey := fmt.Sprintf(doneKeyFmt, id)
	claimKey := fmt.Sprintf(claimKeyFmt, id)

	done, err := d.rdb.Exists(ctx, doneKey).Result()
	if err != nil {
		return false, fmt.Errorf("check dedupe marker: %w", err)
	}
	if done > 0 {
		return true, nil
	}

	acquired, err := d.rdb.SetNX(ctx, claimKey, d.now().UTC().UnixMilli(), d.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire dedupe claim: %w", err)
	}
	if !acquired {
		// 처리 중 - 완료됐으면 중복, 아니면 재시도 유도
		if done, err := d.rdb.Exists(ctx, doneKey).Result(); err == nil && done > 0 {
			return true, nil
		}
		return false, ErrInFlight
	}

	defer func() {
		if err := d.rdb.Del(context.WithoutCancel(ctx), claimKey).Err(); err != nil {
			log.Warn().Err(err).Str("key", claimKey).Msg("⚠️ [Webhook] failed to release claim")
		}
	}()

	already := false
	if err := fn(ctx); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			return false, err
		}
		already = true
	}

	if err := d.rdb.Set(ctx, doneKey, d.now().UTC().UnixMilli(), d.doneTTL).Err(); err != nil {
		// ledger 가 중복을 막으므로 마커 실패는 로그만
		log.Warn().Err(err).Str("key", doneKey).Msg("⚠️ [Webhook] failed to write done marker")
	}
	return already, nil
}
