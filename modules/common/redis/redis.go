package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/config"
)

// Connect - Redis 연결 생성
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	log.Info().Str("addr", cfg.RedisAddr()).Msg("🔌 Connecting to Redis")

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.RedisHost,
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// 연결 테스트
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr(), err)
	}

	log.Info().Msg("✅ Redis connected")
	return rdb, nil
}
