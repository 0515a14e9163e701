package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseAnonKey    string

	// fal.ai
	FalKey               string
	FalQueueURL          string
	FalStorageURL        string
	FalPollInterval      time.Duration
	FalGenerationTimeout time.Duration

	// Stripe
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string

	// Storage
	StorageBackend  string
	SupabaseBucket  string
	S3Bucket        string
	S3Region        string
	S3PublicBaseURL string
	S3UsePathStyle  bool

	// Upload
	UploadMinDimension int
	UploadConvertWebP  bool

	// Worker
	WorkerEnabled bool
}

// Load - 환경변수 로드
func Load() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("⚠️  .env file not found, using environment variables")
	}

	cfg := FromEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("redis", cfg.RedisAddr()).
		Bool("redis_tls", cfg.RedisUseTLS).
		Str("supabase", cfg.SupabaseURL).
		Str("storage", cfg.StorageBackend).
		Dur("poll_interval", cfg.FalPollInterval).
		Dur("generation_timeout", cfg.FalGenerationTimeout).
		Msg("✅ Configuration loaded successfully")

	return cfg, nil
}

// FromEnv builds a Config from the process environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getBool("REDIS_USE_TLS", false),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),

		FalKey:               getEnv("FAL_KEY", ""),
		FalQueueURL:          strings.TrimRight(getEnv("FAL_QUEUE_URL", "https://queue.fal.run"), "/"),
		FalStorageURL:        strings.TrimRight(getEnv("FAL_STORAGE_URL", "https://rest.alpha.fal.ai"), "/"),
		FalPollInterval:      getDuration("FAL_POLL_INTERVAL", 5*time.Second),
		FalGenerationTimeout: getDuration("FAL_GENERATION_TIMEOUT", 5*time.Minute),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),

		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", "fal")),
		SupabaseBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "uploads"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", ""),
		S3PublicBaseURL: strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		S3UsePathStyle:  getBool("S3_USE_PATH_STYLE", false),

		UploadMinDimension: getInt("UPLOAD_MIN_DIMENSION", 0),
		UploadConvertWebP:  getBool("UPLOAD_CONVERT_WEBP", false),

		WorkerEnabled: getBool("WORKER_ENABLED", true),
	}
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.FalKey == "" {
		return fmt.Errorf("FAL_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.FalPollInterval <= 0 {
		return fmt.Errorf("FAL_POLL_INTERVAL must be positive")
	}
	if c.FalGenerationTimeout < c.FalPollInterval {
		return fmt.Errorf("FAL_GENERATION_TIMEOUT must be at least FAL_POLL_INTERVAL")
	}

	switch c.StorageBackend {
	case "fal", "supabase":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for STORAGE_BACKEND=s3")
		}
		if c.S3PublicBaseURL == "" {
			return fmt.Errorf("S3_PUBLIC_BASE_URL is required for STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}
	return nil
}

// RedisAddr - Redis 연결 문자열 생성
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("⚠️  invalid bool, using default")
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("⚠️  invalid int, using default")
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("⚠️  invalid duration, using default")
	}
	return defaultValue
}
