package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/config"
	"memory-transition-server/modules/common/credit"
	"memory-transition-server/modules/common/database"
	"memory-transition-server/modules/common/imaging"
	"memory-transition-server/modules/common/logger"
	"memory-transition-server/modules/common/redis"
	"memory-transition-server/modules/common/storage"
	"memory-transition-server/modules/common/utils"
	"memory-transition-server/modules/edgeproxy"
	"memory-transition-server/modules/fal"
	"memory-transition-server/modules/generate"
	"memory-transition-server/modules/jobs"
	"memory-transition-server/modules/payment"
	"memory-transition-server/modules/upload"
	"memory-transition-server/modules/webhook"
)

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "memory-transition-server",
	})
}

func main() {
	// 로그 설정은 config 전에 환경변수로 먼저
	logger.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to load config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to connect to Redis")
	}
	defer rdb.Close()

	db, err := database.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to create Supabase client")
	}
	auth, err := database.NewAuthenticator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to create Supabase auth client")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	store, err := storage.New(ctx, cfg, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to create storage backend")
	}

	falService := fal.NewService(fal.NewConfig(cfg), httpClient)
	jobStore := jobs.NewStore(rdb)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(utils.CORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	upload.NewHandler(upload.NewService(store, imaging.NewProcessor(), upload.Options{
		MinDimension: cfg.UploadMinDimension,
		ConvertWebP:  cfg.UploadConvertWebP,
	})).RegisterRoutes(r)
	generate.NewHandler(generate.NewService(falService)).RegisterRoutes(r)
	edgeproxy.NewHandler(falService).RegisterRoutes(r)
	jobs.NewHandler(jobStore).RegisterRoutes(r)
	payment.NewHandler(payment.NewService(
		auth,
		db,
		payment.NewStripeProvider(cfg.StripeSecretKey, nil),
		cfg.StripePublishableKey,
	)).RegisterRoutes(r)
	webhook.NewHandler(cfg.StripeWebhookSecret, credit.NewLedger(db), webhook.NewDeduper(rdb)).RegisterRoutes(r)

	// Redis Queue Worker 시작 (백그라운드)
	workerDone := make(chan struct{})
	if cfg.WorkerEnabled {
		go func() {
			defer close(workerDone)
			jobs.NewWorker(jobStore, falService, falService.Config()).Run(ctx)
		}()
	} else {
		close(workerDone)
		log.Info().Msg("⏸️  [Worker] disabled by WORKER_ENABLED=false")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("🚀 Memory Transition Server starting")
		log.Info().Msgf("❤️  Health check: http://localhost:%s/health", cfg.Port)
		log.Info().Msgf("📡 Job stream: ws://localhost:%s/ws/jobs/{jobId}", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("❌ Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 Shutting down")

	// 동기 생성 요청이 길어 종료 유예를 넉넉히
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Graceful shutdown failed")
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("⚠️  [Worker] did not stop before shutdown deadline")
	}
	log.Info().Msg("👋 Server stopped")
}
