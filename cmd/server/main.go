package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/preplane/preplane-backend/internal/config"
	"github.com/preplane/preplane-backend/internal/database"
	"github.com/preplane/preplane-backend/internal/handler"
	"github.com/preplane/preplane-backend/internal/logger"
	"github.com/preplane/preplane-backend/internal/payment"
	"github.com/preplane/preplane-backend/internal/repository"
	"github.com/preplane/preplane-backend/internal/router"
	"github.com/preplane/preplane-backend/internal/service"
	"github.com/preplane/preplane-backend/internal/validator"
	"github.com/preplane/preplane-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Preplane Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	seriesRepo := repository.NewSeriesRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	purchaseRepo := repository.NewPurchaseRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	entitlementService := service.NewEntitlementService(testRepo, seriesRepo, purchaseRepo, resultRepo, log)
	testService := service.NewTestService(testRepo, resultRepo, rdb, log)
	attemptService := service.NewAttemptService(testRepo, resultRepo, entitlementService, rdb, cfg.LateSubmitGrace, log)
	rankingService := service.NewRankingService(resultRepo, userRepo, log)
	gateway := payment.NewHTTPGateway(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret)
	paymentService := service.NewPaymentService(seriesRepo, purchaseRepo, gateway, cfg.PaymentKeyID, cfg.PaymentKeySecret, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, userRepo),
		StudentPortal: handler.NewStudentPortalHandler(userRepo, resultRepo, testService, entitlementService, attemptService),
		Analytics:     handler.NewAnalyticsHandler(userRepo, testRepo, rankingService),
		Payment:       handler.NewPaymentHandler(userRepo, seriesRepo, paymentService),
		AdminTest:     handler.NewAdminTestHandler(testService, seriesRepo, resultRepo),
		WS:            handler.NewWSHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	leaderboardWorker := worker.NewLeaderboardWorker(rdb, log)
	go leaderboardWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Serialize visible papers into Redis BEFORE accepting traffic, so
	// the first wave of starts on a scheduled test hits cache, not the
	// database.
	testService.WarmPaperCache(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
