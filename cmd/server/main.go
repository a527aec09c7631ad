package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/database"
	"github.com/stemsi/exstem-session/internal/engine"
	"github.com/stemsi/exstem-session/internal/handler"
	"github.com/stemsi/exstem-session/internal/logger"
	"github.com/stemsi/exstem-session/internal/repository"
	"github.com/stemsi/exstem-session/internal/router"
	"github.com/stemsi/exstem-session/internal/store/memstore"
	"github.com/stemsi/exstem-session/internal/store/redisstore"
	"github.com/stemsi/exstem-session/internal/validator"
	"github.com/stemsi/exstem-session/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("session_backend", string(cfg.SessionBackend)).
		Msg("Starting exam session service")

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
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	// ─── Attempt State ─────────────────────────────────────────────────
	var (
		backend engine.AttemptBackend
		locks   engine.Locker
		index   worker.DeadlineIndex
	)
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		attempts := memstore.NewAttempts()
		backend, locks, index = attempts, memstore.NewLocker(), attempts
		log.Warn().Msg("Attempts are kept in memory; run a single instance only")
	case config.SessionBackendRedis:
		attempts := redisstore.NewAttempts(rdb, cfg.AttemptTTLGrace)
		backend, locks, index = attempts, redisstore.NewLocker(rdb, cfg.LockTTL, log), attempts
	default:
		log.Fatal().Str("session_backend", string(cfg.SessionBackend)).Msg("Unknown SESSION_BACKEND")
	}

	events := redisstore.NewEvents(rdb, log)
	eng := engine.NewEngine(testRepo, questionRepo, resultRepo, backend, locks, events, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	authService := auth.NewService(cfg, rdb)
	handlers := &router.Handlers{
		Test:    handler.NewTestHandler(testRepo, eng, log),
		Attempt: handler.NewAttemptHandler(eng, testRepo, resultRepo, log),
		Monitor: handler.NewMonitorHandler(testRepo, events, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	expiry := worker.NewExpiryWorker(index, eng, cfg.SweepInterval, cfg.SweepBatch, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		expiry.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, rdb, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests; in-flight saves and submits finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweeper after its current batch.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
