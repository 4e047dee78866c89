package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"aurioncal/internal/api"
	"aurioncal/internal/config"
	"aurioncal/internal/db"
	"aurioncal/internal/logging"
	"aurioncal/internal/notify"
	"aurioncal/internal/planning"
	"aurioncal/internal/redis"
	"aurioncal/internal/security"
	"aurioncal/internal/store"
	"aurioncal/internal/sync"
)

// API-only binary: serves feeds and account endpoints, dispatches
// on-demand refreshes, but runs no periodic scheduler. Pair it with
// cmd/worker when running the two halves separately.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_api", "service", "aurioncal-api", "http_addr", cfg.HTTPAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := db.Migrate(cfg.DBDSN, logger); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.RedisDSN)
	if err != nil {
		logger.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	st := store.New(dbConn, logger)
	planningClient := planning.NewClient(cfg.PlanningBaseURL, logger)
	codec := security.NewCodec(cfg.EncryptionKey)
	mailer := notify.NewMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword, cfg.AppURL, logger)

	tracker := sync.NewTracker(st, mailer, logger)
	reconciler := sync.NewReconciler(st, planningClient, codec, logger)
	coordinator := sync.NewCoordinator(st, tracker, reconciler, logger)
	coordinator.OnSuccess(func(ctx context.Context, userID uuid.UUID) {
		if err := redisClient.InvalidateFeed(ctx, userID.String()); err != nil {
			logger.Warn("feed_cache_invalidate_failed", "user_id", userID, "error", err)
		}
	})

	srv, err := api.NewServer(logger, cfg, api.Deps{
		Store:     st,
		Cache:     redisClient,
		Planning:  planningClient,
		Refresher: coordinator,
		PingDB: func(ctx context.Context) error {
			return dbConn.Pool.Ping(ctx)
		},
	})
	if err != nil {
		logger.Error("server_init_failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("api_started", "addr", cfg.HTTPAddr)

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis_close_error", "error", err)
	} else {
		logger.Info("redis_closed")
	}

	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("api_stopped")
}
