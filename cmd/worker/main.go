package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

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

// Worker binary: periodically refreshes every user whose stored planning
// is older than REFRESH_MAX_AGE. Runs no HTTP API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_worker", "service", "aurioncal-worker", "cron", cfg.WorkerCronSpec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL (with retry, the worker often starts before
	// the database in compose setups).
	var dbConn *db.DB
	for i := 0; i < 5; i++ {
		dbConn, err = db.New(ctx, cfg.DBDSN)
		if err == nil {
			break
		}
		logger.Warn("db_connect_retry", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

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

	refresh := func() {
		cutoff := time.Now().UTC().Add(-cfg.RefreshMaxAge)

		listCtx, listCancel := context.WithTimeout(ctx, 30*time.Second)
		ids, err := st.ListStaleUserIDs(listCtx, cutoff, cfg.WorkerBatch)
		listCancel()
		if err != nil {
			logger.Error("stale_list_failed", "error", err)
			return
		}
		if len(ids) == 0 {
			return
		}

		logger.Info("stale_refresh_batch", "users", len(ids))
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			coordinator.Refresh(ctx, id)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.WorkerCronSpec, refresh); err != nil {
		logger.Error("scheduler_init_failed", "spec", cfg.WorkerCronSpec, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// One pass right away so a fresh deployment does not wait a full tick.
	go refresh()

	logger.Info("worker_started")

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cronCtx := scheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("scheduler_stopped")
	case <-shutdownCtx.Done():
		logger.Warn("scheduler_stop_timeout")
	}

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis_close_error", "error", err)
	} else {
		logger.Info("redis_closed")
	}

	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("worker_stopped")
}
