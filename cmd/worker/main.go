package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fellowship/internal/audit"
	"fellowship/internal/config"
	"fellowship/internal/logger"
	"fellowship/internal/queue"
	"fellowship/internal/store"
)

// Worker drains admission decisions from the Redis queue into the audit table.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("dev").Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)

	if cfg.QueueBackend != "redis" {
		log.Error("worker requires QUEUE_BACKEND=redis; the API consumes the in-memory queue itself")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}

	rdb, err := store.NewRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	q := queue.NewRedisQueue(rdb.Client, queue.DefaultKey, log)
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Error("queue consume init failed", "error", err)
		os.Exit(1)
	}

	log.Info("worker started, waiting for messages", "queue", queue.DefaultKey)
	if err := audit.NewConsumer(audit.NewRepository(db), log).Run(ctx, messages); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
