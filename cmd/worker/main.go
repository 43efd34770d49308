package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"campusvote/internal/config"
	"campusvote/internal/election"
	"campusvote/internal/logger"
	"campusvote/internal/metrics"
	"campusvote/internal/queue"
	"campusvote/internal/scheduler"
	"campusvote/internal/store"
)

// Worker owns election status reconciliation: a periodic pass, boundary
// wakes, and a pass for every election change published by the API.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.CreateSchema(ctx, db.Client); err != nil {
		return err
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		log.Warn("redis not reachable, election events will retry")
	}

	var q queue.Queue = queue.NewRedisQueue(rdb.Client, cfg.QueueKey)
	if cfg.QueueBackend == "memory" {
		log.Warn("in-memory queue only sees messages from this process")
		q = queue.NewInMemory(64)
	}

	m := metrics.New(nil)
	elections := election.NewService(election.NewRepository(db.Client),
		election.WithMetrics(m),
		election.WithLogger(log.With("component", "election")))
	sched := scheduler.New(elections,
		scheduler.WithInterval(cfg.SchedulerInterval),
		scheduler.WithHorizon(cfg.SchedulerHorizon),
		scheduler.WithMetrics(m),
		scheduler.WithLogger(log.With("component", "scheduler")))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return sched.Follow(ctx, q) })

	log.Info("worker started", "queue", cfg.QueueKey)
	err = g.Wait()
	log.Info("worker stopped")
	return err
}
