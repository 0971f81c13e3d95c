package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	eventbus "github.com/ogurasousui/candidate-lifecycle/internal/adapters/eventbus/redis"
	redislock "github.com/ogurasousui/candidate-lifecycle/internal/adapters/lock/redis"
	"github.com/ogurasousui/candidate-lifecycle/internal/adapters/repository/postgres"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
	"github.com/ogurasousui/candidate-lifecycle/internal/platform/config"
	pg "github.com/ogurasousui/candidate-lifecycle/internal/platform/db/postgres"
	"github.com/ogurasousui/candidate-lifecycle/internal/platform/redis"
	"github.com/ogurasousui/candidate-lifecycle/internal/platform/scheduler"
	"github.com/ogurasousui/candidate-lifecycle/internal/platform/server"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	var redisClient *goredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	txManager := pg.NewTransactionManager(dbPool)
	candidateRepo := postgres.NewCandidateRepository(dbPool)
	recorder := timeline.NewRecorder(postgres.NewTimelineRepository(dbPool), nil)

	opts := []candidate.Option{
		candidate.WithLogger(logger),
		candidate.WithConflictRetry(*cfg.Lifecycle.ConflictRetries, cfg.Lifecycle.ConflictBackoff),
	}
	switch cfg.Lifecycle.LockBackend {
	case config.LockBackendRedis:
		opts = append(opts, candidate.WithLocker(redislock.NewLocker(redisClient, cfg.Lifecycle.LockTTL, redislock.WithLogger(logger))))
	case config.LockBackendPostgres:
		opts = append(opts, candidate.WithLocker(pg.NewAdvisoryLocker(txManager)))
	}
	if redisClient != nil {
		opts = append(opts, candidate.WithPublisher(eventbus.NewPublisher(redisClient, cfg.Redis.Channel)))
	}
	candidateSvc := candidate.NewService(candidateRepo, recorder, nil, txManager, opts...)

	logger.Info("candidate service configured",
		slog.String("lock_backend", string(cfg.Lifecycle.LockBackend)),
		slog.Bool("redis", redisClient != nil),
	)

	if cfg.Scheduler.Enabled() {
		sched, err := scheduler.New(cfg.Scheduler.FollowUpSpec, candidateSvc, logger)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	return server.New(cfg.Server.ListenAddr, candidateSvc, logger).Run(ctx)
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}
