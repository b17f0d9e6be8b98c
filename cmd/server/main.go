package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"price_optimizer/internal/app/di"
	"price_optimizer/internal/app/router"
	pricinghandler "price_optimizer/internal/feature/pricing/transport/handler"
	"price_optimizer/internal/platform/config"
	infradb "price_optimizer/internal/platform/db"
	"price_optimizer/internal/platform/events"
	"price_optimizer/internal/platform/http/handler"
	"price_optimizer/internal/platform/logging"
	infraredis "price_optimizer/internal/platform/redis"
	"price_optimizer/internal/platform/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		return err
	}

	// Redis
	rdb, err := infraredis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running with in-memory competitor cache", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	pricing, err := di.NewPricing(ctx, cfg, db, rdb)
	if err != nil {
		return err
	}
	defer func() {
		if err := pricing.Close(); err != nil {
			slog.Error("failed to close decision publisher", "error", err)
		}
	}()

	// トリガー
	sched := scheduler.New(cfg.Location())
	if err := sched.Register(scheduler.TriggerOptimization, cfg.Schedule.Optimization, func(ctx context.Context) error {
		_, err := pricing.Orchestrator.OptimizeBatch(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Register(scheduler.TriggerCompetitorRefresh, cfg.Schedule.CompetitorRefresh, func(ctx context.Context) error {
		_, err := pricing.Orchestrator.RefreshCompetitors(ctx)
		return err
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// 注文イベント
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := events.NewOrderEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, cfg.Kafka.GroupID, pricing.Events)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				slog.Error("order event consumer failed", "error", err)
			}
		}()
		defer func() {
			if err := consumer.Close(); err != nil {
				slog.Error("failed to close order event consumer", "error", err)
			}
		}()
	}

	// Handler
	pricingH := pricinghandler.NewPricingHandler(pricing.Orchestrator, pricing.Audit, pricing.Events)
	competitorH := pricinghandler.NewCompetitorHandler(pricing.Competitors, pricing.Catalog)
	healthH := handler.NewHealthHandler(healthChecks(db, rdb)...)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router.NewRouter(pricingH, competitorH, healthH, pricing.Metrics.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthChecks(db *gorm.DB, rdb *redisv9.Client) []handler.Check {
	checks := []handler.Check{{
		Name: "database",
		Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if rdb != nil {
		checks = append(checks, handler.Check{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}
