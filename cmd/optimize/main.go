// optimize コマンドは最適化バッチを1回実行して終了します。
// サーバープロセスの外で動く cron ジョブから呼び出すためのものです。
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"price_optimizer/internal/app/di"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/platform/config"
	infradb "price_optimizer/internal/platform/db"
	"price_optimizer/internal/platform/logging"
	infraredis "price_optimizer/internal/platform/redis"
)

func main() {
	refresh := flag.Bool("refresh-competitors", false, "run the competitor refresh cycle instead of the batch")
	flush := flag.Bool("flush-cache", false, "drop every cached competitor observation first")
	products := flag.String("products", "", "comma-separated product ids (default: every enabled product)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	if err := run(*refresh, *flush, *products, *timeout); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(refresh, flush bool, products string, timeout time.Duration) error {
	ids, err := parseIDs(products)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	rdb, err := infraredis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running with in-memory competitor cache", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	pricing, err := di.NewPricing(ctx, cfg, db, rdb)
	if err != nil {
		return err
	}
	defer func() { _ = pricing.Close() }()

	if flush {
		if err := pricing.Observations.Flush(ctx); err != nil {
			return err
		}
		slog.Info("competitor cache flushed")
	}

	if refresh {
		res, err := pricing.Orchestrator.RefreshCompetitors(ctx)
		if err != nil {
			return err
		}
		slog.Info("competitor refresh done", "products", res.Products, "refreshed", res.Refreshed, "failed", res.Failed)
		return nil
	}

	if len(ids) > 0 {
		logResult(pricing.Orchestrator.OptimizeProducts(ctx, ids))
		return nil
	}
	res, err := pricing.Orchestrator.OptimizeBatch(ctx)
	if err != nil {
		return err
	}
	logResult(res)
	return nil
}

func logResult(res entity.BatchResult) {
	slog.Info("optimize ok",
		"eligible", res.Eligible,
		"applied", res.Applied,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"elapsed", res.FinishedAt.Sub(res.StartedAt),
	)
	for _, e := range res.Errors {
		slog.Warn("product failed", "error", e)
	}
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
