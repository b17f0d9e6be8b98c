// Package di はアプリケーションの各コンポーネントを組み立てるファクトリを提供します。
package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	"price_optimizer/internal/platform/cache"
	"price_optimizer/internal/platform/config"
	"price_optimizer/internal/platform/externalapi/competitor"
	infrahttp "price_optimizer/internal/platform/http"
	"price_optimizer/internal/shared/ratelimiter"
)

// NewObservationStore は Redis が使える場合は Redis 版のストアを、
// そうでなければプロセス内ストアを返します。
func NewObservationStore(rdb *redis.Client) FlushableStore {
	if rdb != nil {
		return cache.NewRedisObservationStore(rdb, "competitor_prices")
	}
	return cache.NewMemoryObservationStore()
}

// NewCompetitorFetcher はレート制限付きの競合ページ取得クライアントを生成します。
func NewCompetitorFetcher(cfg config.CompetitorConfig) *competitor.Fetcher {
	httpClient := infrahttp.NewHTTPClient(cfg.FetchTimeout)
	limiter := ratelimiter.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	return competitor.NewFetcher(competitor.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	}, httpClient, limiter)
}
