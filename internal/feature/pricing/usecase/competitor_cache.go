package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/domain/rules"
)

const (
	defaultFetchTimeout   = 10 * time.Second
	defaultFetchParallel  = 4
	defaultObservationCur = "USD"
)

// CacheConfig は CompetitorPriceCache の設定です。
type CacheConfig struct {
	Window         time.Duration // 鮮度ウィンドウ。ストアの有効期限も兼ねる
	FetchTimeout   time.Duration // ソースごとのタイムアウト
	MaxConcurrency int           // 再取得1回あたりの並列数
	GlobalSources  []string      // 全商品で追跡するソース
}

// CompetitorPriceCache は商品ごとの競合観測値を提供し、空または古い場合に再取得します。
// 同じ商品の同時再取得は調整しないため、最後の Save が残ります。
type CompetitorPriceCache struct {
	fetcher  CompetitorFetcher
	store    ObservationStore
	sources  CompetitorSourceRepository
	recorder CompetitorPriceRecorder
	metrics  Metrics
	cfg      CacheConfig
	now      func() time.Time
}

// NewCompetitorPriceCache は CompetitorPriceCache を生成します。recorder は nil でも構いません。
func NewCompetitorPriceCache(fetcher CompetitorFetcher, store ObservationStore, sources CompetitorSourceRepository, recorder CompetitorPriceRecorder, cfg CacheConfig) *CompetitorPriceCache {
	if cfg.Window <= 0 {
		cfg.Window = rules.DefaultFreshnessWindow
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultFetchParallel
	}
	return &CompetitorPriceCache{
		fetcher:  fetcher,
		store:    store,
		sources:  sources,
		recorder: recorder,
		metrics:  noopMetrics{},
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithMetrics はメトリクスの送り先を設定します。
func (c *CompetitorPriceCache) WithMetrics(m Metrics) *CompetitorPriceCache {
	if m != nil {
		c.metrics = m
	}
	return c
}

// Get はキャッシュ済み観測値を返します。必要なら先に再取得します。
// ストアの読み込み失敗はキャッシュミスとして扱います。
func (c *CompetitorPriceCache) Get(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error) {
	cached, err := c.store.Load(ctx, productID)
	if err != nil {
		slog.Warn("failed to load competitor cache", "product_id", productID, "error", err)
		cached = nil
	}
	if !rules.NeedsRefresh(cached, c.now(), c.cfg.Window) {
		return cached, nil
	}
	return c.Refresh(ctx, productID)
}

// Refresh は商品の既知ソースをすべて取得して結果を保存します。
// 失敗したソースは status=error の観測値になり、エラーを返すのはソース一覧の取得に失敗したときだけです。
func (c *CompetitorPriceCache) Refresh(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error) {
	srcs, err := c.sourcesFor(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, nil
	}

	obs := c.fetchAll(ctx, srcs)

	if err := c.store.Save(ctx, productID, obs, c.cfg.Window); err != nil {
		slog.Warn("failed to store competitor cache", "product_id", productID, "error", err)
	}
	if c.recorder != nil {
		if err := c.recorder.RecordObservations(ctx, productID, obs); err != nil {
			slog.Warn("failed to record competitor prices", "product_id", productID, "error", err)
		}
	}
	return obs, nil
}

// Invalidate はキャッシュを破棄し、次の Get で再取得させます。
func (c *CompetitorPriceCache) Invalidate(ctx context.Context, productID int64) error {
	return c.store.Delete(ctx, productID)
}

// AddSource は新しい競合 URL を追跡し、キャッシュを破棄します。
func (c *CompetitorPriceCache) AddSource(ctx context.Context, productID int64, url string) error {
	if err := c.sources.AddSource(ctx, productID, url); err != nil {
		return err
	}
	return c.Invalidate(ctx, productID)
}

// RemoveSource は競合 URL の追跡を終了し、キャッシュを破棄します。
func (c *CompetitorPriceCache) RemoveSource(ctx context.Context, productID int64, url string) error {
	if err := c.sources.RemoveSource(ctx, productID, url); err != nil {
		return err
	}
	return c.Invalidate(ctx, productID)
}

// Sources は商品に対して取得するソースをグローバルソースも含めて返します。
func (c *CompetitorPriceCache) Sources(ctx context.Context, productID int64) ([]string, error) {
	return c.sourcesFor(ctx, productID)
}

func (c *CompetitorPriceCache) sourcesFor(ctx context.Context, productID int64) ([]string, error) {
	own, err := c.sources.ListSources(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list competitor sources for product %d: %w", productID, err)
	}
	seen := make(map[string]struct{}, len(own)+len(c.cfg.GlobalSources))
	out := make([]string, 0, len(own)+len(c.cfg.GlobalSources))
	for _, list := range [][]string{own, c.cfg.GlobalSources} {
		for _, s := range list {
			if _, ok := seen[s]; ok || s == "" {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

// fetchAll はソースごとに goroutine を1つ起動します。各 goroutine は自分の
// スロットにだけ書き込むので、結果スライスはロック不要でソース順を保ちます。
func (c *CompetitorPriceCache) fetchAll(ctx context.Context, srcs []string) []entity.CompetitorObservation {
	obs := make([]entity.CompetitorObservation, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrency)
	for i, src := range srcs {
		g.Go(func() error {
			obs[i] = c.fetchOne(gctx, src)
			return nil
		})
	}
	_ = g.Wait() // goroutine はエラーを返さない

	return obs
}

func (c *CompetitorPriceCache) fetchOne(ctx context.Context, src string) entity.CompetitorObservation {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	start := c.now()
	o, err := c.fetcher.FetchPrice(ctx, src)
	o.Source = src
	if o.Timestamp.IsZero() {
		o.Timestamp = c.now()
	}

	if err != nil {
		// 通信失敗も解析失敗も同じく error として記録する
		slog.Warn("competitor fetch failed", "source", src, "error", err)
		o.Status = entity.ObservationError
		o.Price = 0
		o.Message = err.Error()
	} else {
		o.Status = entity.ObservationSuccess
		if o.Currency == "" {
			o.Currency = defaultObservationCur
		}
	}
	c.metrics.ObserveCompetitorFetch(o.Status, c.now().Sub(start))
	return o
}
