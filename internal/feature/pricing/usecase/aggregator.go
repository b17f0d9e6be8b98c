package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/domain/rules"
)

// CompetitorProvider は商品の競合観測値を提供します。
type CompetitorProvider interface {
	Get(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
}

// AggregatorConfig はスナップショットの集計期間を指定します。
type AggregatorConfig struct {
	SalesWindow        time.Duration
	DemandWindow       time.Duration
	CancellationWindow time.Duration
	PriceHistoryLimit  int
	Holidays           rules.HolidaySet
	Location           *time.Location
}

// DefaultAggregatorConfig は売上30日、需要7日、直近7件の価格を返します。
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		SalesWindow:        30 * 24 * time.Hour,
		DemandWindow:       7 * 24 * time.Hour,
		CancellationWindow: 30 * 24 * time.Hour,
		PriceHistoryLimit:  7,
		Location:           time.UTC,
	}
}

// MarketAggregator は商品ごとに MarketSnapshot を1つ組み立て、Clear されるまで保持します。
// これにより1回のバッチで同じ商品のソースを二重に取得しません。
type MarketAggregator struct {
	competitors CompetitorProvider
	sales       SalesRepository
	demand      DemandRepository
	prices      PriceHistoryRepository
	cfg         AggregatorConfig
	now         func() time.Time

	mu   sync.Mutex
	memo map[int64]entity.MarketSnapshot
}

// NewMarketAggregator は MarketAggregator を生成します。prices は nil でも構いません。
func NewMarketAggregator(competitors CompetitorProvider, sales SalesRepository, demand DemandRepository, prices PriceHistoryRepository, cfg AggregatorConfig) *MarketAggregator {
	def := DefaultAggregatorConfig()
	if cfg.SalesWindow <= 0 {
		cfg.SalesWindow = def.SalesWindow
	}
	if cfg.DemandWindow <= 0 {
		cfg.DemandWindow = def.DemandWindow
	}
	if cfg.CancellationWindow <= 0 {
		cfg.CancellationWindow = def.CancellationWindow
	}
	if cfg.PriceHistoryLimit <= 0 {
		cfg.PriceHistoryLimit = def.PriceHistoryLimit
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return &MarketAggregator{
		competitors: competitors,
		sales:       sales,
		demand:      demand,
		prices:      prices,
		cfg:         cfg,
		now:         time.Now,
		memo:        make(map[int64]entity.MarketSnapshot),
	}
}

// Collect は保持済みのスナップショットを返すか、新しく組み立てます。
func (a *MarketAggregator) Collect(ctx context.Context, p entity.Product) (entity.MarketSnapshot, error) {
	a.mu.Lock()
	snap, ok := a.memo[p.ID]
	a.mu.Unlock()
	if ok {
		return snap, nil
	}

	snap, err := a.build(ctx, p)
	if err != nil {
		return entity.MarketSnapshot{}, err
	}

	a.mu.Lock()
	a.memo[p.ID] = snap
	a.mu.Unlock()
	return snap, nil
}

// Clear は1商品のスナップショットを破棄します。
func (a *MarketAggregator) Clear(productID int64) {
	a.mu.Lock()
	delete(a.memo, productID)
	a.mu.Unlock()
}

// ClearAll は全スナップショットを破棄します。
func (a *MarketAggregator) ClearAll() {
	a.mu.Lock()
	a.memo = make(map[int64]entity.MarketSnapshot)
	a.mu.Unlock()
}

func (a *MarketAggregator) build(ctx context.Context, p entity.Product) (entity.MarketSnapshot, error) {
	now := a.now().In(a.cfg.Location)

	obs, err := a.competitors.Get(ctx, p.ID)
	if err != nil {
		return entity.MarketSnapshot{}, fmt.Errorf("collect competitor prices: %w", err)
	}

	salesFrom := now.Add(-max(a.cfg.SalesWindow, a.cfg.CancellationWindow))
	sales, err := a.sales.DailySales(ctx, p.ID, salesFrom, now)
	if err != nil {
		return entity.MarketSnapshot{}, fmt.Errorf("collect sales history: %w", err)
	}

	demand, err := a.demand.DailyDemand(ctx, p.ID, now.Add(-a.cfg.DemandWindow), now)
	if err != nil {
		return entity.MarketSnapshot{}, fmt.Errorf("collect demand: %w", err)
	}

	var history []float64
	if a.prices != nil {
		history, err = a.prices.RecentPrices(ctx, p.ID, a.cfg.PriceHistoryLimit)
		if err != nil {
			return entity.MarketSnapshot{}, fmt.Errorf("collect price history: %w", err)
		}
	}

	return entity.MarketSnapshot{
		ProductID:   p.ID,
		Competitors: obs,
		Sales:       within(sales, now.Add(-a.cfg.SalesWindow)),
		Seasonal:    rules.SeasonalFactorsAt(now, a.cfg.Holidays),
		Inventory: entity.InventoryLevels{
			Stock:             p.StockQuantity,
			Status:            p.StockStatus,
			BackordersAllowed: p.BackordersAllowed,
			LowStockThreshold: p.LowStockThreshold,
		},
		Demand: demand,
		Cost: entity.CostData{
			Cost:         p.Cost,
			ShippingCost: p.ShippingCost,
			TaxRate:      p.TaxRate,
		},
		PriceHistory:     history,
		CancellationRate: cancellationRate(within(sales, now.Add(-a.cfg.CancellationWindow))),
		CollectedAt:      now,
	}, nil
}

// within は from の暦日以降の日だけを残します。
// 保存時のロケーションにかかわらず暦日で比較します。
func within(sales []entity.DailySales, from time.Time) []entity.DailySales {
	loc := from.Location()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	out := make([]entity.DailySales, 0, len(sales))
	for _, s := range sales {
		y, m, d := s.Date.Date()
		if !time.Date(y, m, d, 0, 0, 0, 0, loc).Before(day) {
			out = append(out, s)
		}
	}
	return out
}

// cancellationRate は指定日の cancelled/(completed+cancelled) ×100 です。
func cancellationRate(sales []entity.DailySales) float64 {
	var total, cancelled int
	for _, s := range sales {
		total += s.OrdersCount + s.CancelledCount
		cancelled += s.CancelledCount
	}
	if total == 0 {
		return 0
	}
	return float64(cancelled) / float64(total) * 100
}
