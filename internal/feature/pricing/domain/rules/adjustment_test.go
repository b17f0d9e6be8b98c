package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

func intPtr(v int) *int { return &v }

// neutralSnapshot はどの要素にもシグナルのないスナップショットです。平日、祝日なし、春、
// 営業時間外、在庫十分、売上なし、閲覧なし、競合なし。
func neutralSnapshot() entity.MarketSnapshot {
	return entity.MarketSnapshot{
		ProductID: 1,
		Seasonal:  entity.SeasonalFactors{Season: entity.SeasonSpring, Hour: 3},
		Inventory: entity.InventoryLevels{
			Stock:             intPtr(100),
			Status:            entity.StockInStock,
			LowStockThreshold: 5,
		},
	}
}

// TestAdjustmentModel_ZeroSignalReturnsBasePrice はシグナルがなければ基準価格が返ることを検証します。
func TestAdjustmentModel_ZeroSignalReturnsBasePrice(t *testing.T) {
	t.Parallel()

	m := NewAdjustmentModel(entity.DefaultModelConfig())
	// target margin 0.275 → base = 72.5 / 0.725 = 100
	weights := []entity.Weights{
		entity.DefaultWeights(),
		{Competitor: 1},
		{Historical: 0.5, Demand: 0.5},
		{Competitor: 0.2, Historical: 0.2, Seasonal: 0.2, Inventory: 0.2, Demand: 0.2},
	}

	for _, w := range weights {
		got := m.OptimalPrice(100, 72.5, neutralSnapshot(), w)
		assert.Equal(t, 100.0, got)
	}
}

// TestAdjustmentModel_BasePrice は基準価格が原価と目標マージンから計算されることを検証します。
func TestAdjustmentModel_BasePrice(t *testing.T) {
	t.Parallel()

	m := NewAdjustmentModel(entity.ModelConfig{})
	assert.InDelta(t, 100.0, m.BasePrice(72.5), 1e-9)
	assert.Equal(t, 0.0, m.BasePrice(0))
}

// TestAdjustmentModel_Adjustments は各調整項がスナップショットのシグナルに応じて計算されることを検証します。
func TestAdjustmentModel_Adjustments(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 5, 10, 0, 0, 0, time.UTC) // Saturday in summer

	tests := []struct {
		name   string
		cur    float64
		mutate func(s *entity.MarketSnapshot)
		want   entity.Adjustments
	}{
		{
			name: "competitor average above current price",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Competitors = []entity.CompetitorObservation{
					{Source: "a", Price: 110, Status: entity.ObservationSuccess},
					{Source: "b", Price: 130, Status: entity.ObservationSuccess},
					{Source: "c", Status: entity.ObservationError, Message: "timeout"},
				}
			},
			want: entity.Adjustments{Competitor: 0.2},
		},
		{
			name: "historical revenue per sale",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Sales = []entity.DailySales{
					{Date: now, OrdersCount: 2, Revenue: 180},
					{Date: now, OrdersCount: 2, Revenue: 180},
				}
			},
			want: entity.Adjustments{Historical: -0.1},
		},
		{
			name: "seasonal flags stack",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Seasonal = entity.SeasonalFactors{IsWeekend: true, IsHoliday: true, Season: entity.SeasonSummer, Hour: 10}
			},
			want: entity.Adjustments{Seasonal: 0.05 + 0.10 + 0.05 + 0.03},
		},
		{
			name: "winter outside business hours",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Seasonal = entity.SeasonalFactors{Season: entity.SeasonWinter, Hour: 18}
			},
			want: entity.Adjustments{Seasonal: -0.05},
		},
		{
			name: "low stock and out of stock",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Inventory.Stock = intPtr(0)
				s.Inventory.Status = entity.StockOutOfStock
			},
			want: entity.Adjustments{Inventory: 0.25},
		},
		{
			name: "high demand",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Demand = []entity.DailyDemand{{Views: 100, UniqueViews: 10}}
			},
			want: entity.Adjustments{Demand: 0.05},
		},
		{
			name: "low demand",
			cur:  100,
			mutate: func(s *entity.MarketSnapshot) {
				s.Demand = []entity.DailyDemand{{Views: 1000, UniqueViews: 10}}
			},
			want: entity.Adjustments{Demand: -0.05},
		},
		{
			name: "zero current price neutralises relative terms",
			cur:  0,
			mutate: func(s *entity.MarketSnapshot) {
				s.Competitors = []entity.CompetitorObservation{{Price: 50, Status: entity.ObservationSuccess}}
				s.Sales = []entity.DailySales{{OrdersCount: 1, Revenue: 50}}
			},
			want: entity.Adjustments{},
		},
	}

	m := NewAdjustmentModel(entity.DefaultModelConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			snap := neutralSnapshot()
			tt.mutate(&snap)
			got := m.Adjustments(tt.cur, snap)

			assert.InDelta(t, tt.want.Competitor, got.Competitor, 1e-9)
			assert.InDelta(t, tt.want.Historical, got.Historical, 1e-9)
			assert.InDelta(t, tt.want.Seasonal, got.Seasonal, 1e-9)
			assert.InDelta(t, tt.want.Inventory, got.Inventory, 1e-9)
			assert.InDelta(t, tt.want.Demand, got.Demand, 1e-9)
		})
	}
}

// TestAdjustmentModel_OptimalPrice_WeightedCandidate は候補価格が重み付きの調整で決まることを検証します。
func TestAdjustmentModel_OptimalPrice_WeightedCandidate(t *testing.T) {
	t.Parallel()

	m := NewAdjustmentModel(entity.DefaultModelConfig())
	snap := neutralSnapshot()
	snap.Competitors = []entity.CompetitorObservation{{Price: 110, Status: entity.ObservationSuccess}}

	// competitor term 0.1 × weight 0.3 = 0.03 → 100 × 1.03
	got := m.OptimalPrice(100, 72.5, snap, entity.DefaultWeights())
	assert.Equal(t, 103.0, got)
}

// TestAdjustmentModel_StabilityWindow は候補価格が現在価格の安定化の幅に制限されることを検証します。
func TestAdjustmentModel_StabilityWindow(t *testing.T) {
	t.Parallel()

	m := NewAdjustmentModel(entity.DefaultModelConfig())

	tests := []struct {
		name string
		cost float64
		cur  float64
		want float64
	}{
		{name: "candidate far above is capped at +20%", cost: 500, cur: 100, want: 120},
		{name: "candidate far below is lifted to -20%", cost: 10, cur: 100, want: 80},
		{name: "zero cost collapses base and hits the floor", cost: 0, cur: 100, want: 80},
		{name: "within window is untouched", cost: 72.5, cur: 95, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := m.OptimalPrice(tt.cur, tt.cost, neutralSnapshot(), entity.DefaultWeights())
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, abs(got-tt.cur)/tt.cur, 0.20+1e-9)
		})
	}
}

// TestAdjustmentModel_Rounding は候補価格が Precision で丸められることを検証します。
func TestAdjustmentModel_Rounding(t *testing.T) {
	t.Parallel()

	m := NewAdjustmentModel(entity.ModelConfig{Precision: 2, MaxPriceChange: 0.5})
	got := m.Stabilize(101.23456, 100)
	assert.Equal(t, 101.23, got)

	m3 := NewAdjustmentModel(entity.ModelConfig{Precision: 3, MaxPriceChange: 0.5})
	assert.Equal(t, 101.235, m3.Stabilize(101.23456, 100))
}

// TestNewAdjustmentModel_HonoursExplicitConfig は明示した 0 の設定値が既定値で上書きされないことを検証します。
func TestNewAdjustmentModel_HonoursExplicitConfig(t *testing.T) {
	t.Parallel()

	cfg := entity.DefaultModelConfig()
	cfg.Precision = 0
	cfg.MinMargin, cfg.MaxMargin = 0, 0
	m := NewAdjustmentModel(cfg)

	assert.Equal(t, cfg, m.Config())
	assert.Equal(t, 102.0, m.Stabilize(101.6, 100))
	assert.InDelta(t, 72.5, m.BasePrice(72.5), 1e-9)

	assert.Equal(t, entity.DefaultModelConfig(), NewAdjustmentModel(entity.ModelConfig{}).Config())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
