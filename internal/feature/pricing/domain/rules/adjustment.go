package rules

import (
	"github.com/shopspring/decimal"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// 調整項が加える季節要因とシグナルの増分です。
const (
	weekendAdjustment       = 0.05
	holidayAdjustment       = 0.10
	summerAdjustment        = 0.05
	winterAdjustment        = -0.05
	businessHoursAdjustment = 0.03

	lowStockAdjustment   = 0.10
	outOfStockAdjustment = 0.15

	highDemandRatio      = 0.05
	lowDemandRatio       = 0.02
	highDemandAdjustment = 0.05
	lowDemandAdjustment  = -0.05
)

// AdjustmentModel はルールベースの価格算定式です。
type AdjustmentModel struct {
	cfg entity.ModelConfig
}

// NewAdjustmentModel は AdjustmentModel を生成します。
// cfg がゼロ値ならデフォルトを使い、それ以外はそのまま使います。
func NewAdjustmentModel(cfg entity.ModelConfig) *AdjustmentModel {
	if cfg == (entity.ModelConfig{}) {
		cfg = entity.DefaultModelConfig()
	}
	return &AdjustmentModel{cfg: cfg}
}

// Config は実際に使われる設定を返します。
func (m *AdjustmentModel) Config() entity.ModelConfig {
	return m.cfg
}

// BasePrice は cost/(1-targetMargin) です。原価が0なら基準価格も0になり、
// クランプで引き上げられるまで乗算の調整はすべて効きません。
func (m *AdjustmentModel) BasePrice(cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return cost / (1 - m.cfg.TargetMargin())
}

// Adjustments はスナップショットに対して全項を評価します。
func (m *AdjustmentModel) Adjustments(currentPrice float64, snap entity.MarketSnapshot) entity.Adjustments {
	return entity.Adjustments{
		Competitor: competitorAdjustment(currentPrice, snap),
		Historical: historicalAdjustment(currentPrice, snap),
		Seasonal:   m.seasonalAdjustment(snap.Seasonal),
		Inventory:  inventoryAdjustment(snap.Inventory),
		Demand:     demandAdjustment(snap),
	}
}

// OptimalPrice は候補価格 base×(1+Σw·adj) を返します。currentPrice の
// ±MaxPriceChange に制限し、Precision で丸めます。基準となる正の現在価格が
// ない場合は安定化の制限を行いません。
func (m *AdjustmentModel) OptimalPrice(currentPrice, cost float64, snap entity.MarketSnapshot, w entity.Weights) float64 {
	adj := m.Adjustments(currentPrice, snap)
	candidate := m.BasePrice(cost) * (1 + adj.Weighted(w))
	return m.Stabilize(candidate, currentPrice)
}

// Stabilize は任意の生の候補に価格安定化の幅と丸めを適用します。
func (m *AdjustmentModel) Stabilize(candidate, currentPrice float64) float64 {
	if currentPrice <= 0 {
		return RoundPrice(candidate, m.cfg.Precision)
	}
	cur := decimal.NewFromFloat(currentPrice)
	maxChange := decimal.NewFromFloat(m.cfg.MaxPriceChange)
	low := cur.Mul(decimal.NewFromInt(1).Sub(maxChange))
	high := cur.Mul(decimal.NewFromInt(1).Add(maxChange))
	return clampRounded(decimal.NewFromFloat(candidate), low, high, m.cfg.Precision).InexactFloat64()
}

func competitorAdjustment(currentPrice float64, snap entity.MarketSnapshot) float64 {
	if currentPrice <= 0 {
		return 0
	}
	a := AnalyzeCompetitors(currentPrice, snap.Competitors)
	if !a.HasData {
		return 0
	}
	return (a.AveragePrice - currentPrice) / currentPrice
}

// historicalAdjustment は注文あたり売上と単価を比較します。
// 注文あたり売上は単価ではなく注文額なので、複数個の注文があると上振れします。
// TODO: 注文明細が数量を持つようになったら販売数で正規化する。
func historicalAdjustment(currentPrice float64, snap entity.MarketSnapshot) float64 {
	orders, revenue := snap.SalesTotals()
	if orders == 0 || currentPrice <= 0 {
		return 0
	}
	perSale := revenue / float64(orders)
	return (perSale - currentPrice) / currentPrice
}

func (m *AdjustmentModel) seasonalAdjustment(s entity.SeasonalFactors) float64 {
	var adj float64
	if s.IsWeekend {
		adj += weekendAdjustment
	}
	if s.IsHoliday {
		adj += holidayAdjustment
	}
	switch s.Season {
	case entity.SeasonSummer:
		adj += summerAdjustment
	case entity.SeasonWinter:
		adj += winterAdjustment
	}
	if s.Hour >= m.cfg.BusinessHoursStart && s.Hour <= m.cfg.BusinessHoursEnd {
		adj += businessHoursAdjustment
	}
	return adj
}

func inventoryAdjustment(inv entity.InventoryLevels) float64 {
	var adj float64
	if inv.Stock != nil && *inv.Stock <= inv.LowStockThreshold {
		adj += lowStockAdjustment
	}
	if inv.Status == entity.StockOutOfStock {
		adj += outOfStockAdjustment
	}
	return adj
}

func demandAdjustment(snap entity.MarketSnapshot) float64 {
	views, unique := snap.DemandTotals()
	if views == 0 {
		return 0
	}
	ratio := float64(unique) / float64(views)
	switch {
	case ratio > highDemandRatio:
		return highDemandAdjustment
	case ratio < lowDemandRatio:
		return lowDemandAdjustment
	}
	return 0
}
