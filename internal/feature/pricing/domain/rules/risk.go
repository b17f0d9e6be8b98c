package rules

import (
	"math"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// レポートに表示するリスクメッセージです。
const (
	MsgLargeIncrease   = "Large price increase might reduce conversions"
	MsgLargeDecrease   = "Large price decrease might impact profit margins"
	MsgLowInventory    = "Low inventory might affect customer satisfaction"
	MsgNoCompetitor    = "No competitor data available for price comparison"
	MsgLowMargin       = "Profit margin below minimum threshold"
	MsgHighVolatility  = "Recent price history is highly volatile"
	MsgHighCancelation = "High order cancellation rate"
)

// RiskConfig は RiskAssessor が使う閾値です。
type RiskConfig struct {
	LargeChangePct     float64 `yaml:"large_change_pct"` // |Δ%| がこれを超えると high リスク
	LowStock           int     `yaml:"low_stock"`        // この在庫数以下は medium リスク
	MinProfitMarginPct float64 `yaml:"min_profit_margin_pct"`
	MaxVolatilityPct   float64 `yaml:"max_volatility_pct"`
	MaxCancellationPct float64 `yaml:"max_cancellation_pct"`
	VolatilityLookback int     `yaml:"volatility_lookback"`
}

// DefaultRiskConfig は標準の閾値を返します。
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		LargeChangePct:     10,
		LowStock:           5,
		MinProfitMarginPct: 10,
		MaxVolatilityPct:   50,
		MaxCancellationPct: 20,
		VolatilityLookback: 7,
	}
}

// RiskAssessor はスナップショットに照らして候補価格を評価します。
type RiskAssessor struct {
	cfg RiskConfig
}

// NewRiskAssessor は RiskAssessor を生成します。RiskConfig がゼロ値ならデフォルトを使います。
func NewRiskAssessor(cfg RiskConfig) *RiskAssessor {
	if cfg == (RiskConfig{}) {
		cfg = DefaultRiskConfig()
	}
	return &RiskAssessor{cfg: cfg}
}

// Assess は各ルールを独立に評価します。項目の順序はルールの順序に従いますが、意味はありません。
func (r *RiskAssessor) Assess(currentPrice, candidatePrice float64, snap entity.MarketSnapshot) entity.RiskReport {
	var entries []entity.RiskEntry

	if currentPrice > 0 {
		change := (candidatePrice - currentPrice) * 100 / currentPrice
		switch {
		case change > r.cfg.LargeChangePct:
			entries = append(entries, entity.RiskEntry{Level: entity.RiskHigh, Message: MsgLargeIncrease})
		case change < -r.cfg.LargeChangePct:
			entries = append(entries, entity.RiskEntry{Level: entity.RiskHigh, Message: MsgLargeDecrease})
		}
	}

	if s := snap.Inventory.Stock; s != nil && *s <= r.cfg.LowStock {
		entries = append(entries, entity.RiskEntry{Level: entity.RiskMedium, Message: MsgLowInventory})
	}

	if len(SuccessfulPrices(snap.Competitors)) == 0 {
		entries = append(entries, entity.RiskEntry{Level: entity.RiskMedium, Message: MsgNoCompetitor})
	}

	score := r.Score(candidatePrice, snap)
	if candidatePrice > 0 && score.ProfitMargin < r.cfg.MinProfitMarginPct {
		entries = append(entries, entity.RiskEntry{Level: entity.RiskMedium, Message: MsgLowMargin})
	}
	if score.PriceVolatility > r.cfg.MaxVolatilityPct {
		entries = append(entries, entity.RiskEntry{Level: entity.RiskMedium, Message: MsgHighVolatility})
	}
	if score.CancellationRate > r.cfg.MaxCancellationPct {
		entries = append(entries, entity.RiskEntry{Level: entity.RiskLow, Message: MsgHighCancelation})
	}

	return entity.RiskReport{Entries: entries, Score: &score}
}

// Score はリスクの数値成分を計算します。Overall は変動率、在庫リスク、
// キャンセル率の平均です。
func (r *RiskAssessor) Score(price float64, snap entity.MarketSnapshot) entity.RiskScore {
	s := entity.RiskScore{
		ProfitMargin:     ProfitMargin(price, snap.Cost.Cost),
		PriceVolatility:  PriceVolatility(snap.PriceHistory, r.cfg.VolatilityLookback),
		StockRisk:        StockRisk(snap.Inventory),
		CancellationRate: math.Max(0, math.Min(100, snap.CancellationRate)),
	}
	s.Overall = (s.PriceVolatility + s.StockRisk + s.CancellationRate) / 3
	return s
}

// ProfitMargin は (price-cost)/price×100 です。正の価格がなければ0です。
func ProfitMargin(price, cost float64) float64 {
	if price <= 0 {
		return 0
	}
	return (price - cost) / price * 100
}

// PriceVolatility は直近 lookback 件の価格の変動係数で、上限は100です。
func PriceVolatility(history []float64, lookback int) float64 {
	if lookback > 0 && len(history) > lookback {
		history = history[:lookback]
	}
	return math.Min(100, coefficientOfVariation(history))
}

// StockRisk は在庫数を区分します。在庫切れは常に100、在庫管理対象外は0です。
func StockRisk(inv entity.InventoryLevels) float64 {
	if inv.Status == entity.StockOutOfStock {
		return 100
	}
	if inv.Stock == nil {
		return 0
	}
	switch q := *inv.Stock; {
	case q <= 0:
		return 100
	case q <= 5:
		return 80
	case q <= 10:
		return 60
	case q <= 20:
		return 40
	case q <= 50:
		return 20
	}
	return 0
}
