package entity

import "time"

// RiskLevel はリスク項目1件の深刻度です。
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskEntry は発火したリスクルール1件です。
type RiskEntry struct {
	Level   RiskLevel `json:"level"`
	Message string    `json:"message"`
}

// RiskScore はリスクの数値成分です。ProfitMargin 以外はすべて 0..100 の尺度で、
// ProfitMargin は負にもなりうる単純なパーセントです。
type RiskScore struct {
	ProfitMargin     float64 `json:"profit_margin"`
	PriceVolatility  float64 `json:"price_volatility"`
	StockRisk        float64 `json:"stock_risk"`
	CancellationRate float64 `json:"cancellation_rate"`
	Overall          float64 `json:"overall"`
}

// RiskReport は候補価格の評価結果です。
type RiskReport struct {
	Entries []RiskEntry `json:"entries"`
	Score   *RiskScore  `json:"score,omitempty"`
}

// Highest は含まれる最も深刻なレベルを返します。空なら low です。
func (r RiskReport) Highest() RiskLevel {
	level := RiskLow
	for _, e := range r.Entries {
		switch e.Level {
		case RiskHigh:
			return RiskHigh
		case RiskMedium:
			level = RiskMedium
		}
	}
	return level
}

// MarketAnalysis は決定ごとに記録する日次の市場分析行です。
type MarketAnalysis struct {
	ProductID            int64     `json:"product_id"`
	Date                 time.Time `json:"date"`
	MarketPrice          float64   `json:"market_price"`
	PriceCompetitiveness float64   `json:"price_competitiveness"`
	TrendIndicator       float64   `json:"trend_indicator"`
	MarketVolatility     float64   `json:"market_volatility"`
}

// PredictionFeatures は外部予測器に渡す特徴量です。
type PredictionFeatures struct {
	ProductID        int64                   `json:"productId"`
	CurrentPrice     float64                 `json:"currentPrice"`
	MarketAnalysis   MarketAnalysis          `json:"marketAnalysis"`
	RiskAnalysis     RiskScore               `json:"riskAnalysis"`
	CustomerBehavior CustomerBehavior        `json:"customerBehavior"`
	CompetitorPrices []CompetitorObservation `json:"competitorPrices"`
}

// CustomerBehavior は予測器向けに集計した需要ウィンドウです。
type CustomerBehavior struct {
	Views       int `json:"views"`
	UniqueViews int `json:"uniqueViews"`
	AddToCart   int `json:"addToCart"`
	Purchases   int `json:"purchases"`
}
