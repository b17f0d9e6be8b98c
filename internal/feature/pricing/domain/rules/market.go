package rules

import (
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// AnalyzeMarket は決定と一緒に記録する市場分析行を導出します。
func AnalyzeMarket(currentPrice float64, snap entity.MarketSnapshot) entity.MarketAnalysis {
	prices := SuccessfulPrices(snap.Competitors)
	ma := entity.MarketAnalysis{
		ProductID:        snap.ProductID,
		Date:             truncateDay(snap.CollectedAt),
		MarketPrice:      mean(prices),
		MarketVolatility: coefficientOfVariation(prices),
	}
	if ma.MarketPrice > 0 {
		ma.PriceCompetitiveness = currentPrice / ma.MarketPrice * 100
	}

	revenue := make([]float64, 0, len(snap.Sales))
	for _, d := range snap.Sales {
		revenue = append(revenue, d.Revenue)
	}
	ma.TrendIndicator = slope(revenue)
	return ma
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
