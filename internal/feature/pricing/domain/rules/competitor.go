// Package rules は決定的な価格ロジックを扱います。
// 競合分析、重み付き調整モデル、マークアップのクランプ、リスク評価が含まれます。
// このパッケージは I/O を行いません。
package rules

import (
	"fmt"
	"math"
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// DefaultFreshnessWindow はキャッシュした観測値の最大経過時間です。
const DefaultFreshnessWindow = time.Hour

// NeedsRefresh はキャッシュした観測値の集合を再取得すべきかを返します。
// 空であるか、いずれかの観測値が window より古ければ再取得が必要です。
func NeedsRefresh(obs []entity.CompetitorObservation, now time.Time, window time.Duration) bool {
	if len(obs) == 0 {
		return true
	}
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	for _, o := range obs {
		if now.Sub(o.Timestamp) > window {
			return true
		}
	}
	return false
}

// SuccessfulPrices は統計に使える観測値の価格を返します。
func SuccessfulPrices(obs []entity.CompetitorObservation) []float64 {
	out := make([]float64, 0, len(obs))
	for _, o := range obs {
		if o.OK() {
			out = append(out, o.Price)
		}
	}
	return out
}

// AnalyzeCompetitors は成功した観測値の価格統計を計算します。
// 失敗した観測値は件数のみ数えます。成功した観測値がなければ
// HasData=false でゼロ値の結果を返します。
func AnalyzeCompetitors(currentPrice float64, obs []entity.CompetitorObservation) entity.CompetitorAnalysis {
	prices := SuccessfulPrices(obs)
	a := entity.CompetitorAnalysis{
		Count:  len(prices),
		Failed: len(obs) - len(prices),
	}
	if len(prices) == 0 {
		return a
	}

	a.HasData = true
	a.MinPrice = math.Inf(1)
	a.MaxPrice = math.Inf(-1)
	for _, p := range prices {
		a.MinPrice = math.Min(a.MinPrice, p)
		a.MaxPrice = math.Max(a.MaxPrice, p)
		if p < currentPrice {
			a.Position++
		}
	}
	a.AveragePrice = mean(prices)
	a.Percentile = float64(a.Position) / float64(len(prices)) * 100
	a.PriceDifferencePct = (currentPrice - a.AveragePrice) / a.AveragePrice * 100
	a.Recommendations = recommend(a)
	return a
}

func recommend(a entity.CompetitorAnalysis) []entity.Recommendation {
	var out []entity.Recommendation
	switch {
	case a.PriceDifferencePct > 10:
		out = append(out, entity.Recommendation{
			Type:    entity.RecommendationHighPrice,
			Message: fmt.Sprintf("Price is %.1f%% above the competitor average", a.PriceDifferencePct),
		})
	case a.PriceDifferencePct < -10:
		out = append(out, entity.Recommendation{
			Type:    entity.RecommendationLowPrice,
			Message: fmt.Sprintf("Price is %.1f%% below the competitor average", -a.PriceDifferencePct),
		})
	}
	if a.Percentile > 80 {
		out = append(out, entity.Recommendation{
			Type:    entity.RecommendationPricePosition,
			Message: fmt.Sprintf("Price is higher than %.0f%% of competitors", a.Percentile),
		})
	}
	return out
}
