package dto

import "price_optimizer/internal/feature/pricing/domain/entity"

// CompetitorSourceRequest は追跡する競合 URL の追加・削除リクエストです。
type CompetitorSourceRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// CompetitorsResponse は1商品の競合情報です。
type CompetitorsResponse struct {
	ProductID    int64                          `json:"product_id"`
	CurrentPrice float64                        `json:"current_price"`
	Sources      []string                       `json:"sources"`
	Observations []entity.CompetitorObservation `json:"observations"`
	Analysis     CompetitorAnalysis             `json:"analysis"`
}

// CompetitorAnalysis は entity.CompetitorAnalysis の JSON 表現です。
type CompetitorAnalysis struct {
	HasData            bool                    `json:"has_data"`
	Count              int                     `json:"count"`
	Failed             int                     `json:"failed"`
	AveragePrice       float64                 `json:"average_price"`
	MinPrice           float64                 `json:"min_price"`
	MaxPrice           float64                 `json:"max_price"`
	Position           int                     `json:"position"`
	Percentile         float64                 `json:"percentile"`
	PriceDifferencePct float64                 `json:"price_difference_pct"`
	Recommendations    []entity.Recommendation `json:"recommendations"`
}

// NewCompetitorAnalysis は分析結果を変換します。
func NewCompetitorAnalysis(a entity.CompetitorAnalysis) CompetitorAnalysis {
	recs := a.Recommendations
	if recs == nil {
		recs = []entity.Recommendation{}
	}
	return CompetitorAnalysis{
		HasData:            a.HasData,
		Count:              a.Count,
		Failed:             a.Failed,
		AveragePrice:       a.AveragePrice,
		MinPrice:           a.MinPrice,
		MaxPrice:           a.MaxPrice,
		Position:           a.Position,
		Percentile:         a.Percentile,
		PriceDifferencePct: a.PriceDifferencePct,
		Recommendations:    recs,
	}
}
