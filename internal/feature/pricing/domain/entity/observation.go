package entity

import "time"

// ObservationStatus は競合ページ取得1回の結果です。
type ObservationStatus string

const (
	ObservationSuccess ObservationStatus = "success"
	ObservationError   ObservationStatus = "error"
	ObservationMessage ObservationStatus = "message"
)

// CompetitorObservation は競合価格の読み取り1件です。
// success 以外のステータスの観測値は使える価格を持ちません。
type CompetitorObservation struct {
	Source    string            `json:"source"`
	Price     float64           `json:"price"`
	Currency  string            `json:"currency"`
	Timestamp time.Time         `json:"timestamp"`
	Status    ObservationStatus `json:"status"`
	Message   string            `json:"message,omitempty"`
}

// OK は観測値を価格統計に含めてよいかを返します。
func (o CompetitorObservation) OK() bool {
	return o.Status == ObservationSuccess && o.Price > 0
}

// 競合分析が出すレコメンデーションの種類です。
const (
	RecommendationHighPrice     = "high_price"
	RecommendationLowPrice      = "low_price"
	RecommendationPricePosition = "price_position"
)

// Recommendation は競合価格から導いた助言です。
type Recommendation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CompetitorAnalysis は成功した観測値を現在価格と比べた集計です。
// 成功した観測値がない場合 HasData は false で、数値フィールドはすべて0です。
type CompetitorAnalysis struct {
	HasData            bool
	Count              int
	Failed             int
	AveragePrice       float64
	MinPrice           float64
	MaxPrice           float64
	Position           int
	Percentile         float64
	PriceDifferencePct float64
	Recommendations    []Recommendation
}
