package dto

import (
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// OutcomeResponse は決定またはプレビュー1件の結果です。
type OutcomeResponse struct {
	ProductID   int64                  `json:"product_id"`
	State       string                 `json:"state"`
	Reason      string                 `json:"reason,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Decision    *entity.PriceDecision  `json:"decision,omitempty"`
	Adjustments *entity.Adjustments    `json:"adjustments,omitempty"`
	Risk        *entity.RiskReport     `json:"risk,omitempty"`
	Market      *entity.MarketAnalysis `json:"market,omitempty"`
	Snapshot    *SnapshotSummary       `json:"snapshot,omitempty"`
}

// SnapshotSummary は決定の根拠となった市場状況の要約です。
type SnapshotSummary struct {
	Competitors      int       `json:"competitors"`
	SalesDays        int       `json:"sales_days"`
	Orders           int       `json:"orders"`
	Revenue          float64   `json:"revenue"`
	Views            int       `json:"views"`
	UniqueViews      int       `json:"unique_views"`
	Season           string    `json:"season"`
	IsWeekend        bool      `json:"is_weekend"`
	IsHoliday        bool      `json:"is_holiday"`
	Stock            *int      `json:"stock,omitempty"`
	StockStatus      string    `json:"stock_status"`
	CancellationRate float64   `json:"cancellation_rate"`
	CollectedAt      time.Time `json:"collected_at"`
}

// BatchRequest はバッチの対象を明示した商品に絞る任意のリクエストです。
type BatchRequest struct {
	ProductIDs []int64 `json:"product_ids" binding:"omitempty,dive,gt=0"`
}

// BatchResponse はバッチ1サイクルの集計です。
type BatchResponse struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Eligible   int       `json:"eligible"`
	Applied    int       `json:"applied"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
}

// RefreshResponse は競合価格の再取得1サイクルの集計です。
type RefreshResponse struct {
	Products  int      `json:"products"`
	Refreshed int      `json:"refreshed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// DecisionsResponse は監査記録を新しい順に並べたものです。
type DecisionsResponse struct {
	Decisions []entity.PriceDecision `json:"decisions"`
}

// NewOutcomeResponse は決定結果を変換します。
func NewOutcomeResponse(out entity.Outcome) OutcomeResponse {
	res := OutcomeResponse{
		ProductID:   out.ProductID,
		State:       string(out.State),
		Reason:      out.Reason,
		Decision:    out.Decision,
		Adjustments: out.Adjustments,
		Risk:        out.Risk,
		Market:      out.Market,
	}
	if out.Err != nil {
		res.Error = out.Err.Error()
	}
	if s := out.Snapshot; s != nil {
		orders, revenue := s.SalesTotals()
		views, unique := s.DemandTotals()
		res.Snapshot = &SnapshotSummary{
			Competitors:      len(s.Competitors),
			SalesDays:        len(s.Sales),
			Orders:           orders,
			Revenue:          revenue,
			Views:            views,
			UniqueViews:      unique,
			Season:           string(s.Seasonal.Season),
			IsWeekend:        s.Seasonal.IsWeekend,
			IsHoliday:        s.Seasonal.IsHoliday,
			Stock:            s.Inventory.Stock,
			StockStatus:      string(s.Inventory.Status),
			CancellationRate: s.CancellationRate,
			CollectedAt:      s.CollectedAt,
		}
	}
	return res
}

// NewBatchResponse はバッチ結果を変換します。
func NewBatchResponse(r entity.BatchResult) BatchResponse {
	return BatchResponse{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Eligible:   r.Eligible,
		Applied:    r.Applied,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Errors:     r.Errors,
	}
}
