package entity

import "time"

// OptimizationState は商品ごとの決定ステートマシンの段階です。
type OptimizationState string

const (
	StateIdle         OptimizationState = "idle"
	StateAggregating  OptimizationState = "aggregating"
	StatePricing      OptimizationState = "pricing"
	StateClamping     OptimizationState = "clamping"
	StateRiskChecking OptimizationState = "risk_checking"
	StateDeciding     OptimizationState = "deciding"
	StateApplied      OptimizationState = "applied"
	StateSkipped      OptimizationState = "skipped"
	StateFailed       OptimizationState = "failed"
)

// Terminal はその状態で決定が終わるかを返します。
func (s OptimizationState) Terminal() bool {
	return s == StateApplied || s == StateSkipped || s == StateFailed
}

// PriceSource は生の候補価格をどの経路で得たかを表します。
type PriceSource string

const (
	SourceRules     PriceSource = "rules"
	SourcePredictor PriceSource = "predictor"
)

// PriceDecision は決定1件の監査記録です。
type PriceDecision struct {
	ID             string      `json:"id"`
	ProductID      int64       `json:"product_id"`
	OldPrice       float64     `json:"old_price"`
	CandidatePrice float64     `json:"candidate_price"`
	ClampedPrice   float64     `json:"clamped_price"`
	ChangePct      float64     `json:"change_pct"`
	Applied        bool        `json:"applied"`
	Source         PriceSource `json:"source"`
	Reason         string      `json:"reason,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Outcome はステートマシンを1回通した結果です。
type Outcome struct {
	ProductID   int64
	State       OptimizationState
	Decision    *PriceDecision
	Snapshot    *MarketSnapshot
	Adjustments *Adjustments
	Risk        *RiskReport
	Market      *MarketAnalysis
	Reason      string
	Err         error
}

// BatchResult はバッチ1サイクルの集計です。
type BatchResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Eligible   int
	Applied    int
	Skipped    int
	Failed     int
	Errors     []string
}
