// Package entity は価格最適化機能のドメインモデルを定義します。
package entity

import "time"

// StockStatus はストアフロントの在庫状態です。
type StockStatus string

const (
	StockInStock     StockStatus = "instock"
	StockOutOfStock  StockStatus = "outofstock"
	StockOnBackorder StockStatus = "onbackorder"
)

// UpdateInterval は商品がバッチの対象になる頻度です。
type UpdateInterval string

const (
	UpdateDaily  UpdateInterval = "daily"
	UpdateWeekly UpdateInterval = "weekly"
)

// Duration は商品の最適化の最小間隔を返します。未知の値は daily として扱います。
func (u UpdateInterval) Duration() time.Duration {
	if u == UpdateWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// OptimizationPolicy は商品ごとの価格ポリシーです。
// マークアップは単価に対するパーセントです (10 なら cost×1.10)。
type OptimizationPolicy struct {
	Enabled        bool
	MinMarkupPct   float64
	MaxMarkupPct   float64
	UpdateInterval UpdateInterval
}

// Product はエンジンが扱うカタログ上の商品です。
type Product struct {
	ID                int64
	Name              string
	Price             float64
	Cost              float64
	ShippingCost      float64
	TaxRate           float64
	StockQuantity     *int // 在庫管理対象外なら nil
	StockStatus       StockStatus
	BackordersAllowed bool
	LowStockThreshold int
	Policy            OptimizationPolicy
	LastOptimizedAt   *time.Time
}

// DueForOptimization はポリシーが有効で、前回の最適化から更新間隔が経過しているかを返します。
func (p Product) DueForOptimization(now time.Time) bool {
	if !p.Policy.Enabled {
		return false
	}
	if p.LastOptimizedAt == nil {
		return true
	}
	return !now.Before(p.LastOptimizedAt.Add(p.Policy.UpdateInterval.Duration()))
}
