// Package adapters は gorm による価格最適化リポジトリの実装です。
package adapters

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel はカタログの行です。マークアップ列は NULL 可で、
// 独自の幅を持たない商品は設定のデフォルトを使います。
type ProductModel struct {
	ID                  int64    `gorm:"primaryKey"`
	Name                string   `gorm:"size:255;not null"`
	Price               float64  `gorm:"not null;default:0"`
	Cost                float64  `gorm:"not null;default:0"`
	ShippingCost        float64  `gorm:"not null;default:0"`
	TaxRate             float64  `gorm:"not null;default:0"`
	StockQuantity       *int
	StockStatus         string   `gorm:"size:16;not null;default:instock"`
	BackordersAllowed   bool     `gorm:"not null;default:false"`
	LowStockThreshold   int      `gorm:"not null;default:5"`
	OptimizationEnabled bool     `gorm:"not null;default:false;index"`
	MinMarkupPct        *float64
	MaxMarkupPct        *float64
	UpdateInterval      string   `gorm:"size:16"`
	LastOptimizedAt     *time.Time
	UpdatedAt           time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// CompetitorSourceModel は商品ごとに追跡する競合 URL です。
type CompetitorSourceModel struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID int64  `gorm:"not null;uniqueIndex:competitor_source_product_url,priority:1"`
	URL       string `gorm:"size:512;not null;uniqueIndex:competitor_source_product_url,priority:2"`
	CreatedAt time.Time
}

func (CompetitorSourceModel) TableName() string {
	return "competitor_sources"
}

// CompetitorPriceModel は記録された観測値1件です。
type CompetitorPriceModel struct {
	ID         uint      `gorm:"primaryKey"`
	ProductID  int64     `gorm:"not null;index:competitor_price_product_time,priority:1"`
	Source     string    `gorm:"size:512;not null"`
	Price      float64   `gorm:"not null;default:0"`
	Currency   string    `gorm:"size:8"`
	Status     string    `gorm:"size:16;not null"`
	Message    string    `gorm:"size:512"`
	ObservedAt time.Time `gorm:"not null;index:competitor_price_product_time,priority:2"`
}

func (CompetitorPriceModel) TableName() string {
	return "competitor_prices"
}

// SalesMetricModel は商品の日次注文集計です。
type SalesMetricModel struct {
	ID             uint      `gorm:"primaryKey"`
	ProductID      int64     `gorm:"not null;uniqueIndex:sales_product_date,priority:1"`
	Date           time.Time `gorm:"not null;uniqueIndex:sales_product_date,priority:2"`
	OrdersCount    int       `gorm:"not null;default:0"`
	CancelledCount int       `gorm:"not null;default:0"`
	Revenue        float64   `gorm:"not null;default:0"`
}

func (SalesMetricModel) TableName() string {
	return "sales_metrics"
}

// CustomerBehaviorModel は商品の日次ストアフロント行動です。
type CustomerBehaviorModel struct {
	ID          uint      `gorm:"primaryKey"`
	ProductID   int64     `gorm:"not null;uniqueIndex:behavior_product_date,priority:1"`
	Date        time.Time `gorm:"not null;uniqueIndex:behavior_product_date,priority:2"`
	Views       int       `gorm:"not null;default:0"`
	UniqueViews int       `gorm:"not null;default:0"`
	AddToCart   int       `gorm:"not null;default:0"`
	Purchases   int       `gorm:"not null;default:0"`
}

func (CustomerBehaviorModel) TableName() string {
	return "customer_behavior"
}

// PriceHistoryModel は適用された価格1件です。
type PriceHistoryModel struct {
	ID        uint      `gorm:"primaryKey"`
	ProductID int64     `gorm:"not null;index:price_history_product_time,priority:1"`
	Price     float64   `gorm:"not null"`
	ChangedAt time.Time `gorm:"not null;index:price_history_product_time,priority:2"`
}

func (PriceHistoryModel) TableName() string {
	return "price_history"
}

// MarketAnalysisModel は日次の市場分析行です。
type MarketAnalysisModel struct {
	ID                   uint      `gorm:"primaryKey"`
	ProductID            int64     `gorm:"not null;uniqueIndex:market_product_date,priority:1"`
	Date                 time.Time `gorm:"not null;uniqueIndex:market_product_date,priority:2"`
	MarketPrice          float64   `gorm:"not null;default:0"`
	PriceCompetitiveness float64   `gorm:"not null;default:0"`
	TrendIndicator       float64   `gorm:"not null;default:0"`
	MarketVolatility     float64   `gorm:"not null;default:0"`
}

func (MarketAnalysisModel) TableName() string {
	return "market_analysis"
}

// RiskAnalysisModel は日次のリスク分析行です。
type RiskAnalysisModel struct {
	ID               uint      `gorm:"primaryKey"`
	ProductID        int64     `gorm:"not null;uniqueIndex:risk_product_date,priority:1"`
	Date             time.Time `gorm:"not null;uniqueIndex:risk_product_date,priority:2"`
	ProfitMargin     float64   `gorm:"not null;default:0"`
	PriceVolatility  float64   `gorm:"not null;default:0"`
	StockRisk        float64   `gorm:"not null;default:0"`
	CancellationRate float64   `gorm:"not null;default:0"`
	OverallRisk      float64   `gorm:"not null;default:0"`
}

func (RiskAnalysisModel) TableName() string {
	return "risk_analysis"
}

// PriceDecisionModel は決定1件の監査行です。価格は正確な10進数で保存します。
type PriceDecisionModel struct {
	ID             uint            `gorm:"primaryKey"`
	DecisionID     string          `gorm:"size:36;not null;uniqueIndex"`
	ProductID      int64           `gorm:"not null;index"`
	OldPrice       decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	CandidatePrice decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ClampedPrice   decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ChangePct      float64         `gorm:"not null;default:0"`
	Applied        bool            `gorm:"not null"`
	Source         string          `gorm:"size:16;not null"`
	Reason         string          `gorm:"size:255"`
	DecidedAt      time.Time       `gorm:"not null;index"`
}

func (PriceDecisionModel) TableName() string {
	return "price_decisions"
}

// AutoMigrate は価格最適化の全テーブルを作成または更新します。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductModel{},
		&CompetitorSourceModel{},
		&CompetitorPriceModel{},
		&SalesMetricModel{},
		&CustomerBehaviorModel{},
		&PriceHistoryModel{},
		&MarketAnalysisModel{},
		&RiskAnalysisModel{},
		&PriceDecisionModel{},
	)
}

// dayKey は暦日を UTC の0時として保存します。
// 呼び出し側のロケーションにかかわらず同じ日は同じ行になります。
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
