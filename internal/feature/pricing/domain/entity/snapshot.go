package entity

import "time"

// Season は月による季節区分です。
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// DailySales は商品の1日分の注文集計です。OrdersCount と Revenue は
// 完了した注文のみを数え、キャンセルは別に数えます。
type DailySales struct {
	Date           time.Time
	OrdersCount    int
	CancelledCount int
	Revenue        float64
}

// DailyDemand は商品の1日分のストアフロント行動です。
type DailyDemand struct {
	Date        time.Time
	Views       int
	UniqueViews int
	AddToCart   int
	Purchases   int
}

// SeasonalFactors は収集時刻から導いた暦のフラグです。
type SeasonalFactors struct {
	IsWeekend bool
	IsHoliday bool
	Season    Season
	Hour      int
}

// InventoryLevels は収集時点の在庫状況です。
type InventoryLevels struct {
	Stock             *int
	Status            StockStatus
	BackordersAllowed bool
	LowStockThreshold int
}

// CostData は単価の情報です。不明な場合 Cost は0です。
type CostData struct {
	Cost         float64
	ShippingCost float64
	TaxRate      float64
}

// MarketSnapshot は1商品の価格ルールに必要なすべての情報です。
// 決定ごとに1回組み立てられ、その後は変更されません。
type MarketSnapshot struct {
	ProductID        int64
	Competitors      []CompetitorObservation
	Sales            []DailySales // 古い順
	Seasonal         SeasonalFactors
	Inventory        InventoryLevels
	Demand           []DailyDemand // 古い順
	Cost             CostData
	PriceHistory     []float64 // 新しい順
	CancellationRate float64   // キャンセル集計期間のパーセント
	CollectedAt      time.Time
}

// SalesTotals は売上ウィンドウを合計します。
func (s MarketSnapshot) SalesTotals() (orders int, revenue float64) {
	for _, d := range s.Sales {
		orders += d.OrdersCount
		revenue += d.Revenue
	}
	return orders, revenue
}

// DemandTotals は需要ウィンドウを合計します。
func (s MarketSnapshot) DemandTotals() (views, unique int) {
	for _, d := range s.Demand {
		views += d.Views
		unique += d.UniqueViews
	}
	return views, unique
}
