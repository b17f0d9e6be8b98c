// Package usecase は価格最適化を実装します。
// 競合価格のキャッシュ、市場データの集計、商品ごとの決定ステートマシンを含みます。
package usecase

import (
	"context"
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// このファイルのインターフェースは提供側(adapters)ではなく利用側(usecase)で定義します。

// CatalogRepository はカタログ側の商品を読み書きします。
type CatalogRepository interface {
	FindByID(ctx context.Context, id int64) (entity.Product, error)
	// ListEnabled は最適化ポリシーが有効な全商品を返します。
	ListEnabled(ctx context.Context) ([]entity.Product, error)
	// UpdatePrice は新しい価格を書き込み、最終最適化時刻を記録します。
	UpdatePrice(ctx context.Context, id int64, price float64, at time.Time) error
	MarkOptimized(ctx context.Context, id int64, at time.Time) error
}

// CompetitorFetcher は競合価格を1件読み取ります。
// domain.ErrNoData をラップしたエラーはページには到達したが価格がなかったことを表します。
type CompetitorFetcher interface {
	FetchPrice(ctx context.Context, source string) (entity.CompetitorObservation, error)
}

// ObservationStore は商品ごとのキャッシュ済み観測値を保持します。
// キャッシュミスのとき Load は (nil, nil) を返します。
type ObservationStore interface {
	Load(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
	Save(ctx context.Context, productID int64, obs []entity.CompetitorObservation, ttl time.Duration) error
	Delete(ctx context.Context, productID int64) error
}

// CompetitorSourceRepository は商品ごとに追跡する競合 URL を管理します。
type CompetitorSourceRepository interface {
	ListSources(ctx context.Context, productID int64) ([]string, error)
	AddSource(ctx context.Context, productID int64, url string) error
	RemoveSource(ctx context.Context, productID int64, url string) error
}

// CompetitorPriceRecorder は後の分析のために観測値の行を追記します。
type CompetitorPriceRecorder interface {
	RecordObservations(ctx context.Context, productID int64, obs []entity.CompetitorObservation) error
}

// SalesRepository は日次の注文集計を古い順に返します。
type SalesRepository interface {
	DailySales(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailySales, error)
}

// DemandRepository は日次のストアフロント行動を古い順に返します。
type DemandRepository interface {
	DailyDemand(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailyDemand, error)
}

// PriceHistoryRepository は適用した価格を保存します。
type PriceHistoryRepository interface {
	// RecentPrices は最大 limit 件の価格を新しい順に返します。
	RecentPrices(ctx context.Context, productID int64, limit int) ([]float64, error)
	AppendPrice(ctx context.Context, productID int64, price float64, at time.Time) error
}

// AnalysisRecorder は日次の市場分析とリスク分析の行を保存します。
type AnalysisRecorder interface {
	RecordMarketAnalysis(ctx context.Context, ma entity.MarketAnalysis) error
	RecordRiskAnalysis(ctx context.Context, productID int64, date time.Time, score entity.RiskScore) error
}

// DecisionSink は完了したすべての決定を受け取ります (監査テーブル、イベントストリーム)。
type DecisionSink interface {
	Publish(ctx context.Context, d entity.PriceDecision) error
}

// Predictor は別の候補価格を出す外部モデルです。
type Predictor interface {
	Predict(ctx context.Context, features entity.PredictionFeatures) (float64, error)
}

// BehaviorRepository は注文とストアフロントのイベントを (product, day) ごとに累積します。
type BehaviorRepository interface {
	AddOrder(ctx context.Context, productID int64, day time.Time, revenue float64) error
	AddCancellation(ctx context.Context, productID int64, day time.Time) error
	AddView(ctx context.Context, productID int64, day time.Time, unique bool) error
	AddToCart(ctx context.Context, productID int64, day time.Time) error
}

// Metrics はエンジンの計測値を受け取ります。
type Metrics interface {
	ObserveOutcome(state entity.OptimizationState)
	ObserveBatch(res entity.BatchResult)
	ObserveCompetitorFetch(status entity.ObservationStatus, d time.Duration)
	ObservePredictorFailure()
}

type noopMetrics struct{}

func (noopMetrics) ObserveOutcome(entity.OptimizationState) {}
func (noopMetrics) ObserveBatch(entity.BatchResult) {}
func (noopMetrics) ObserveCompetitorFetch(entity.ObservationStatus, time.Duration) {}
func (noopMetrics) ObservePredictorFailure() {}
