package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

type priceHistoryRepository struct {
	db *gorm.DB
}

var _ usecase.PriceHistoryRepository = (*priceHistoryRepository)(nil)

// NewPriceHistoryRepository は適用済み価格の履歴リポジトリを生成します。
func NewPriceHistoryRepository(db *gorm.DB) *priceHistoryRepository {
	return &priceHistoryRepository{db: db}
}

func (r *priceHistoryRepository) RecentPrices(ctx context.Context, productID int64, limit int) ([]float64, error) {
	var prices []float64
	q := r.db.WithContext(ctx).
		Model(&PriceHistoryModel{}).
		Where("product_id = ?", productID).
		Order("changed_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("price", &prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *priceHistoryRepository) AppendPrice(ctx context.Context, productID int64, price float64, at time.Time) error {
	m := PriceHistoryModel{ProductID: productID, Price: price, ChangedAt: at}
	return r.db.WithContext(ctx).Create(&m).Error
}

type analysisRepository struct {
	db *gorm.DB
}

var _ usecase.AnalysisRecorder = (*analysisRepository)(nil)

// NewAnalysisRepository は市場分析とリスク分析のリポジトリを生成します。
// どちらのテーブルも商品と日付ごとに1行で、同じ日の後の決定で上書きされます。
func NewAnalysisRepository(db *gorm.DB) *analysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) RecordMarketAnalysis(ctx context.Context, ma entity.MarketAnalysis) error {
	m := MarketAnalysisModel{
		ProductID:            ma.ProductID,
		Date:                 dayKey(ma.Date),
		MarketPrice:          ma.MarketPrice,
		PriceCompetitiveness: ma.PriceCompetitiveness,
		TrendIndicator:       ma.TrendIndicator,
		MarketVolatility:     ma.MarketVolatility,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"market_price", "price_competitiveness", "trend_indicator", "market_volatility"}),
	}).Create(&m).Error
}

func (r *analysisRepository) RecordRiskAnalysis(ctx context.Context, productID int64, date time.Time, s entity.RiskScore) error {
	m := RiskAnalysisModel{
		ProductID:        productID,
		Date:             dayKey(date),
		ProfitMargin:     s.ProfitMargin,
		PriceVolatility:  s.PriceVolatility,
		StockRisk:        s.StockRisk,
		CancellationRate: s.CancellationRate,
		OverallRisk:      s.Overall,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"profit_margin", "price_volatility", "stock_risk", "cancellation_rate", "overall_risk"}),
	}).Create(&m).Error
}
