package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

// behaviorRepository は sales_metrics と customer_behavior の2つの日次テーブルを扱います。
// イベントは (product, day) の行をその場で加算します。
type behaviorRepository struct {
	db *gorm.DB
}

var (
	_ usecase.SalesRepository    = (*behaviorRepository)(nil)
	_ usecase.DemandRepository   = (*behaviorRepository)(nil)
	_ usecase.BehaviorRepository = (*behaviorRepository)(nil)
)

// NewBehaviorRepository は売上と顧客行動のリポジトリを生成します。
func NewBehaviorRepository(db *gorm.DB) *behaviorRepository {
	return &behaviorRepository{db: db}
}

func (r *behaviorRepository) DailySales(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailySales, error) {
	var rows []SalesMetricModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND date >= ? AND date <= ?", productID, dayKey(from), dayKey(to)).
		Order("date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.DailySales, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.DailySales{
			Date:           m.Date,
			OrdersCount:    m.OrdersCount,
			CancelledCount: m.CancelledCount,
			Revenue:        m.Revenue,
		})
	}
	return out, nil
}

func (r *behaviorRepository) DailyDemand(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailyDemand, error) {
	var rows []CustomerBehaviorModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND date >= ? AND date <= ?", productID, dayKey(from), dayKey(to)).
		Order("date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.DailyDemand, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.DailyDemand{
			Date:        m.Date,
			Views:       m.Views,
			UniqueViews: m.UniqueViews,
			AddToCart:   m.AddToCart,
			Purchases:   m.Purchases,
		})
	}
	return out, nil
}

// AddOrder は完了した注文を両方の日次テーブルに計上します。
func (r *behaviorRepository) AddOrder(ctx context.Context, productID int64, day time.Time, revenue float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sales := SalesMetricModel{ProductID: productID, Date: dayKey(day), OrdersCount: 1, Revenue: revenue}
		if err := tx.Clauses(increment("sales_metrics", map[string]any{
			"orders_count": 1,
			"revenue":      revenue,
		})).Create(&sales).Error; err != nil {
			return err
		}
		behavior := CustomerBehaviorModel{ProductID: productID, Date: dayKey(day), Purchases: 1}
		return tx.Clauses(increment("customer_behavior", map[string]any{"purchases": 1})).Create(&behavior).Error
	})
}

func (r *behaviorRepository) AddCancellation(ctx context.Context, productID int64, day time.Time) error {
	m := SalesMetricModel{ProductID: productID, Date: dayKey(day), CancelledCount: 1}
	return r.db.WithContext(ctx).
		Clauses(increment("sales_metrics", map[string]any{"cancelled_count": 1})).
		Create(&m).Error
}

func (r *behaviorRepository) AddView(ctx context.Context, productID int64, day time.Time, unique bool) error {
	m := CustomerBehaviorModel{ProductID: productID, Date: dayKey(day), Views: 1}
	cols := map[string]any{"views": 1}
	if unique {
		m.UniqueViews = 1
		cols["unique_views"] = 1
	}
	return r.db.WithContext(ctx).
		Clauses(increment("customer_behavior", cols)).
		Create(&m).Error
}

func (r *behaviorRepository) AddToCart(ctx context.Context, productID int64, day time.Time) error {
	m := CustomerBehaviorModel{ProductID: productID, Date: dayKey(day), AddToCart: 1}
	return r.db.WithContext(ctx).
		Clauses(increment("customer_behavior", map[string]any{"add_to_cart": 1})).
		Create(&m).Error
}

// increment は (product_id, date) への insert を、行が既にあれば
// "col = col + delta" の更新に変えます。
func increment(table string, deltas map[string]any) clause.OnConflict {
	set := make(map[string]any, len(deltas))
	for col, delta := range deltas {
		set[col] = gorm.Expr(table+"."+col+" + ?", delta)
	}
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(set),
	}
}
