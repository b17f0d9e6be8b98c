package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

type catalogRepository struct {
	db       *gorm.DB
	defaults entity.OptimizationPolicy
}

var _ usecase.CatalogRepository = (*catalogRepository)(nil)

// NewCatalogRepository は商品リポジトリを生成します。defaults は
// 独自の値を持たない商品のマークアップ幅と最適化間隔を補います。
func NewCatalogRepository(db *gorm.DB, defaults entity.OptimizationPolicy) *catalogRepository {
	return &catalogRepository{db: db, defaults: defaults}
}

func (r *catalogRepository) FindByID(ctx context.Context, id int64) (entity.Product, error) {
	var m ProductModel
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Product{}, fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return entity.Product{}, err
	}
	return r.toEntity(m), nil
}

func (r *catalogRepository) ListEnabled(ctx context.Context) ([]entity.Product, error) {
	var rows []ProductModel
	if err := r.db.WithContext(ctx).
		Where("optimization_enabled = ?", true).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Product, 0, len(rows))
	for _, m := range rows {
		out = append(out, r.toEntity(m))
	}
	return out, nil
}

func (r *catalogRepository) UpdatePrice(ctx context.Context, id int64, price float64, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"price":             price,
		"last_optimized_at": at,
	})
}

func (r *catalogRepository) MarkOptimized(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_optimized_at": at})
}

func (r *catalogRepository) update(ctx context.Context, id int64, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&ProductModel{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	return nil
}

func (r *catalogRepository) toEntity(m ProductModel) entity.Product {
	policy := r.defaults
	policy.Enabled = m.OptimizationEnabled
	if m.MinMarkupPct != nil {
		policy.MinMarkupPct = *m.MinMarkupPct
	}
	if m.MaxMarkupPct != nil {
		policy.MaxMarkupPct = *m.MaxMarkupPct
	}
	if m.UpdateInterval != "" {
		policy.UpdateInterval = entity.UpdateInterval(m.UpdateInterval)
	}

	return entity.Product{
		ID:                m.ID,
		Name:              m.Name,
		Price:             m.Price,
		Cost:              m.Cost,
		ShippingCost:      m.ShippingCost,
		TaxRate:           m.TaxRate,
		StockQuantity:     m.StockQuantity,
		StockStatus:       entity.StockStatus(m.StockStatus),
		BackordersAllowed: m.BackordersAllowed,
		LowStockThreshold: m.LowStockThreshold,
		Policy:            policy,
		LastOptimizedAt:   m.LastOptimizedAt,
	}
}
