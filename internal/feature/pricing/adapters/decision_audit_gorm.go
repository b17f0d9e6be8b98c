package adapters

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

// DefaultAuditLimit は保持する決定行の件数です。
const DefaultAuditLimit = 1000

// DecisionAuditRepository は決定を price_decisions に保存し、
// テーブルを新しい順に limit 行までに抑えます。
type DecisionAuditRepository struct {
	db    *gorm.DB
	limit int
}

var _ usecase.DecisionSink = (*DecisionAuditRepository)(nil)

// NewDecisionAuditRepository は DecisionAuditRepository を生成します。
func NewDecisionAuditRepository(db *gorm.DB, limit int) *DecisionAuditRepository {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return &DecisionAuditRepository{db: db, limit: limit}
}

// Publish は d を保存し、limit を超えた行を削除します。
func (r *DecisionAuditRepository) Publish(ctx context.Context, d entity.PriceDecision) error {
	m := PriceDecisionModel{
		DecisionID:     d.ID,
		ProductID:      d.ProductID,
		OldPrice:       decimal.NewFromFloat(d.OldPrice),
		CandidatePrice: decimal.NewFromFloat(d.CandidatePrice),
		ClampedPrice:   decimal.NewFromFloat(d.ClampedPrice),
		ChangePct:      d.ChangePct,
		Applied:        d.Applied,
		Source:         string(d.Source),
		Reason:         d.Reason,
		DecidedAt:      d.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("%w: insert decision %s: %v", domain.ErrPersistence, d.ID, err)
	}
	return r.trim(ctx)
}

// trim は新しい方から limit 番目より古い行をすべて削除します。
// MySQL は IN サブクエリ内の LIMIT を許さないため、境界値を先に読み出します。
func (r *DecisionAuditRepository) trim(ctx context.Context) error {
	var cutoff []uint
	if err := r.db.WithContext(ctx).
		Model(&PriceDecisionModel{}).
		Order("id DESC").
		Offset(r.limit).
		Limit(1).
		Pluck("id", &cutoff).Error; err != nil {
		return err
	}
	if len(cutoff) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id <= ?", cutoff[0]).
		Delete(&PriceDecisionModel{}).Error
}

// ListByProduct は商品の決定を新しい順に最大 limit 件返します。
func (r *DecisionAuditRepository) ListByProduct(ctx context.Context, productID int64, limit int) ([]entity.PriceDecision, error) {
	var rows []PriceDecisionModel
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.PriceDecision, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.PriceDecision{
			ID:             m.DecisionID,
			ProductID:      m.ProductID,
			OldPrice:       m.OldPrice.InexactFloat64(),
			CandidatePrice: m.CandidatePrice.InexactFloat64(),
			ClampedPrice:   m.ClampedPrice.InexactFloat64(),
			ChangePct:      m.ChangePct,
			Applied:        m.Applied,
			Source:         entity.PriceSource(m.Source),
			Reason:         m.Reason,
			Timestamp:      m.DecidedAt,
		})
	}
	return out, nil
}
