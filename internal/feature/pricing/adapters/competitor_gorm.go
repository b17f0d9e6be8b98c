package adapters

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

type competitorRepository struct {
	db *gorm.DB
}

var (
	_ usecase.CompetitorSourceRepository = (*competitorRepository)(nil)
	_ usecase.CompetitorPriceRecorder    = (*competitorRepository)(nil)
)

// NewCompetitorRepository は競合ソースと記録済み観測値のリポジトリを生成します。
func NewCompetitorRepository(db *gorm.DB) *competitorRepository {
	return &competitorRepository{db: db}
}

func (r *competitorRepository) ListSources(ctx context.Context, productID int64) ([]string, error) {
	var urls []string
	err := r.db.WithContext(ctx).
		Model(&CompetitorSourceModel{}).
		Where("product_id = ?", productID).
		Order("id").
		Pluck("url", &urls).Error
	return urls, err
}

// AddSource は冪等です。追跡中の URL を再度追加しても何も起きません。
func (r *competitorRepository) AddSource(ctx context.Context, productID int64, url string) error {
	m := CompetitorSourceModel{ProductID: productID, URL: url}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m).Error
}

func (r *competitorRepository) RemoveSource(ctx context.Context, productID int64, url string) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND url = ?", productID, url).
		Delete(&CompetitorSourceModel{}).Error
}

func (r *competitorRepository) RecordObservations(ctx context.Context, productID int64, obs []entity.CompetitorObservation) error {
	if len(obs) == 0 {
		return nil
	}
	ms := make([]CompetitorPriceModel, 0, len(obs))
	for _, o := range obs {
		ms = append(ms, CompetitorPriceModel{
			ProductID:  productID,
			Source:     o.Source,
			Price:      o.Price,
			Currency:   o.Currency,
			Status:     string(o.Status),
			Message:    o.Message,
			ObservedAt: o.Timestamp,
		})
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}
