package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// DefaultLowStockTrigger は完了注文で即時最適化を起動する在庫数の閾値(以下)です。
const DefaultLowStockTrigger = 5

// ErrUnknownEvent は未対応のイベント種別に対して返されます。
var ErrUnknownEvent = errors.New("unknown event type")

// ProductOptimizer は1商品の決定を即時に実行します。
type ProductOptimizer interface {
	OptimizeOne(ctx context.Context, productID int64) (entity.Outcome, error)
}

// EventUsecase はストアフロントイベントを日次の売上と行動の行に反映します。
type EventUsecase struct {
	behavior  BehaviorRepository
	catalog   CatalogRepository
	optimizer ProductOptimizer
	lowStock  int
	loc       *time.Location
}

// NewEventUsecase は EventUsecase を生成します。
// optimizer が nil の場合、在庫減少による起動は無効です。
func NewEventUsecase(behavior BehaviorRepository, catalog CatalogRepository, optimizer ProductOptimizer, lowStock int, loc *time.Location) *EventUsecase {
	if lowStock <= 0 {
		lowStock = DefaultLowStockTrigger
	}
	if loc == nil {
		loc = time.UTC
	}
	return &EventUsecase{behavior: behavior, catalog: catalog, optimizer: optimizer, lowStock: lowStock, loc: loc}
}

// Record はイベント1件を反映します。
func (u *EventUsecase) Record(ctx context.Context, ev entity.ProductEvent) error {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	day := at.In(u.loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, u.loc)

	var err error
	switch ev.Type {
	case entity.EventOrderCompleted:
		err = u.behavior.AddOrder(ctx, ev.ProductID, day, ev.Revenue)
	case entity.EventOrderCancelled:
		err = u.behavior.AddCancellation(ctx, ev.ProductID, day)
	case entity.EventProductView:
		err = u.behavior.AddView(ctx, ev.ProductID, day, ev.Unique)
	case entity.EventAddToCart:
		err = u.behavior.AddToCart(ctx, ev.ProductID, day)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if err != nil {
		return fmt.Errorf("record %s for product %d: %w", ev.Type, ev.ProductID, err)
	}

	if ev.Type == entity.EventOrderCompleted {
		u.checkLowStock(ctx, ev.ProductID)
	}
	return nil
}

// checkLowStock は在庫が少なくなった商品をその場で最適化します。
// 失敗はログに出すだけで、イベント自体は記録済みです。
func (u *EventUsecase) checkLowStock(ctx context.Context, productID int64) {
	if u.optimizer == nil {
		return
	}
	p, err := u.catalog.FindByID(ctx, productID)
	if err != nil {
		slog.Warn("failed to load product for low-stock check", "product_id", productID, "error", err)
		return
	}
	if !p.Policy.Enabled || p.StockQuantity == nil || *p.StockQuantity > u.lowStock {
		return
	}
	slog.Info("low stock, optimizing immediately", "product_id", productID, "stock", *p.StockQuantity)
	_, _ = u.optimizer.OptimizeOne(ctx, productID) // 結果はオーケストレータがログに出す
}
