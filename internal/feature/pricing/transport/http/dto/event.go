package dto

import (
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// EventRequest は /events に送られるストアフロントイベント1件です。
type EventRequest struct {
	Type       string    `json:"type" binding:"required,oneof=order_completed order_cancelled product_view add_to_cart"`
	ProductID  int64     `json:"product_id" binding:"required,gt=0"`
	Revenue    float64   `json:"revenue" binding:"gte=0"`
	Unique     bool      `json:"unique"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToEntity はリクエストをエンティティに変換します。
func (r EventRequest) ToEntity() entity.ProductEvent {
	return entity.ProductEvent{
		Type:       entity.ProductEventType(r.Type),
		ProductID:  r.ProductID,
		Revenue:    r.Revenue,
		Unique:     r.Unique,
		OccurredAt: r.OccurredAt,
	}
}
