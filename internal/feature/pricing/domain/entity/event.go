package entity

import "time"

// ProductEventType は売上と行動のウィンドウに反映するストアフロントイベントの種類です。
type ProductEventType string

const (
	EventOrderCompleted ProductEventType = "order_completed"
	EventOrderCancelled ProductEventType = "order_cancelled"
	EventProductView    ProductEventType = "product_view"
	EventAddToCart      ProductEventType = "add_to_cart"
)

// ProductEvent は商品に対するストアフロントイベント1件です。
type ProductEvent struct {
	Type       ProductEventType `json:"type"`
	ProductID  int64            `json:"product_id"`
	Revenue    float64          `json:"revenue,omitempty"`
	Unique     bool             `json:"unique,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
