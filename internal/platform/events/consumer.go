package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// EventRecorder はストアフロントイベント1件を反映します。
type EventRecorder interface {
	Record(ctx context.Context, ev entity.ProductEvent) error
}

// OrderEventConsumer はトピックのストアフロントイベントを売上と行動のテーブルに流し込みます。
type OrderEventConsumer struct {
	reader   messageReader
	recorder EventRecorder
	backoff  time.Duration
}

// NewOrderEventConsumer は topic のコンシューマーグループリーダーを生成します。
func NewOrderEventConsumer(brokers []string, topic, groupID string, recorder EventRecorder) *OrderEventConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &OrderEventConsumer{reader: r, recorder: recorder, backoff: time.Second}
}

// Run は ctx がキャンセルされるかリーダーが閉じられるまで読み続けます。
// デコードできないメッセージや記録に失敗したイベントはログに出して読み飛ばします。
func (c *OrderEventConsumer) Run(ctx context.Context) error {
	slog.Info("order event consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				slog.Info("order event consumer stopped")
				return nil
			}
			slog.Error("failed to read order event", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *OrderEventConsumer) process(ctx context.Context, msg kafka.Message) {
	var ev entity.ProductEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		slog.Error("failed to decode order event", "offset", msg.Offset, "error", err)
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = msg.Time
	}
	if err := c.recorder.Record(ctx, ev); err != nil {
		slog.Error("failed to record order event",
			"product_id", ev.ProductID, "type", ev.Type, "offset", msg.Offset, "error", err)
	}
}

// Close は内部のリーダーを閉じます。
func (c *OrderEventConsumer) Close() error {
	return c.reader.Close()
}
