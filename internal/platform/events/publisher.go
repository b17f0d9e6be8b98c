// Package events は Kafka で価格データをやり取りします。
// 適用した決定を送り出し、ストアフロントの注文イベントを受け取ります。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DecisionPublisher は適用した価格決定をトピックに送ります。
// キーは商品 ID なので、コンシューマーは1商品の価格を順序どおりに受け取れます。
type DecisionPublisher struct {
	writer messageWriter
}

var _ usecase.DecisionSink = (*DecisionPublisher)(nil)

// NewDecisionPublisher は topic に書き込む DecisionPublisher を生成します。
func NewDecisionPublisher(brokers []string, topic string) *DecisionPublisher {
	return &DecisionPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish は適用された d を送ります。スキップした決定は監査テーブルにだけ残ります。
func (p *DecisionPublisher) Publish(ctx context.Context, d entity.PriceDecision) error {
	if !d.Applied {
		return nil
	}
	value, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision %s: %w", d.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(d.ProductID, 10)),
		Value: value,
		Time:  d.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("price.applied")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish decision %s: %w", d.ID, err)
	}
	return nil
}

// Close は送信待ちのメッセージを書き出します。
func (p *DecisionPublisher) Close() error {
	return p.writer.Close()
}
