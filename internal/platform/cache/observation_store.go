// Package cache は競合観測値のストアを提供します。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

var _ usecase.ObservationStore = (*RedisObservationStore)(nil)

// RedisObservationStore は商品ごとに JSON でエンコードした観測値の集合を保持します。
// エントリは Save に渡した鮮度ウィンドウで期限切れになります。
type RedisObservationStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisObservationStore は RedisObservationStore を生成します。
// namespace が空なら "competitor_prices" を使います。
func NewRedisObservationStore(rdb *redis.Client, namespace string) *RedisObservationStore {
	if namespace == "" {
		namespace = "competitor_prices"
	}
	return &RedisObservationStore{rdb: rdb, namespace: namespace}
}

// Load はキャッシュ済みの集合を返します。ミスなら nil です。
// 壊れたエントリは削除してミスとして扱います。
func (s *RedisObservationStore) Load(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error) {
	key := s.key(productID)

	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load competitor cache %s: %w", key, err)
	}

	var out []entity.CompetitorObservation
	if err := json.Unmarshal(b, &out); err != nil {
		_ = s.rdb.Del(ctx, key).Err()
		return nil, nil
	}
	return out, nil
}

// Save は商品のキャッシュを置き換えます。
func (s *RedisObservationStore) Save(ctx context.Context, productID int64, obs []entity.CompetitorObservation, ttl time.Duration) error {
	b, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}
	return s.rdb.Set(ctx, s.key(productID), b, ttl).Err()
}

// Delete は商品のキャッシュを破棄します。
func (s *RedisObservationStore) Delete(ctx context.Context, productID int64) error {
	return s.rdb.Del(ctx, s.key(productID)).Err()
}

// Flush は SCAN を使って namespace 内のキャッシュをすべて削除します。
func (s *RedisObservationStore) Flush(ctx context.Context) error {
	pattern := safe(s.namespace) + ":*"
	var cursor uint64
	for {
		keys, cur, err := s.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (s *RedisObservationStore) key(productID int64) string {
	return fmt.Sprintf("%s:%d", safe(s.namespace), productID)
}

// safe は Redis キーに使いづらい記号を簡易エスケープします。
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
