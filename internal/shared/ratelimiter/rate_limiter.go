// Package ratelimiter は操作の実行頻度を一定間隔あたりに制限します。
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter は実行してよくなるまで呼び出し側を待たせます。
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimiter は interval の固定ウィンドウごとに limit 回の呼び出しを許可します。
// 並行に使えて、ウィンドウを超える呼び出しは次のウィンドウまで待ちます。
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	interval    time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time
}

var _ Limiter = (*RateLimiter)(nil)

// NewRateLimiter は RateLimiter を生成します。limit が1未満なら制限しません。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Wait は枠を予約し、現在のウィンドウが満杯なら次のウィンドウまで待機します。
// 先にコンテキストが終了した場合は ctx.Err() を返します。
// 予約した枠は失われますが、制限が厳しくなるだけです。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limit < 1 {
		return nil
	}
	delay := rl.reserve()
	if delay <= 0 {
		return nil
	}

	slog.Debug("rate limit reached, waiting", "limit", rl.limit, "delay", delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve は次の空き枠を予約し、そのウィンドウが開くまでの時間を返します。
// 呼び出しが詰まっている場合は先のウィンドウまで予約します。
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.windowStart.IsZero() || !now.Before(rl.windowStart.Add(rl.interval)) {
		rl.windowStart = now
		rl.count = 0
	}
	if rl.count >= rl.limit {
		rl.windowStart = rl.windowStart.Add(rl.interval)
		rl.count = 0
	}
	rl.count++
	return rl.windowStart.Sub(now)
}
