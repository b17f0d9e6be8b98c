// Package scheduler は名前付きジョブを cron スケジュールで実行します。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"
)

// サーバーが使うトリガー名です。
const (
	TriggerOptimization      = "price-optimization"
	TriggerCompetitorRefresh = "competitor-refresh"
)

// Job はスケジュール実行される作業単位です。
type Job func(ctx context.Context) error

type entry struct {
	name    string
	spec    string
	job     Job
	running atomic.Bool
}

// Scheduler は登録されたジョブを起動します。
// 次のティック時点でまだ実行中のジョブは重ねて起動しません。
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	entries map[string]*entry
}

// New は loc で式を評価する Scheduler を生成します。
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.NewWithLocation(loc),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// Register は name で job を登録します。spec は標準の5フィールドの cron 式か、
// "@hourly" や "@every 30m" のような記述子です。spec が空ならトリガーは無効ですが、
// RunNow で起動することはできます。
func (s *Scheduler) Register(name, spec string, job Job) error {
	e := &entry{name: name, spec: spec, job: job}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("trigger %q already registered", name)
	}

	if spec == "" {
		slog.Info("trigger disabled", "trigger", name)
	} else {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return fmt.Errorf("trigger %q: invalid schedule %q: %w", name, spec, err)
		}
		s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(e) }))
	}
	s.entries[name] = e
	return nil
}

// RunNow は登録済みのトリガーをバックグラウンドで即時に起動します。
// 名前が未登録かジョブが実行中なら false を返します。
func (s *Scheduler) RunNow(name string) bool {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok || e.running.Load() {
		return false
	}
	go s.fire(e)
	return true
}

// Start はスケジュールの評価を開始します。
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "triggers", len(s.entries))
}

// Stop は新しいティックを止め、実行中のジョブをキャンセルして終了を待ちます。
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

// fire はスケジューラが停止中でなく e が実行中でなければ e を実行します。
func (s *Scheduler) fire(e *entry) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !e.running.CompareAndSwap(false, true) {
		slog.Warn("trigger still running, skipping tick", "trigger", e.name)
		return
	}
	defer e.running.Store(false)

	start := time.Now()
	slog.Info("trigger fired", "trigger", e.name)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("trigger panicked", "trigger", e.name, "panic", r)
		}
	}()
	if err := e.job(s.ctx); err != nil {
		slog.Error("trigger failed", "trigger", e.name, "error", err, "elapsed", time.Since(start))
		return
	}
	slog.Info("trigger finished", "trigger", e.name, "elapsed", time.Since(start))
}
