package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
)

// countingMetrics は状態ごとに結果を数えます。
type countingMetrics struct {
	mu                sync.Mutex
	outcomes          map[entity.OptimizationState]int
	batches           int
	predictorFailures int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{outcomes: map[entity.OptimizationState]int{}}
}

func (m *countingMetrics) ObserveOutcome(s entity.OptimizationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[s]++
}

func (m *countingMetrics) ObserveBatch(entity.BatchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *countingMetrics) ObserveCompetitorFetch(entity.ObservationStatus, time.Duration) {}

func (m *countingMetrics) ObservePredictorFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictorFailures++
}

// product はマークアップ幅 10%..50% の有効な商品を返します。
func product(id int64, price, cost float64) entity.Product {
	return entity.Product{
		ID:    id,
		Name:  "product",
		Price: price,
		Cost:  cost,
		Policy: entity.OptimizationPolicy{
			Enabled:        true,
			MinMarkupPct:   10,
			MaxMarkupPct:   50,
			UpdateInterval: entity.UpdateDaily,
		},
	}
}

type orchestratorFixture struct {
	catalog  *mockCatalog
	snaps    *stubSnapshotter
	comp     *mockCompetitors
	prices   *mockPrices
	analyses *mockAnalyses
	sink     *mockSink
	metrics  *countingMetrics
	history  *DecisionHistory
}

func newFixture(ps ...entity.Product) *orchestratorFixture {
	return &orchestratorFixture{
		catalog:  newMockCatalog(ps...),
		snaps:    newStubSnapshotter(),
		comp:     &mockCompetitors{},
		prices:   &mockPrices{},
		analyses: &mockAnalyses{},
		sink:     &mockSink{},
		metrics:  newCountingMetrics(),
		history:  NewDecisionHistory(10),
	}
}

func (f *orchestratorFixture) orchestrator(pred Predictor, cfg OrchestratorConfig) *Orchestrator {
	return NewOrchestrator(OrchestratorDeps{
		Catalog:     f.catalog,
		Aggregator:  f.snaps,
		Competitors: f.comp,
		Predictor:   pred,
		Analyses:    f.analyses,
		Prices:      f.prices,
		History:     f.history,
		Sinks:       []DecisionSink{f.sink},
		Metrics:     f.metrics,
	}, cfg)
}

// 空のスナップショットにはシグナルがないので、ルールによる候補は基準価格
// 72.5/(1-0.275) = 100 を現在価格の ±20% に制限したものになります。

// TestOrchestrator_OptimizeOne_Applied は価格が更新され、履歴・シンク・分析が記録されることを検証します。
func TestOrchestrator_OptimizeOne_Applied(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	o := f.orchestrator(nil, OrchestratorConfig{})

	out, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, entity.StateApplied, out.State)
	require.NotNil(t, out.Decision)
	d := out.Decision
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 80.0, d.OldPrice)
	assert.Equal(t, 96.0, d.CandidatePrice)
	assert.Equal(t, 96.0, d.ClampedPrice)
	assert.InDelta(t, 20.0, d.ChangePct, 1e-9)
	assert.True(t, d.Applied)
	assert.Equal(t, entity.SourceRules, d.Source)

	assert.Equal(t, []float64{96}, f.catalog.updates)
	assert.Equal(t, []float64{96}, f.prices.appended)
	assert.Equal(t, 1, f.history.Len())
	assert.Len(t, f.sink.decisions, 1)
	assert.Len(t, f.analyses.market, 1)
	assert.Len(t, f.analyses.risk, 1)
	assert.Equal(t, 1, f.metrics.outcomes[entity.StateApplied])
	assert.Equal(t, 1, f.snaps.clears)

	require.NotNil(t, out.Risk)
	assert.NotEmpty(t, out.Risk.Entries)
	require.NotNil(t, out.Adjustments)
	assert.Equal(t, entity.Adjustments{}, *out.Adjustments)
}

// TestOrchestrator_OptimizeOne_BelowThresholdSkipped は閾値未満の変化がスキップされ、履歴には残ることを検証します。
func TestOrchestrator_OptimizeOne_BelowThresholdSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 100, 72.5))
	o := f.orchestrator(nil, OrchestratorConfig{})

	out, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, entity.StateSkipped, out.State)
	assert.Equal(t, "price change below threshold", out.Reason)
	assert.False(t, out.Decision.Applied)
	assert.Zero(t, f.catalog.UpdatePriceHit)
	assert.Equal(t, 1, f.catalog.markOptimized)
	assert.Empty(t, f.prices.appended)
	// skipped decisions are still part of the history
	assert.Equal(t, 1, f.history.Len())
}

// TestOrchestrator_MinChangeThresholdIsHonoured は設定された閾値がそのまま使われることを検証します。
func TestOrchestrator_MinChangeThresholdIsHonoured(t *testing.T) {
	t.Parallel()

	// 99.5 -> 100 is a 0.5% change
	tests := []struct {
		name      string
		threshold float64
		want      entity.OptimizationState
	}{
		{name: "zero applies any change", threshold: 0, want: entity.StateApplied},
		{name: "below one percent", threshold: 0.01, want: entity.StateSkipped},
		{name: "at the threshold", threshold: 0.005, want: entity.StateApplied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(product(1, 99.5, 72.5))
			o := f.orchestrator(nil, OrchestratorConfig{MinChangeThreshold: tt.threshold})

			out, err := o.OptimizeOne(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.State)
			assert.Equal(t, 100.0, out.Decision.ClampedPrice)
		})
	}
}

// TestOrchestrator_OptimizeOne_ConvergesOnSecondRun は2回目の実行で価格が変わらずスキップされることを検証します。
func TestOrchestrator_OptimizeOne_ConvergesOnSecondRun(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 90, 72.5))
	o := f.orchestrator(nil, OrchestratorConfig{})

	first, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StateApplied, first.State)
	assert.Equal(t, 100.0, first.Decision.ClampedPrice)

	second, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StateSkipped, second.State)
	assert.Equal(t, []float64{100}, f.catalog.updates)

	recent := o.History(0)
	require.Len(t, recent, 2)
	assert.Equal(t, second.Decision.ID, recent[0].ID)
	assert.Equal(t, first.Decision.ID, recent[1].ID)
}

// TestOrchestrator_OptimizeOne_MarkupWinsOverStability はマークアップ上限が安定化の幅より優先されることを検証します。
func TestOrchestrator_OptimizeOne_MarkupWinsOverStability(t *testing.T) {
	t.Parallel()

	p := product(1, 100, 50)
	p.Policy.MinMarkupPct = 20
	p.Policy.MaxMarkupPct = 30
	f := newFixture(p)
	o := f.orchestrator(nil, OrchestratorConfig{})

	out, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)

	// stability keeps the candidate at 80 but the markup ceiling is 65
	assert.Equal(t, 80.0, out.Decision.CandidatePrice)
	assert.Equal(t, 65.0, out.Decision.ClampedPrice)
	assert.Equal(t, entity.StateApplied, out.State)
}

// TestOrchestrator_OptimizeOne_ClampInvariant は適用した価格が常にマークアップ幅に収まることを検証します。
func TestOrchestrator_OptimizeOne_ClampInvariant(t *testing.T) {
	t.Parallel()

	cases := []struct {
		price, cost, min, max float64
	}{
		{price: 10, cost: 100, min: 5, max: 15},
		{price: 1000, cost: 3.33, min: 0, max: 1},
		{price: 19.99, cost: 12.49, min: 12.5, max: 12.6},
		{price: 250, cost: 88, min: 40, max: 60},
	}

	for _, c := range cases {
		p := product(1, c.price, c.cost)
		p.Policy.MinMarkupPct = c.min
		p.Policy.MaxMarkupPct = c.max
		f := newFixture(p)
		o := f.orchestrator(nil, OrchestratorConfig{})

		out, err := o.OptimizeOne(context.Background(), 1)
		require.NoError(t, err)

		low := c.cost * (1 + c.min/100)
		high := c.cost * (1 + c.max/100)
		assert.GreaterOrEqual(t, out.Decision.ClampedPrice, low-1e-9)
		assert.LessOrEqual(t, out.Decision.ClampedPrice, high+1e-9)
	}
}

// TestOrchestrator_OptimizeOne_MissingCostSkipped は原価のない商品は価格を変えずスキップされることを検証します。
func TestOrchestrator_OptimizeOne_MissingCostSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 50, 0))
	o := f.orchestrator(nil, OrchestratorConfig{})

	out, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StateSkipped, out.State)
	assert.Equal(t, "missing unit cost", out.Reason)
	assert.Equal(t, 50.0, out.Decision.ClampedPrice)
	assert.Zero(t, f.catalog.UpdatePriceHit)
}

// TestOrchestrator_OptimizeOne_Failures は商品の取得やポリシー検証の失敗が Failed になり、分類できるエラーを返すことを検証します。
func TestOrchestrator_OptimizeOne_Failures(t *testing.T) {
	t.Parallel()

	t.Run("unknown product", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		o := f.orchestrator(nil, OrchestratorConfig{})

		out, err := o.OptimizeOne(context.Background(), 42)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.Equal(t, entity.StateFailed, out.State)
	})

	t.Run("invalid markup policy", func(t *testing.T) {
		t.Parallel()
		p := product(1, 80, 72.5)
		p.Policy.MinMarkupPct = 50
		p.Policy.MaxMarkupPct = 10
		f := newFixture(p)
		o := f.orchestrator(nil, OrchestratorConfig{})

		out, err := o.OptimizeOne(context.Background(), 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConstraintViolation)
		assert.Equal(t, entity.StateFailed, out.State)
		assert.Zero(t, f.snaps.collects)
	})

	t.Run("aggregation error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(product(1, 80, 72.5))
		f.snaps.err[1] = ErrDB
		o := f.orchestrator(nil, OrchestratorConfig{})

		out, err := o.OptimizeOne(context.Background(), 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDB)
		assert.Equal(t, entity.StateFailed, out.State)
		assert.Nil(t, out.Decision)
		assert.Equal(t, 1, f.metrics.outcomes[entity.StateFailed])
	})

	t.Run("price write error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(product(1, 80, 72.5))
		f.catalog.UpdateErr = ErrDB
		o := f.orchestrator(nil, OrchestratorConfig{})

		out, err := o.OptimizeOne(context.Background(), 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.Equal(t, entity.StateFailed, out.State)
		assert.Zero(t, f.history.Len())
		assert.Empty(t, f.sink.decisions)
	})
}

// TestOrchestrator_SinkErrorDoesNotFailDecision はDecisionSink のエラーで決定が失敗しないことを検証します。
func TestOrchestrator_SinkErrorDoesNotFailDecision(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	f.sink.err = errors.New("broker unavailable")
	o := f.orchestrator(nil, OrchestratorConfig{})

	out, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StateApplied, out.State)
	assert.Len(t, f.sink.decisions, 1)
}

// TestOrchestrator_Predictor は予測器の成否とフォールバック設定に応じて決定の状態が決まることを検証します。
func TestOrchestrator_Predictor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		predict    func(context.Context, entity.PredictionFeatures) (float64, error)
		fallback   PredictorFallback
		wantState  entity.OptimizationState
		wantPrice  float64
		wantSource entity.PriceSource
		wantErr    error
		wantFails  int
	}{
		{
			name: "prediction inside the windows",
			predict: func(context.Context, entity.PredictionFeatures) (float64, error) {
				return 90.004, nil
			},
			wantState:  entity.StateApplied,
			wantPrice:  90,
			wantSource: entity.SourcePredictor,
		},
		{
			name: "prediction is stabilized",
			predict: func(context.Context, entity.PredictionFeatures) (float64, error) {
				return 500, nil
			},
			wantState:  entity.StateApplied,
			wantPrice:  96,
			wantSource: entity.SourcePredictor,
		},
		{
			name: "failure falls back to rules",
			predict: func(context.Context, entity.PredictionFeatures) (float64, error) {
				return 0, errors.New("model file missing")
			},
			fallback:   FallbackRules,
			wantState:  entity.StateApplied,
			wantPrice:  96,
			wantSource: entity.SourceRules,
			wantFails:  1,
		},
		{
			name: "failure with skip fallback fails the product",
			predict: func(context.Context, entity.PredictionFeatures) (float64, error) {
				return 0, errors.New("exit status 1")
			},
			fallback:  FallbackSkip,
			wantState: entity.StateFailed,
			wantErr:   domain.ErrPredictorFailure,
			wantFails: 1,
		},
		{
			name: "NaN is a failure",
			predict: func(context.Context, entity.PredictionFeatures) (float64, error) {
				return math.NaN(), nil
			},
			fallback:  FallbackSkip,
			wantState: entity.StateFailed,
			wantErr:   domain.ErrPredictorFailure,
			wantFails: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(product(1, 80, 72.5))
			pred := &mockPredictor{PredictFunc: tt.predict}
			o := f.orchestrator(pred, OrchestratorConfig{UsePredictor: true, PredictorFallback: tt.fallback})

			out, err := o.OptimizeOne(context.Background(), 1)
			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, 1, pred.calls)
			assert.Equal(t, int64(1), pred.last.ProductID)
			assert.Equal(t, 80.0, pred.last.CurrentPrice)
			assert.Equal(t, tt.wantFails, f.metrics.predictorFailures)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.catalog.UpdatePriceHit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, out.Decision.ClampedPrice)
			assert.Equal(t, tt.wantSource, out.Decision.Source)
		})
	}
}

// TestOrchestrator_PredictorDisabled は予測器がない場合にルールで価格が決まることを検証します。
func TestOrchestrator_PredictorDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	pred := &mockPredictor{PredictFunc: func(context.Context, entity.PredictionFeatures) (float64, error) {
		return 85, nil
	}}
	o := f.orchestrator(pred, OrchestratorConfig{UsePredictor: false})

	out, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, pred.calls)
	assert.Equal(t, entity.SourceRules, out.Decision.Source)
}

// TestOrchestrator_Preview はPreview が何も書き込まずに決定を返すことを検証します。
func TestOrchestrator_Preview(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	o := f.orchestrator(nil, OrchestratorConfig{})

	out, err := o.Preview(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, entity.StateDeciding, out.State)
	require.NotNil(t, out.Decision)
	assert.Equal(t, 96.0, out.Decision.ClampedPrice)
	assert.False(t, out.Decision.Applied)
	assert.NotNil(t, out.Market)
	assert.NotNil(t, out.Snapshot)

	assert.Zero(t, f.catalog.UpdatePriceHit)
	assert.Zero(t, f.catalog.markOptimized)
	assert.Zero(t, f.history.Len())
	assert.Empty(t, f.sink.decisions)
	assert.Empty(t, f.analyses.market)
}

// TestOrchestrator_OptimizeBatch は1商品の失敗でバッチが止まらないことを検証します。
func TestOrchestrator_OptimizeBatch(t *testing.T) {
	t.Parallel()

	notDue := product(5, 80, 72.5)
	justNow := time.Now()
	notDue.LastOptimizedAt = &justNow

	invalid := product(4, 80, 72.5)
	invalid.Policy.MinMarkupPct = 60

	disabled := product(6, 80, 72.5)
	disabled.Policy.Enabled = false

	f := newFixture(
		product(1, 80, 72.5),
		product(2, 80, 72.5),
		product(3, 100, 72.5),
		invalid,
		notDue,
		disabled,
	)
	f.snaps.err[2] = ErrDB
	o := f.orchestrator(nil, OrchestratorConfig{})

	res, err := o.OptimizeBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Eligible)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Errors, 2)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))

	assert.Equal(t, 1, f.snaps.clearAlls)
	assert.Equal(t, 1, f.metrics.batches)
	assert.Equal(t, []float64{96}, f.catalog.updates)
}

// TestOrchestrator_OptimizeBatch_ListError はカタログの一覧取得に失敗するとバッチがエラーになることを検証します。
func TestOrchestrator_OptimizeBatch_ListError(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.catalog.ListErr = ErrDB
	o := f.orchestrator(nil, OrchestratorConfig{})

	_, err := o.OptimizeBatch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDB)
}

// TestOrchestrator_OptimizeBatch_Concurrent は複数商品のバッチがすべて適用され、履歴と送信先に残ることを検証します。
func TestOrchestrator_OptimizeBatch_Concurrent(t *testing.T) {
	t.Parallel()

	var ps []entity.Product
	for id := int64(1); id <= 8; id++ {
		ps = append(ps, product(id, 80, 72.5))
	}
	f := newFixture(ps...)
	f.snaps.delay = 5 * time.Millisecond
	o := f.orchestrator(nil, OrchestratorConfig{BatchConcurrency: 3})

	res, err := o.OptimizeBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, res.Applied)
	assert.Equal(t, 8, f.history.Len())
	assert.Len(t, f.sink.decisions, 8)
}

// TestOrchestrator_SameProductNeverOverlaps は同じ商品の決定が同時に実行されないことを検証します。
func TestOrchestrator_SameProductNeverOverlaps(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	f.snaps.delay = 10 * time.Millisecond
	o := f.orchestrator(nil, OrchestratorConfig{})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.OptimizeOne(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f.snaps.mu.Lock()
	defer f.snaps.mu.Unlock()
	assert.False(t, f.snaps.overlapped)
	assert.Equal(t, 5, f.snaps.collects)
}

// TestOrchestrator_ConcurrentCallsChainPrices は同一商品への同時呼び出しが直前の確定価格から判断することを検証します。
func TestOrchestrator_ConcurrentCallsChainPrices(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	f.snaps.delay = 5 * time.Millisecond
	o := f.orchestrator(nil, OrchestratorConfig{})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.OptimizeOne(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 80 -> 96 (stability cap) -> 100 (base price), then nothing left to change
	assert.Equal(t, []float64{96, 100}, f.catalog.updates)

	recent := o.History(0)
	require.Len(t, recent, 5)
	for i := len(recent) - 2; i >= 0; i-- {
		prev, cur := recent[i+1], recent[i]
		assert.Equal(t, prev.ClampedPrice, cur.OldPrice, "decision %s started from a stale price", cur.ID)
	}
	applied := 0
	for _, d := range recent {
		if d.Applied {
			applied++
		}
	}
	assert.Equal(t, 2, applied)
}

// staleListCatalog は後から書き込まれる前の状態で商品を一覧します。
type staleListCatalog struct {
	*mockCatalog
	listed []entity.Product
}

func (s *staleListCatalog) ListEnabled(context.Context) ([]entity.Product, error) {
	return s.listed, nil
}

// TestOrchestrator_OptimizeBatch_SkipsProductOptimizedAfterListing は一覧取得後に最適化された商品をバッチがスキップすることを検証します。
func TestOrchestrator_OptimizeBatch_SkipsProductOptimizedAfterListing(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5))
	catalog := &staleListCatalog{mockCatalog: f.catalog, listed: []entity.Product{product(1, 80, 72.5)}}
	o := NewOrchestrator(OrchestratorDeps{
		Catalog:     catalog,
		Aggregator:  f.snaps,
		Competitors: f.comp,
		History:     f.history,
		Metrics:     f.metrics,
	}, OrchestratorConfig{})

	first, err := o.OptimizeOne(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateApplied, first.State)

	res, err := o.OptimizeBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Eligible)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []float64{96}, f.catalog.updates)
	assert.Equal(t, 1, f.history.Len())
}

// TestOrchestrator_OptimizeProducts は指定した商品だけが更新間隔にかかわらず処理されることを検証します。
func TestOrchestrator_OptimizeProducts(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5), product(2, 100, 72.5))
	o := f.orchestrator(nil, OrchestratorConfig{})

	res := o.OptimizeProducts(context.Background(), []int64{1, 2, 99})

	assert.Equal(t, 3, res.Eligible)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "product 99")
}

// TestOrchestrator_RefreshCompetitors は有効な全商品の競合価格が再取得され、失敗が数えられることを検証します。
func TestOrchestrator_RefreshCompetitors(t *testing.T) {
	t.Parallel()

	f := newFixture(product(1, 80, 72.5), product(2, 80, 72.5), product(3, 80, 72.5))
	f.comp.RefreshFunc = func(_ context.Context, id int64) ([]entity.CompetitorObservation, error) {
		if id == 2 {
			return nil, ErrDB
		}
		return nil, nil
	}
	o := f.orchestrator(nil, OrchestratorConfig{})

	res, err := o.RefreshCompetitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Products)
	assert.Equal(t, 2, res.Refreshed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, f.comp.RefreshCalls)
	assert.Equal(t, 2, f.snaps.clears)
}
