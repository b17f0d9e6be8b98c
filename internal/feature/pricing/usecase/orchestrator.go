package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/domain/rules"
)

// PredictorFallback は予測器が失敗したときの扱いを決めます。
type PredictorFallback string

const (
	// FallbackRules は代わりに調整モデルで価格を決めます。
	FallbackRules PredictorFallback = "rules"
	// FallbackSkip はそのサイクルの商品を失敗扱いにします。
	FallbackSkip PredictorFallback = "skip"
)

// Snapshotter は実行単位のメモ付きで市場スナップショットを組み立てます。
type Snapshotter interface {
	Collect(ctx context.Context, p entity.Product) (entity.MarketSnapshot, error)
	Clear(productID int64)
	ClearAll()
}

// CompetitorRefresher は1商品の競合価格を強制的に再取得します。
type CompetitorRefresher interface {
	Refresh(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
}

// OrchestratorConfig はエンジンの設定です。ここに来る前に設定層で検証済みです。
type OrchestratorConfig struct {
	Weights            entity.Weights
	Model              entity.ModelConfig
	Risk               rules.RiskConfig
	MinChangeThreshold float64
	UsePredictor       bool
	PredictorFallback  PredictorFallback
	BatchConcurrency   int
}

// OrchestratorDeps は Orchestrator の協調オブジェクトです。
// Predictor、Analyses、Prices、Sinks、Metrics は省略できます。
type OrchestratorDeps struct {
	Catalog     CatalogRepository
	Aggregator  Snapshotter
	Competitors CompetitorRefresher
	Predictor   Predictor
	Analyses    AnalysisRecorder
	Prices      PriceHistoryRepository
	History     *DecisionHistory
	Sinks       []DecisionSink
	Metrics     Metrics
}

// RefreshResult は競合価格の再取得1サイクルの集計です。
type RefreshResult struct {
	Products  int
	Refreshed int
	Failed    int
	Errors    []string
}

// Orchestrator は商品を次の状態に沿って進めます。
// Idle → Aggregating → Pricing → Clamping → RiskChecking → Deciding → {Applied|Skipped|Failed}
type Orchestrator struct {
	deps  OrchestratorDeps
	cfg   OrchestratorConfig
	model *rules.AdjustmentModel
	risk  *rules.RiskAssessor
	locks *productLocks
	now   func() time.Time
}

// NewOrchestrator は Orchestrator を生成します。
func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	if deps.History == nil {
		deps.History = NewDecisionHistory(DefaultHistorySize)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if cfg.PredictorFallback == "" {
		cfg.PredictorFallback = FallbackRules
	}
	if cfg.Weights == (entity.Weights{}) {
		cfg.Weights = entity.DefaultWeights()
	}
	model := rules.NewAdjustmentModel(cfg.Model)
	cfg.Model = model.Config()
	return &Orchestrator{
		deps:  deps,
		cfg:   cfg,
		model: model,
		risk:  rules.NewRiskAssessor(cfg.Risk),
		locks: newProductLocks(),
		now:   time.Now,
	}
}

// OptimizeOne は1商品の決定をすべて実行します。
// 戻り値のエラーは結果の状態が Failed のときに限り nil 以外になります。
func (o *Orchestrator) OptimizeOne(ctx context.Context, productID int64) (entity.Outcome, error) {
	return o.optimize(ctx, productID, runOptions{fresh: true})
}

// Preview は何も書き込まずに Deciding までステートマシンを実行します。
func (o *Orchestrator) Preview(ctx context.Context, productID int64) (entity.Outcome, error) {
	return o.optimize(ctx, productID, runOptions{fresh: true, dryRun: true})
}

// OptimizeBatch は更新間隔が経過した有効な全商品を最適化します。
// 商品単位の失敗は件数に数えるだけでバッチは止めません。
// エラーを返すのはカタログの一覧取得に失敗したときだけです。
func (o *Orchestrator) OptimizeBatch(ctx context.Context) (entity.BatchResult, error) {
	products, err := o.deps.Catalog.ListEnabled(ctx)
	if err != nil {
		return entity.BatchResult{}, fmt.Errorf("list enabled products: %w", err)
	}
	now := o.now()
	due := make([]entity.Product, 0, len(products))
	for _, p := range products {
		if p.DueForOptimization(now) {
			due = append(due, p)
		}
	}
	return o.runBatch(ctx, due, nil, runOptions{requireDue: true}), nil
}

// OptimizeProducts は明示された ID 一覧でバッチのループを実行します。更新間隔は無視します。
func (o *Orchestrator) OptimizeProducts(ctx context.Context, ids []int64) entity.BatchResult {
	products := make([]entity.Product, 0, len(ids))
	var lookupErrs []string
	for _, id := range ids {
		p, err := o.deps.Catalog.FindByID(ctx, id)
		if err != nil {
			slog.Error("failed to load product", "product_id", id, "error", err)
			lookupErrs = append(lookupErrs, fmt.Sprintf("product %d: %v", id, err))
			continue
		}
		products = append(products, p)
	}
	return o.runBatch(ctx, products, lookupErrs, runOptions{})
}

// RefreshCompetitors は有効な全商品の競合価格を強制的に再取得します。
func (o *Orchestrator) RefreshCompetitors(ctx context.Context) (RefreshResult, error) {
	products, err := o.deps.Catalog.ListEnabled(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list enabled products: %w", err)
	}
	res := RefreshResult{Products: len(products)}
	for _, p := range products {
		if _, err := o.deps.Competitors.Refresh(ctx, p.ID); err != nil {
			// 1つの商品で失敗しても次の商品へ進む
			slog.Error("failed to refresh competitor prices", "product_id", p.ID, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("product %d: %v", p.ID, err))
			continue
		}
		o.deps.Aggregator.Clear(p.ID)
		res.Refreshed++
	}
	slog.Info("competitor refresh finished", "products", res.Products, "refreshed", res.Refreshed, "failed", res.Failed)
	return res, nil
}

// History は直近の決定を新しい順に最大 n 件返します。
func (o *Orchestrator) History(n int) []entity.PriceDecision {
	return o.deps.History.Recent(n)
}

func (o *Orchestrator) runBatch(ctx context.Context, products []entity.Product, lookupErrs []string, opts runOptions) entity.BatchResult {
	res := entity.BatchResult{
		StartedAt: o.now(),
		Eligible:  len(products) + len(lookupErrs),
		Failed:    len(lookupErrs),
		Errors:    lookupErrs,
	}
	o.deps.Aggregator.ClearAll()

	valid := make([]entity.Product, 0, len(products))
	var invalid []int64
	for _, p := range products {
		if err := rules.ValidatePolicy(p.Policy); err != nil {
			invalid = append(invalid, p.ID)
			continue
		}
		valid = append(valid, p)
	}
	if len(invalid) > 0 {
		// 商品ごとではなくサイクルごとに1回だけ報告する
		slog.Error("invalid markup policy, products excluded from this cycle", "product_ids", invalid, "error", domain.ErrConstraintViolation)
		res.Failed += len(invalid)
		res.Errors = append(res.Errors, fmt.Sprintf("%v: products %v", domain.ErrConstraintViolation, invalid))
	}

	var mu sync.Mutex
	record := func(out entity.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch out.State {
		case entity.StateApplied:
			res.Applied++
		case entity.StateSkipped:
			res.Skipped++
		default:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("product %d: %v", out.ProductID, out.Err))
		}
	}

	if o.cfg.BatchConcurrency <= 1 {
		for _, p := range valid {
			out, _ := o.optimize(ctx, p.ID, opts)
			record(out)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.cfg.BatchConcurrency)
		for _, p := range valid {
			g.Go(func() error {
				out, _ := o.optimize(ctx, p.ID, opts)
				record(out)
				return nil
			})
		}
		_ = g.Wait()
	}

	res.FinishedAt = o.now()
	o.deps.Metrics.ObserveBatch(res)
	slog.Info("optimization batch finished",
		"eligible", res.Eligible,
		"applied", res.Applied,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res
}

// runOptions はステートマシン1回分の動作を指定します。
type runOptions struct {
	dryRun     bool // Deciding で止め、何も書き込まない
	fresh      bool // 先に保持済みスナップショットを破棄する
	requireDue bool // バッチの一覧取得後に最適化された商品はスキップする
}

// optimize は商品ごとのステートマシンです。同じ商品 ID で同時に動くのは1つだけで、
// 商品はそのロックの内側で読み込みます。
func (o *Orchestrator) optimize(ctx context.Context, productID int64, opts runOptions) (entity.Outcome, error) {
	release := o.locks.lock(productID)
	defer release()

	out := entity.Outcome{ProductID: productID, State: entity.StateIdle}
	p, err := o.deps.Catalog.FindByID(ctx, productID)
	if err != nil {
		return o.fail(&out, err)
	}
	if err := rules.ValidatePolicy(p.Policy); err != nil {
		return o.fail(&out, err)
	}
	if opts.requireDue && !p.DueForOptimization(o.now()) {
		out.State = entity.StateSkipped
		out.Reason = "optimized since the batch started"
		return out, nil
	}
	if opts.fresh {
		o.deps.Aggregator.Clear(productID)
	}
	dryRun := opts.dryRun

	o.transition(&out, entity.StateAggregating)
	snap, err := o.deps.Aggregator.Collect(ctx, p)
	if err != nil {
		return o.fail(&out, fmt.Errorf("aggregate market data: %w", err))
	}
	out.Snapshot = &snap

	o.transition(&out, entity.StatePricing)
	candidate, source, err := o.price(ctx, p, snap, &out)
	if err != nil {
		return o.fail(&out, err)
	}

	o.transition(&out, entity.StateClamping)
	d := entity.PriceDecision{
		ID:             uuid.NewString(),
		ProductID:      p.ID,
		OldPrice:       p.Price,
		CandidatePrice: candidate,
		Source:         source,
		Timestamp:      o.now(),
	}
	if p.Cost <= 0 {
		// 原価がなければマークアップ幅もないので価格は変えない
		d.ClampedPrice = p.Price
		d.Reason = "missing unit cost"
		return o.settle(ctx, &out, entity.StateSkipped, d, dryRun)
	}
	clamped, err := rules.ClampToMarkup(candidate, p.Cost, p.Policy, o.cfg.Model.Precision)
	if err != nil {
		return o.fail(&out, err)
	}
	d.ClampedPrice = clamped
	d.ChangePct = changePct(p.Price, clamped)

	o.transition(&out, entity.StateRiskChecking)
	risk := o.risk.Assess(p.Price, clamped, snap)
	market := rules.AnalyzeMarket(p.Price, snap)
	out.Risk = &risk
	out.Market = &market
	if !dryRun {
		o.recordAnalyses(ctx, market, risk)
	}

	o.transition(&out, entity.StateDeciding)
	if !o.shouldApply(p.Price, clamped) {
		d.Reason = "price change below threshold"
		return o.settle(ctx, &out, entity.StateSkipped, d, dryRun)
	}
	return o.settle(ctx, &out, entity.StateApplied, d, dryRun)
}

// price は予測器またはルールから生の候補価格を得ます。
func (o *Orchestrator) price(ctx context.Context, p entity.Product, snap entity.MarketSnapshot, out *entity.Outcome) (float64, entity.PriceSource, error) {
	adj := o.model.Adjustments(p.Price, snap)
	out.Adjustments = &adj

	if o.cfg.UsePredictor && o.deps.Predictor != nil {
		v, err := o.deps.Predictor.Predict(ctx, o.features(p, snap))
		if err == nil && (v <= 0 || math.IsNaN(v) || math.IsInf(v, 0)) {
			err = fmt.Errorf("%w: unusable price %v", domain.ErrPredictorFailure, v)
		}
		if err == nil {
			return o.model.Stabilize(v, p.Price), entity.SourcePredictor, nil
		}
		if !errors.Is(err, domain.ErrPredictorFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrPredictorFailure, err)
		}
		o.deps.Metrics.ObservePredictorFailure()
		if o.cfg.PredictorFallback == FallbackSkip {
			return 0, "", err
		}
		slog.Warn("predictor failed, falling back to rules", "product_id", p.ID, "error", err)
	}
	return o.model.OptimalPrice(p.Price, p.Cost, snap, o.cfg.Weights), entity.SourceRules, nil
}

func (o *Orchestrator) features(p entity.Product, snap entity.MarketSnapshot) entity.PredictionFeatures {
	var cb entity.CustomerBehavior
	for _, d := range snap.Demand {
		cb.Views += d.Views
		cb.UniqueViews += d.UniqueViews
		cb.AddToCart += d.AddToCart
		cb.Purchases += d.Purchases
	}
	return entity.PredictionFeatures{
		ProductID:        p.ID,
		CurrentPrice:     p.Price,
		MarketAnalysis:   rules.AnalyzeMarket(p.Price, snap),
		RiskAnalysis:     o.risk.Score(p.Price, snap),
		CustomerBehavior: cb,
		CompetitorPrices: snap.Competitors,
	}
}

// shouldApply は相対変化量を閾値と比較します。価格が変わらない場合は書き込みません。
// 正の現在価格を持たない商品は、正の新価格なら必ず適用します。
func (o *Orchestrator) shouldApply(current, next float64) bool {
	if current <= 0 {
		return next > 0
	}
	delta := math.Abs(next - current)
	return delta > 0 && delta/current >= o.cfg.MinChangeThreshold
}

// settle はステートマシンを Skipped か Applied で終え、決定を記録します。
func (o *Orchestrator) settle(ctx context.Context, out *entity.Outcome, state entity.OptimizationState, d entity.PriceDecision, dryRun bool) (entity.Outcome, error) {
	if dryRun {
		if d.Reason == "" {
			d.Reason = "dry run"
		}
		out.Decision = &d
		out.Reason = d.Reason
		return *out, nil
	}

	if state == entity.StateApplied {
		if err := o.deps.Catalog.UpdatePrice(ctx, d.ProductID, d.ClampedPrice, d.Timestamp); err != nil {
			return o.fail(out, fmt.Errorf("%w: write price for product %d: %v", domain.ErrPersistence, d.ProductID, err))
		}
		d.Applied = true
		if o.deps.Prices != nil {
			if err := o.deps.Prices.AppendPrice(ctx, d.ProductID, d.ClampedPrice, d.Timestamp); err != nil {
				slog.Warn("failed to append price history", "product_id", d.ProductID, "error", err)
			}
		}
	} else if err := o.deps.Catalog.MarkOptimized(ctx, d.ProductID, d.Timestamp); err != nil {
		slog.Warn("failed to stamp last optimized time", "product_id", d.ProductID, "error", err)
	}

	o.transition(out, state)
	out.Decision = &d
	out.Reason = d.Reason
	o.deps.History.Append(d)
	for _, s := range o.deps.Sinks {
		if err := s.Publish(ctx, d); err != nil {
			slog.Warn("failed to publish price decision", "product_id", d.ProductID, "decision_id", d.ID, "error", err)
		}
	}
	o.deps.Metrics.ObserveOutcome(state)
	slog.Info("price decision",
		"product_id", d.ProductID,
		"state", state,
		"old_price", d.OldPrice,
		"new_price", d.ClampedPrice,
		"change_pct", d.ChangePct,
		"source", d.Source,
	)
	return *out, nil
}

func (o *Orchestrator) recordAnalyses(ctx context.Context, market entity.MarketAnalysis, risk entity.RiskReport) {
	if o.deps.Analyses == nil {
		return
	}
	if err := o.deps.Analyses.RecordMarketAnalysis(ctx, market); err != nil {
		slog.Warn("failed to record market analysis", "product_id", market.ProductID, "error", err)
	}
	if risk.Score != nil {
		if err := o.deps.Analyses.RecordRiskAnalysis(ctx, market.ProductID, market.Date, *risk.Score); err != nil {
			slog.Warn("failed to record risk analysis", "product_id", market.ProductID, "error", err)
		}
	}
}

func (o *Orchestrator) transition(out *entity.Outcome, to entity.OptimizationState) {
	slog.Debug("state transition", "product_id", out.ProductID, "from", out.State, "to", to)
	out.State = to
}

func (o *Orchestrator) fail(out *entity.Outcome, err error) (entity.Outcome, error) {
	slog.Error("failed to optimize product", "product_id", out.ProductID, "state", out.State, "error", err)
	out.State = entity.StateFailed
	out.Err = err
	out.Reason = err.Error()
	o.deps.Metrics.ObserveOutcome(entity.StateFailed)
	return *out, err
}

func changePct(current, next float64) float64 {
	if current <= 0 {
		return 0
	}
	return (next - current) / current * 100
}
