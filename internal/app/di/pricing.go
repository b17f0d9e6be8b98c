package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"price_optimizer/internal/feature/pricing/adapters"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/domain/rules"
	"price_optimizer/internal/feature/pricing/usecase"
	"price_optimizer/internal/platform/config"
	"price_optimizer/internal/platform/events"
	"price_optimizer/internal/platform/metrics"
)

// Pricing は組み立て済みの価格最適化機能です。
type Pricing struct {
	Orchestrator *usecase.Orchestrator
	Competitors  *usecase.CompetitorPriceCache
	Events       *usecase.EventUsecase
	Catalog      usecase.CatalogRepository
	Observations FlushableStore
	Audit        *adapters.DecisionAuditRepository
	Metrics      *metrics.Metrics
	Publisher    *events.DecisionPublisher // Kafka なしなら nil
}

// FlushableStore は全エントリを破棄できる観測値ストアです。
type FlushableStore interface {
	usecase.ObservationStore
	Flush(ctx context.Context) error
}

// NewPricing は cfg からリポジトリ、競合キャッシュ、アグリゲータ、
// オーケストレータを組み立てます。rdb は nil でも構いません。
func NewPricing(ctx context.Context, cfg config.Config, db *gorm.DB, rdb *redis.Client) (*Pricing, error) {
	m := metrics.New()
	loc := cfg.Location()

	// Repository
	catalog := adapters.NewCatalogRepository(db, entity.OptimizationPolicy{
		MinMarkupPct:   cfg.DefaultPolicy.MinMarkupPct,
		MaxMarkupPct:   cfg.DefaultPolicy.MaxMarkupPct,
		UpdateInterval: cfg.DefaultPolicy.UpdateInterval,
	})
	competitorRepo := adapters.NewCompetitorRepository(db)
	behavior := adapters.NewBehaviorRepository(db)
	prices := adapters.NewPriceHistoryRepository(db)
	analyses := adapters.NewAnalysisRepository(db)
	audit := adapters.NewDecisionAuditRepository(db, cfg.AuditLimit)

	// 競合価格キャッシュ
	store := NewObservationStore(rdb)
	competitors := usecase.NewCompetitorPriceCache(
		NewCompetitorFetcher(cfg.Competitors),
		store,
		competitorRepo,
		competitorRepo,
		usecase.CacheConfig{
			Window:         cfg.Competitors.FreshnessWindow,
			FetchTimeout:   cfg.Competitors.FetchTimeout,
			MaxConcurrency: cfg.Competitors.FetchConcurrency,
			GlobalSources:  cfg.Competitors.Sources,
		},
	).WithMetrics(m)

	aggCfg := usecase.DefaultAggregatorConfig()
	aggCfg.Holidays = rules.NewHolidaySet(cfg.Holidays)
	aggCfg.Location = loc
	aggregator := usecase.NewMarketAggregator(competitors, behavior, behavior, prices, aggCfg)

	pred, err := NewPredictor(ctx, cfg.Predictor)
	if err != nil {
		return nil, fmt.Errorf("create predictor: %w", err)
	}

	sinks := []usecase.DecisionSink{audit}
	var publisher *events.DecisionPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewDecisionPublisher(cfg.Kafka.Brokers, cfg.Kafka.DecisionTopic)
		sinks = append(sinks, publisher)
	} else {
		slog.Info("kafka not configured, decisions are not published")
	}

	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Catalog:     catalog,
		Aggregator:  aggregator,
		Competitors: competitors,
		Predictor:   pred,
		Analyses:    analyses,
		Prices:      prices,
		History:     usecase.NewDecisionHistory(cfg.HistorySize),
		Sinks:       sinks,
		Metrics:     m,
	}, usecase.OrchestratorConfig{
		Weights:            cfg.Weights,
		Model:              cfg.Model,
		Risk:               cfg.Risk,
		MinChangeThreshold: cfg.MinChangeThreshold,
		UsePredictor:       pred != nil,
		PredictorFallback:  usecase.PredictorFallback(cfg.Predictor.Fallback),
		BatchConcurrency:   cfg.BatchConcurrency,
	})

	return &Pricing{
		Orchestrator: orch,
		Competitors:  competitors,
		Events:       usecase.NewEventUsecase(behavior, catalog, orch, cfg.LowStockTrigger, loc),
		Catalog:      catalog,
		Observations: store,
		Audit:        audit,
		Metrics:      m,
		Publisher:    publisher,
	}, nil
}

// Close は Kafka ライターを解放します。
func (p *Pricing) Close() error {
	var errs []error
	if p.Publisher != nil {
		errs = append(errs, p.Publisher.Close())
	}
	return errors.Join(errs...)
}
