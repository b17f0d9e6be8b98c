// Package metrics はエンジンの計測値を Prometheus に公開します。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

const namespace = "price_optimizer"

// Metrics は専用レジストリ上のエンジンのコレクタをまとめたものです。
type Metrics struct {
	registry *prometheus.Registry

	// 決定
	Outcomes          *prometheus.CounterVec
	PredictorFailures prometheus.Counter

	// バッチ
	BatchRuns       prometheus.Counter
	BatchProducts   *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
	LastBatchFinish prometheus.Gauge

	// 競合価格
	CompetitorFetches       *prometheus.CounterVec
	CompetitorFetchDuration prometheus.Histogram
}

var _ usecase.Metrics = (*Metrics)(nil)

// New は新しいレジストリに Go ランタイムとプロセスのコレクタと一緒に登録した Metrics を生成します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "outcomes_total",
			Help:      "Finished decisions by terminal state",
		}, []string{"state"}),
		PredictorFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "predictor_failures_total",
			Help:      "External predictor calls that failed or returned an unusable price",
		}),

		BatchRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Completed batch cycles",
		}),
		BatchProducts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "products_total",
			Help:      "Products handled by batch cycles by result",
		}, []string{"result"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall time of a batch cycle",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}),
		LastBatchFinish: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "last_finished_timestamp_seconds",
			Help:      "Unix time the last batch cycle finished",
		}),

		CompetitorFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "competitor",
			Name:      "fetches_total",
			Help:      "Competitor price fetches by observation status",
		}, []string{"status"}),
		CompetitorFetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "competitor",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of competitor price fetches",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler はこのレジストリの /metrics ハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveOutcome(state entity.OptimizationState) {
	m.Outcomes.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) ObserveBatch(res entity.BatchResult) {
	m.BatchRuns.Inc()
	m.BatchProducts.WithLabelValues("eligible").Add(float64(res.Eligible))
	m.BatchProducts.WithLabelValues("applied").Add(float64(res.Applied))
	m.BatchProducts.WithLabelValues("skipped").Add(float64(res.Skipped))
	m.BatchProducts.WithLabelValues("failed").Add(float64(res.Failed))
	if !res.FinishedAt.IsZero() {
		m.BatchDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
		m.LastBatchFinish.Set(float64(res.FinishedAt.Unix()))
	}
}

func (m *Metrics) ObserveCompetitorFetch(status entity.ObservationStatus, d time.Duration) {
	m.CompetitorFetches.WithLabelValues(string(status)).Inc()
	m.CompetitorFetchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObservePredictorFailure() {
	m.PredictorFailures.Inc()
}
