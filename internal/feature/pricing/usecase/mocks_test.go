package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
)

var ErrDB = errors.New("database error")

func intPtr(v int) *int { return &v }

// mockFetcher は CompetitorFetcher のモック実装です。並行に使えます。
type mockFetcher struct {
	FetchPriceFunc func(ctx context.Context, source string) (entity.CompetitorObservation, error)
	calls          atomic.Int32
}

func (m *mockFetcher) FetchPrice(ctx context.Context, source string) (entity.CompetitorObservation, error) {
	m.calls.Add(1)
	if m.FetchPriceFunc != nil {
		return m.FetchPriceFunc(ctx, source)
	}
	return entity.CompetitorObservation{}, errors.New("FetchPriceFunc is not implemented")
}

// memStore はメモリ上の ObservationStore です。
type memStore struct {
	mu      sync.Mutex
	data    map[int64][]entity.CompetitorObservation
	lastTTL time.Duration
	saves   int
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[int64][]entity.CompetitorObservation{}}
}

func (s *memStore) Load(_ context.Context, id int64) ([]entity.CompetitorObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.data[id], nil
}

func (s *memStore) Save(_ context.Context, id int64, obs []entity.CompetitorObservation, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = obs
	s.lastTTL = ttl
	s.saves++
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// mockSources は CompetitorSourceRepository のモック実装です。
type mockSources struct {
	ListSourcesFunc func(ctx context.Context, productID int64) ([]string, error)
	added           []string
	removed         []string
}

func (m *mockSources) ListSources(ctx context.Context, productID int64) ([]string, error) {
	if m.ListSourcesFunc != nil {
		return m.ListSourcesFunc(ctx, productID)
	}
	return nil, nil
}

func (m *mockSources) AddSource(_ context.Context, _ int64, url string) error {
	m.added = append(m.added, url)
	return nil
}

func (m *mockSources) RemoveSource(_ context.Context, _ int64, url string) error {
	m.removed = append(m.removed, url)
	return nil
}

// mockRecorder は CompetitorPriceRecorder のモック実装です。
type mockRecorder struct {
	recorded [][]entity.CompetitorObservation
}

func (m *mockRecorder) RecordObservations(_ context.Context, _ int64, obs []entity.CompetitorObservation) error {
	m.recorded = append(m.recorded, obs)
	return nil
}

// mockCatalog はメモリ上の CatalogRepository です。
type mockCatalog struct {
	mu             sync.Mutex
	products       map[int64]entity.Product
	ListErr        error
	UpdateErr      error
	updates        []float64
	markOptimized  int
	FindByIDCalls  int
	UpdatePriceHit int
}

func newMockCatalog(ps ...entity.Product) *mockCatalog {
	m := &mockCatalog{products: map[int64]entity.Product{}}
	for _, p := range ps {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) FindByID(_ context.Context, id int64) (entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindByIDCalls++
	p, ok := m.products[id]
	if !ok {
		return entity.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) ListEnabled(_ context.Context) ([]entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]entity.Product, 0, len(m.products))
	for id := int64(1); id <= int64(len(m.products)); id++ {
		if p, ok := m.products[id]; ok && p.Policy.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) UpdatePrice(_ context.Context, id int64, price float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdatePriceHit++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	p := m.products[id]
	p.Price = price
	p.LastOptimizedAt = &at
	m.products[id] = p
	m.updates = append(m.updates, price)
	return nil
}

func (m *mockCatalog) MarkOptimized(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.LastOptimizedAt = &at
	m.products[id] = p
	m.markOptimized++
	return nil
}

// mockSales は SalesRepository のモック実装です。
type mockSales struct {
	DailySalesFunc func(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailySales, error)
	calls          int
}

func (m *mockSales) DailySales(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailySales, error) {
	m.calls++
	if m.DailySalesFunc != nil {
		return m.DailySalesFunc(ctx, productID, from, to)
	}
	return nil, nil
}

// mockDemand は DemandRepository のモック実装です。
type mockDemand struct {
	DailyDemandFunc func(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailyDemand, error)
}

func (m *mockDemand) DailyDemand(ctx context.Context, productID int64, from, to time.Time) ([]entity.DailyDemand, error) {
	if m.DailyDemandFunc != nil {
		return m.DailyDemandFunc(ctx, productID, from, to)
	}
	return nil, nil
}

// mockPrices は PriceHistoryRepository のモック実装です。
type mockPrices struct {
	mu       sync.Mutex
	recent   []float64
	appended []float64
}

func (m *mockPrices) RecentPrices(_ context.Context, _ int64, limit int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *mockPrices) AppendPrice(_ context.Context, _ int64, price float64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, price)
	return nil
}

// mockCompetitors は CompetitorProvider と CompetitorRefresher のモックです。
type mockCompetitors struct {
	GetFunc      func(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
	RefreshFunc  func(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error)
	GetCalls     int
	RefreshCalls int
}

func (m *mockCompetitors) Get(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error) {
	m.GetCalls++
	if m.GetFunc != nil {
		return m.GetFunc(ctx, productID)
	}
	return nil, nil
}

func (m *mockCompetitors) Refresh(ctx context.Context, productID int64) ([]entity.CompetitorObservation, error) {
	m.RefreshCalls++
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, productID)
	}
	return nil, nil
}

// stubSnapshotter は商品ごとに固定のスナップショットを返します。
type stubSnapshotter struct {
	mu         sync.Mutex
	snapshots  map[int64]entity.MarketSnapshot
	err        map[int64]error
	collects   int
	clears     int
	clearAlls  int
	inFlight   map[int64]int
	overlapped bool
	delay      time.Duration
}

func newStubSnapshotter() *stubSnapshotter {
	return &stubSnapshotter{
		snapshots: map[int64]entity.MarketSnapshot{},
		err:       map[int64]error{},
		inFlight:  map[int64]int{},
	}
}

func (s *stubSnapshotter) Collect(_ context.Context, p entity.Product) (entity.MarketSnapshot, error) {
	s.mu.Lock()
	s.collects++
	s.inFlight[p.ID]++
	if s.inFlight[p.ID] > 1 {
		s.overlapped = true
	}
	snap, ok := s.snapshots[p.ID]
	err := s.err[p.ID]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.inFlight[p.ID]--
	s.mu.Unlock()

	if err != nil {
		return entity.MarketSnapshot{}, err
	}
	if !ok {
		snap = entity.MarketSnapshot{ProductID: p.ID}
	}
	return snap, nil
}

func (s *stubSnapshotter) Clear(int64) {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
}

func (s *stubSnapshotter) ClearAll() {
	s.mu.Lock()
	s.clearAlls++
	s.mu.Unlock()
}

// mockPredictor は Predictor のモック実装です。
type mockPredictor struct {
	PredictFunc func(ctx context.Context, f entity.PredictionFeatures) (float64, error)
	calls       int
	last        entity.PredictionFeatures
}

func (m *mockPredictor) Predict(ctx context.Context, f entity.PredictionFeatures) (float64, error) {
	m.calls++
	m.last = f
	return m.PredictFunc(ctx, f)
}

// mockSink は公開された決定を記録します。
type mockSink struct {
	mu        sync.Mutex
	decisions []entity.PriceDecision
	err       error
}

func (m *mockSink) Publish(_ context.Context, d entity.PriceDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return m.err
}

// mockAnalyses は分析行を記録します。
type mockAnalyses struct {
	market []entity.MarketAnalysis
	risk   []entity.RiskScore
}

func (m *mockAnalyses) RecordMarketAnalysis(_ context.Context, ma entity.MarketAnalysis) error {
	m.market = append(m.market, ma)
	return nil
}

func (m *mockAnalyses) RecordRiskAnalysis(_ context.Context, _ int64, _ time.Time, s entity.RiskScore) error {
	m.risk = append(m.risk, s)
	return nil
}
