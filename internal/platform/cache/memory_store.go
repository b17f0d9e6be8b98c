package cache

import (
	"context"
	"sync"
	"time"

	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

var _ usecase.ObservationStore = (*MemoryObservationStore)(nil)

// MemoryObservationStore は Redis 未設定時に使うプロセス内ストアです。
// エントリは1プロセス内でのみ共有されます。
type MemoryObservationStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	obs       []entity.CompetitorObservation
	expiresAt time.Time
}

// NewMemoryObservationStore は空の MemoryObservationStore を生成します。
func NewMemoryObservationStore() *MemoryObservationStore {
	return &MemoryObservationStore{
		entries: make(map[int64]memoryEntry),
		now:     time.Now,
	}
}

// Load はキャッシュ済みの集合を返します。存在しないか期限切れなら nil です。
func (s *MemoryObservationStore) Load(_ context.Context, productID int64) ([]entity.CompetitorObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[productID]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, productID)
		return nil, nil
	}
	out := make([]entity.CompetitorObservation, len(e.obs))
	copy(out, e.obs)
	return out, nil
}

// Save はキャッシュを置き換えます。ttl <= 0 なら期限切れになりません。
func (s *MemoryObservationStore) Save(_ context.Context, productID int64, obs []entity.CompetitorObservation, ttl time.Duration) error {
	cp := make([]entity.CompetitorObservation, len(obs))
	copy(cp, obs)

	e := memoryEntry{obs: cp}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[productID] = e
	s.mu.Unlock()
	return nil
}

// Delete はキャッシュを破棄します。
func (s *MemoryObservationStore) Delete(_ context.Context, productID int64) error {
	s.mu.Lock()
	delete(s.entries, productID)
	s.mu.Unlock()
	return nil
}

// Flush はすべてのキャッシュを破棄します。
func (s *MemoryObservationStore) Flush(context.Context) error {
	s.mu.Lock()
	s.entries = make(map[int64]memoryEntry)
	s.mu.Unlock()
	return nil
}
