package usecase

import (
	"sync"

	"price_optimizer/internal/feature/pricing/domain/entity"
)

// DefaultHistorySize はメモリに保持する決定の件数です。
const DefaultHistorySize = 100

// DecisionHistory は直近の決定を保持する固定長のリングです。
// バッチと対話的な実行で共有するため、アクセスはすべて mu を通します。
type DecisionHistory struct {
	mu   sync.Mutex
	buf  []entity.PriceDecision
	next int
	size int
}

// NewDecisionHistory は最大 capacity 件を保持する DecisionHistory を生成します。
func NewDecisionHistory(capacity int) *DecisionHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &DecisionHistory{buf: make([]entity.PriceDecision, capacity)}
}

// Append は d を記録します。満杯なら最も古いエントリを捨てます。
func (h *DecisionHistory) Append(d entity.PriceDecision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = d
	h.next = (h.next + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Recent は最大 n 件の決定を新しい順に返します。n <= 0 なら全件を返します。
func (h *DecisionHistory) Recent(n int) []entity.PriceDecision {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]entity.PriceDecision, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

// Len は保持している決定の件数を返します。
func (h *DecisionHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// productLocks は商品 ID ごとに決定を直列化します。
// 保持者も待機者もいなくなったエントリは削除します。
type productLocks struct {
	mu    sync.Mutex
	locks map[int64]*productLock
}

type productLock struct {
	sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[int64]*productLock)}
}

// lock は id が空くまで待ち、解放関数を返します。
func (p *productLocks) lock(id int64) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &productLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}
