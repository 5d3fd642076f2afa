package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	trades []TradeRecord
	ops    []BalanceOp
	nextID int64
	nextOp int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, nextOp: 1}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) InsertTrade(_ context.Context, t TradeRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.nextID
	m.nextID++
	m.trades = append(m.trades, t)
	return t.ID, nil
}

func (m *MemoryStore) QueryTrades(_ context.Context, f TradeFilter) ([]TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []TradeRecord
	for _, t := range m.trades {
		if matchTrade(t, f) {
			out = append(out, t)
		}
	}
	sortTrades(out)
	if f.Newest {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchTrade(t TradeRecord, f TradeFilter) bool {
	switch {
	case f.ID != 0 && t.ID != f.ID:
		return false
	case f.Symbol != "" && t.Symbol != f.Symbol:
		return false
	case f.Side != "" && t.Side != f.Side:
		return false
	case !f.CloseTime.IsZero() && !t.CloseTime.Equal(f.CloseTime):
		return false
	case !f.From.IsZero() && t.CloseTime.Before(f.From):
		return false
	case !f.To.IsZero() && !t.CloseTime.Before(f.To):
		return false
	}
	return true
}

func sortTrades(ts []TradeRecord) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].CloseTime.Equal(ts[j].CloseTime) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].CloseTime.Before(ts[j].CloseTime)
	})
}

func (m *MemoryStore) DeleteTrade(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.trades {
		if t.ID == id {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ClearTrades(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades = nil
	m.nextID = 1
	return nil
}

func (m *MemoryStore) Reindex(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sortTrades(m.trades)
	for i := range m.trades {
		m.trades[i].ID = int64(i + 1)
	}
	m.nextID = int64(len(m.trades) + 1)
	return nil
}

func (m *MemoryStore) InsertBalanceOp(_ context.Context, op BalanceOp) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	op.ID = m.nextOp
	m.nextOp++
	m.ops = append(m.ops, op)
	return op.ID, nil
}

func (m *MemoryStore) QueryBalanceOps(_ context.Context, f BalanceFilter) ([]BalanceOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []BalanceOp
	for _, op := range m.ops {
		if f.Operator != "" && op.Operator != f.Operator {
			continue
		}
		if f.Kind != "" && op.Kind != f.Kind {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
