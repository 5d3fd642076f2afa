package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/tradebook/journal"
)

// Pending is a trade held for one requester.
type Pending struct {
	ID        string              `json:"id"`
	Requester string              `json:"requester"`
	Trade     journal.TradeRecord `json:"trade"`
	CreatedAt time.Time           `json:"created_at"`
}

// PendingStore keeps at most one Pending per requester.
type PendingStore interface {
	// Put stores p, replacing anything already held for p.Requester.
	Put(ctx context.Context, p Pending) error
	// Take removes and returns the requester's record.
	Take(ctx context.Context, requester string) (Pending, bool, error)
	Peek(ctx context.Context, requester string) (Pending, bool, error)
}

// MemoryStore is a process-local PendingStore. Entries older than ttl
// are treated as absent; a zero ttl keeps them until taken.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]Pending
	ttl   time.Duration
	now   func() time.Time
}

var _ PendingStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		slots: map[string]Pending{},
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, p Pending) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[p.Requester] = p
	return nil
}

func (m *MemoryStore) Take(_ context.Context, requester string) (Pending, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.live(requester)
	delete(m.slots, requester)
	return p, ok, nil
}

func (m *MemoryStore) Peek(_ context.Context, requester string) (Pending, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.live(requester)
	return p, ok, nil
}

func (m *MemoryStore) live(requester string) (Pending, bool) {
	p, ok := m.slots[requester]
	if !ok {
		return Pending{}, false
	}
	if m.ttl > 0 && m.now().Sub(p.CreatedAt) > m.ttl {
		delete(m.slots, requester)
		return Pending{}, false
	}
	return p, true
}
