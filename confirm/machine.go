package confirm

import (
	"context"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/metrics"
	"github.com/rustyeddy/tradebook/pkg/id"
)

// Machine drives trades through the confirmation states. It owns the
// pending slots; callers only see states and records.
type Machine struct {
	store PendingStore
	now   func() time.Time
}

func NewMachine(store PendingStore) *Machine {
	return &Machine{store: store, now: time.Now}
}

// Check moves a new trade on according to whether it collides with an
// existing one. A colliding trade is parked for requester.
func (m *Machine) Check(ctx context.Context, requester string, t journal.TradeRecord, collides bool) (State, Pending, error) {
	if !collides {
		next, err := Transition(New, NoCollision)
		return next, Pending{}, err
	}
	next, err := Transition(New, Collision)
	if err != nil {
		return New, Pending{}, err
	}
	p, err := m.Park(ctx, requester, t)
	return next, p, err
}

// Park holds t for requester. An earlier pending record for the same
// requester is replaced.
func (m *Machine) Park(ctx context.Context, requester string, t journal.TradeRecord) (Pending, error) {
	p := Pending{
		ID:        id.New(),
		Requester: requester,
		Trade:     t,
		CreatedAt: m.now(),
	}
	if prev, ok, err := m.store.Peek(ctx, requester); err == nil && ok {
		logger.Info(ctx, "replacing pending confirmation", "requester", requester, "previous", prev.ID)
	}
	if err := m.store.Put(ctx, p); err != nil {
		return Pending{}, err
	}
	logger.Info(ctx, "trade parked for confirmation", "requester", requester, "pending", p.ID, "symbol", t.Symbol)
	return p, nil
}

// Resolve applies the requester's decision. The slot is cleared whatever
// the decision; an absent or expired slot yields ErrNoPending.
func (m *Machine) Resolve(ctx context.Context, requester string, d Decision) (State, Pending, error) {
	p, ok, err := m.store.Take(ctx, requester)
	if err != nil {
		return DuplicateDetected, Pending{}, err
	}
	if !ok {
		metrics.Decisions.WithLabelValues("missing").Inc()
		return DuplicateDetected, Pending{}, ErrNoPending
	}
	next, err := Transition(DuplicateDetected, d.Event())
	if err != nil {
		return DuplicateDetected, p, err
	}
	metrics.Decisions.WithLabelValues(string(d)).Inc()
	logger.Info(ctx, "confirmation resolved", "requester", requester, "pending", p.ID, "state", next)
	return next, p, nil
}

// Pending returns the record held for requester, if any.
func (m *Machine) Pending(ctx context.Context, requester string) (Pending, bool, error) {
	return m.store.Peek(ctx, requester)
}
