package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rustyeddy/tradebook/confirm"
	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/metrics"
)

// Ledger is the single portfolio every submission is booked into.
type Ledger struct {
	store     journal.Store
	machine   *confirm.Machine
	rates     Rates
	tolerance float64
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Ledger)

func WithRates(r Rates) Option {
	return func(l *Ledger) { l.rates = r }
}

func WithTolerance(tol float64) Option {
	return func(l *Ledger) { l.tolerance = tol }
}

// WithLocation sets the zone calendar and settlement days are cut in.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store journal.Store, machine *confirm.Machine, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		machine:   machine,
		rates:     DefaultRates,
		tolerance: DefaultTolerance,
		loc:       time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Rates() Rates { return l.rates }

// Submission is a closed position as typed or extracted, before any
// derived amount is computed.
type Submission struct {
	Symbol string
	Side   market.Side
	Entry  float64
	Exit   float64
	Qty    float64
	// CloseTime defaults to the submission time when zero.
	CloseTime time.Time
}

// FromExtraction converts a screenshot result into a submission.
func FromExtraction(r extract.Result) Submission {
	return Submission{
		Symbol:    r.Symbol,
		Side:      r.Side,
		Entry:     r.Entry,
		Exit:      r.Exit,
		Qty:       r.Qty,
		CloseTime: r.CloseTime,
	}
}

// Outcome reports where a submission or decision ended up.
type Outcome struct {
	State confirm.State
	Trade journal.TradeRecord
	// PendingID is set when State is DuplicateDetected.
	PendingID string
	// Totals is set when State is Committed.
	Totals Totals
}

// Submit books s for requester. A trade colliding with an existing one is
// held until the requester decides; anything else is committed.
func (l *Ledger) Submit(ctx context.Context, requester string, s Submission) (Outcome, error) {
	ctx, span := logger.StartSpan(ctx, "ledger.Submit")
	defer span.End()

	rec, err := l.record(s)
	if err != nil {
		return Outcome{State: confirm.New}, err
	}

	dup, err := l.hasDuplicate(ctx, rec)
	if err != nil {
		return Outcome{State: confirm.New, Trade: rec}, err
	}

	state, p, err := l.machine.Check(ctx, requester, rec, dup)
	if err != nil {
		return Outcome{State: confirm.New, Trade: rec}, err
	}
	if state == confirm.DuplicateDetected {
		metrics.Duplicates.Inc()
		logger.Warn(ctx, "duplicate trade held for confirmation", "requester", requester,
			"symbol", rec.Symbol, "side", rec.Side, "close_time", market.FormatTimestamp(rec.CloseTime))
		return Outcome{State: state, Trade: rec, PendingID: p.ID}, nil
	}
	return l.commit(ctx, rec, "submit", confirm.New)
}

// Decide applies the requester's answer to their pending duplicate. The
// pending slot is cleared before the trade is written, so a storage
// failure does not leave it behind.
func (l *Ledger) Decide(ctx context.Context, requester string, d confirm.Decision) (Outcome, error) {
	ctx, span := logger.StartSpan(ctx, "ledger.Decide")
	defer span.End()

	state, p, err := l.machine.Resolve(ctx, requester, d)
	if err != nil {
		return Outcome{State: state}, err
	}
	if state == confirm.Discarded {
		return Outcome{State: state, Trade: p.Trade}, nil
	}
	return l.commit(ctx, p.Trade, "confirm", confirm.DuplicateDetected)
}

// Pending returns the duplicate requester still has to decide on.
func (l *Ledger) Pending(ctx context.Context, requester string) (confirm.Pending, bool, error) {
	return l.machine.Pending(ctx, requester)
}

func (l *Ledger) record(s Submission) (journal.TradeRecord, error) {
	now := l.now().In(l.loc)
	closeTime := s.CloseTime
	if closeTime.IsZero() {
		closeTime = now
	}
	return l.rates.NewRecord(s.Symbol, s.Side, s.Entry, s.Exit, s.Qty, closeTime.In(l.loc), now)
}

func (l *Ledger) hasDuplicate(ctx context.Context, rec journal.TradeRecord) (bool, error) {
	candidates, err := l.store.QueryTrades(ctx, journal.TradeFilter{
		Symbol:    rec.Symbol,
		Side:      rec.Side,
		CloseTime: rec.CloseTime,
	})
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	for _, c := range candidates {
		if IsDuplicate(rec, c, l.tolerance) {
			return true, nil
		}
	}
	return false, nil
}

// commit writes rec. On failure the outcome keeps the state the trade
// was in before.
func (l *Ledger) commit(ctx context.Context, rec journal.TradeRecord, source string, from confirm.State) (Outcome, error) {
	ctx, span := logger.StartSpan(ctx, "ledger.commit")
	defer span.End()

	id, err := l.store.InsertTrade(ctx, rec)
	if err != nil {
		logger.ErrorWithErr(ctx, "insert trade failed", err, "symbol", rec.Symbol)
		return Outcome{State: from, Trade: rec}, fmt.Errorf("insert trade: %w", err)
	}
	rec.ID = id
	metrics.TradesCommitted.WithLabelValues(source).Inc()
	span.SetAttributes(attribute.Int64("trade.id", id), attribute.String("trade.symbol", rec.Symbol))
	logger.Info(ctx, "trade committed", "id", id, "source", source, "symbol", rec.Symbol,
		"side", rec.Side, "realized_profit", rec.RealizedProfit)

	out := Outcome{State: confirm.Committed, Trade: rec}
	if out.Totals, err = l.Totals(ctx); err != nil {
		return out, err
	}
	return out, nil
}
