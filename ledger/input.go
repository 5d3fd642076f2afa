package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/market"
	"github.com/rustyeddy/tradebook/metrics"
)

// ManualUsage is the argument order ParseTradeArgs expects.
const ManualUsage = "<date> <time> <symbol> <side> <entry> <exit> <qty>, e.g. 2026-01-11 14:52:41 eth 多 3090.4 3094.2 0.64"

// ParseTradeArgs reads a manually typed trade. The timestamp may be
// written YYYY-MM-DD HH:MM:SS or YYYY/M/D H:MM:SS and is read in loc.
// Extra arguments are ignored.
func ParseTradeArgs(args []string, loc *time.Location) (Submission, error) {
	if len(args) < 7 {
		return Submission{}, fmt.Errorf("%w: want %s", ErrMalformed, ManualUsage)
	}
	closeTime, err := market.ParseTimestamp(args[0]+" "+args[1], loc)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	side, err := market.ParseSide(args[3])
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var nums [3]float64
	for i, name := range []string{"entry", "exit", "quantity"} {
		v, err := market.ParsePositive(args[4+i])
		if err != nil {
			return Submission{}, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
		nums[i] = v
	}

	symbol := market.NormalizeSymbol(args[2])
	if symbol == "" {
		return Submission{}, fmt.Errorf("%w: empty symbol", ErrMalformed)
	}
	return Submission{
		Symbol:    symbol,
		Side:      side,
		Entry:     nums[0],
		Exit:      nums[1],
		Qty:       nums[2],
		CloseTime: closeTime,
	}, nil
}

// BadLine is a batch line that could not be parsed.
type BadLine struct {
	Line int
	Err  error
}

// ParseBatch reads one manual trade per line. Blank lines are ignored;
// malformed lines are returned separately.
func ParseBatch(text string, loc *time.Location) ([]Submission, []BadLine) {
	var (
		subs []Submission
		bad  []BadLine
	)
	for i, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		s, err := ParseTradeArgs(fields, loc)
		if err != nil {
			bad = append(bad, BadLine{Line: i + 1, Err: err})
			continue
		}
		subs = append(subs, s)
	}
	return subs, bad
}

type BatchResult struct {
	Imported   int
	Duplicates int
	Malformed  []BadLine
	Totals     Totals
}

// ImportBatch commits every well-formed line that does not duplicate an
// existing trade. Duplicates are skipped, not held for confirmation.
func (l *Ledger) ImportBatch(ctx context.Context, text string) (BatchResult, error) {
	ctx, span := logger.StartSpan(ctx, "ledger.ImportBatch")
	defer span.End()

	subs, bad := ParseBatch(text, l.loc)
	res := BatchResult{Malformed: bad}
	for _, b := range bad {
		logger.Warn(ctx, "skipping malformed batch line", "line", b.Line, "error", b.Err)
	}

	for _, s := range subs {
		rec, err := l.record(s)
		if err != nil {
			return res, err
		}
		dup, err := l.hasDuplicate(ctx, rec)
		if err != nil {
			return res, err
		}
		if dup {
			res.Duplicates++
			metrics.Duplicates.Inc()
			continue
		}
		if _, err := l.store.InsertTrade(ctx, rec); err != nil {
			return res, fmt.Errorf("insert trade: %w", err)
		}
		metrics.TradesCommitted.WithLabelValues("batch").Inc()
		res.Imported++
	}

	logger.Info(ctx, "batch imported", "imported", res.Imported,
		"duplicates", res.Duplicates, "malformed", len(res.Malformed))

	var err error
	res.Totals, err = l.Totals(ctx)
	return res, err
}

// Get returns one trade by id.
func (l *Ledger) Get(ctx context.Context, id int64) (journal.TradeRecord, error) {
	return journal.GetTrade(ctx, l.store, id)
}

// DefaultListLimit is how many trades List returns when not told.
const DefaultListLimit = 10

// List returns the most recent trades by close time, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]journal.TradeRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return l.store.QueryTrades(ctx, journal.TradeFilter{Newest: true, Limit: limit})
}

func (l *Ledger) Delete(ctx context.Context, id int64) error {
	ok, err := l.store.DeleteTrade(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("trade %d %w", id, journal.ErrNotFound)
	}
	logger.Info(ctx, "trade deleted", "id", id)
	return nil
}

// Reindex renumbers trades in close time order.
func (l *Ledger) Reindex(ctx context.Context) error {
	return l.store.Reindex(ctx)
}

// Clear removes every trade. Balance operations are kept.
func (l *Ledger) Clear(ctx context.Context) error {
	return l.store.ClearTrades(ctx)
}
