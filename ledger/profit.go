// Package ledger turns closed positions into fee-adjusted trade records,
// keeps them free of accidental duplicates and reports on them.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/market"
)

var (
	ErrMalformed = errors.New("malformed input")
	// ErrInvariant means an upstream caller let an invalid trade through.
	ErrInvariant = errors.New("trade invariant violated")
)

// Rates are the exchange's fee and the share of it paid back as rebate.
type Rates struct {
	FeeRate    float64
	RebateRate float64
}

var DefaultRates = Rates{FeeRate: 0.0005, RebateRate: 0.8}

// Breakdown is the money side of one closed position.
type Breakdown struct {
	PnL            float64
	Fee            float64
	Rebate         float64
	RealizedProfit float64
}

// Breakdown prices a position. Fees are charged on both legs; realized
// profit is PnL less fee plus rebate.
func (r Rates) Breakdown(side market.Side, entry, exit, qty float64) (Breakdown, error) {
	if err := checkMagnitudes(side, entry, exit, qty); err != nil {
		return Breakdown{}, err
	}
	var b Breakdown
	b.PnL = side.Sign() * qty * (exit - entry)
	b.Fee = qty*entry*r.FeeRate + qty*exit*r.FeeRate
	b.Rebate = b.Fee * r.RebateRate
	b.RealizedProfit = b.PnL - b.Fee + b.Rebate
	return b, nil
}

// NewRecord builds a complete trade record. closeTime is truncated to the
// second, the precision trades are stored and matched at.
func (r Rates) NewRecord(symbol string, side market.Side, entry, exit, qty float64, closeTime, createdAt time.Time) (journal.TradeRecord, error) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return journal.TradeRecord{}, fmt.Errorf("%w: empty symbol", ErrInvariant)
	}
	b, err := r.Breakdown(side, entry, exit, qty)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	return journal.TradeRecord{
		Symbol:         symbol,
		Side:           side,
		Entry:          entry,
		Exit:           exit,
		Qty:            qty,
		PnL:            b.PnL,
		Fee:            b.Fee,
		Rebate:         b.Rebate,
		RealizedProfit: b.RealizedProfit,
		CloseTime:      closeTime.Truncate(time.Second),
		CreatedAt:      createdAt.Truncate(time.Second),
	}, nil
}

func checkMagnitudes(side market.Side, entry, exit, qty float64) error {
	if !side.Valid() {
		return fmt.Errorf("%w: side %q", ErrInvariant, side)
	}
	for _, v := range []struct {
		name string
		x    float64
	}{{"entry", entry}, {"exit", exit}, {"quantity", qty}} {
		if !(v.x > 0) || math.IsInf(v.x, 0) {
			return fmt.Errorf("%w: %s %v is not positive", ErrInvariant, v.name, v.x)
		}
	}
	return nil
}
