// Package journal persists closed trades and balance operations.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradebook/market"
)

var ErrNotFound = errors.New("not found")

// TradeRecord is one committed trade. The derived amounts are computed by
// the ledger from the inputs and stored alongside them.
type TradeRecord struct {
	ID     int64
	Symbol string
	Side   market.Side
	Entry  float64
	Exit   float64
	Qty    float64

	PnL            float64
	Fee            float64
	Rebate         float64
	RealizedProfit float64

	CloseTime time.Time
	CreatedAt time.Time
}

type BalanceKind string

const (
	Initial    BalanceKind = "INITIAL"
	Deposit    BalanceKind = "DEPOSIT"
	Withdrawal BalanceKind = "WITHDRAWAL"
)

// BalanceOp is an append-only capital movement made by Operator.
type BalanceOp struct {
	ID        int64
	Operator  string
	Kind      BalanceKind
	Amount    float64
	CreatedAt time.Time
}

// TradeFilter selects trades. Zero fields match everything. From and To
// bound the close time as [From, To).
type TradeFilter struct {
	ID        int64
	Symbol    string
	Side      market.Side
	CloseTime time.Time
	From      time.Time
	To        time.Time

	// Newest orders by close time descending instead of ascending.
	Newest bool
	Limit  int
}

type BalanceFilter struct {
	Operator string
	Kind     BalanceKind
}

type Store interface {
	// Migrate brings an existing database up to the current schema.
	Migrate(ctx context.Context) error

	InsertTrade(ctx context.Context, t TradeRecord) (int64, error)
	QueryTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error)
	DeleteTrade(ctx context.Context, id int64) (bool, error)
	// ClearTrades removes every trade and restarts ids at 1.
	ClearTrades(ctx context.Context) error
	// Reindex renumbers trades 1..n in close time order.
	Reindex(ctx context.Context) error

	InsertBalanceOp(ctx context.Context, op BalanceOp) (int64, error)
	QueryBalanceOps(ctx context.Context, f BalanceFilter) ([]BalanceOp, error)

	Close() error
}

// GetTrade returns a single trade by id.
func GetTrade(ctx context.Context, s Store, id int64) (TradeRecord, error) {
	trades, err := s.QueryTrades(ctx, TradeFilter{ID: id, Limit: 1})
	if err != nil {
		return TradeRecord{}, err
	}
	if len(trades) == 0 {
		return TradeRecord{}, fmt.Errorf("trade %d %w", id, ErrNotFound)
	}
	return trades[0], nil
}
