package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/market"
)

var (
	ErrInitialExists     = errors.New("initial balance already set")
	ErrNonPositiveAmount = errors.New("amount must be greater than 0")
)

// Balance is the account overview. Current is initial plus deposits less
// withdrawals plus realized profit.
type Balance struct {
	Initial     float64
	Deposits    float64
	Withdrawals float64
	Profit      float64
	Current     float64
}

// ComputeBalance sums every operation and every trade. Initial amounts
// are summed too, though each operator may only set one.
func ComputeBalance(ops []journal.BalanceOp, trades []journal.TradeRecord) Balance {
	var initial, deposits, withdrawals, profit decimal.Decimal
	for _, op := range ops {
		amt := decimal.NewFromFloat(op.Amount)
		switch op.Kind {
		case journal.Initial:
			initial = initial.Add(amt)
		case journal.Deposit:
			deposits = deposits.Add(amt)
		case journal.Withdrawal:
			withdrawals = withdrawals.Add(amt)
		}
	}
	for _, t := range trades {
		profit = profit.Add(decimal.NewFromFloat(t.RealizedProfit))
	}
	current := initial.Add(deposits).Sub(withdrawals).Add(profit)
	return Balance{
		Initial:     initial.InexactFloat64(),
		Deposits:    deposits.InexactFloat64(),
		Withdrawals: withdrawals.InexactFloat64(),
		Profit:      profit.InexactFloat64(),
		Current:     current.InexactFloat64(),
	}
}

// ParseAmount reads a positive money amount.
func ParseAmount(s string) (float64, error) {
	v, err := market.ParseFloat(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if v <= 0 {
		return 0, ErrNonPositiveAmount
	}
	return v, nil
}

func (l *Ledger) Balance(ctx context.Context) (Balance, error) {
	ops, err := l.store.QueryBalanceOps(ctx, journal.BalanceFilter{})
	if err != nil {
		return Balance{}, err
	}
	trades, err := l.store.QueryTrades(ctx, journal.TradeFilter{})
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(ops, trades), nil
}

// SetInitial records operator's starting capital. It can be set once.
func (l *Ledger) SetInitial(ctx context.Context, operator string, amount float64) (Balance, error) {
	existing, err := l.store.QueryBalanceOps(ctx, journal.BalanceFilter{Operator: operator, Kind: journal.Initial})
	if err != nil {
		return Balance{}, err
	}
	if len(existing) > 0 {
		return Balance{}, fmt.Errorf("%w for %s", ErrInitialExists, operator)
	}
	return l.addOp(ctx, operator, journal.Initial, amount)
}

func (l *Ledger) Deposit(ctx context.Context, operator string, amount float64) (Balance, error) {
	return l.addOp(ctx, operator, journal.Deposit, amount)
}

func (l *Ledger) Withdraw(ctx context.Context, operator string, amount float64) (Balance, error) {
	return l.addOp(ctx, operator, journal.Withdrawal, amount)
}

func (l *Ledger) addOp(ctx context.Context, operator string, kind journal.BalanceKind, amount float64) (Balance, error) {
	if !(amount > 0) {
		return Balance{}, ErrNonPositiveAmount
	}
	op := journal.BalanceOp{
		Operator:  operator,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: l.now().In(l.loc),
	}
	if _, err := l.store.InsertBalanceOp(ctx, op); err != nil {
		return Balance{}, fmt.Errorf("insert balance op: %w", err)
	}
	logger.Info(ctx, "balance operation recorded", "operator", operator, "kind", kind, "amount", amount)
	return l.Balance(ctx)
}
