package ledger

import (
	"math"

	"github.com/rustyeddy/tradebook/journal"
)

// DefaultTolerance is the absolute difference under which two prices or
// quantities are considered the same.
const DefaultTolerance = 0.0001

// IsDuplicate reports whether a and b record the same fill: symbol, side
// and close time match exactly and entry, exit and quantity are within
// tol of each other.
func IsDuplicate(a, b journal.TradeRecord, tol float64) bool {
	return a.Symbol == b.Symbol &&
		a.Side == b.Side &&
		a.CloseTime.Equal(b.CloseTime) &&
		math.Abs(a.Entry-b.Entry) < tol &&
		math.Abs(a.Exit-b.Exit) < tol &&
		math.Abs(a.Qty-b.Qty) < tol
}
