package extract

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradebook/market"
)

var (
	feeRE     = regexp.MustCompile(`(?:手续费|Fee)[^\d]*?(\d+(?:,\d{3})*\.\d+)`)
	marginRE  = regexp.MustCompile(`(?:保证金|Margin)[^\d]*?(\d+(?:,\d{3})*\.\d+)`)
	decimalRE = regexp.MustCompile(`\d+(?:,\d{3})*\.\d+`)
)

const (
	confounderEps = 0.0001
	roiEps        = 0.001

	// PnL read as quantity times spread must land this close to a
	// printed quantity.
	exactQtyTolerance = 0.001
	// Printed PnL may already be net of fees, so quantity times spread
	// is matched against it more loosely.
	loosePnLTolerance = 0.05

	// Regex prices may carry OCR digit noise; they pin a sorted price
	// when within one unit of it.
	pinTolerance = 1.0
)

// HeuristicPass rebuilds entry, exit, quantity and side from the pool of
// decimals on the page. It relies on hints from an earlier pass for the
// symbol, and optionally the side, return percentage and rough prices.
//
// The two largest numbers are taken as the price pair. That holds for
// instruments priced well above one unit and is known to fail for cheap
// ones.
func HeuristicPass(in Input, hint Candidate) (Candidate, error) {
	if hint.Symbol == "" {
		return Candidate{}, ErrNoSymbol
	}
	text := strings.ReplaceAll(in.Text, ",", "")
	pool := numberPool(text, hint.ROI)
	if len(pool) < 3 {
		return Candidate{}, fmt.Errorf("%w: %d left after filtering", ErrTooFewNumbers, len(pool))
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(pool)))
	high, low := pool[0], pool[1]
	others := pool[2:]

	spread := math.Abs(high - low)
	if spread == 0 {
		return Candidate{}, ErrZeroSpread
	}

	qty, pnl, ok := ReconstructQuantity(others, spread)
	if !ok || qty == 0 {
		return Candidate{}, ErrNoQuantity
	}

	roi := hint.ROI
	if roi == nil {
		roi = firstNumber(bareRoiRE, text)
	}
	loss := roi != nil && *roi < 0

	side := hint.Side
	if !side.Valid() {
		side = sideFromPinnedPrices(high, low, hint.Entry, hint.Exit, roi)
	}
	if !side.Valid() {
		return Candidate{}, ErrNoSide
	}

	entry, exit := assignPrices(side, loss, high, low)
	return Candidate{
		Symbol: hint.Symbol,
		Side:   side,
		Entry:  ptr(entry),
		Exit:   ptr(exit),
		Qty:    ptr(qty),
		PnL:    ptr(pnl),
		ROI:    roi,
	}, nil
}

// ReconstructQuantity finds a (quantity, pnl) pair among the leftover
// numbers consistent with pnl ≈ quantity × spread.
//
// It first treats each number as the PnL and looks for the derived
// quantity in the pool (tight tolerance), then treats each as the
// quantity and looks for the derived PnL (loose tolerance). Failing
// both, the largest leftover is taken as the PnL and the quantity is
// derived from it; if the two largest leftovers are equal the page
// printed the same magnitude for both, so that value is the quantity.
func ReconstructQuantity(others []float64, spread float64) (qty, pnl float64, ok bool) {
	if spread <= 0 || len(others) == 0 {
		return 0, 0, false
	}

	for _, x := range others {
		want := x / spread
		for _, y := range others {
			if x == y {
				continue
			}
			if math.Abs(y-want) < exactQtyTolerance {
				return y, x, true
			}
		}
	}

	for _, x := range others {
		want := x * spread
		for _, y := range others {
			if x == y {
				continue
			}
			if math.Abs(y-want) < loosePnLTolerance {
				return x, y, true
			}
		}
	}

	pnl = others[0]
	qty = pnl / spread
	if len(others) >= 2 && math.Abs(others[0]-others[1]) < exactQtyTolerance {
		qty = others[0]
	}
	return qty, pnl, true
}

// numberPool collects every decimal on the page except timestamps, fee
// and margin values, and the return percentage.
func numberPool(text string, roi *float64) []float64 {
	clean := market.StripTimestamps(text)

	var ignored []float64
	for _, re := range []*regexp.Regexp{feeRE, marginRE} {
		for _, m := range re.FindAllStringSubmatch(clean, -1) {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
				ignored = append(ignored, v)
			}
		}
	}

	var out []float64
	for _, s := range decimalRE.FindAllString(clean, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			continue
		}
		if nearAny(v, ignored, confounderEps) {
			continue
		}
		if roi != nil && math.Abs(v-math.Abs(*roi)) <= roiEps {
			continue
		}
		out = append(out, v)
	}
	return out
}

// sideFromPinnedPrices matches the regex prices against the two sorted
// extremes to learn which one is the entry, then reads the side from the
// sign of the return percentage.
func sideFromPinnedPrices(high, low float64, entryHint, exitHint, roi *float64) market.Side {
	pin := func(h *float64) float64 {
		if !positive(h) {
			return 0
		}
		switch {
		case math.Abs(*h-high) < pinTolerance:
			return high
		case math.Abs(*h-low) < pinTolerance:
			return low
		}
		return 0
	}
	other := func(p float64) float64 {
		if p == high {
			return low
		}
		return high
	}

	entry, exit := pin(entryHint), pin(exitHint)
	switch {
	case exit != 0 && entry == 0:
		entry = other(exit)
	case entry != 0 && exit == 0:
		exit = other(entry)
	}
	if entry == 0 || exit == 0 || roi == nil {
		return ""
	}
	side, _ := market.InferSide(entry, exit, *roi)
	return side
}

// assignPrices orders the extremes for the side: a winning long exits
// high, a losing long exits low, and shorts mirror that.
func assignPrices(side market.Side, loss bool, high, low float64) (entry, exit float64) {
	up := side == market.Long
	if loss {
		up = !up
	}
	if up {
		return low, high
	}
	return high, low
}

func nearAny(v float64, set []float64, eps float64) bool {
	for _, s := range set {
		if market.Near(v, s, eps) {
			return true
		}
	}
	return false
}
