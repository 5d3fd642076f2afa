package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/market"
)

func TestReconstructQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		others  []float64
		spread  float64
		wantQty float64
		wantPnL float64
		wantOK  bool
	}{
		{"pnl over spread finds qty", []float64{2.43, 0.64}, 3.8, 0.64, 2.43, true},
		{"qty times spread finds net pnl", []float64{0.5, 1.97}, 4.0, 0.5, 1.97, true},
		{"equal leftovers are the quantity", []float64{0.89, 0.89}, 1.0, 0.89, 0.89, true},
		{"fallback derives qty from pnl", []float64{10.0}, 4.0, 2.5, 10.0, true},
		{"nothing left", nil, 4.0, 0, 0, false},
		{"zero spread", []float64{1.0, 2.0}, 0, 0, 0, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			qty, pnl, ok := ReconstructQuantity(tt.others, tt.spread)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.wantQty, qty, 1e-9)
			assert.InDelta(t, tt.wantPnL, pnl, 1e-9)
		})
	}
}

const heuristicPage = `ETHUSDT
3,094.20 3,090.40
0.64 2.43
手续费 1.98
12.50%
2024-05-01 10:20:30`

func TestHeuristicPassWithSideHint(t *testing.T) {
	t.Parallel()

	hint := Candidate{Symbol: "ETH", Side: market.Long, ROI: ptr(12.5)}
	c, err := HeuristicPass(Input{Text: heuristicPage}, hint)
	require.NoError(t, err)
	assert.Equal(t, "ETH", c.Symbol)
	assert.Equal(t, market.Long, c.Side)
	assert.InDelta(t, 3090.40, *c.Entry, 1e-9)
	assert.InDelta(t, 3094.20, *c.Exit, 1e-9)
	assert.InDelta(t, 0.64, *c.Qty, 1e-9)
	assert.InDelta(t, 2.43, *c.PnL, 1e-9)
}

func TestHeuristicPassPinsNoisyPrices(t *testing.T) {
	t.Parallel()

	// Entry was misread by a few tenths; it still pins the lower price,
	// and the negative return makes a rising position a short.
	hint := Candidate{Symbol: "ETH", Entry: ptr(3090.0), ROI: ptr(-5)}
	text := "ETHUSDT\n3094.20 3090.40\n0.64 2.43\n-5.00%"
	c, err := HeuristicPass(Input{Text: text}, hint)
	require.NoError(t, err)
	assert.Equal(t, market.Short, c.Side)
	assert.InDelta(t, 3090.40, *c.Entry, 1e-9)
	assert.InDelta(t, 3094.20, *c.Exit, 1e-9)
}

func TestHeuristicPassErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		hint Candidate
		want error
	}{
		{"no symbol hint", heuristicPage, Candidate{}, ErrNoSymbol},
		{"too few numbers", "ETHUSDT 1.5 2.5", Candidate{Symbol: "ETH"}, ErrTooFewNumbers},
		{"zero spread", "ETHUSDT 5.0 5.0 1.0", Candidate{Symbol: "ETH", Side: market.Long}, ErrZeroSpread},
		{"no side", "ETHUSDT 3094.20 3090.40 0.64 2.43", Candidate{Symbol: "ETH"}, ErrNoSide},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := HeuristicPass(Input{Text: tt.text}, tt.hint)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNumberPoolDropsConfounders(t *testing.T) {
	t.Parallel()

	text := "3094.20 3090.40 手续费 1.98 保证金 250.00 12.50% 2024-05-01 10:20:30 0.64"
	got := numberPool(text, ptr(12.5))
	assert.Equal(t, []float64{3094.20, 3090.40, 0.64}, got)
}
