package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradebook/confirm"
	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/market"
)

type tradeJSON struct {
	ID             int64       `json:"id,omitempty"`
	Symbol         string      `json:"symbol"`
	Side           market.Side `json:"side"`
	Entry          float64     `json:"entry"`
	Exit           float64     `json:"exit"`
	Qty            float64     `json:"qty"`
	PnL            float64     `json:"pnl"`
	Fee            float64     `json:"fee"`
	Rebate         float64     `json:"rebate"`
	RealizedProfit float64     `json:"realized_profit"`
	CloseTime      string      `json:"close_time"`
	SettlementDay  string      `json:"settlement_day"`
	CreatedAt      string      `json:"created_at,omitempty"`
}

func toTradeJSON(t journal.TradeRecord) tradeJSON {
	out := tradeJSON{
		ID:             t.ID,
		Symbol:         t.Symbol,
		Side:           t.Side,
		Entry:          t.Entry,
		Exit:           t.Exit,
		Qty:            t.Qty,
		PnL:            t.PnL,
		Fee:            t.Fee,
		Rebate:         t.Rebate,
		RealizedProfit: t.RealizedProfit,
	}
	if !t.CloseTime.IsZero() {
		out.CloseTime = market.FormatTimestamp(t.CloseTime)
		out.SettlementDay = market.SettlementDay(t.CloseTime)
	}
	if !t.CreatedAt.IsZero() {
		out.CreatedAt = market.FormatTimestamp(t.CreatedAt)
	}
	return out
}

func toTradesJSON(ts []journal.TradeRecord) []tradeJSON {
	out := make([]tradeJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTradeJSON(t))
	}
	return out
}

type totalsJSON struct {
	Today float64 `json:"today"`
	Month float64 `json:"month"`
	All   float64 `json:"all"`
}

func toTotalsJSON(t ledger.Totals) totalsJSON {
	return totalsJSON{Today: t.Today, Month: t.Month, All: t.All}
}

type outcomeJSON struct {
	State     confirm.State `json:"state"`
	Trade     tradeJSON     `json:"trade"`
	PendingID string        `json:"pending_id,omitempty"`
	Totals    *totalsJSON   `json:"totals,omitempty"`
	// Extraction details, set for screenshots.
	Pass          extract.PassName `json:"pass,omitempty"`
	SideDefaulted bool             `json:"side_defaulted,omitempty"`
	Suspicious    bool             `json:"suspicious,omitempty"`
}

func toOutcomeJSON(o ledger.Outcome) outcomeJSON {
	out := outcomeJSON{
		State:     o.State,
		Trade:     toTradeJSON(o.Trade),
		PendingID: o.PendingID,
	}
	if o.State == confirm.Committed {
		t := toTotalsJSON(o.Totals)
		out.Totals = &t
	}
	return out
}

type balanceJSON struct {
	Initial     float64 `json:"initial"`
	Deposits    float64 `json:"deposits"`
	Withdrawals float64 `json:"withdrawals"`
	Profit      float64 `json:"profit"`
	Current     float64 `json:"current"`
}

func toBalanceJSON(b ledger.Balance) balanceJSON {
	return balanceJSON{
		Initial:     b.Initial,
		Deposits:    b.Deposits,
		Withdrawals: b.Withdrawals,
		Profit:      b.Profit,
		Current:     b.Current,
	}
}

type attemptJSON struct {
	Pass   extract.PassName `json:"pass"`
	Reason string           `json:"reason"`
}

// respondError maps the error taxonomy to status codes.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var fail *extract.FailureError
	if errors.As(err, &fail) {
		attempts := make([]attemptJSON, 0, len(fail.Attempts))
		for _, a := range fail.Attempts {
			attempts = append(attempts, attemptJSON{Pass: a.Pass, Reason: a.Err.Error()})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    extract.ErrUnusable.Error(),
			"preview":  fail.Preview,
			"attempts": attempts,
		})
		return
	}

	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrMalformed),
		errors.Is(err, ledger.ErrInvariant),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, market.ErrBadNumber),
		errors.Is(err, market.ErrBadSide),
		errors.Is(err, market.ErrBadTimestamp),
		errors.Is(err, confirm.ErrBadDecision):
		return http.StatusBadRequest
	case errors.Is(err, journal.ErrNotFound),
		errors.Is(err, confirm.ErrNoPending):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInitialExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNoTrades):
		return http.StatusNotFound
	case errors.Is(err, extract.ErrUnusable):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
