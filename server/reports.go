package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/market"
)

func (s *Server) totals(c *gin.Context) {
	t, err := s.ledger.Totals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTotalsJSON(t))
}

// period sums trades since the start of ?p=day|week|month|all.
func (s *Server) period(c *gin.Context) {
	p, err := ledger.ParsePeriod(c.Query("p"))
	if err != nil {
		respondError(c, err)
		return
	}
	st, err := s.ledger.PeriodStats(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	since := ""
	if !st.Since.IsZero() {
		since = market.FormatTimestamp(st.Since)
	}
	c.JSON(http.StatusOK, gin.H{
		"period":          st.Period,
		"since":           since,
		"trades":          st.Trades,
		"pnl":             st.PnL,
		"fee":             st.Fee,
		"rebate":          st.Rebate,
		"realized_profit": st.RealizedProfit,
		"net_contract":    st.NetContract,
		"balance":         toBalanceJSON(st.Balance),
	})
}

type dayJSON struct {
	Day            string  `json:"day"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	NetContract    float64 `json:"net_contract"`
	Rebate         float64 `json:"rebate"`
	RealizedProfit float64 `json:"realized_profit"`
}

func (s *Server) daily(c *gin.Context) {
	r, err := s.ledger.DailyReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	days := make([]dayJSON, 0, len(r.Days))
	for _, d := range r.Days {
		days = append(days, dayJSON{
			Day:            d.Day,
			Trades:         d.Trades,
			Wins:           d.Wins,
			Losses:         d.Losses,
			WinRate:        d.WinRate(),
			NetContract:    d.NetContract,
			Rebate:         d.Rebate,
			RealizedProfit: d.RealizedProfit,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"days":           days,
		"total_realized": r.TotalRealized,
		"pending_rebate": r.PendingRebate,
		"pending_since":  market.FormatTimestamp(r.PendingSince),
	})
}

type symbolJSON struct {
	Symbol   string  `json:"symbol"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	Realized float64 `json:"realized"`
}

func (s *Server) winRate(c *gin.Context) {
	wr, err := s.ledger.WinRate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	symbols := make([]symbolJSON, 0, len(wr.BySymbol))
	for _, sym := range wr.BySymbol {
		symbols = append(symbols, symbolJSON{
			Symbol:   sym.Symbol,
			Trades:   sym.Trades,
			Wins:     sym.Wins,
			Losses:   sym.Losses,
			WinRate:  sym.WinRate(),
			Realized: sym.Realized,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     wr.Total,
		"wins":      wr.Wins,
		"losses":    wr.Losses,
		"breakeven": wr.Breakeven,
		"win_rate":  wr.Rate,
		"symbols":   symbols,
	})
}

type equityJSON struct {
	Time       string  `json:"time"`
	Cumulative float64 `json:"cumulative"`
}

func (s *Server) equity(c *gin.Context) {
	points, err := s.ledger.EquityCurve(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]equityJSON, 0, len(points))
	for _, p := range points {
		out = append(out, equityJSON{Time: market.FormatTimestamp(p.Time), Cumulative: p.Cumulative})
	}
	c.JSON(http.StatusOK, gin.H{"points": out})
}

func (s *Server) balance(c *gin.Context) {
	b, err := s.ledger.Balance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBalanceJSON(b))
}

// amountRequest takes the amount as a string so thousands separators
// are accepted.
type amountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type balanceFunc func(ctx context.Context, operator string, amount float64) (ledger.Balance, error)

func (s *Server) balanceOp(op balanceFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req amountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, fmt.Errorf("%w: %w", ledger.ErrMalformed, err))
			return
		}
		amount, err := ledger.ParseAmount(req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		b, err := op(c.Request.Context(), requester(c), amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toBalanceJSON(b))
	}
}
