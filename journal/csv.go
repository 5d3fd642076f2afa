package journal

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rustyeddy/tradebook/market"
)

var TradeCSVHeader = []string{
	"id", "symbol", "side", "entry", "exit", "qty",
	"pnl", "fee", "rebate", "real_profit", "trade_time", "created_at",
}

// WriteTradesCSV writes trades with a header row.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeCSVHeader); err != nil {
		return err
	}
	for _, t := range trades {
		created := ""
		if !t.CreatedAt.IsZero() {
			created = market.FormatTimestamp(t.CreatedAt)
		}
		if err := cw.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.Symbol,
			string(t.Side),
			F(t.Entry),
			F(t.Exit),
			F(t.Qty),
			F(t.PnL),
			F(t.Fee),
			F(t.Rebate),
			F(t.RealizedProfit),
			market.FormatTimestamp(t.CloseTime),
			created,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// F formats an amount for CSV output.
func F(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
