package journal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebook/market"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Every stored
// fact goes in the PROPERTIES drawer so the block stays searchable.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade #%d: %s %s\n", t.ID, t.Symbol, t.Side.Label())
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %d\n", t.ID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":ENTRY: %s\n", num(t.Entry))
	fmt.Fprintf(&b, ":EXIT: %s\n", num(t.Exit))
	fmt.Fprintf(&b, ":QTY: %s\n", num(t.Qty))
	fmt.Fprintf(&b, ":PNL: %.4f\n", t.PnL)
	fmt.Fprintf(&b, ":FEE: %.4f\n", t.Fee)
	fmt.Fprintf(&b, ":REBATE: %.4f\n", t.Rebate)
	fmt.Fprintf(&b, ":REALIZED_PROFIT: %.4f\n", t.RealizedProfit)
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", market.FormatTimestamp(t.CloseTime))
	fmt.Fprintf(&b, ":SETTLEMENT_DAY: %s\n", market.SettlementDay(t.CloseTime))
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, ":CREATED_AT: %s\n", market.FormatTimestamp(t.CreatedAt))
	}
	b.WriteString(":END:\n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatTradeLine is the one-line form used by listings.
func FormatTradeLine(t TradeRecord) string {
	return fmt.Sprintf("#%d %s %s %s entry=%s exit=%s qty=%s profit=%.4f",
		t.ID, market.FormatTimestamp(t.CloseTime), t.Symbol, t.Side.Label(),
		num(t.Entry), num(t.Exit), num(t.Qty), t.RealizedProfit)
}

func num(x float64) string {
	return fmt.Sprintf("%g", x)
}
