package market

import "strings"

// QuoteAsset is the settlement currency every tracked contract is quoted in.
const QuoteAsset = "USDT"

// NormalizeSymbol upper-cases a symbol and strips the quote suffix, so
// "ethusdt", "ETHUSDT" and "eth" all become "ETH".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > len(QuoteAsset) {
		s = strings.TrimSuffix(s, QuoteAsset)
	}
	return s
}
