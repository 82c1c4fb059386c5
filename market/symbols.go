package market

import "strings"

// All selects every known market in ResolveSymbols.
const All = "ALL"

// Symbols maps Deriv synthetic index symbols to their display names.
var Symbols = map[string]string{
	"R_100":   "Volatility 100",
	"R_75":    "Volatility 75",
	"R_50":    "Volatility 50",
	"R_25":    "Volatility 25",
	"R_10":    "Volatility 10",
	"RDBEAR":  "Bear Market",
	"RDBULL":  "Bull Market",
	"1HZ10V":  "1s Volatility 10",
	"1HZ15V":  "1s Volatility 15",
	"1HZ30V":  "1s Volatility 30",
	"1HZ50V":  "1s Volatility 50",
	"1HZ75V":  "1s Volatility 75",
	"1HZ90V":  "1s Volatility 90",
	"1HZ100V": "1s Volatility 100",
}

// order is the dashboard order used for the ALL selection.
var order = []string{
	"R_100", "R_75", "R_50", "R_25", "R_10", "RDBEAR", "RDBULL",
	"1HZ10V", "1HZ15V", "1HZ30V", "1HZ50V", "1HZ75V", "1HZ90V", "1HZ100V",
}

// AllSymbols returns every known market in dashboard order.
func AllSymbols() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// MarketName returns the display name of a symbol, or the symbol itself when
// it is not a known market.
func MarketName(symbol string) string {
	if name, ok := Symbols[symbol]; ok {
		return name
	}
	return symbol
}

// Known reports whether symbol is one of the built-in markets.
func Known(symbol string) bool {
	_, ok := Symbols[symbol]
	return ok
}

// ResolveSymbols expands a market selection. "ALL" yields every market,
// otherwise the selection is a comma separated list. Duplicates are dropped
// and the input order is kept.
func ResolveSymbols(sel string) []string {
	sel = strings.TrimSpace(sel)
	if strings.EqualFold(sel, All) {
		return AllSymbols()
	}

	seen := make(map[string]bool)
	var out []string
	for _, s := range strings.Split(sel, ",") {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
