package digits

import (
	"sort"
)

// DefaultHotThreshold is the percentage a digit must reach to be hot.
const DefaultHotThreshold = 18.2

// HotMarket is a market in which a digit reached the threshold on its own.
type HotMarket struct {
	Symbol     string  `json:"symbol"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
}

// HotDigit is a digit that reached the threshold overall or in at least one
// market.
type HotDigit struct {
	Digit      int         `json:"digit"`
	Percentage float64     `json:"percentage"`
	Count      int         `json:"count"`
	Total      int         `json:"total"`
	Markets    []HotMarket `json:"markets,omitempty"`
}

// HasHotMarkets reports whether any single market crossed the threshold.
func (h HotDigit) HasHotMarkets() bool {
	return len(h.Markets) > 0
}

// HotDigitReport is the gated hot-digit result used by the dashboard.
// Digits is only filled once every tracked market is ready.
type HotDigitReport struct {
	Ready         bool       `json:"ready"`
	ReadyMarkets  int        `json:"ready_markets"`
	TotalMarkets  int        `json:"total_markets"`
	RequiredTicks int        `json:"required_ticks"`
	Threshold     float64    `json:"threshold"`
	Digits        []HotDigit `json:"digits,omitempty"`
}

// Top returns the strongest hot digit.
func (r HotDigitReport) Top() (HotDigit, bool) {
	if !r.Ready || len(r.Digits) == 0 {
		return HotDigit{}, false
	}
	return r.Digits[0], true
}

// FindHotDigits returns the digits whose overall percentage, or whose
// percentage in some market, is at least threshold. Results are ordered by
// overall percentage, highest first, then by digit.
func (a *Aggregator) FindHotDigits(threshold float64) []HotDigit {
	return a.hotDigits(a.symbols, threshold)
}

// FindHotDigitsReady runs FindHotDigits over the markets holding at least
// requiredTicks ticks. The report is ready only when all tracked markets are.
func (a *Aggregator) FindHotDigitsReady(threshold float64, requiredTicks int) HotDigitReport {
	ready := a.ReadyMarkets(requiredTicks)
	r := HotDigitReport{
		ReadyMarkets:  len(ready),
		TotalMarkets:  len(a.symbols),
		RequiredTicks: requiredTicks,
		Threshold:     threshold,
	}
	if len(ready) == 0 || len(ready) < len(a.symbols) {
		return r
	}
	r.Ready = true
	r.Digits = a.hotDigits(ready, threshold)
	return r
}

func (a *Aggregator) hotDigits(symbols []string, threshold float64) []HotDigit {
	var out []HotDigit
	for d := 0; d < 10; d++ {
		h := HotDigit{Digit: d}
		for _, s := range symbols {
			m := a.markets[s]
			n := len(m.history)
			if n == 0 {
				continue
			}
			c := m.counts[d]
			if pct := percent(c, n); pct >= threshold {
				h.Markets = append(h.Markets, HotMarket{
					Symbol:     s,
					Percentage: round2(pct),
					Count:      c,
					Total:      n,
				})
			}
			h.Count += c
			h.Total += n
		}

		overall := percent(h.Count, h.Total)
		if h.Total == 0 || (overall < threshold && len(h.Markets) == 0) {
			continue
		}
		h.Percentage = round2(overall)
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].Digit < out[j].Digit
	})
	return out
}
