package digits

import (
	"fmt"
	"math"

	"github.com/rustyeddy/digitpro/market"
)

// Strength grades how far apart the even and odd shares are.
type Strength string

const (
	Neutral Strength = "neutral"
	Weak    Strength = "weak"
	Medium  Strength = "medium"
	Strong  Strength = "strong"
)

// Direction is the parity call of an even/odd signal.
type Direction string

const (
	Even Direction = "EVEN"
	Odd  Direction = "ODD"
)

// StrengthBands are the lower bounds, in percentage points of difference,
// of the weak, medium and strong grades. Anything below Weak is neutral.
type StrengthBands struct {
	Weak   float64 `json:"weak" yaml:"weak"`
	Medium float64 `json:"medium" yaml:"medium"`
	Strong float64 `json:"strong" yaml:"strong"`
}

// DefaultStrengthBands returns the 3/5/10 point bands.
func DefaultStrengthBands() StrengthBands {
	return StrengthBands{Weak: 3, Medium: 5, Strong: 10}
}

// Validate checks the bands are positive and increasing.
func (b StrengthBands) Validate() error {
	if b.Weak <= 0 {
		return fmt.Errorf("weak band must be positive")
	}
	if b.Medium < b.Weak || b.Strong < b.Medium {
		return fmt.Errorf("bands must satisfy weak <= medium <= strong")
	}
	return nil
}

// Classify grades a difference between the even and odd percentages.
func (b StrengthBands) Classify(diff float64) Strength {
	switch {
	case diff < b.Weak:
		return Neutral
	case diff < b.Medium:
		return Weak
	case diff < b.Strong:
		return Medium
	default:
		return Strong
	}
}

// EvenOddSignal is the parity signal of one market. Direction is empty when
// the market is not ready or the signal is neutral.
type EvenOddSignal struct {
	Symbol         string    `json:"symbol"`
	MarketName     string    `json:"market_name"`
	Ready          bool      `json:"ready"`
	Ticks          int       `json:"ticks"`
	EvenPercentage float64   `json:"even_percentage"`
	OddPercentage  float64   `json:"odd_percentage"`
	Difference     float64   `json:"difference"`
	Strength       Strength  `json:"strength"`
	Direction      Direction `json:"direction,omitempty"`
}

// HasCall reports whether the signal carries a parity call.
func (s EvenOddSignal) HasCall() bool {
	return s.Direction != ""
}

// EvaluateEvenOddSignal computes the parity signal of symbol over its current
// window. The result is not ready when the symbol is unknown or its window
// holds fewer than requiredTicks ticks.
func (a *Aggregator) EvaluateEvenOddSignal(symbol string, requiredTicks int, bands StrengthBands) EvenOddSignal {
	sig := EvenOddSignal{
		Symbol:     symbol,
		MarketName: market.MarketName(symbol),
		Strength:   Neutral,
	}

	m, ok := a.markets[symbol]
	if !ok {
		return sig
	}
	total := len(m.history)
	sig.Ticks = total
	if total == 0 || total < requiredTicks {
		return sig
	}

	even := 0
	for d := 0; d < 10; d += 2 {
		even += m.counts[d]
	}
	evenPct := percent(even, total)
	oddPct := percent(total-even, total)
	diff := math.Abs(evenPct - oddPct)

	sig.Ready = true
	sig.EvenPercentage = round2(evenPct)
	sig.OddPercentage = round2(oddPct)
	sig.Difference = round2(diff)
	sig.Strength = bands.Classify(diff)
	if sig.Strength == Neutral {
		return sig
	}
	if evenPct > oddPct {
		sig.Direction = Even
	} else {
		sig.Direction = Odd
	}
	return sig
}

// EvaluateAllEvenOdd returns one signal per tracked market in configuration
// order.
func (a *Aggregator) EvaluateAllEvenOdd(requiredTicks int, bands StrengthBands) []EvenOddSignal {
	out := make([]EvenOddSignal, 0, len(a.symbols))
	for _, s := range a.symbols {
		out = append(out, a.EvaluateEvenOddSignal(s, requiredTicks, bands))
	}
	return out
}
