// Package digits keeps a bounded window of ticks per market and derives
// last-digit frequency statistics from it.
package digits

import (
	"errors"
	"math"
	"sort"

	"github.com/rustyeddy/digitpro/market"
)

// DefaultTickCount is the window size used when none is configured.
const DefaultTickCount = 120

// MinDecimalPlaces is the floor for detected decimal places.
const MinDecimalPlaces = 2

// ErrUnknownSymbol is returned when an operation names a market that is not
// being tracked. The operation is a no-op.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Counts holds last-digit occurrences indexed by digit.
type Counts [10]int

// Total returns the number of ticks counted.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Percentages holds per-digit percentages (0-100) indexed by digit.
type Percentages [10]float64

type marketState struct {
	history       []market.Tick
	decimalPlaces int
	counts        Counts
}

func newMarketState() *marketState {
	return &marketState{decimalPlaces: MinDecimalPlaces}
}

// analyze recomputes decimal places and digit counts from the whole window.
// Counts are never patched incrementally so they always sum to the window
// length.
func (m *marketState) analyze() {
	places := MinDecimalPlaces
	for _, t := range m.history {
		if d := t.FractionalDigits(); d > places {
			places = d
		}
	}
	m.decimalPlaces = places

	m.counts = Counts{}
	for _, t := range m.history {
		m.counts[t.LastDigit(places)]++
	}
}

// MarketSnapshot is a read-only copy of one market's state.
type MarketSnapshot struct {
	Symbol        string
	Ticks         []market.Tick
	DecimalPlaces int
	Counts        Counts
}

// Aggregator tracks tick windows for a set of markets. It is not safe for
// concurrent use; a single goroutine owns it.
type Aggregator struct {
	tickCount int
	symbols   []string
	markets   map[string]*marketState
}

// New returns an aggregator with a window of tickCount ticks for each
// symbol. A non-positive tickCount selects DefaultTickCount.
func New(tickCount int, symbols []string) *Aggregator {
	a := &Aggregator{tickCount: normTickCount(tickCount)}
	a.SetActiveMarkets(symbols)
	return a
}

func normTickCount(n int) int {
	if n <= 0 {
		return DefaultTickCount
	}
	return n
}

// TickCount returns the window size.
func (a *Aggregator) TickCount() int { return a.tickCount }

// Symbols returns the tracked symbols in configuration order.
func (a *Aggregator) Symbols() []string {
	out := make([]string, len(a.symbols))
	copy(out, a.symbols)
	return out
}

// SetActiveMarkets replaces the tracked markets. Every market starts empty,
// including ones that were already tracked.
func (a *Aggregator) SetActiveMarkets(symbols []string) {
	a.symbols = a.symbols[:0]
	a.markets = make(map[string]*marketState, len(symbols))
	for _, s := range symbols {
		if _, dup := a.markets[s]; dup {
			continue
		}
		a.symbols = append(a.symbols, s)
		a.markets[s] = newMarketState()
	}
}

// SetTickCount changes the window size and resets every market.
func (a *Aggregator) SetTickCount(n int) {
	a.tickCount = normTickCount(n)
	a.Reset()
}

// Reset empties every tracked market.
func (a *Aggregator) Reset() {
	for s := range a.markets {
		a.markets[s] = newMarketState()
	}
}

// RemoveMarket stops tracking symbol and discards its state.
func (a *Aggregator) RemoveMarket(symbol string) error {
	if _, ok := a.markets[symbol]; !ok {
		return ErrUnknownSymbol
	}
	delete(a.markets, symbol)
	for i, s := range a.symbols {
		if s == symbol {
			a.symbols = append(a.symbols[:i], a.symbols[i+1:]...)
			break
		}
	}
	return nil
}

// RecordTick appends a live tick to the market window, evicting the oldest
// tick once the window is full.
func (a *Aggregator) RecordTick(symbol string, t market.Tick) error {
	m, ok := a.markets[symbol]
	if !ok {
		return ErrUnknownSymbol
	}

	m.history = append(m.history, t)
	if len(m.history) > a.tickCount {
		m.history = m.history[len(m.history)-a.tickCount:]
	}
	m.analyze()
	return nil
}

// LoadHistory replaces the market window with a backfill. Only the newest
// TickCount ticks are kept.
func (a *Aggregator) LoadHistory(symbol string, ticks []market.Tick) error {
	m, ok := a.markets[symbol]
	if !ok {
		return ErrUnknownSymbol
	}

	if len(ticks) > a.tickCount {
		ticks = ticks[len(ticks)-a.tickCount:]
	}
	m.history = make([]market.Tick, len(ticks), a.tickCount)
	copy(m.history, ticks)
	m.analyze()
	return nil
}

// Market returns a copy of one market's state.
func (a *Aggregator) Market(symbol string) (MarketSnapshot, bool) {
	m, ok := a.markets[symbol]
	if !ok {
		return MarketSnapshot{}, false
	}
	ticks := make([]market.Tick, len(m.history))
	copy(ticks, m.history)
	return MarketSnapshot{
		Symbol:        symbol,
		Ticks:         ticks,
		DecimalPlaces: m.decimalPlaces,
		Counts:        m.counts,
	}, true
}

// TotalTicks returns the number of ticks held across all markets.
func (a *Aggregator) TotalTicks() int {
	n := 0
	for _, m := range a.markets {
		n += len(m.history)
	}
	return n
}

// ReadyMarkets returns the symbols, in configuration order, whose window
// holds at least requiredTicks ticks.
func (a *Aggregator) ReadyMarkets(requiredTicks int) []string {
	var out []string
	for _, s := range a.symbols {
		if len(a.markets[s].history) >= requiredTicks {
			out = append(out, s)
		}
	}
	return out
}

// AggregateDigitPercentages sums digit counts over every market and divides
// by the total number of ticks. With no ticks at all the result is all
// zeros.
func (a *Aggregator) AggregateDigitPercentages() Percentages {
	var counts Counts
	total := 0
	for _, m := range a.markets {
		for d, c := range m.counts {
			counts[d] += c
		}
		total += len(m.history)
	}

	var p Percentages
	if total == 0 {
		return p
	}
	for d, c := range counts {
		p[d] = round2(percent(c, total))
	}
	return p
}

// FindExtremeDigits returns the digits with the highest and lowest
// percentage. Ties go to the smaller digit.
func FindExtremeDigits(p Percentages) (highest, lowest int) {
	for d := 1; d < len(p); d++ {
		if p[d] > p[highest] {
			highest = d
		}
		if p[d] < p[lowest] {
			lowest = d
		}
	}
	return highest, lowest
}

// DigitEvent is a tick together with its normalised last digit.
type DigitEvent struct {
	market.SymbolTick
	Digit         int `json:"digit"`
	DecimalPlaces int `json:"decimal_places"`
}

// RecentDigits returns the newest n ticks across all markets ordered by time.
// Ticks with equal times keep market configuration order.
func (a *Aggregator) RecentDigits(n int) []DigitEvent {
	if n <= 0 {
		return nil
	}

	var all []DigitEvent
	for _, s := range a.symbols {
		m := a.markets[s]
		for _, t := range m.history {
			all = append(all, DigitEvent{
				SymbolTick:    market.SymbolTick{Symbol: s, Tick: t},
				Digit:         t.LastDigit(m.decimalPlaces),
				DecimalPlaces: m.decimalPlaces,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time < all[j].Time })

	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// LatestTick returns the most recent tick across all markets.
func (a *Aggregator) LatestTick() (DigitEvent, bool) {
	var (
		latest DigitEvent
		found  bool
	)
	for _, s := range a.symbols {
		m := a.markets[s]
		if len(m.history) == 0 {
			continue
		}
		t := m.history[len(m.history)-1]
		if found && t.Time <= latest.Time {
			continue
		}
		latest = DigitEvent{
			SymbolTick:    market.SymbolTick{Symbol: s, Tick: t},
			Digit:         t.LastDigit(m.decimalPlaces),
			DecimalPlaces: m.decimalPlaces,
		}
		found = true
	}
	return latest, found
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
