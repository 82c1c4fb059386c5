package engine

import (
	"time"

	"github.com/rustyeddy/digitpro/digits"
	"github.com/rustyeddy/digitpro/market"
)

// MarketStat is the per-market part of an Analysis.
type MarketStat struct {
	Symbol        string        `json:"symbol"`
	Name          string        `json:"name"`
	Ticks         int           `json:"ticks"`
	DecimalPlaces int           `json:"decimal_places"`
	Counts        digits.Counts `json:"counts"`
}

// Analysis is a snapshot of everything derived from the tick windows after
// one update.
type Analysis struct {
	Time          time.Time              `json:"time"`
	TickCount     int                    `json:"tick_count"`
	Processed     int64                  `json:"processed"`
	Symbols       []string               `json:"symbols"`
	Markets       []MarketStat           `json:"markets"`
	Percentages   digits.Percentages     `json:"percentages"`
	Highest       int                    `json:"highest"`
	Lowest        int                    `json:"lowest"`
	Hot           digits.HotDigitReport  `json:"hot"`
	Prediction    *digits.Prediction     `json:"prediction,omitempty"`
	NewPrediction bool                   `json:"new_prediction"`
	EvenOdd       []digits.EvenOddSignal `json:"even_odd"`
	Recent        []digits.DigitEvent    `json:"recent"`
	Latest        *digits.DigitEvent     `json:"latest,omitempty"`
}

// LatestSymbol returns the symbol of the newest tick, or "" when there is
// none.
func (a Analysis) LatestSymbol() string {
	if a.Latest == nil {
		return ""
	}
	return a.Latest.Symbol
}

// Market returns the stats for symbol.
func (a Analysis) Market(symbol string) (MarketStat, bool) {
	for _, m := range a.Markets {
		if m.Symbol == symbol {
			return m, true
		}
	}
	return MarketStat{}, false
}

func (e *Engine) analyze(now time.Time) Analysis {
	agg := e.agg
	a := Analysis{
		Time:      now,
		TickCount: agg.TickCount(),
		Processed: e.processed,
		Symbols:   agg.Symbols(),
	}

	if latest, ok := agg.LatestTick(); ok {
		a.Latest = &latest
		// Hold expiry follows feed time so that replays behave like the live
		// session they were recorded from.
		a.Time = latest.Timestamp()
	}

	for _, s := range a.Symbols {
		snap, _ := agg.Market(s)
		a.Markets = append(a.Markets, MarketStat{
			Symbol:        s,
			Name:          market.MarketName(s),
			Ticks:         len(snap.Ticks),
			DecimalPlaces: snap.DecimalPlaces,
			Counts:        snap.Counts,
		})
	}

	a.Percentages = agg.AggregateDigitPercentages()
	a.Highest, a.Lowest = digits.FindExtremeDigits(a.Percentages)
	a.Hot = agg.FindHotDigitsReady(e.cfg.HotThreshold, agg.TickCount())

	_, a.NewPrediction = e.hold.Offer(a.Time, a.Hot)
	if p, ok := e.hold.Current(a.Time); ok {
		a.Prediction = &p
	}

	a.EvenOdd = agg.EvaluateAllEvenOdd(agg.TickCount(), e.cfg.Bands)
	a.Recent = agg.RecentDigits(e.cfg.RecentDigits)
	return a
}
