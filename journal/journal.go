// Package journal records held predictions and even/odd calls so that a
// session can be reviewed afterwards.
package journal

import (
	"strings"
	"time"
)

// PredictionRecord is one hot-digit prediction as it was put on hold.
type PredictionRecord struct {
	ID         string
	Time       time.Time
	Digit      int
	Percentage float64
	Markets    []string
	HeldUntil  time.Time
	TickCount  int
}

// SignalRecord is an even/odd call for one market. Only changes of
// direction or strength are journalled.
type SignalRecord struct {
	ID             string
	Time           time.Time
	Symbol         string
	Direction      string
	Strength       string
	EvenPercentage float64
	OddPercentage  float64
	Difference     float64
	Ticks          int
}

type Journal interface {
	RecordPrediction(PredictionRecord) error
	RecordSignal(SignalRecord) error
	Close() error
}

// marketsSep joins PredictionRecord.Markets in every journal backend.
const marketsSep = ","

func joinMarkets(m []string) string { return strings.Join(m, marketsSep) }

func splitMarkets(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, marketsSep)
}
