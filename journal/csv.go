package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	predictionHeader = []string{"id", "time", "digit", "percentage", "markets", "held_until", "tick_count"}
	signalHeader     = []string{"id", "time", "symbol", "direction", "strength", "even_pct", "odd_pct", "difference", "ticks"}
)

type CSVJournal struct {
	predictions *csv.Writer
	signals     *csv.Writer
	pf, sf      *os.File
}

func NewCSV(predictionsPath, signalsPath string) (*CSVJournal, error) {
	pf, err := os.Create(predictionsPath)
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(signalsPath)
	if err != nil {
		pf.Close()
		return nil, err
	}

	j := &CSVJournal{
		predictions: csv.NewWriter(pf),
		signals:     csv.NewWriter(sf),
		pf:          pf,
		sf:          sf,
	}
	if err := j.write(j.predictions, predictionHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.signals, signalHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordPrediction(p PredictionRecord) error {
	if err := ensureID(&p.ID, p.Time); err != nil {
		return err
	}
	return j.write(j.predictions, []string{
		p.ID,
		p.Time.UTC().Format(time.RFC3339),
		strconv.Itoa(p.Digit),
		f(p.Percentage),
		joinMarkets(p.Markets),
		p.HeldUntil.UTC().Format(time.RFC3339),
		strconv.Itoa(p.TickCount),
	})
}

func (j *CSVJournal) RecordSignal(s SignalRecord) error {
	if err := ensureID(&s.ID, s.Time); err != nil {
		return err
	}
	return j.write(j.signals, []string{
		s.ID,
		s.Time.UTC().Format(time.RFC3339),
		s.Symbol,
		s.Direction,
		s.Strength,
		f(s.EvenPercentage),
		f(s.OddPercentage),
		f(s.Difference),
		strconv.Itoa(s.Ticks),
	})
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.predictions.Flush()
	if err := j.predictions.Error(); err != nil {
		return err
	}
	j.signals.Flush()
	if err := j.signals.Error(); err != nil {
		return err
	}

	if err := j.pf.Close(); err != nil {
		return err
	}
	if err := j.sf.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
