package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordPrediction(p PredictionRecord) error {
	if err := ensureID(&p.ID, p.Time); err != nil {
		return err
	}
	_, err := j.db.Exec(`
		INSERT INTO predictions
		(id, time, digit, percentage, markets, held_until, tick_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Time.UTC(), p.Digit, p.Percentage,
		joinMarkets(p.Markets), p.HeldUntil.UTC(), p.TickCount,
	)
	return err
}

func (j *SQLiteJournal) RecordSignal(s SignalRecord) error {
	if err := ensureID(&s.ID, s.Time); err != nil {
		return err
	}
	_, err := j.db.Exec(`
		INSERT INTO signals
		(id, time, symbol, direction, strength, even_pct, odd_pct, difference, ticks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Time.UTC(), s.Symbol, s.Direction, s.Strength,
		s.EvenPercentage, s.OddPercentage, s.Difference, s.Ticks,
	)
	return err
}

// ListPredictions returns the newest predictions first. A limit <= 0
// returns all of them.
func (j *SQLiteJournal) ListPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, time, digit, percentage, markets, held_until, tick_count
		FROM predictions
		ORDER BY time DESC, id DESC
		LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		var markets string
		if err := rows.Scan(
			&rec.ID,
			&rec.Time,
			&rec.Digit,
			&rec.Percentage,
			&markets,
			&rec.HeldUntil,
			&rec.TickCount,
		); err != nil {
			return nil, err
		}
		rec.Markets = splitMarkets(markets)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSignals returns the newest signals first, for one symbol or for all
// when symbol is empty.
func (j *SQLiteJournal) ListSignals(ctx context.Context, symbol string, limit int) ([]SignalRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, time, symbol, direction, strength, even_pct, odd_pct, difference, ticks
		FROM signals
		WHERE ? = '' OR symbol = ?
		ORDER BY time DESC, id DESC
		LIMIT ?`, symbol, symbol, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Time,
			&rec.Symbol,
			&rec.Direction,
			&rec.Strength,
			&rec.EvenPercentage,
			&rec.OddPercentage,
			&rec.Difference,
			&rec.Ticks,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// sqlite treats a negative LIMIT as no limit.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
