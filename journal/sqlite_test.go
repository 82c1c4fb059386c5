package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('predictions','signals')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["predictions"])
	assert.True(t, found["signals"])
}

func TestSQLiteReopen(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.RecordPrediction(PredictionRecord{Time: time.Now(), Digit: 3}))
	require.NoError(t, j.Close())

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	got, err := j.ListPredictions(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLiteRecordPrediction(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := PredictionRecord{
		Time:       at,
		Digit:      7,
		Percentage: 21.5,
		Markets:    []string{"R_10", "R_25"},
		HeldUntil:  at.Add(37 * time.Second),
		TickCount:  120,
	}
	require.NoError(t, j.RecordPrediction(rec))
	require.NoError(t, j.RecordPrediction(PredictionRecord{Time: at.Add(time.Minute), Digit: 2}))

	got, err := j.ListPredictions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// newest first
	assert.Equal(t, 2, got[0].Digit)
	assert.Nil(t, got[0].Markets)

	p := got[1]
	assert.Len(t, p.ID, 26)
	assert.True(t, p.Time.Equal(at))
	assert.True(t, p.HeldUntil.Equal(rec.HeldUntil))
	assert.Equal(t, 7, p.Digit)
	assert.InDelta(t, 21.5, p.Percentage, 1e-9)
	assert.Equal(t, []string{"R_10", "R_25"}, p.Markets)
	assert.Equal(t, 120, p.TickCount)

	limited, err := j.ListPredictions(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteRecordSignal(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	recs := []SignalRecord{
		{ID: "fixed-id", Time: at, Symbol: "R_10", Direction: "EVEN", Strength: "weak", EvenPercentage: 52, OddPercentage: 48, Difference: 4, Ticks: 120},
		{Time: at.Add(time.Second), Symbol: "R_25", Direction: "ODD", Strength: "strong", EvenPercentage: 40, OddPercentage: 60, Difference: 20, Ticks: 120},
		{Time: at.Add(2 * time.Second), Symbol: "R_10", Direction: "ODD", Strength: "medium", EvenPercentage: 47, OddPercentage: 53, Difference: 6, Ticks: 120},
	}
	for _, r := range recs {
		require.NoError(t, j.RecordSignal(r))
	}

	all, err := j.ListSignals(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	r10, err := j.ListSignals(context.Background(), "R_10", 0)
	require.NoError(t, err)
	require.Len(t, r10, 2)
	assert.Equal(t, "ODD", r10[0].Direction)
	assert.Equal(t, "medium", r10[0].Strength)
	assert.Equal(t, "fixed-id", r10[1].ID)
	assert.True(t, r10[1].Time.Equal(at))
	assert.InDelta(t, 52, r10[1].EvenPercentage, 1e-9)
	assert.InDelta(t, 48, r10[1].OddPercentage, 1e-9)
	assert.InDelta(t, 4, r10[1].Difference, 1e-9)
	assert.Equal(t, 120, r10[1].Ticks)

	none, err := j.ListSignals(context.Background(), "R_75", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
