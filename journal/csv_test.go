package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestCSV(t *testing.T) (*CSVJournal, string, string) {
	t.Helper()

	dir := t.TempDir()
	pp := filepath.Join(dir, "predictions.csv")
	sp := filepath.Join(dir, "signals.csv")

	j, err := NewCSV(pp, sp)
	require.NoError(t, err)
	return j, pp, sp
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, pp, sp := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{predictionHeader}, readCSV(t, pp))
	assert.Equal(t, [][]string{signalHeader}, readCSV(t, sp))
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	j, pp, sp := newTestCSV(t)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.RecordPrediction(PredictionRecord{
		ID:         "P1",
		Time:       at,
		Digit:      4,
		Percentage: 19.1666,
		Markets:    []string{"R_10", "1HZ10V"},
		HeldUntil:  at.Add(37 * time.Second),
		TickCount:  120,
	}))
	require.NoError(t, j.RecordSignal(SignalRecord{
		Time:           at,
		Symbol:         "R_50",
		Direction:      "ODD",
		Strength:       "medium",
		EvenPercentage: 47,
		OddPercentage:  53,
		Difference:     6,
		Ticks:          120,
	}))
	require.NoError(t, j.Close())

	preds := readCSV(t, pp)
	require.Len(t, preds, 2)
	assert.Equal(t, []string{"P1", "2024-01-02T03:04:05Z", "4", "19.17", "R_10,1HZ10V", "2024-01-02T03:04:42Z", "120"}, preds[1])

	sigs := readCSV(t, sp)
	require.Len(t, sigs, 2)
	assert.Len(t, sigs[1][0], 26)
	assert.Equal(t, []string{"2024-01-02T03:04:05Z", "R_50", "ODD", "medium", "47.00", "53.00", "6.00", "120"}, sigs[1][1:])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "p.csv"), filepath.Join(dir, "s.csv"))
	assert.Error(t, err)
}

func TestMarketsMatchSQLite(t *testing.T) {
	j, pp, _ := newTestCSV(t)

	markets := []string{"R_10", "R_25", "1HZ10V"}
	require.NoError(t, j.RecordPrediction(PredictionRecord{ID: "P1", Time: time.Now(), Markets: markets}))
	require.NoError(t, j.Close())

	db, err := NewSQLite(filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.RecordPrediction(PredictionRecord{ID: "P1", Time: time.Now(), Markets: markets}))

	var stored string
	require.NoError(t, db.db.QueryRow(`SELECT markets FROM predictions WHERE id = 'P1'`).Scan(&stored))

	preds := readCSV(t, pp)
	require.Len(t, preds, 2)
	assert.Equal(t, stored, preds[1][4])
	assert.Equal(t, markets, splitMarkets(preds[1][4]))
}
