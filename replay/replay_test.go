package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/digitpro/engine"
	"github.com/rustyeddy/digitpro/journal"
	"github.com/rustyeddy/digitpro/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadCSV(t *testing.T) {
	data := `time,symbol,quote
1700000000,R_10,6512.41
2023-11-14T22:13:21Z,R_25,1000.50

1700000002,R_10,6512.4
`
	var got []market.SymbolTick
	err := ReadCSV(context.Background(), strings.NewReader(data), func(st market.SymbolTick) error {
		got = append(got, st)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "R_10", got[0].Symbol)
	assert.Equal(t, int64(1700000000), got[0].Time)
	assert.Equal(t, int64(1700000001), got[1].Time)
	assert.Equal(t, "1000.5", got[1].Quote.String())
	assert.Equal(t, 0, got[2].LastDigit(2))
}

func TestReadCSVWithoutHeader(t *testing.T) {
	n := 0
	err := ReadCSV(context.Background(), strings.NewReader("1,R_10,1.23\n2,R_10,1.24\n"), func(market.SymbolTick) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"short row", "1,R_10\n", "line 1: bad row"},
		{"bad time", "yesterday,R_10,1.2\n", "bad time"},
		{"bad quote", "time,symbol,quote\n1,R_10,abc\n", "line 2: bad quote"},
		{"no symbol", "1,,1.2\n", "missing symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReadCSV(context.Background(), strings.NewReader(tt.data), func(market.SymbolTick) error { return nil })
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadCSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadCSV(ctx, strings.NewReader("1,R_10,1.2\n"), func(market.SymbolTick) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func writeRecording(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("time,symbol,quote\n")
	// R_10 ends in 7 four times out of five, R_25 never does.
	r10 := []string{"100.17", "100.27", "100.37", "100.42", "100.57"}
	r25 := []string{"200.11", "200.23", "200.34", "200.45", "200.59"}
	for i := range r10 {
		fmt.Fprintf(&b, "%d,R_10,%s\n", 1700000000+2*i, r10[i])
		fmt.Fprintf(&b, "%d,R_25,%s\n", 1700000001+2*i, r25[i])
	}

	path := filepath.Join(t.TempDir(), "ticks.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestSymbols(t *testing.T) {
	syms, err := Symbols(context.Background(), writeRecording(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"R_10", "R_25"}, syms)
}

func TestCSVReplay(t *testing.T) {
	ctx := context.Background()
	path := writeRecording(t)

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	defer j.Close()

	cfg := engine.DefaultConfig()
	cfg.TickCount = 5
	cfg.Symbols = []string{"R_10", "R_25"}
	eng := engine.New(cfg, zap.NewNop(), engine.WithJournal(j))

	res, err := CSV(ctx, path, eng)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Ticks)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), res.First)
	assert.Equal(t, time.Unix(1700000009, 0).UTC(), res.Last)

	a := eng.Snapshot()
	assert.Equal(t, int64(10), a.Processed)
	require.NotNil(t, a.Prediction)
	assert.Equal(t, 7, a.Prediction.Digit)
	assert.Equal(t, []string{"R_10"}, a.Prediction.Markets)

	preds, err := j.ListPredictions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, 7, preds[0].Digit)

	sigs, err := j.ListSignals(ctx, "R_10", 0)
	require.NoError(t, err)
	require.NotEmpty(t, sigs)
	assert.Equal(t, "ODD", sigs[0].Direction)
}

func TestCSVMissingFile(t *testing.T) {
	eng := engine.New(engine.DefaultConfig(), zap.NewNop())
	_, err := CSV(context.Background(), filepath.Join(t.TempDir(), "none.csv"), eng)
	assert.Error(t, err)
}
