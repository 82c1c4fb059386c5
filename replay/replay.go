// Package replay feeds recorded ticks back through the analysis engine.
package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/digitpro/deriv"
	"github.com/rustyeddy/digitpro/engine"
	"github.com/rustyeddy/digitpro/market"
)

// Result summarises a replay.
type Result struct {
	Ticks int
	First time.Time
	Last  time.Time
}

// ReadCSV calls fn for every tick row of r.
//
// Rows are time,symbol,quote as written by the record command. The header is
// optional. time is either epoch seconds or RFC3339. The quote is kept in its
// textual form so the number of decimals survives.
func ReadCSV(ctx context.Context, r io.Reader, fn func(market.SymbolTick) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line++

		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		st, err := parseRow(row)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}

func parseRow(row []string) (market.SymbolTick, error) {
	if len(row) < 3 {
		return market.SymbolTick{}, fmt.Errorf("bad row (need time,symbol,quote): %v", row)
	}

	epoch, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return market.SymbolTick{}, err
	}
	symbol := strings.TrimSpace(row[1])
	if symbol == "" {
		return market.SymbolTick{}, fmt.Errorf("missing symbol")
	}
	tk, err := market.ParseTick(epoch, row[2])
	if err != nil {
		return market.SymbolTick{}, err
	}
	return market.SymbolTick{Symbol: symbol, Tick: tk}, nil
}

func parseTime(s string) (int64, error) {
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epoch, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return t.Unix(), nil
}

// Symbols lists the symbols found in a recording in order of first
// appearance.
func Symbols(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var out []string
	err = ReadCSV(ctx, f, func(st market.SymbolTick) error {
		if !seen[st.Symbol] {
			seen[st.Symbol] = true
			out = append(out, st.Symbol)
		}
		return nil
	})
	return out, err
}

// CSV replays a recording through eng as live ticks. Sink errors stop the
// replay.
func CSV(ctx context.Context, path string, eng *engine.Engine) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	var res Result
	err = ReadCSV(ctx, f, func(st market.SymbolTick) error {
		ts := st.Timestamp()
		if res.First.IsZero() || ts.Before(res.First) {
			res.First = ts
		}
		if ts.After(res.Last) {
			res.Last = ts
		}
		res.Ticks++
		return eng.Apply(ctx, deriv.TickEvent{SymbolTick: st})
	})
	return res, err
}
