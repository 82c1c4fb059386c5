package deriv

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader is the header written by StreamTicksToCSV and accepted by the
// replay reader.
var CSVHeader = []string{"time", "symbol", "quote"}

// StreamTicksToCSV writes live ticks from events as time,symbol,quote rows.
// It stops when ctx is done, when events is closed, or once maxTicks rows
// have been written (maxTicks <= 0 means no limit). History backfills are not
// written so a recording holds every tick once.
func StreamTicksToCSV(ctx context.Context, events <-chan Event, w io.Writer, maxTicks int) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	written := 0
	for {
		var ev Event
		var ok bool
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case ev, ok = <-events:
			if !ok {
				return written, nil
			}
		}

		te, isTick := ev.(TickEvent)
		if !isTick {
			continue
		}

		row := []string{strconv.FormatInt(te.Time, 10), te.Symbol, te.Quote.String()}
		if err := cw.Write(row); err != nil {
			return written, err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, err
		}

		written++
		if maxTicks > 0 && written >= maxTicks {
			return written, nil
		}
	}
}
