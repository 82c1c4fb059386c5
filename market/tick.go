package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a single observed quote. Time is epoch seconds as reported by the
// feed.
type Tick struct {
	Time  int64           `json:"time"`
	Quote decimal.Decimal `json:"quote"`
}

// NewTick builds a tick from a float quote. The quote keeps the shortest
// decimal representation of the float, which is what the feed sends on the
// wire.
func NewTick(epoch int64, quote float64) Tick {
	return Tick{Time: epoch, Quote: decimal.NewFromFloat(quote)}
}

// ParseTick builds a tick from the textual form of a quote.
func ParseTick(epoch int64, quote string) (Tick, error) {
	q, err := decimal.NewFromString(strings.TrimSpace(quote))
	if err != nil {
		return Tick{}, fmt.Errorf("bad quote %q: %w", quote, err)
	}
	return Tick{Time: epoch, Quote: q}, nil
}

// Timestamp returns the tick time in UTC.
func (t Tick) Timestamp() time.Time {
	return time.Unix(t.Time, 0).UTC()
}

// FractionalDigits counts the digits after the decimal point in the shortest
// form of the quote. Trailing zeros do not count: 1.230 has two.
func (t Tick) FractionalDigits() int {
	s := t.Quote.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}

// LastDigit returns the final fractional digit once the quote is written
// with exactly places fractional digits, padding with zeros or truncating.
func (t Tick) LastDigit(places int) int {
	if places < 0 {
		places = 0
	}
	p := int32(places)
	s := t.Quote.Truncate(p).StringFixed(p)
	return int(s[len(s)-1] - '0')
}

// Format renders the quote with a fixed number of fractional digits.
func (t Tick) Format(places int) string {
	return t.Quote.StringFixed(int32(places))
}

// SymbolTick is a tick tagged with the market it came from.
type SymbolTick struct {
	Symbol string `json:"symbol"`
	Tick
}
