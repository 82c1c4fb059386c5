package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/digitpro/digits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsSeparateRegistries(t *testing.T) {
	t.Parallel()

	a := NewMetrics("", nil)
	b := NewMetrics("", nil)

	a.RecordTick("R_10", 100)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.TicksReceived.WithLabelValues("R_10")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TicksReceived.WithLabelValues("R_10")))
	assert.Equal(t, 100.0, testutil.ToFloat64(a.LastTickEpoch))
}

func TestRecordFeedErrorAndConnection(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordFeedError("")
	m.RecordFeedError("InvalidSymbol")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedErrors.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedErrors.WithLabelValues("InvalidSymbol")))

	m.RecordConnection(true, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedConnected))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Reconnects))

	m.RecordConnection(false, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeedConnected))

	m.RecordConnection(true, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconnects))
}

func TestUpdateGauges(t *testing.T) {
	t.Parallel()

	m := NewMetrics("", nil)

	var p digits.Percentages
	p[3] = 12.5
	p[7] = 30
	m.UpdateDigits(p)
	m.UpdateMarket("R_50", 120, 8.33)
	m.RecordHistory("R_50")
	m.RecordSinkError("journal")

	assert.Equal(t, 30.0, testutil.ToFloat64(m.DigitPercentage.WithLabelValues("7")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.DigitPercentage.WithLabelValues("3")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.WindowLength.WithLabelValues("R_50")))
	assert.Equal(t, 8.33, testutil.ToFloat64(m.EvenOddDifference.WithLabelValues("R_50")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryLoads.WithLabelValues("R_50")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrors.WithLabelValues("journal")))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("", nil)
	m.RecordTick("R_100", 1700000000)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `digitpro_feed_ticks_total{symbol="R_100"} 1`)
}
