// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/digitpro/digits"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	TicksReceived *prometheus.CounterVec
	HistoryLoads  *prometheus.CounterVec
	FeedErrors    *prometheus.CounterVec
	Reconnects    prometheus.Counter
	FeedConnected prometheus.Gauge
	LastTickEpoch prometheus.Gauge

	// Analysis metrics
	DigitPercentage   *prometheus.GaugeVec
	WindowLength      *prometheus.GaugeVec
	EvenOddDifference *prometheus.GaugeVec
	HotDigits         prometheus.Gauge
	PredictionsMade   prometheus.Counter
	SinkErrors        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates a Metrics instance registered with reg. A nil reg uses
// a fresh registry, which keeps repeated construction in tests safe.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "digitpro"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		TicksReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_total",
			Help:      "Total number of live ticks received by symbol",
		}, []string{"symbol"}),
		HistoryLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "history_loads_total",
			Help:      "Total number of tick history backfills by symbol",
		}, []string{"symbol"}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of errors reported by the API by code",
		}, []string{"code"}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of reconnections after the first connect",
		}),
		FeedConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "1 while the feed connection is up",
		}),
		LastTickEpoch: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_tick_timestamp",
			Help:      "Unix timestamp of the latest tick",
		}),

		DigitPercentage: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "digit_percentage",
			Help:      "Share of each last digit across all markets",
		}, []string{"digit"}),
		WindowLength: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "window_ticks",
			Help:      "Ticks held in the analysis window by symbol",
		}, []string{"symbol"}),
		EvenOddDifference: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "even_odd_difference",
			Help:      "Absolute even/odd percentage difference by symbol",
		}, []string{"symbol"}),
		HotDigits: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "hot_digits",
			Help:      "Number of digits above the hot threshold in at least one market",
		}),
		PredictionsMade: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "predictions_total",
			Help:      "Total number of new held predictions",
		}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of failed journal or publish calls",
		}, []string{"sink"}),

		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordTick counts a live tick.
func (m *Metrics) RecordTick(symbol string, epoch int64) {
	m.TicksReceived.WithLabelValues(symbol).Inc()
	m.LastTickEpoch.Set(float64(epoch))
}

// RecordHistory counts a history backfill.
func (m *Metrics) RecordHistory(symbol string) {
	m.HistoryLoads.WithLabelValues(symbol).Inc()
}

// RecordFeedError counts an API error.
func (m *Metrics) RecordFeedError(code string) {
	if code == "" {
		code = "unknown"
	}
	m.FeedErrors.WithLabelValues(code).Inc()
}

// RecordConnection updates the connection gauge. reconnect is true for
// every connect after the first.
func (m *Metrics) RecordConnection(connected, reconnect bool) {
	if connected {
		m.FeedConnected.Set(1)
		if reconnect {
			m.Reconnects.Inc()
		}
		return
	}
	m.FeedConnected.Set(0)
}

// UpdateDigits sets the aggregated digit percentage gauges.
func (m *Metrics) UpdateDigits(p digits.Percentages) {
	for d, v := range p {
		m.DigitPercentage.WithLabelValues(strconv.Itoa(d)).Set(v)
	}
}

// UpdateMarket sets the per-symbol window and even/odd gauges.
func (m *Metrics) UpdateMarket(symbol string, ticks int, difference float64) {
	m.WindowLength.WithLabelValues(symbol).Set(float64(ticks))
	m.EvenOddDifference.WithLabelValues(symbol).Set(difference)
}

// RecordSinkError counts a failed sink call.
func (m *Metrics) RecordSinkError(sink string) {
	m.SinkErrors.WithLabelValues(sink).Inc()
}
