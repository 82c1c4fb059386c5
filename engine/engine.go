// Package engine applies feed events to the digit aggregator on a single
// goroutine and hands every resulting Analysis to the configured sinks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rustyeddy/digitpro/deriv"
	"github.com/rustyeddy/digitpro/digits"
	"github.com/rustyeddy/digitpro/journal"
	"github.com/rustyeddy/digitpro/observability"
	"go.uber.org/zap"
)

// DefaultRecentDigits is the length of the merged recent-digit strip.
const DefaultRecentDigits = 50

// Publisher receives every Analysis.
type Publisher interface {
	Publish(ctx context.Context, a Analysis) error
}

// Feed is the part of the feed client the engine drives on
// reconfiguration.
type Feed interface {
	Subscribe(symbols []string, count int) error
}

type Config struct {
	TickCount    int
	Symbols      []string
	HotThreshold float64
	Bands        digits.StrengthBands
	HoldDuration time.Duration
	RecentDigits int
}

func DefaultConfig() Config {
	return Config{
		TickCount:    digits.DefaultTickCount,
		HotThreshold: digits.DefaultHotThreshold,
		Bands:        digits.DefaultStrengthBands(),
		HoldDuration: digits.DefaultHoldDuration,
		RecentDigits: DefaultRecentDigits,
	}
}

type Option func(*Engine)

// WithJournal records new predictions and changed even/odd calls to j.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithPublishers adds publishers.
func WithPublishers(p ...Publisher) Option {
	return func(e *Engine) { e.publishers = append(e.publishers, p...) }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithFeed lets reconfiguration re-subscribe the feed.
func WithFeed(f Feed) Option {
	return func(e *Engine) { e.feed = f }
}

// WithClock replaces time.Now for analyses made before any tick arrived.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Engine struct {
	cfg  Config
	log  *zap.Logger
	agg  *digits.Aggregator
	hold *digits.PredictionHold

	journal    journal.Journal
	publishers []Publisher
	metrics    *observability.Metrics
	feed       Feed
	now        func() time.Time

	processed int64
	connects  int
	signals   map[string]digits.EvenOddSignal
	cmds      chan func(context.Context)

	mu     sync.RWMutex
	latest Analysis
}

func New(cfg Config, log *zap.Logger, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.HotThreshold <= 0 {
		cfg.HotThreshold = def.HotThreshold
	}
	if cfg.Bands == (digits.StrengthBands{}) {
		cfg.Bands = def.Bands
	}
	if cfg.RecentDigits <= 0 {
		cfg.RecentDigits = def.RecentDigits
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		cfg:     cfg,
		log:     log.Named("engine"),
		agg:     digits.New(cfg.TickCount, cfg.Symbols),
		hold:    digits.NewPredictionHold(cfg.HoldDuration),
		now:     time.Now,
		signals: make(map[string]digits.EvenOddSignal),
		cmds:    make(chan func(context.Context), 16),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Symbols returns the tracked symbols.
func (e *Engine) Symbols() []string {
	return e.agg.Symbols()
}

// TickCount returns the analysis window.
func (e *Engine) TickCount() int {
	return e.agg.TickCount()
}

// Snapshot returns the most recent Analysis. It is safe to call from any
// goroutine.
func (e *Engine) Snapshot() Analysis {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Run applies events until ctx is done or events is closed. Errors from
// single events are logged and do not stop the loop.
func (e *Engine) Run(ctx context.Context, events <-chan deriv.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd(ctx)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.Apply(ctx, ev); err != nil {
				e.log.Warn("apply event", zap.Error(err))
			}
		}
	}
}

// SetMarkets queues a change of tracked markets. Every market starts empty
// and the feed is asked for fresh history. It must be paired with Run.
func (e *Engine) SetMarkets(ctx context.Context, symbols []string) error {
	return e.enqueue(ctx, func(ctx context.Context) {
		e.agg.SetActiveMarkets(symbols)
		e.reconfigure(ctx)
	})
}

// SetTickCount queues a change of the analysis window.
func (e *Engine) SetTickCount(ctx context.Context, n int) error {
	return e.enqueue(ctx, func(ctx context.Context) {
		e.agg.SetTickCount(n)
		e.reconfigure(ctx)
	})
}

// Reconfigure queues a change of both markets and window. Nothing happens
// when they match the current ones, so tick windows survive a reload that
// changed neither.
func (e *Engine) Reconfigure(ctx context.Context, symbols []string, n int) error {
	return e.enqueue(ctx, func(ctx context.Context) {
		if slices.Equal(dedupe(symbols), e.agg.Symbols()) && normTickCount(n) == e.agg.TickCount() {
			e.log.Debug("reconfigure: unchanged")
			return
		}
		e.agg.SetActiveMarkets(symbols)
		e.agg.SetTickCount(n)
		e.reconfigure(ctx)
	})
}

func dedupe(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func normTickCount(n int) int {
	if n <= 0 {
		return digits.DefaultTickCount
	}
	return n
}

func (e *Engine) enqueue(ctx context.Context, cmd func(context.Context)) error {
	select {
	case e.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) reconfigure(ctx context.Context) {
	e.hold.Clear()
	e.signals = make(map[string]digits.EvenOddSignal)

	symbols, count := e.agg.Symbols(), e.agg.TickCount()
	e.log.Info("reconfigured", zap.Strings("symbols", symbols), zap.Int("tick_count", count))

	if e.feed != nil {
		if err := e.feed.Subscribe(symbols, count); err != nil {
			e.log.Warn("resubscribe", zap.Error(err))
		}
	}
	if err := e.update(ctx); err != nil {
		e.log.Warn("publish after reconfigure", zap.Error(err))
	}
}

// Apply handles one feed event. Events that change a tick window produce a
// new Analysis which is passed to every sink; the returned error joins the
// sink failures. Ticks for symbols that are not tracked are dropped.
func (e *Engine) Apply(ctx context.Context, ev deriv.Event) error {
	switch ev := ev.(type) {
	case deriv.HistoryEvent:
		if err := e.agg.LoadHistory(ev.Symbol, ev.Ticks); err != nil {
			e.log.Debug("history dropped", zap.String("symbol", ev.Symbol), zap.Error(err))
			return nil
		}
		if e.metrics != nil {
			e.metrics.RecordHistory(ev.Symbol)
		}
		e.log.Debug("history loaded", zap.String("symbol", ev.Symbol), zap.Int("ticks", len(ev.Ticks)))

	case deriv.TickEvent:
		if err := e.agg.RecordTick(ev.Symbol, ev.Tick); err != nil {
			e.log.Debug("tick dropped", zap.String("symbol", ev.Symbol), zap.Error(err))
			return nil
		}
		e.processed++
		if e.metrics != nil {
			e.metrics.RecordTick(ev.Symbol, ev.Time)
		}

	case deriv.ErrorEvent:
		e.log.Warn("feed error", zap.String("code", ev.Code), zap.String("symbol", ev.Symbol), zap.String("message", ev.Message))
		if e.metrics != nil {
			e.metrics.RecordFeedError(ev.Code)
		}
		return nil

	case deriv.StatusEvent:
		if e.metrics != nil {
			e.metrics.RecordConnection(ev.Connected, e.connects > 0)
		}
		if ev.Connected {
			e.connects++
		}
		return nil

	default:
		return fmt.Errorf("unexpected event %T", ev)
	}

	return e.update(ctx)
}

func (e *Engine) update(ctx context.Context) error {
	a := e.analyze(e.now())

	e.mu.Lock()
	e.latest = a
	e.mu.Unlock()

	return e.dispatch(ctx, a)
}

func (e *Engine) dispatch(ctx context.Context, a Analysis) error {
	var errs []error

	if e.metrics != nil {
		e.metrics.UpdateDigits(a.Percentages)
		e.metrics.HotDigits.Set(float64(len(a.Hot.Digits)))
		for _, s := range a.EvenOdd {
			e.metrics.UpdateMarket(s.Symbol, s.Ticks, s.Difference)
		}
		if a.NewPrediction {
			e.metrics.PredictionsMade.Inc()
		}
	}

	if a.NewPrediction && a.Prediction != nil {
		p := a.Prediction
		e.log.Info("prediction",
			zap.Int("digit", p.Digit),
			zap.Float64("percentage", p.Percentage),
			zap.Strings("markets", p.Markets),
			zap.Time("until", p.Until))

		if e.journal != nil {
			err := e.journal.RecordPrediction(journal.PredictionRecord{
				Time:       p.At,
				Digit:      p.Digit,
				Percentage: p.Percentage,
				Markets:    p.Markets,
				HeldUntil:  p.Until,
				TickCount:  a.TickCount,
			})
			if err != nil {
				errs = append(errs, e.sinkError("journal", fmt.Errorf("record prediction: %w", err)))
			}
		}
	}

	for _, s := range a.EvenOdd {
		if !s.Ready {
			continue
		}
		prev, seen := e.signals[s.Symbol]
		e.signals[s.Symbol] = s
		if !s.HasCall() || (seen && prev.Direction == s.Direction && prev.Strength == s.Strength) {
			continue
		}

		e.log.Debug("even/odd call",
			zap.String("symbol", s.Symbol),
			zap.String("direction", string(s.Direction)),
			zap.String("strength", string(s.Strength)),
			zap.Float64("difference", s.Difference))

		if e.journal != nil {
			err := e.journal.RecordSignal(journal.SignalRecord{
				Time:           a.Time,
				Symbol:         s.Symbol,
				Direction:      string(s.Direction),
				Strength:       string(s.Strength),
				EvenPercentage: s.EvenPercentage,
				OddPercentage:  s.OddPercentage,
				Difference:     s.Difference,
				Ticks:          s.Ticks,
			})
			if err != nil {
				errs = append(errs, e.sinkError("journal", fmt.Errorf("record signal: %w", err)))
			}
		}
	}

	for _, p := range e.publishers {
		if err := p.Publish(ctx, a); err != nil {
			errs = append(errs, e.sinkError("publish", err))
		}
	}

	return errors.Join(errs...)
}

func (e *Engine) sinkError(sink string, err error) error {
	if e.metrics != nil {
		e.metrics.RecordSinkError(sink)
	}
	return err
}
