// Package deriv streams synthetic index ticks from the Deriv WebSocket API.
package deriv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "wss://ws.derivws.com/websockets/v3"
	DefaultAppID    = "1089"
)

// ErrNotConnected is returned by writes while no connection is up.
var ErrNotConnected = errors.New("not connected")

// Config configures the feed connection.
type Config struct {
	Endpoint string
	AppID    string
	// ReconnectDelay is the first wait after a dropped connection. It
	// doubles on every failed attempt up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultConfig returns the public endpoint with conservative timeouts.
func DefaultConfig() Config {
	return Config{
		Endpoint:          DefaultEndpoint,
		AppID:             DefaultAppID,
		ReconnectDelay:    3 * time.Second,
		MaxReconnectDelay: 60 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// URL returns the endpoint with the app_id query parameter set.
func (c Config) URL() (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if c.AppID != "" {
		q := u.Query()
		q.Set("app_id", c.AppID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Client keeps a subscription to tick history and live ticks for a set of
// symbols, reconnecting when the connection drops.
type Client struct {
	cfg    Config
	log    *zap.Logger
	events chan Event

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols []string
	count   int
}

// NewClient returns a client. Nothing is dialled until Run.
func NewClient(cfg Config, log *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		log:    log.Named("deriv"),
		events: make(chan Event, 1024),
	}
}

// Events returns the event stream. It is closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Subscribe sets the symbols and history size to request. On a live
// connection the previous tick streams are dropped and the new history
// requests go out at once; otherwise they are sent on the next connect.
func (c *Client) Subscribe(symbols []string, count int) error {
	c.mu.Lock()
	c.symbols = append([]string(nil), symbols...)
	c.count = count
	c.mu.Unlock()

	err := c.sendSubscriptions(true)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Run connects and reads until ctx is done. Dropped connections are retried
// with exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	retry := 0
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			retry = 0
		}

		delay := c.backoff(retry)
		retry++
		c.log.Warn("feed disconnected", zap.Error(err), zap.Int("retry", retry), zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) backoff(retry int) time.Duration {
	d := c.cfg.ReconnectDelay
	for i := 0; i < retry && d < c.cfg.MaxReconnectDelay; i++ {
		d *= 2
	}
	if d > c.cfg.MaxReconnectDelay {
		d = c.cfg.MaxReconnectDelay
	}
	return d
}

// session runs one connection until it fails. connected reports whether the
// dial succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	u, err := c.cfg.URL()
	if err != nil {
		return false, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.emit(ctx, StatusEvent{Connected: false})
	}()

	c.log.Info("feed connected", zap.String("url", u))
	c.emit(ctx, StatusEvent{Connected: true})

	if err := c.sendSubscriptions(false); err != nil {
		return true, fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(stop)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}

		events, err := decodeMessage(msg)
		if err != nil {
			c.log.Warn("dropping frame", zap.Error(err))
			continue
		}
		for _, ev := range events {
			if !c.emit(ctx, ev) {
				return true, ctx.Err()
			}
		}
	}
}

func (c *Client) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.write(pingRequest{Ping: 1}); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) sendSubscriptions(forget bool) error {
	c.mu.Lock()
	symbols := append([]string(nil), c.symbols...)
	count := c.count
	c.mu.Unlock()

	if forget {
		if err := c.write(forgetAllRequest{ForgetAll: "ticks"}); err != nil {
			return err
		}
	}
	for _, s := range symbols {
		if err := c.write(historyRequest(s, count)); err != nil {
			return fmt.Errorf("request history for %s: %w", s, err)
		}
		c.log.Debug("requested history", zap.String("symbol", s), zap.Int("count", count))
	}
	return nil
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) emit(ctx context.Context, ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
