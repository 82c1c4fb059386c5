package deriv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testConfig(serverURL string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = "ws" + strings.TrimPrefix(serverURL, "http")
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.PingInterval = 0
	return cfg
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestConfigURL(t *testing.T) {
	u, err := DefaultConfig().URL()
	require.NoError(t, err)
	assert.Equal(t, "wss://ws.derivws.com/websockets/v3?app_id=1089", u)

	cfg := Config{Endpoint: "ws://localhost:1/ws?x=1", AppID: "42"}
	u, err = cfg.URL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:1/ws?app_id=42&x=1", u)
}

func TestBackoff(t *testing.T) {
	c := NewClient(Config{ReconnectDelay: time.Second, MaxReconnectDelay: 5 * time.Second}, nil)
	assert.Equal(t, time.Second, c.backoff(0))
	assert.Equal(t, 2*time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 5*time.Second, c.backoff(3))
	assert.Equal(t, 5*time.Second, c.backoff(40))
}

func TestClientStreamsHistoryAndTicks(t *testing.T) {
	var appID atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appID.Store(r.URL.Query().Get("app_id"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req ticksHistoryRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.TicksHistory != "R_10" || req.Count != 3 || req.Subscribe != 1 {
			t.Errorf("unexpected request: %+v", req)
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"msg_type":"history","echo_req":{"ticks_history":"R_10"},"history":{"prices":[6512.41,6512.42,6512.43],"times":[1,2,3]}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"msg_type":"tick","tick":{"symbol":"R_10","quote":6512.4,"epoch":4}}`))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, c.Subscribe([]string{"R_10"}, 3))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Equal(t, StatusEvent{Connected: true}, nextEvent(t, c.Events()))

	h, ok := nextEvent(t, c.Events()).(HistoryEvent)
	require.True(t, ok)
	assert.Equal(t, "R_10", h.Symbol)
	assert.Len(t, h.Ticks, 3)

	te, ok := nextEvent(t, c.Events()).(TickEvent)
	require.True(t, ok)
	assert.Equal(t, int64(4), te.Time)
	assert.Equal(t, "1089", appID.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	// the stream is closed once Run returns
	for range c.Events() {
	}
}

func TestClientResubscribesOnLiveConnection(t *testing.T) {
	frames := make(chan map[string]any, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(msg, &m) == nil {
				frames <- m
			}
		}
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, c.Subscribe([]string{"R_10"}, 5))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, StatusEvent{Connected: true}, nextEvent(t, c.Events()))
	first := <-frames
	assert.Equal(t, "R_10", first["ticks_history"])

	require.NoError(t, c.Subscribe([]string{"R_25", "R_50"}, 10))

	var got []map[string]any
	for len(got) < 3 {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frames")
		}
	}
	assert.Equal(t, "ticks", got[0]["forget_all"])
	assert.Equal(t, "R_25", got[1]["ticks_history"])
	assert.Equal(t, "R_50", got[2]["ticks_history"])
	assert.Equal(t, float64(10), got[2]["count"])
}

func TestClientReconnects(t *testing.T) {
	var conns atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(1)
		// drop the connection straight away
		conn.Close()
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	connected := 0
	deadline := time.After(3 * time.Second)
	for connected < 2 {
		select {
		case ev := <-c.Events():
			if s, ok := ev.(StatusEvent); ok && s.Connected {
				connected++
			}
		case <-deadline:
			t.Fatalf("saw %d connections, want 2", connected)
		}
	}
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestClientNotConnected(t *testing.T) {
	t.Parallel()

	c := NewClient(DefaultConfig(), zap.NewNop())

	err := c.write(pingRequest{Ping: 1})
	assert.ErrorIs(t, err, ErrNotConnected)

	// queued until the next connect
	require.NoError(t, c.Subscribe([]string{"R_10"}, 5))
}
