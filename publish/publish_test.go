package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rustyeddy/digitpro/digits"
	"github.com/rustyeddy/digitpro/engine"
	"github.com/rustyeddy/digitpro/market"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis(t *testing.T) engine.Analysis {
	t.Helper()
	tk, err := market.ParseTick(1700000000, "6512.41")
	require.NoError(t, err)

	latest := digits.DigitEvent{
		SymbolTick:    market.SymbolTick{Symbol: "R_10", Tick: tk},
		Digit:         1,
		DecimalPlaces: 2,
	}
	return engine.Analysis{
		Time:        tk.Timestamp(),
		TickCount:   120,
		Processed:   7,
		Symbols:     []string{"R_10"},
		Percentages: digits.Percentages{1: 62.5, 4: 37.5},
		Highest:     1,
		Latest:      &latest,
	}
}

func TestRedisPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewRedis(client, RedisOptions{TTL: time.Minute})
	t.Cleanup(func() { _ = p.Close() })

	ctx := context.Background()
	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, DefaultRedisChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, sampleAnalysis(t)))

	stored, err := mr.Get("digitpro:analysis")
	require.NoError(t, err)

	var got engine.Analysis
	require.NoError(t, json.Unmarshal([]byte(stored), &got))
	assert.Equal(t, int64(7), got.Processed)
	assert.Equal(t, "R_10", got.LatestSymbol())
	assert.Equal(t, "6512.41", got.Latest.Quote.String())
	assert.Equal(t, time.Minute, mr.TTL("digitpro:analysis"))

	d1, err := mr.Get("digitpro:digit:1")
	require.NoError(t, err)
	assert.Equal(t, "62.50", d1)
	d9, err := mr.Get("digitpro:digit:9")
	require.NoError(t, err)
	assert.Equal(t, "0.00", d9)

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	require.NoError(t, err)
	assert.Equal(t, stored, msg.Payload)
}

func TestRedisKeys(t *testing.T) {
	p := NewRedis(nil, RedisOptions{Prefix: "dp"})
	assert.Equal(t, "dp:analysis", p.AnalysisKey())
	assert.Equal(t, "dp:digit:3", p.DigitKey(3))
	assert.Equal(t, DefaultRedisChannel, p.opts.Channel)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	p, err := DialRedis(context.Background(), mr.Addr(), "", 0, RedisOptions{})
	require.NoError(t, err)
	assert.NoError(t, p.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = DialRedis(context.Background(), addr, "", 0, RedisOptions{})
	assert.Error(t, err)
}

type mockWriter struct {
	mu         sync.Mutex
	messages   []kafka.Message
	shouldFail bool
	closed     bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return errors.New("kafka error")
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestKafkaPublish(t *testing.T) {
	w := &mockWriter{}
	p := NewKafka(w)

	a := sampleAnalysis(t)
	require.NoError(t, p.Publish(context.Background(), a))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "R_10", string(msg.Key))
	assert.True(t, msg.Time.Equal(a.Time))

	var got engine.Analysis
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, 120, got.TickCount)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishError(t *testing.T) {
	p := NewKafka(&mockWriter{shouldFail: true})
	err := p.Publish(context.Background(), sampleAnalysis(t))
	assert.ErrorContains(t, err, "kafka publish")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "")
	assert.Equal(t, DefaultKafkaTopic, w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
	assert.False(t, w.Async)
	// a single message must not wait for a fuller batch
	assert.Equal(t, 1, w.BatchSize)
	assert.Equal(t, kafkaBatchTimeout, w.BatchTimeout)
	assert.Less(t, w.BatchTimeout, 100*time.Millisecond)
	assert.Equal(t, kafkaWriteTimeout, w.WriteTimeout)
}

func TestMulti(t *testing.T) {
	good := &mockWriter{}
	bad := &mockWriter{shouldFail: true}
	m := Multi{NewKafka(good), NewKafka(bad)}

	err := m.Publish(context.Background(), sampleAnalysis(t))
	assert.ErrorContains(t, err, "kafka error")
	assert.Len(t, good.messages, 1)

	assert.NoError(t, m.Close())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
}
