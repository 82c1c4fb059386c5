package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rustyeddy/digitpro/engine"
)

const (
	DefaultRedisPrefix  = "digitpro"
	DefaultRedisChannel = "digitpro.analysis"
)

var _ Publisher = (*RedisPublisher)(nil)

type RedisOptions struct {
	// Prefix names the keys: <prefix>:analysis and <prefix>:digit:<d>.
	Prefix  string
	Channel string
	// TTL of the stored keys. Zero keeps them.
	TTL time.Duration
}

// RedisPublisher stores the latest Analysis as JSON, publishes it on a
// channel and keeps one key per digit with its percentage.
type RedisPublisher struct {
	client *redis.Client
	opts   RedisOptions
}

func NewRedis(client *redis.Client, opts RedisOptions) *RedisPublisher {
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}
	if opts.Channel == "" {
		opts.Channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, opts: opts}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, password string, db int, opts RedisOptions) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(client, opts), nil
}

func (r *RedisPublisher) AnalysisKey() string {
	return r.opts.Prefix + ":analysis"
}

func (r *RedisPublisher) DigitKey(d int) string {
	return r.opts.Prefix + ":digit:" + strconv.Itoa(d)
}

func (r *RedisPublisher) Publish(ctx context.Context, a engine.Analysis) error {
	payload, err := encode(a)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.AnalysisKey(), payload, r.opts.TTL)
	pipe.Publish(ctx, r.opts.Channel, payload)
	for d, pct := range a.Percentages {
		pipe.Set(ctx, r.DigitKey(d), strconv.FormatFloat(pct, 'f', 2, 64), r.opts.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
