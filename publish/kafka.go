package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/digitpro/engine"
	"github.com/segmentio/kafka-go"
)

const DefaultKafkaTopic = "digitpro.analysis"

// Publish runs on the engine goroutine once per update, so every message is
// its own batch and is flushed at once.
const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 5 * time.Second
)

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaWriter is the part of *kafka.Writer used here.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each Analysis as a JSON message keyed by the symbol
// of its latest tick.
type KafkaPublisher struct {
	writer KafkaWriter
}

func NewKafka(w KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// NewKafkaWriter returns a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           kafkaBatchTimeout,
		WriteTimeout:           kafkaWriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, a engine.Analysis) error {
	payload, err := encode(a)
	if err != nil {
		return err
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.LatestSymbol()),
		Value: payload,
		Time:  a.Time,
	})
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
