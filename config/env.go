package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// env lists the settings that may come from the environment. Unset
// variables leave the file values alone.
type env struct {
	Endpoint      *string  `split_words:"true"`
	AppID         *string  `split_words:"true"`
	Markets       *string  `split_words:"true"`
	TickCount     *int     `split_words:"true"`
	HotThreshold  *float64 `split_words:"true"`
	Hold          *string  `split_words:"true"`
	JournalType   *string  `split_words:"true"`
	JournalDBPath *string  `split_words:"true"`
	RedisAddr     *string  `split_words:"true"`
	RedisPassword *string  `split_words:"true"`
	RedisDB       *int     `split_words:"true"`
	KafkaBrokers  []string `split_words:"true"`
	KafkaTopic    *string  `split_words:"true"`
	MetricsAddr   *string  `split_words:"true"`
}

// ApplyEnv overrides settings from DIGITPRO_* variables, for example
// DIGITPRO_REDIS_PASSWORD or DIGITPRO_KAFKA_BROKERS=a:9092,b:9092.
func (c *Config) ApplyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	setString(&c.Feed.Endpoint, e.Endpoint)
	setString(&c.Feed.AppID, e.AppID)
	setString(&c.Analysis.Markets, e.Markets)
	if e.TickCount != nil {
		c.Analysis.TickCount = *e.TickCount
	}
	if e.HotThreshold != nil {
		c.Analysis.HotThreshold = *e.HotThreshold
	}
	setString(&c.Analysis.Hold, e.Hold)
	setString(&c.Journal.Type, e.JournalType)
	setString(&c.Journal.DBPath, e.JournalDBPath)
	setString(&c.Publish.Redis.Addr, e.RedisAddr)
	setString(&c.Publish.Redis.Password, e.RedisPassword)
	if e.RedisDB != nil {
		c.Publish.Redis.DB = *e.RedisDB
	}
	if len(e.KafkaBrokers) > 0 {
		c.Publish.Kafka.Brokers = e.KafkaBrokers
	}
	setString(&c.Publish.Kafka.Topic, e.KafkaTopic)
	setString(&c.Metrics.Addr, e.MetricsAddr)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
