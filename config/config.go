package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/digitpro/deriv"
	"github.com/rustyeddy/digitpro/digits"
	"github.com/rustyeddy/digitpro/engine"
	"github.com/rustyeddy/digitpro/market"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DIGITPRO_APP_ID.
const EnvPrefix = "DIGITPRO"

// Config represents the complete analyser configuration
type Config struct {
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Publish  PublishConfig  `json:"publish" yaml:"publish"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// FeedConfig contains the Deriv WebSocket connection parameters
type FeedConfig struct {
	Endpoint          string `json:"endpoint" yaml:"endpoint"`
	AppID             string `json:"app_id" yaml:"app_id"`
	ReconnectDelay    string `json:"reconnect_delay" yaml:"reconnect_delay"` // e.g. "3s"
	MaxReconnectDelay string `json:"max_reconnect_delay" yaml:"max_reconnect_delay"`
}

// AnalysisConfig contains the digit analysis parameters
type AnalysisConfig struct {
	TickCount     int                  `json:"tick_count" yaml:"tick_count"`
	Markets       string               `json:"markets" yaml:"markets"` // "ALL" or "R_10,R_25"
	HotThreshold  float64              `json:"hot_threshold" yaml:"hot_threshold"`
	StrengthBands digits.StrengthBands `json:"strength_bands" yaml:"strength_bands"`
	Hold          string               `json:"hold" yaml:"hold"`
	RecentDigits  int                  `json:"recent_digits" yaml:"recent_digits"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type            string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	PredictionsFile string `json:"predictions_file,omitempty" yaml:"predictions_file,omitempty"`
	SignalsFile     string `json:"signals_file,omitempty" yaml:"signals_file,omitempty"`
	DBPath          string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// PublishConfig lists the downstream sinks. Empty sections are disabled.
type PublishConfig struct {
	Redis RedisConfig `json:"redis" yaml:"redis"`
	Kafka KafkaConfig `json:"kafka" yaml:"kafka"`
}

type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Channel  string `json:"channel,omitempty" yaml:"channel,omitempty"`
	TTL      string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers,omitempty" yaml:"brokers,omitempty"`
	Topic   string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // e.g. ":9090"
}

// LoadFromFile loads configuration from a file (YAML or JSON). Fields missing
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// readFile parses path over the defaults without validating.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// Load builds the effective configuration: the file at path (or the defaults
// when path is empty), then variables from envFile when it exists, then the
// DIGITPRO_* environment. Only the merged result is validated.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Feed.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("feed.endpoint must be a ws:// or wss:// URL")
	}
	if _, err := c.ReconnectDelay(); err != nil {
		return err
	}
	if _, err := c.MaxReconnectDelay(); err != nil {
		return err
	}

	if c.Analysis.TickCount <= 0 {
		return fmt.Errorf("analysis.tick_count must be positive")
	}
	symbols := c.Symbols()
	if len(symbols) == 0 {
		return fmt.Errorf("analysis.markets selects no market")
	}
	for _, s := range symbols {
		if !market.Known(s) {
			return fmt.Errorf("unknown market: %s", s)
		}
	}
	if c.Analysis.HotThreshold <= 0 || c.Analysis.HotThreshold > 100 {
		return fmt.Errorf("analysis.hot_threshold must be between 0 and 100")
	}
	if err := c.Analysis.StrengthBands.Validate(); err != nil {
		return fmt.Errorf("analysis.strength_bands: %w", err)
	}
	if _, err := c.Hold(); err != nil {
		return err
	}
	if c.Analysis.RecentDigits < 0 {
		return fmt.Errorf("analysis.recent_digits must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.PredictionsFile == "" || c.Journal.SignalsFile == "" {
			return fmt.Errorf("journal predictions_file and signals_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if _, err := c.RedisTTL(); err != nil {
		return err
	}
	if c.Publish.Redis.DB < 0 {
		return fmt.Errorf("publish.redis.db must not be negative")
	}
	for _, b := range c.Publish.Kafka.Brokers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("publish.kafka.brokers contains an empty address")
		}
	}
	return nil
}

// Symbols resolves analysis.markets.
func (c *Config) Symbols() []string {
	return market.ResolveSymbols(c.Analysis.Markets)
}

func (c *Config) ReconnectDelay() (time.Duration, error) {
	return positiveDuration("feed.reconnect_delay", c.Feed.ReconnectDelay)
}

func (c *Config) MaxReconnectDelay() (time.Duration, error) {
	return positiveDuration("feed.max_reconnect_delay", c.Feed.MaxReconnectDelay)
}

func (c *Config) Hold() (time.Duration, error) {
	return positiveDuration("analysis.hold", c.Analysis.Hold)
}

// RedisTTL returns the key expiry. An empty ttl means no expiry.
func (c *Config) RedisTTL() (time.Duration, error) {
	if c.Publish.Redis.TTL == "" {
		return 0, nil
	}
	return positiveDuration("publish.redis.ttl", c.Publish.Redis.TTL)
}

func positiveDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

// FeedClient returns the feed client settings. Call after Validate.
func (c *Config) FeedClient() deriv.Config {
	cfg := deriv.DefaultConfig()
	cfg.Endpoint = c.Feed.Endpoint
	cfg.AppID = c.Feed.AppID
	if d, err := c.ReconnectDelay(); err == nil {
		cfg.ReconnectDelay = d
	}
	if d, err := c.MaxReconnectDelay(); err == nil {
		cfg.MaxReconnectDelay = d
	}
	return cfg
}

// Engine returns the engine settings. Call after Validate.
func (c *Config) Engine() engine.Config {
	hold, _ := c.Hold()
	return engine.Config{
		TickCount:    c.Analysis.TickCount,
		Symbols:      c.Symbols(),
		HotThreshold: c.Analysis.HotThreshold,
		Bands:        c.Analysis.StrengthBands,
		HoldDuration: hold,
		RecentDigits: c.Analysis.RecentDigits,
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			Endpoint:          deriv.DefaultEndpoint,
			AppID:             deriv.DefaultAppID,
			ReconnectDelay:    "3s",
			MaxReconnectDelay: "60s",
		},
		Analysis: AnalysisConfig{
			TickCount:     digits.DefaultTickCount,
			Markets:       market.All,
			HotThreshold:  digits.DefaultHotThreshold,
			StrengthBands: digits.DefaultStrengthBands(),
			Hold:          digits.DefaultHoldDuration.String(),
			RecentDigits:  engine.DefaultRecentDigits,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./digitpro.db",
		},
	}
}
