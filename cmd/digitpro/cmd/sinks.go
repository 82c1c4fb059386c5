package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rustyeddy/digitpro/config"
	"github.com/rustyeddy/digitpro/journal"
	"github.com/rustyeddy/digitpro/observability"
	"github.com/rustyeddy/digitpro/publish"
	"go.uber.org/zap"
)

// openJournal returns nil when journaling is off.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.PredictionsFile, cfg.Journal.SignalsFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	default:
		return nil, nil
	}
}

func openPublishers(ctx context.Context, cfg *config.Config) (publish.Multi, error) {
	var pubs publish.Multi

	if rc := cfg.Publish.Redis; rc.Addr != "" {
		ttl, err := cfg.RedisTTL()
		if err != nil {
			return nil, err
		}
		r, err := publish.DialRedis(ctx, rc.Addr, rc.Password, rc.DB, publish.RedisOptions{
			Prefix:  rc.Prefix,
			Channel: rc.Channel,
			TTL:     ttl,
		})
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, r)
		logger.Info("publishing to redis", zap.String("addr", rc.Addr))
	}

	if kc := cfg.Publish.Kafka; len(kc.Brokers) > 0 {
		w := publish.NewKafkaWriter(kc.Brokers, kc.Topic)
		pubs = append(pubs, publish.NewKafka(w))
		logger.Info("publishing to kafka", zap.Strings("brokers", kc.Brokers), zap.String("topic", w.Topic))
	}

	return pubs, nil
}

// serveMetrics starts the /metrics endpoint. The returned function shuts it
// down.
func serveMetrics(addr string, m *observability.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func closeAll(j journal.Journal, pubs publish.Multi) error {
	var errs []error
	if j != nil {
		if err := j.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if err := pubs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}
