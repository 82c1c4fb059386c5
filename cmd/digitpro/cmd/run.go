package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/digitpro/config"
	"github.com/rustyeddy/digitpro/deriv"
	"github.com/rustyeddy/digitpro/engine"
	"github.com/rustyeddy/digitpro/market"
	"github.com/rustyeddy/digitpro/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyse the live tick feed",
	Long: `Connect to the Deriv WebSocket API, load tick history for every market
and keep analysing live ticks until interrupted.

Predictions and even/odd calls go to the configured journal, every analysis
is published to Redis and Kafka when configured, and Prometheus metrics are
served on --metrics-addr.

Send SIGHUP to reload the config file and environment. A change of markets
or tick count resubscribes the feed and restarts the windows.

Examples:
  digitpro run
  digitpro run --markets R_10,R_25 --tick-count 60
  digitpro run -c digitpro.yaml --metrics-addr :9090`,
	RunE: runRun,
}

var (
	runMarkets     string
	runTickCount   int
	runMetricsAddr string
	runInterval    time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runMarkets, "markets", "m", "", "markets to track, ALL or a comma list (overrides config)")
	runCmd.Flags().IntVarP(&runTickCount, "tick-count", "n", 0, "ticks per market window (overrides config)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 30*time.Second, "how often to print a summary, 0 disables")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	pubs, err := openPublishers(ctx, cfg)
	if err != nil {
		if j != nil {
			j.Close()
		}
		return fmt.Errorf("create publishers: %w", err)
	}
	defer func() {
		if err := closeAll(j, pubs); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	metrics := observability.NewMetrics("", nil)
	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, metrics)
		defer shutdown()
	}

	client := deriv.NewClient(cfg.FeedClient(), logger)

	opts := []engine.Option{engine.WithFeed(client), engine.WithMetrics(metrics)}
	if j != nil {
		opts = append(opts, engine.WithJournal(j))
	}
	if len(pubs) > 0 {
		opts = append(opts, engine.WithPublishers(pubs))
	}
	eng := engine.New(cfg.Engine(), logger, opts...)

	symbols := eng.Symbols()
	if err := client.Subscribe(symbols, eng.TickCount()); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Printf("Tracking %d markets with a %d tick window\n", len(symbols), eng.TickCount())
	for _, s := range symbols {
		fmt.Printf("  %-8s %s\n", s, market.MarketName(s))
	}
	fmt.Println()

	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feed stopped", zap.Error(err))
		}
	}()
	if runInterval > 0 {
		go printEvery(ctx, eng, runInterval)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := reloadEngine(ctx, eng); err != nil {
					logger.Warn("reload", zap.Error(err))
				}
			}
		}
	}()

	err = eng.Run(ctx, client.Events())
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	fmt.Println()
	printAnalysis(os.Stdout, eng.Snapshot())
	return err
}

// loadRunConfig loads the config with the run flags applied on top.
func loadRunConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if runMarkets != "" {
		cfg.Analysis.Markets = runMarkets
	}
	if runTickCount > 0 {
		cfg.Analysis.TickCount = runTickCount
	}
	if runMetricsAddr != "" {
		cfg.Metrics.Addr = runMetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// reloadEngine re-reads the config and hands markets and tick count to eng.
func reloadEngine(ctx context.Context, eng *engine.Engine) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	logger.Info("reloading config",
		zap.String("markets", cfg.Analysis.Markets),
		zap.Int("tick_count", cfg.Analysis.TickCount))
	return eng.Reconfigure(ctx, cfg.Symbols(), cfg.Analysis.TickCount)
}

func printEvery(ctx context.Context, eng *engine.Engine, d time.Duration) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a := eng.Snapshot()
			fields := []zap.Field{
				zap.Int64("processed", a.Processed),
				zap.Int("ready_markets", a.Hot.ReadyMarkets),
				zap.Int("highest", a.Highest),
				zap.Int("lowest", a.Lowest),
			}
			if a.Prediction != nil {
				fields = append(fields, zap.Int("prediction", a.Prediction.Digit))
			}
			logger.Info("status", fields...)
		}
	}
}
