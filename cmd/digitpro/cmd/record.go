package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/digitpro/deriv"
	"github.com/rustyeddy/digitpro/market"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record live ticks to CSV",
	Long: `Write live ticks as time,symbol,quote rows for later replay.

Recording stops on interrupt, after --duration, or after --max-ticks rows.

Examples:
  digitpro record -o ticks.csv --markets R_10,R_25 --duration 10m
  digitpro record -o all.csv --max-ticks 5000`,
	RunE: runRecord,
}

var (
	recordOutput   string
	recordMarkets  string
	recordMaxTicks int
	recordDuration time.Duration
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "ticks.csv", "output CSV file")
	recordCmd.Flags().StringVarP(&recordMarkets, "markets", "m", "", "markets to record, ALL or a comma list (overrides config)")
	recordCmd.Flags().IntVar(&recordMaxTicks, "max-ticks", 0, "stop after this many ticks, 0 for no limit")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long, 0 for no limit")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if recordMarkets != "" {
		cfg.Analysis.Markets = recordMarkets
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	symbols := cfg.Symbols()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, recordDuration)
		defer cancel()
	}

	f, err := os.Create(recordOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	client := deriv.NewClient(cfg.FeedClient(), logger)
	// One history tick is the smallest request that also subscribes.
	if err := client.Subscribe(symbols, 1); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go func() {
		if err := client.Run(feedCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feed stopped", zap.Error(err))
		}
	}()

	fmt.Printf("Recording %d markets to %s\n", len(symbols), recordOutput)
	for _, s := range symbols {
		fmt.Printf("  %-8s %s\n", s, market.MarketName(s))
	}

	n, err := deriv.StreamTicksToCSV(ctx, client.Events(), f, recordMaxTicks)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("record: %w", err)
	}

	fmt.Printf("✓ Recorded %d ticks to %s\n", n, recordOutput)
	return nil
}
