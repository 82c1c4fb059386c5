package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rustyeddy/digitpro/engine"
	"github.com/rustyeddy/digitpro/journal"
	"github.com/rustyeddy/digitpro/market"
	"github.com/rustyeddy/digitpro/replay"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded ticks from CSV",
	Long: `Run a tick recording through the analysis offline.

Without --markets the markets found in the file are tracked. Hold periods
follow the recorded tick times.

Examples:
  digitpro replay -t ticks.csv
  digitpro replay -t ticks.csv --tick-count 60 -d replay.db`,
	RunE: runReplay,
}

var (
	replayTicksPath string
	replayMarkets   string
	replayTickCount int
	replayDBPath    string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayTicksPath, "ticks", "t", "", "CSV file of ticks (time,symbol,quote) (required)")
	replayCmd.Flags().StringVarP(&replayMarkets, "markets", "m", "", "markets to track, ALL or a comma list")
	replayCmd.Flags().IntVarP(&replayTickCount, "tick-count", "n", 0, "ticks per market window (overrides config)")
	replayCmd.Flags().StringVarP(&replayDBPath, "db", "d", "", "SQLite journal path, empty for none")
	replayCmd.MarkFlagRequired("ticks")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if replayTickCount > 0 {
		cfg.Analysis.TickCount = replayTickCount
	}

	ecfg := cfg.Engine()
	if replayMarkets != "" {
		ecfg.Symbols = market.ResolveSymbols(replayMarkets)
	} else {
		syms, err := replay.Symbols(ctx, replayTicksPath)
		if err != nil {
			return fmt.Errorf("scan ticks: %w", err)
		}
		ecfg.Symbols = syms
	}

	var opts []engine.Option
	if replayDBPath != "" {
		j, err := journal.NewSQLite(replayDBPath)
		if err != nil {
			return fmt.Errorf("create journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, engine.WithJournal(j))
	}
	eng := engine.New(ecfg, logger, opts...)

	fmt.Printf("Replaying ticks from: %s\n", replayTicksPath)
	res, err := replay.CSV(ctx, replayTicksPath, eng)
	if err != nil {
		return fmt.Errorf("replay error: %w", err)
	}

	fmt.Printf("✓ Replayed %d ticks", res.Ticks)
	if res.Ticks > 0 {
		fmt.Printf(" from %s to %s", res.First.Format("2006-01-02 15:04:05"), res.Last.Format("2006-01-02 15:04:05"))
	}
	fmt.Print("\n\n")

	printAnalysis(os.Stdout, eng.Snapshot())
	return nil
}
