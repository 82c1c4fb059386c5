package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/digitpro/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the prediction journal",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  predictions  - List the newest hot-digit predictions
  signals      - List the newest even/odd calls, optionally for one market
  report       - Write an Org-mode summary of the journal

Examples:
  digitpro journal predictions -n 10
  digitpro journal signals R_10
  digitpro journal report -o session.org`,
}

var journalPredictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "List the newest predictions",
	Args:  cobra.NoArgs,
	RunE:  runJournalPredictions,
}

var journalSignalsCmd = &cobra.Command{
	Use:   "signals [symbol]",
	Short: "List the newest even/odd calls",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalSignals,
}

var journalReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write an Org-mode summary",
	Args:  cobra.NoArgs,
	RunE:  runJournalReport,
}

var (
	journalDBPath string
	journalLimit  int
	journalOutput string
	journalTitle  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalPredictionsCmd)
	journalCmd.AddCommand(journalSignalsCmd)
	journalCmd.AddCommand(journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path from config)")
	journalCmd.PersistentFlags().IntVarP(&journalLimit, "limit", "n", 20, "maximum records, 0 for all")
	journalReportCmd.Flags().StringVarP(&journalOutput, "output", "o", "", "write the report here instead of stdout")
	journalReportCmd.Flags().StringVar(&journalTitle, "title", "", "report heading")
}

func runJournalPredictions(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListPredictions(context.Background(), journalLimit)
	if err != nil {
		return fmt.Errorf("query predictions: %w", err)
	}

	fmt.Printf("%-19s  %5s  %7s  %s\n", "TIME", "DIGIT", "PCT", "MARKETS")
	for _, r := range recs {
		fmt.Printf("%-19s  %5d  %6.2f%%  %s\n",
			r.Time.Local().Format("2006-01-02 15:04:05"), r.Digit, r.Percentage, strings.Join(r.Markets, ","))
	}
	return nil
}

func runJournalSignals(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	symbol := ""
	if len(args) == 1 {
		symbol = args[0]
	}
	recs, err := j.ListSignals(context.Background(), symbol, journalLimit)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}

	fmt.Printf("%-19s  %-8s  %-4s  %-6s  %7s  %7s\n", "TIME", "SYMBOL", "CALL", "GRADE", "EVEN", "ODD")
	for _, r := range recs {
		fmt.Printf("%-19s  %-8s  %-4s  %-6s  %6.2f%%  %6.2f%%\n",
			r.Time.Local().Format("2006-01-02 15:04:05"), r.Symbol, r.Direction, r.Strength, r.EvenPercentage, r.OddPercentage)
	}
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	preds, err := j.ListPredictions(ctx, journalLimit)
	if err != nil {
		return fmt.Errorf("query predictions: %w", err)
	}
	sigs, err := j.ListSignals(ctx, "", journalLimit)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}

	r := journal.Report{
		Title:       journalTitle,
		Created:     time.Now(),
		Predictions: preds,
		Signals:     sigs,
	}

	if journalOutput == "" {
		return r.WriteOrg(os.Stdout)
	}

	f, err := os.Create(journalOutput)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteOrg(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote report: %s\n", journalOutput)
	return nil
}

// openJournalDB opens an existing journal at --db, or at journal.db_path
// from the config when the flag is empty.
func openJournalDB() (*journal.SQLiteJournal, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, errors.New("no journal database: set --db or journal.db_path")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("journal database %s does not exist", path)
		}
		return nil, fmt.Errorf("open db: %w", err)
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}
