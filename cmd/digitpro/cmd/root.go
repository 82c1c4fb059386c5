package cmd

import (
	"fmt"

	"github.com/rustyeddy/digitpro/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "digitpro",
	Short: "Last-digit frequency analyser for Deriv synthetic indices",
	Long: `Digitpro streams ticks from the Deriv WebSocket API and analyses the
last digit of every quote.

It provides tools for:
  - Live digit frequencies per market and across markets
  - Hot digit predictions held for a fixed period
  - Even/odd signals graded by strength
  - Recording ticks to CSV and replaying them offline
  - Journals in SQLite or CSV, Redis and Kafka publishing, Prometheus metrics

Complete documentation is available at https://github.com/rustyeddy/digitpro`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var (
	cfgFile string
	envFile string
	debug   bool

	logger = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with DIGITPRO_* overrides")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "development logging")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
