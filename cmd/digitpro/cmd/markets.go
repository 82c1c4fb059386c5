package cmd

import (
	"fmt"

	"github.com/rustyeddy/digitpro/market"
	"github.com/spf13/cobra"
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List the supported markets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range market.AllSymbols() {
			fmt.Printf("%-8s %s\n", s, market.MarketName(s))
		}
	},
}

func init() {
	rootCmd.AddCommand(marketsCmd)
}
