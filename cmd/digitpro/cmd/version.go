package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the digitpro CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("digitpro version %s\n", version)
		fmt.Println("Last-digit frequency analyser for Deriv synthetic indices")
		fmt.Println("https://github.com/rustyeddy/digitpro")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
