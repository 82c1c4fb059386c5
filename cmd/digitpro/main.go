package main

import (
	"os"

	"github.com/rustyeddy/digitpro/cmd/digitpro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
