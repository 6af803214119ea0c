// Package main is the entry point for the ipoetl CLI.
package main

import (
	"os"

	"github.com/jmylchreest/ipoetl/cmd/ipoetl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
