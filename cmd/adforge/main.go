// Package main is the entry point for the adforge CLI.
package main

import (
	"os"

	"github.com/jmylchreest/adforge/cmd/adforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
