package main

import (
	"os"

	"github.com/quantlab/smartmoney/cmd/scanner/commands"
)

// main is the entry point for the scanner CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
