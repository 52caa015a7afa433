package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Smart money stock scanner",
	Long: `Multi-factor US stock scanner.

Combines fundamental stability, trend and volatility setups, money flow
and institutional accumulation into a 0-100 composite score per symbol.

Usage:
  go run ./cmd/scanner [command]

Examples:
  go run ./cmd/scanner api
  go run ./cmd/scanner scan --symbols AAPL,MSFT
  go run ./cmd/scanner analyze NVDA
  go run ./cmd/scanner dip INTC`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
