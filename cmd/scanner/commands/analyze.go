package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Deep scan one symbol",
	Long: `Run the full deep scan for one symbol and print the result as JSON.

Example:
  go run ./cmd/scanner analyze NVDA`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.orchestrator.ScanSymbol(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", symbol, err)
	}
	if result == nil {
		return fmt.Errorf("no price data for %s", symbol)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
