package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// dipCmd represents the dip command
var dipCmd = &cobra.Command{
	Use:   "dip SYMBOL",
	Short: "Analyze a symbol as a dip buying opportunity",
	Long: `Score one symbol as a dip buying opportunity and print the
breakdown as JSON.

Example:
  go run ./cmd/scanner dip INTC`,
	Args: cobra.ExactArgs(1),
	RunE: runDip,
}

func init() {
	rootCmd.AddCommand(dipCmd)
}

func runDip(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	breakdown, err := a.dipDetector.AnalyzeDip(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("dip analysis for %s: %w", symbol, err)
	}
	if breakdown == nil {
		return fmt.Errorf("insufficient price history for %s", symbol)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(breakdown)
}
