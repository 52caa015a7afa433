package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full scan and store the results",
	Long: `Run a batch scan over the discovered ticker universe, or over an
explicit symbol list, and persist every positive score.

Example:
  go run ./cmd/scanner scan
  go run ./cmd/scanner scan --symbols AAPL,MSFT,NVDA`,
	RunE: runScan,
}

var scanSymbols string

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanSymbols, "symbols", "", "comma separated symbols (default: full universe)")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	if err := a.store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init result store: %w", err)
	}

	if scanSymbols != "" {
		symbols := splitSymbols(scanSymbols)
		if err := a.orchestrator.RunFullScan(ctx, symbols, 0); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	} else {
		if err := a.worker.Run(ctx); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	count, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Scan complete, %d stocks stored\n", count)
	return nil
}

// splitSymbols parses a comma separated symbol list
func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToUpper(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
