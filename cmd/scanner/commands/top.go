package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the top stored scan results",
	Long: `Print the best stored scan results, highest score first.

Example:
  go run ./cmd/scanner top
  go run ./cmd/scanner top --limit 20 --min-score 60`,
	RunE: runTop,
}

var (
	topLimit    int
	topMinScore int
)

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().IntVar(&topLimit, "limit", 20, "maximum results")
	topCmd.Flags().IntVar(&topMinScore, "min-score", 40, "minimum score")
}

func runTop(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.store.TopStocks(context.Background(), topMinScore, topLimit)
	if err != nil {
		return fmt.Errorf("query results: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No stored results. Run a scan first.")
		return nil
	}

	fmt.Printf("%-8s %5s %10s %6s  %s\n", "SYMBOL", "SCORE", "PRICE", "FUND", "SIGNALS")
	for _, r := range results {
		fund := "fail"
		if r.PassedFinancials {
			fund = "pass"
		}
		signals := ""
		if len(r.Signals) > 0 {
			signals = fmt.Sprintf("%v", r.Signals)
		}
		fmt.Printf("%-8s %5d %10.2f %6s  %s\n", r.Symbol, r.Score, r.Price, fund, signals)
	}
	return nil
}
