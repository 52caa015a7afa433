package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/httputil"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running API server",
	Long: `Query a running API server for its worker status and stored
result count.

Example:
  go run ./cmd/scanner status
  go run ./cmd/scanner status --addr http://localhost:8000`,
	RunE: runStatus,
}

var statusAddr string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "API server address (defaults to http://localhost:PORT)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	addr := statusAddr
	if addr == "" {
		addr = "http://localhost:" + cfg.Port
	}

	client := httputil.NewWithTimeout(log, 10*time.Second).DisableRetry()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, addr+"/api/status")
	if err != nil {
		return fmt.Errorf("reach API server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status request failed: %s", resp.Status)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
