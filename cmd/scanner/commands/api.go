package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/smartmoney/internal/api"
	"github.com/quantlab/smartmoney/internal/api/handlers"
	"github.com/quantlab/smartmoney/internal/scheduler"
	"github.com/quantlab/smartmoney/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server with the background scan scheduler.

Endpoints:
  GET  /health               - Health check
  GET  /api/status           - Worker status and stored result count
  GET  /api/scan             - Top stored scan results
  GET  /api/analyze/{symbol} - On-demand deep scan of one symbol
  GET  /api/dip/{symbol}     - Dip opportunity breakdown for one symbol
  POST /api/update-db        - Trigger a full universe scan

Example:
  go run ./cmd/scanner api
  go run ./cmd/scanner api --port 8000`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	scanSchedule string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
	apiCmd.Flags().StringVar(&scanSchedule, "scan-schedule", "", "cron schedule for the nightly scan")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = a.store.InitSchema(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}

	// Handlers and router
	scanHandler := handlers.NewScanHandler(a.store, log)
	analyzeHandler := handlers.NewAnalyzeHandler(a.orchestrator, a.dipDetector, log)
	statusHandler := handlers.NewStatusHandler(a.worker, a.store, log)

	router := api.NewRouter(scanHandler, analyzeHandler, statusHandler, log)
	server := api.New(a.cfg, log, router)

	// Nightly full scan
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewFullScanJob(a.worker, scanSchedule, log)); err != nil {
		return fmt.Errorf("schedule full scan: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
