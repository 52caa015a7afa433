package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/smartmoney/internal/scheduler"
	"github.com/quantlab/smartmoney/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scan scheduler without the API server",
	Long: `Run the cron scheduler standalone. The nightly full scan job fires
on its schedule until the process is stopped.

Example:
  go run ./cmd/scanner scheduler
  go run ./cmd/scanner scheduler --schedule "0 0 2 * * *" --run-now`,
	RunE: runScheduler,
}

var (
	schedulerSchedule string
	schedulerRunNow   bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&schedulerSchedule, "schedule", "", "cron schedule for the full scan")
	schedulerCmd.Flags().BoolVar(&schedulerRunNow, "run-now", false, "trigger a full scan immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	log := a.log

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = a.store.InitSchema(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}

	job := jobs.NewFullScanJob(a.worker, schedulerSchedule, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(job); err != nil {
		return fmt.Errorf("schedule full scan: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if schedulerRunNow {
		if err := sched.RunJob(job.Name()); err != nil {
			log.WithError(err).Error("Immediate scan failed to start")
		}
	}

	fmt.Printf("Scheduler running, full scan at %q\n", job.Schedule())
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Stopping scheduler...")
	return nil
}
