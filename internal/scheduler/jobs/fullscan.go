package jobs

import (
	"context"

	"github.com/quantlab/smartmoney/internal/worker"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// FullScanJob refreshes the scan database over the whole ticker universe.
type FullScanJob struct {
	worker   *worker.Worker
	schedule string
	logger   *logger.Logger
}

// NewFullScanJob creates the nightly full scan job. An empty schedule runs
// it at 2 AM after the US close.
func NewFullScanJob(w *worker.Worker, schedule string, log *logger.Logger) *FullScanJob {
	if schedule == "" {
		schedule = "0 0 2 * * *"
	}
	return &FullScanJob{
		worker:   w,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *FullScanJob) Name() string {
	return "full-scan"
}

// Schedule returns the cron schedule expression
func (j *FullScanJob) Schedule() string {
	return j.schedule
}

// Run executes the full scan. An already-running scan is not an error here;
// the overlapping trigger is simply skipped.
func (j *FullScanJob) Run(ctx context.Context) error {
	err := j.worker.Run(ctx)
	if err == worker.ErrAlreadyRunning {
		j.logger.Warn("Scheduled scan skipped, one already in flight")
		return nil
	}
	return err
}
