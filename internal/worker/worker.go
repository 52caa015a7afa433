package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/internal/scan"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// Status is a snapshot of the worker state, safe to serve to API clients.
type Status struct {
	Running      bool       `json:"is_running"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	TickersFound int        `json:"tickers_found"`
}

// Worker runs the full-universe scan in the background. Only one scan may be
// in flight at a time; a second trigger while one is running is rejected.
type Worker struct {
	universe     contracts.UniverseSource
	orchestrator *scan.Orchestrator
	logger       *logger.Logger

	mu     sync.Mutex
	status Status
}

// ErrAlreadyRunning is returned when a scan is triggered while one is active.
var ErrAlreadyRunning = fmt.Errorf("scan already running")

// New creates a scan worker.
func New(universe contracts.UniverseSource, orchestrator *scan.Orchestrator, log *logger.Logger) *Worker {
	return &Worker{
		universe:     universe,
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Status returns a snapshot of the current worker status. The timestamp is
// copied so the caller never shares memory with the worker.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.status
	if w.status.LastRun != nil {
		t := *w.status.LastRun
		out.LastRun = &t
	}
	return out
}

// Trigger starts a full scan in the background. It returns ErrAlreadyRunning
// when one is in flight.
func (w *Worker) Trigger(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}

	go func() {
		err := w.run(ctx)
		w.finish(err)
	}()

	return nil
}

// Run performs a full scan synchronously. The single-flight rule still holds.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}

	err := w.run(ctx)
	w.finish(err)
	return err
}

func (w *Worker) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.Running {
		return ErrAlreadyRunning
	}
	w.status.Running = true
	w.status.LastError = ""
	return nil
}

func (w *Worker) finish(err error) {
	now := time.Now().UTC()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Running = false
	w.status.LastRun = &now
	if err != nil {
		w.status.LastError = err.Error()
	}
}

func (w *Worker) run(ctx context.Context) error {
	started := time.Now()
	w.logger.Info("Full scan starting")

	tickers, err := w.universe.AllTickers(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Universe discovery failed")
		return fmt.Errorf("discover universe: %w", err)
	}

	w.mu.Lock()
	w.status.TickersFound = len(tickers)
	w.mu.Unlock()

	if err := w.orchestrator.RunFullScan(ctx, tickers, 0); err != nil {
		w.logger.WithError(err).Error("Full scan failed")
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"elapsed": time.Since(started).Round(time.Second).String(),
	}).Info("Full scan finished")
	return nil
}
