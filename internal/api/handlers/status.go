package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/internal/worker"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// StatusHandler serves worker status and triggers database refreshes
type StatusHandler struct {
	worker *worker.Worker
	store  contracts.ResultStore
	logger *logger.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(w *worker.Worker, store contracts.ResultStore, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		worker: w,
		store:  store,
		logger: log,
	}
}

// GetStatus returns the worker state and stored result count
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := h.worker.Status()

	count, err := h.store.Count(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to count stored results")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"worker":        status,
			"stocks_stored": count,
		},
	})
}

// UpdateDB triggers a background full scan
// POST /api/update-db
func (h *StatusHandler) UpdateDB(w http.ResponseWriter, r *http.Request) {
	// The scan outlives the request, so it runs on a detached context.
	if err := h.worker.Trigger(context.Background()); err != nil {
		if errors.Is(err, worker.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, "Scan already running")
			return
		}
		h.logger.WithError(err).Error("Failed to trigger scan")
		respondError(w, http.StatusInternalServerError, "Failed to trigger scan")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "Full scan started",
	})
}
