package handlers

import (
	"net/http"
	"strconv"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/logger"
)

const (
	defaultScanLimit    = 50
	defaultScanMinScore = 40
)

// ScanHandler serves stored scan results
type ScanHandler struct {
	store  contracts.ResultStore
	logger *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(store contracts.ResultStore, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		store:  store,
		logger: log,
	}
}

// GetScan returns the top stored results
// GET /api/scan?limit=50&min_score=40
func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt(r, "limit", defaultScanLimit)
	minScore := queryInt(r, "min_score", defaultScanMinScore)

	results, err := h.store.TopStocks(ctx, minScore, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query scan results")
		respondError(w, http.StatusInternalServerError, "Failed to query scan results")
		return
	}

	if results == nil {
		results = []*contracts.StoredResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"count":     len(results),
			"min_score": minScore,
			"stocks":    results,
		},
	})
}

// queryInt reads an integer query parameter with a fallback
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
