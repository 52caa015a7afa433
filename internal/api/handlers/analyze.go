package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/quantlab/smartmoney/internal/dip"
	"github.com/quantlab/smartmoney/internal/scan"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// AnalyzeHandler serves on-demand single symbol analysis
type AnalyzeHandler struct {
	orchestrator *scan.Orchestrator
	dipDetector  *dip.Detector
	logger       *logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(orchestrator *scan.Orchestrator, dipDetector *dip.Detector, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		orchestrator: orchestrator,
		dipDetector:  dipDetector,
		logger:       log,
	}
}

// GetAnalyze runs a full deep scan for one symbol
// GET /api/analyze/{symbol}
func (h *AnalyzeHandler) GetAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := pathSymbol(r)
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	result, err := h.orchestrator.ScanSymbol(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Analysis failed")
		respondError(w, http.StatusBadGateway, "Analysis failed: "+err.Error())
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "No price data for "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// GetDip runs the dip opportunity analysis for one symbol
// GET /api/dip/{symbol}
func (h *AnalyzeHandler) GetDip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := pathSymbol(r)
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	breakdown, err := h.dipDetector.AnalyzeDip(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Dip analysis failed")
		respondError(w, http.StatusBadGateway, "Dip analysis failed: "+err.Error())
		return
	}
	if breakdown == nil {
		respondError(w, http.StatusNotFound, "Insufficient price history for "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    breakdown,
	})
}

// pathSymbol extracts and normalizes the symbol path variable
func pathSymbol(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
}
