package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
}

// stubStore serves canned results and records the query parameters.
type stubStore struct {
	results  []*contracts.StoredResult
	err      error
	minScore int
	limit    int
}

func (s *stubStore) Save(ctx context.Context, result *contracts.ScanResult) error { return nil }

func (s *stubStore) TopStocks(ctx context.Context, minScore, limit int) ([]*contracts.StoredResult, error) {
	s.minScore = minScore
	s.limit = limit
	return s.results, s.err
}

func (s *stubStore) Count(ctx context.Context) (int, error) { return len(s.results), nil }
func (s *stubStore) Clear(ctx context.Context) error        { return nil }

func TestScanHandler_GetScan(t *testing.T) {
	store := &stubStore{results: []*contracts.StoredResult{
		{Symbol: "NVDA", Score: 90, Price: 180.5, PassedFinancials: true, LastUpdated: time.Now()},
		{Symbol: "AAPL", Score: 75, Price: 230.1, PassedFinancials: true, LastUpdated: time.Now()},
	}}
	handler := NewScanHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan?limit=10&min_score=70", nil)
	rec := httptest.NewRecorder()

	handler.GetScan(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 70, store.minScore)
	assert.Equal(t, 10, store.limit)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Count  int                       `json:"count"`
			Stocks []*contracts.StoredResult `json:"stocks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Data.Count)
	assert.Equal(t, "NVDA", body.Data.Stocks[0].Symbol)
}

func TestScanHandler_GetScan_Defaults(t *testing.T) {
	store := &stubStore{}
	handler := NewScanHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	rec := httptest.NewRecorder()

	handler.GetScan(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultScanMinScore, store.minScore)
	assert.Equal(t, defaultScanLimit, store.limit)
}

func TestScanHandler_GetScan_StoreError(t *testing.T) {
	store := &stubStore{err: assert.AnError}
	handler := NewScanHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	rec := httptest.NewRecorder()

	handler.GetScan(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "valid", query: "limit=25", want: 25},
		{name: "missing", query: "", want: 50},
		{name: "garbage", query: "limit=abc", want: 50},
		{name: "negative", query: "limit=-5", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/scan?"+tt.query, nil)
			assert.Equal(t, tt.want, queryInt(req, "limit", 50))
		})
	}
}
