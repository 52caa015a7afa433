package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/database"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// testStore connects to the database named by DATABASE_URL. The test is
// skipped in short mode or when no database is configured.
func testStore(t *testing.T) *ResultStore {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "console",
	}
	cfg.Database.URL = dsn
	cfg.Database.MaxConns = 2
	cfg.Database.MinConns = 1
	cfg.Database.MaxConnLifetime = time.Hour
	cfg.Database.MaxConnIdleTime = 30 * time.Minute

	log := logger.New(cfg)
	db, err := database.New(cfg)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(db.Close)

	s := NewResultStore(db, log)
	require.NoError(t, s.InitSchema(context.Background()))
	require.NoError(t, s.Clear(context.Background()))
	return s
}

func TestResultStore_SaveAndQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	results := []*contracts.ScanResult{
		{
			Symbol: "NVDA", Score: 90, PotentialBuy: true, PassedFinancials: true,
			Technicals: &contracts.SetupSummary{Trend: contracts.TrendUp, LastClose: 180.5},
			Flow:       &contracts.SmartMoneyResult{Detected: true, Signals: []string{"High VOL Accumulation"}},
		},
		{
			Symbol: "AAPL", Score: 50, PassedFinancials: true,
			Technicals: &contracts.SetupSummary{Trend: contracts.TrendUp, LastClose: 230.1},
		},
		{
			Symbol: "F", Score: 20,
			Technicals: &contracts.SetupSummary{Trend: contracts.TrendDown, LastClose: 11.2},
		},
	}
	for _, r := range results {
		require.NoError(t, s.Save(ctx, r))
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	top, err := s.TopStocks(ctx, 40, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "NVDA", top[0].Symbol)
	assert.Equal(t, 90, top[0].Score)
	assert.InDelta(t, 180.5, top[0].Price, 1e-9)
	assert.Contains(t, top[0].Signals, "High VOL Accumulation")
	assert.Equal(t, "AAPL", top[1].Symbol)
}

func TestResultStore_Upsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := &contracts.ScanResult{
		Symbol: "AAPL", Score: 50,
		Technicals: &contracts.SetupSummary{LastClose: 230.0},
	}
	require.NoError(t, s.Save(ctx, first))

	second := &contracts.ScanResult{
		Symbol: "AAPL", Score: 75, PassedFinancials: true,
		Technicals: &contracts.SetupSummary{LastClose: 231.5},
	}
	require.NoError(t, s.Save(ctx, second))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	top, err := s.TopStocks(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 75, top[0].Score)
	assert.True(t, top[0].PassedFinancials)
}

func TestResultStore_SaveNil(t *testing.T) {
	s := &ResultStore{}
	assert.Error(t, s.Save(context.Background(), nil))
}
