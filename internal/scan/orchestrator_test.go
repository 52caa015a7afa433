package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/internal/flow"
	"github.com/quantlab/smartmoney/internal/fundamentals"
	"github.com/quantlab/smartmoney/internal/technicals"
	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
}

// stubMarket serves canned series per symbol.
type stubMarket struct {
	series map[string]*contracts.Series
	err    error
}

func (m *stubMarket) History(ctx context.Context, symbol, period, interval string) (*contracts.Series, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.series[symbol]; ok {
		return s, nil
	}
	return &contracts.Series{Symbol: symbol}, nil
}

func (m *stubMarket) BatchHistory(ctx context.Context, symbols []string, period, interval string) (map[string]*contracts.Series, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*contracts.Series)
	for _, sym := range symbols {
		if s, ok := m.series[sym]; ok {
			out[sym] = s
		}
	}
	return out, nil
}

// stubFundamentals serves one snapshot for every symbol.
type stubFundamentals struct {
	snapshot *contracts.FundamentalSnapshot
	err      error
}

func (f *stubFundamentals) Snapshot(ctx context.Context, symbol string) (*contracts.FundamentalSnapshot, error) {
	return f.snapshot, f.err
}

// memStore records saved results in memory.
type memStore struct {
	saved map[string]*contracts.ScanResult
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*contracts.ScanResult)}
}

func (s *memStore) Save(ctx context.Context, result *contracts.ScanResult) error {
	s.saved[result.Symbol] = result
	return nil
}

func (s *memStore) TopStocks(ctx context.Context, minScore, limit int) ([]*contracts.StoredResult, error) {
	return nil, nil
}

func (s *memStore) Count(ctx context.Context) (int, error) {
	return len(s.saved), nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.saved = make(map[string]*contracts.ScanResult)
	return nil
}

// uptrendSeries trades flat at 100 with the last close nudged above the
// moving averages. With accumulation, the last 14 bars close near their
// highs and the final bar carries heavy volume.
func uptrendSeries(symbol string, n int, accumulation bool) *contracts.Series {
	s := &contracts.Series{Symbol: symbol}
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		b := contracts.Bar{
			Date: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
		if accumulation && i >= n-14 {
			b.Close = 100.9 // closes near the high
		}
		if accumulation && i == n-1 {
			b.Volume = 10000
		}
		if !accumulation && i == n-1 {
			b.Close = 101
		}
		s.Bars = append(s.Bars, b)
	}
	return s
}

// downtrendSeries falls steadily on flat volume.
func downtrendSeries(symbol string, n int) *contracts.Series {
	s := &contracts.Series{Symbol: symbol}
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 200 - float64(i)
		s.Bars = append(s.Bars, contracts.Bar{
			Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		})
	}
	return s
}

func goodSnapshot() *contracts.FundamentalSnapshot {
	pe, de, roe := 20.0, 1.0, 0.12
	return &contracts.FundamentalSnapshot{PE: &pe, DebtToEquity: &de, ROE: &roe}
}

func newTestOrchestrator(market contracts.MarketDataProvider, funds contracts.FundamentalsProvider, store contracts.ResultStore) *Orchestrator {
	log := testLogger()
	cfg := DefaultConfig()
	cfg.ChunkPause = time.Millisecond
	return NewOrchestrator(
		cfg, market, funds, store,
		technicals.NewEngine(log),
		flow.NewDetector(flow.DefaultConfig(), log),
		fundamentals.NewGate(fundamentals.DefaultConfig(), log),
		log,
	)
}

func TestScanSymbol_NoData(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{}}
	o := newTestOrchestrator(market, &stubFundamentals{}, newMemStore())

	result, err := o.ScanSymbol(context.Background(), "GHOST")

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestScanSymbol_Composite(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{
		"AAPL": uptrendSeries("AAPL", 60, false),
	}}
	o := newTestOrchestrator(market, &stubFundamentals{snapshot: goodSnapshot()}, newMemStore())

	result, err := o.ScanSymbol(context.Background(), "AAPL")

	require.NoError(t, err)
	require.NotNil(t, result)

	// Fundamentals pass (+30) and the trend is up (+20); flat volume and no
	// accumulation leave the rest at zero.
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.PotentialBuy)
	assert.True(t, result.PassedFinancials)
	assert.Equal(t, contracts.TrendUp, result.Technicals.Trend)
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
}

func TestScanSymbol_PotentialBuy(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{
		"NVDA": uptrendSeries("NVDA", 60, true),
	}}
	o := newTestOrchestrator(market, &stubFundamentals{snapshot: goodSnapshot()}, newMemStore())

	result, err := o.ScanSymbol(context.Background(), "NVDA")

	require.NoError(t, err)
	require.NotNil(t, result)

	// The volume spike adds high relative volume (+15) and flips smart money
	// detection (+25) on top of fundamentals and trend: 90 points.
	assert.Equal(t, 90, result.Score)
	assert.True(t, result.PotentialBuy)
	assert.True(t, result.Flow.Detected)
}

func TestScanSymbol_FailedFundamentalsFetch(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{
		"AAPL": uptrendSeries("AAPL", 60, false),
	}}
	o := newTestOrchestrator(market, &stubFundamentals{err: assert.AnError}, newMemStore())

	result, err := o.ScanSymbol(context.Background(), "AAPL")

	require.NoError(t, err)
	require.NotNil(t, result)

	// A failed snapshot fetch gates conservatively instead of aborting.
	assert.False(t, result.PassedFinancials)
	assert.Equal(t, 20, result.Score)
}

func TestScanBatch_PrefilterSkipsQuietDowntrends(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{
		"UP":   uptrendSeries("UP", 60, false),
		"DOWN": downtrendSeries("DOWN", 60),
	}}
	store := newMemStore()
	o := newTestOrchestrator(market, &stubFundamentals{snapshot: goodSnapshot()}, store)

	err := o.ScanBatch(context.Background(), []string{"UP", "DOWN", "MISSING"})

	require.NoError(t, err)

	// The quiet downtrend never reaches the deep scan; the uptrend scores
	// 50 and is persisted. The missing symbol is skipped silently.
	assert.Contains(t, store.saved, "UP")
	assert.NotContains(t, store.saved, "DOWN")
	assert.Len(t, store.saved, 1)
	assert.Equal(t, 50, store.saved["UP"].Score)
}

func TestScanBatch_EmptyBulkFetch(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{}}
	o := newTestOrchestrator(market, &stubFundamentals{}, newMemStore())

	err := o.ScanBatch(context.Background(), []string{"A", "B"})

	assert.Error(t, err)
}

func TestScanBatch_NoSymbols(t *testing.T) {
	market := &stubMarket{series: map[string]*contracts.Series{}}
	o := newTestOrchestrator(market, &stubFundamentals{}, newMemStore())

	assert.NoError(t, o.ScanBatch(context.Background(), nil))
}

func TestRunFullScan_Chunks(t *testing.T) {
	series := map[string]*contracts.Series{}
	symbols := []string{"A", "B", "C", "D", "E"}
	for _, sym := range symbols {
		series[sym] = uptrendSeries(sym, 60, false)
	}
	market := &stubMarket{series: series}
	store := newMemStore()
	o := newTestOrchestrator(market, &stubFundamentals{snapshot: goodSnapshot()}, store)

	err := o.RunFullScan(context.Background(), symbols, 2)

	require.NoError(t, err)
	assert.Len(t, store.saved, 5)
}

func TestRunFullScan_ContextCancelled(t *testing.T) {
	series := map[string]*contracts.Series{
		"A": uptrendSeries("A", 60, false),
		"B": uptrendSeries("B", 60, false),
	}
	market := &stubMarket{series: series}
	o := newTestOrchestrator(market, &stubFundamentals{snapshot: goodSnapshot()}, newMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.RunFullScan(ctx, []string{"A", "B"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
