package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/internal/flow"
	"github.com/quantlab/smartmoney/internal/fundamentals"
	"github.com/quantlab/smartmoney/internal/technicals"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// Composite score weights. Each term is independent and additive; together
// they cannot exceed 100.
const (
	pointsFundamentals = 30
	pointsUptrend      = 20
	pointsHighRVOL     = 15
	pointsSmartMoney   = 25
	pointsSqueeze      = 10

	// buyScore is the composite above which a result is a potential buy.
	buyScore = 60
)

// Config holds the orchestrator tuning.
type Config struct {
	ChunkSize  int           // symbols per bulk history request
	ChunkPause time.Duration // pause between chunks, for provider throttling

	DeepPeriod  string // history period for single-symbol scans
	BatchPeriod string // shorter period for batch scans
	Interval    string

	HighRVOL      float64 // relative volume worth composite points
	PrefilterRVOL float64 // batch triage floor
}

// DefaultConfig returns the default scan parameters.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     100,
		ChunkPause:    time.Second,
		DeepPeriod:    "6mo",
		BatchPeriod:   "3mo",
		Interval:      "1d",
		HighRVOL:      1.5,
		PrefilterRVOL: 1.2,
	}
}

// Orchestrator drives per-symbol and batch scoring. Batch scans apply a
// cheap technical pre-filter before the expensive fundamental and flow work
// so that per-symbol external calls stay bounded to the interesting subset.
type Orchestrator struct {
	config Config

	market       contracts.MarketDataProvider
	fundamentals contracts.FundamentalsProvider
	store        contracts.ResultStore

	engine *technicals.Engine
	flow   *flow.Detector
	gate   *fundamentals.Gate

	logger *logger.Logger
}

// NewOrchestrator creates a new scan orchestrator.
func NewOrchestrator(
	config Config,
	market contracts.MarketDataProvider,
	fundamentalsProvider contracts.FundamentalsProvider,
	store contracts.ResultStore,
	engine *technicals.Engine,
	flowDetector *flow.Detector,
	gate *fundamentals.Gate,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		config:       config,
		market:       market,
		fundamentals: fundamentalsProvider,
		store:        store,
		engine:       engine,
		flow:         flowDetector,
		gate:         gate,
		logger:       log,
	}
}

// ScanSymbol runs the full deep scan for one symbol: fundamental gate,
// technical setup and smart money detection, unconditionally. It returns nil
// when the price history could not be obtained.
func (o *Orchestrator) ScanSymbol(ctx context.Context, symbol string) (*contracts.ScanResult, error) {
	gateResult := o.evaluateFundamentals(ctx, symbol)

	series, err := o.market.History(ctx, symbol, o.config.DeepPeriod, o.config.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if series.Empty() {
		return nil, nil
	}

	o.engine.Enrich(series)
	setup := o.engine.CheckSetup(series)

	o.flow.Enrich(series)
	smart := o.flow.DetectSmartMoney(series)

	score := o.compositeScore(gateResult.Passed, setup, smart)

	return &contracts.ScanResult{
		Symbol:           symbol,
		Score:            score,
		PotentialBuy:     score > buyScore,
		PassedFinancials: gateResult.Passed,
		Fundamentals:     &gateResult,
		Technicals:       &setup,
		Flow:             &smart,
	}, nil
}

// ScanBatch fetches history for all symbols in one bulk call, pre-filters on
// the cheap technical setup, then deep-dives the survivors and persists any
// positive score. A single symbol's failure is logged and skipped; it never
// aborts the rest of the batch.
func (o *Orchestrator) ScanBatch(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	batch, err := o.market.BatchHistory(ctx, symbols, o.config.BatchPeriod, o.config.Interval)
	if err != nil {
		return fmt.Errorf("bulk history fetch: %w", err)
	}
	if len(batch) == 0 {
		return fmt.Errorf("bulk history fetch returned no data for %d symbols", len(symbols))
	}

	scanned, persisted := 0, 0
	for _, symbol := range symbols {
		series, ok := batch[symbol]
		if !ok || series.Empty() {
			continue
		}

		saved, err := o.scanOne(ctx, symbol, series)
		if err != nil {
			o.logger.WithError(err).WithField("symbol", symbol).Debug("Skipping symbol")
			continue
		}
		scanned++
		if saved {
			persisted++
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"symbols":   len(symbols),
		"scanned":   scanned,
		"persisted": persisted,
	}).Info("Batch scan completed")

	return nil
}

// scanOne scores a single pre-fetched series and persists a positive result.
// Panics from bad input are converted to errors so one symbol cannot take
// down the batch.
func (o *Orchestrator) scanOne(ctx context.Context, symbol string, series *contracts.Series) (saved bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic scanning %s: %v", symbol, r)
		}
	}()

	// Cheap technical pre-filter: done in memory, no external calls.
	o.engine.Enrich(series)
	setup := o.engine.CheckSetup(series)

	// Not trending and not seeing volume: skip before spending fundamental
	// and institutional requests on it.
	if setup.Trend != contracts.TrendUp && setup.RVOL < o.config.PrefilterRVOL {
		return false, nil
	}

	// Deep dive for the interesting candidates.
	gateResult := o.evaluateFundamentals(ctx, symbol)

	o.flow.Enrich(series)
	smart := o.flow.DetectSmartMoney(series)

	score := o.compositeScore(gateResult.Passed, setup, smart)
	if score <= 0 {
		return false, nil
	}

	result := &contracts.ScanResult{
		Symbol:           symbol,
		Score:            score,
		PotentialBuy:     score > buyScore,
		PassedFinancials: gateResult.Passed,
		Fundamentals:     &gateResult,
		Technicals:       &setup,
		Flow:             &smart,
	}

	if err := o.store.Save(ctx, result); err != nil {
		return false, fmt.Errorf("persist result: %w", err)
	}
	return true, nil
}

// RunFullScan splits the universe into chunks and batch-scans them
// sequentially, pausing between chunks to stay friendly with the bulk data
// provider. A failed chunk is logged and the scan moves on.
func (o *Orchestrator) RunFullScan(ctx context.Context, symbols []string, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = o.config.ChunkSize
	}

	total := len(symbols)
	o.logger.WithFields(map[string]interface{}{
		"symbols":    total,
		"chunk_size": chunkSize,
	}).Info("Starting full scan")

	for i := 0; i < total; i += chunkSize {
		end := i + chunkSize
		if end > total {
			end = total
		}
		chunk := symbols[i:end]

		o.logger.WithFields(map[string]interface{}{
			"chunk":    i/chunkSize + 1,
			"progress": fmt.Sprintf("%d/%d", i, total),
		}).Info("Processing chunk")

		if err := o.ScanBatch(ctx, chunk); err != nil {
			o.logger.WithError(err).Warn("Chunk failed, continuing")
		}

		if end < total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.config.ChunkPause):
			}
		}
	}

	o.logger.Info("Full scan completed")
	return nil
}

// compositeScore applies the additive scoring formula shared by deep and
// batch scans.
func (o *Orchestrator) compositeScore(passedFinancials bool, setup contracts.SetupSummary, smart contracts.SmartMoneyResult) int {
	score := 0
	if passedFinancials {
		score += pointsFundamentals
	}
	if setup.Trend == contracts.TrendUp {
		score += pointsUptrend
	}
	if setup.RVOL > o.config.HighRVOL {
		score += pointsHighRVOL
	}
	if smart.Detected {
		score += pointsSmartMoney
	}
	if setup.Squeeze {
		score += pointsSqueeze
	}
	return score
}

// evaluateFundamentals fetches the snapshot and runs the gate; a failed
// fetch gates on an empty snapshot.
func (o *Orchestrator) evaluateFundamentals(ctx context.Context, symbol string) contracts.GateResult {
	var snapshot *contracts.FundamentalSnapshot
	if o.fundamentals != nil {
		s, err := o.fundamentals.Snapshot(ctx, symbol)
		if err != nil {
			o.logger.WithError(err).WithField("symbol", symbol).Debug("Fundamental snapshot unavailable")
		} else {
			snapshot = s
		}
	}
	return o.gate.Evaluate(snapshot)
}
