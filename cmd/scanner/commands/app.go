package commands

import (
	"fmt"

	"github.com/quantlab/smartmoney/internal/dip"
	"github.com/quantlab/smartmoney/internal/external/alphavantage"
	"github.com/quantlab/smartmoney/internal/external/finnhub"
	"github.com/quantlab/smartmoney/internal/external/yahoo"
	"github.com/quantlab/smartmoney/internal/flow"
	"github.com/quantlab/smartmoney/internal/fundamentals"
	"github.com/quantlab/smartmoney/internal/scan"
	"github.com/quantlab/smartmoney/internal/store"
	"github.com/quantlab/smartmoney/internal/technicals"
	"github.com/quantlab/smartmoney/internal/universe"
	"github.com/quantlab/smartmoney/internal/worker"
	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/database"
	"github.com/quantlab/smartmoney/pkg/httputil"
	"github.com/quantlab/smartmoney/pkg/logger"
	"github.com/quantlab/smartmoney/pkg/redis"
)

// app holds the wired dependency graph shared by the CLI commands.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	rdb    *redis.Client
	store  *store.ResultStore
	engine *technicals.Engine
	flow   *flow.Detector
	gate   *fundamentals.Gate

	yahoo        *yahoo.Client
	finnhub      *finnhub.Client
	alphavantage *alphavantage.Client

	orchestrator *scan.Orchestrator
	dipDetector  *dip.Detector
	universe     *universe.Source
	worker       *worker.Worker
}

// buildApp loads config and wires the full dependency graph. The result
// store schema is created on the way.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, "smartmoney")

	httpClient := httputil.New(log)

	yahooClient := yahoo.NewClient(httpClient, cfg.Yahoo.BaseURL, log)
	finnhubClient := finnhub.NewClient(httpClient, cfg.Finnhub.BaseURL, cfg.Finnhub.APIKey, cache, log)
	avClient := alphavantage.NewClient(httpClient, cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey, log)

	resultStore := store.NewResultStore(db, log)

	engine := technicals.NewEngine(log)
	flowDetector := flow.NewDetector(flow.Config{
		RVOLThreshold: cfg.Thresholds.RVOL,
		MFIOversold:   cfg.Thresholds.MFIOversold,
	}, log)
	gate := fundamentals.NewGate(fundamentals.Config{
		MaxPERatio:      cfg.Thresholds.MaxPERatio,
		MaxDebtToEquity: cfg.Thresholds.MaxDebtToEquity,
		MinROE:          cfg.Thresholds.MinROE,
	}, log)

	scanConfig := scan.DefaultConfig()
	scanConfig.ChunkSize = cfg.Scan.ChunkSize
	scanConfig.ChunkPause = cfg.Scan.ChunkPause
	scanConfig.DeepPeriod = cfg.Scan.DeepPeriod
	scanConfig.BatchPeriod = cfg.Scan.BatchPeriod
	scanConfig.Interval = cfg.Scan.Interval
	scanConfig.HighRVOL = cfg.Thresholds.RVOL

	orchestrator := scan.NewOrchestrator(
		scanConfig, yahooClient, finnhubClient, resultStore,
		engine, flowDetector, gate, log,
	)

	dipConfig := dip.DefaultConfig()
	dipConfig.StrongDipScore = cfg.Scan.StrongDipScore
	dipConfig.InsiderLookbackDays = cfg.Scan.InsiderLookbackDays
	dipConfig.HistoryPeriod = cfg.Scan.DeepPeriod
	dipConfig.Interval = cfg.Scan.Interval

	dipDetector := dip.NewDetector(
		dipConfig, yahooClient, finnhubClient, avClient, finnhubClient,
		finnhubClient, engine, flowDetector, gate, log,
	)

	universeSource := universe.NewSource(httpClient, cfg.Scan.Watchlist, log)
	scanWorker := worker.New(universeSource, orchestrator, log)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		rdb:          rdb,
		store:        resultStore,
		engine:       engine,
		flow:         flowDetector,
		gate:         gate,
		yahoo:        yahooClient,
		finnhub:      finnhubClient,
		alphavantage: avClient,
		orchestrator: orchestrator,
		dipDetector:  dipDetector,
		universe:     universeSource,
		worker:       scanWorker,
	}, nil
}

// close releases the app's connections.
func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
