package dip

import (
	"context"
	"fmt"
	"math"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/internal/flow"
	"github.com/quantlab/smartmoney/internal/fundamentals"
	"github.com/quantlab/smartmoney/internal/technicals"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// Sub-score weights. Institutional conviction is capped regardless of how
// many of its rules fire; the total is capped at 100.
const (
	pointsDip          = 15
	pointsDivergence   = 10
	pointsSupport      = 5
	pointsFundamentals = 10
	pointsPerfectDip   = 10

	institutionalCap = 40
	maxScore         = 100

	// perfectDipConviction is the institutional score the combo bonus needs.
	perfectDipConviction = 20
)

// Config holds the dip detector tuning.
type Config struct {
	MinBars             int     // history required for any analysis
	DrawdownWindow      int     // rolling-high window in bars
	DipLowerPct         float64 // deepest drawdown still considered a dip
	DipUpperPct         float64 // shallowest drawdown considered a dip
	DivergenceLookback  int     // bars for the OBV divergence check
	SupportProximityPct float64 // distance to SMA counted as "at support"
	StrongDipScore      int     // total at or above which the dip is strong
	InsiderLookbackDays int     // insider transaction window
	HistoryPeriod       string
	Interval            string
}

// DefaultConfig returns the default dip detection parameters.
func DefaultConfig() Config {
	return Config{
		MinBars:             50,
		DrawdownWindow:      20,
		DipLowerPct:         -30,
		DipUpperPct:         -10,
		DivergenceLookback:  5,
		SupportProximityPct: 0.05,
		StrongDipScore:      70,
		InsiderLookbackDays: 30,
		HistoryPeriod:       "6mo",
		Interval:            "1d",
	}
}

// Detector scores institutional dip-buying opportunities: a meaningful
// drawdown showing signs of accumulation, backed by ownership, insider,
// analyst and sentiment data.
type Detector struct {
	config Config

	market        contracts.MarketDataProvider
	institutional contracts.InstitutionalProvider
	news          contracts.NewsSentimentProvider
	sentiment     contracts.MarketSentimentProvider
	fundamentals  contracts.FundamentalsProvider

	engine *technicals.Engine
	flow   *flow.Detector
	gate   *fundamentals.Gate

	logger *logger.Logger
}

// NewDetector creates a new dip detector. The institutional and sentiment
// providers may be nil; their sub-scores then contribute zero.
func NewDetector(
	config Config,
	market contracts.MarketDataProvider,
	institutional contracts.InstitutionalProvider,
	news contracts.NewsSentimentProvider,
	sentiment contracts.MarketSentimentProvider,
	fundamentalsProvider contracts.FundamentalsProvider,
	engine *technicals.Engine,
	flowDetector *flow.Detector,
	gate *fundamentals.Gate,
	log *logger.Logger,
) *Detector {
	return &Detector{
		config:        config,
		market:        market,
		institutional: institutional,
		news:          news,
		sentiment:     sentiment,
		fundamentals:  fundamentalsProvider,
		engine:        engine,
		flow:          flowDetector,
		gate:          gate,
		logger:        log,
	}
}

// AnalyzeDip runs the full dip analysis for one symbol. It returns nil when
// the price history is missing or shorter than the minimum; callers treat a
// nil breakdown as "skip", never as a zero score.
func (d *Detector) AnalyzeDip(ctx context.Context, symbol string) (*contracts.DipBreakdown, error) {
	series, err := d.market.History(ctx, symbol, d.config.HistoryPeriod, d.config.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if series == nil || series.Len() < d.config.MinBars {
		d.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"bars":   series.Len(),
		}).Debug("Not enough history for dip analysis")
		return nil, nil
	}

	d.engine.Enrich(series)
	d.flow.Enrich(series)

	currentPrice := series.LastClose()

	total := 0

	// A. Technical dip shape
	drawdown := d.calculateDrawdown(series)
	if drawdown.IsDip {
		total += pointsDip
	}

	divergence := d.detectOBVDivergence(series)
	if divergence {
		total += pointsDivergence
	}

	support := d.checkSupport(series)
	if support.AtSupport {
		total += pointsSupport
	}

	// B. Institutional conviction
	conviction := d.scoreInstitutional(ctx, symbol, currentPrice)
	total += conviction.Score

	// C. Sentiment filter
	sentiment := d.scoreSentiment(ctx, symbol)
	total += sentiment.Score

	// D. Fundamental quality bonus
	gateResult := d.evaluateFundamentals(ctx, symbol)
	if gateResult.Passed {
		total += pointsFundamentals
	}

	// E. Everything lining up at once
	perfect := drawdown.IsDip && divergence && conviction.Score > perfectDipConviction
	if perfect {
		total += pointsPerfectDip
	}

	if total > maxScore {
		total = maxScore
	}

	breakdown := &contracts.DipBreakdown{
		Symbol:        symbol,
		Score:         total,
		IsStrongDip:   total >= d.config.StrongDipScore,
		CurrentPrice:  currentPrice,
		Drawdown:      drawdown,
		OBVDivergence: divergence,
		Support:       support,
		Institutional: conviction,
		Sentiment:     sentiment,
		Fundamentals:  gateResult,
		PerfectDip:    perfect,
	}

	d.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"dip_score":  total,
		"strong_dip": breakdown.IsStrongDip,
	}).Debug("Dip analysis completed")

	return breakdown, nil
}

// calculateDrawdown measures the distance from the rolling high of the last
// DrawdownWindow bars. Drawdown is never positive: the current close is part
// of the window, so the high is at least the close.
func (d *Detector) calculateDrawdown(s *contracts.Series) contracts.DrawdownInfo {
	n := s.Len()
	window := d.config.DrawdownWindow
	if n < window {
		return contracts.DrawdownInfo{CurrentPrice: s.LastClose()}
	}

	recentHigh := math.Inf(-1)
	for _, bar := range s.Bars[n-window:] {
		if bar.Close > recentHigh {
			recentHigh = bar.Close
		}
	}

	currentPrice := s.LastClose()
	drawdownPct := 0.0
	if recentHigh > 0 {
		drawdownPct = (currentPrice - recentHigh) / recentHigh * 100
	}

	daysFromHigh := 0
	for i := n - 1; i >= 0; i-- {
		if s.Bars[i].Close == recentHigh {
			daysFromHigh = n - 1 - i
			break
		}
	}

	return contracts.DrawdownInfo{
		DrawdownPct:  drawdownPct,
		RecentHigh:   recentHigh,
		CurrentPrice: currentPrice,
		DaysFromHigh: daysFromHigh,
		IsDip:        drawdownPct >= d.config.DipLowerPct && drawdownPct <= d.config.DipUpperPct,
	}
}

// detectOBVDivergence reports bullish divergence over the lookback window:
// price falling while on-balance volume rises, the footprint of accumulation
// into a decline.
func (d *Detector) detectOBVDivergence(s *contracts.Series) bool {
	lookback := d.config.DivergenceLookback
	if s.Len() < lookback+1 || len(s.OBV) != s.Len() {
		return false
	}

	last := s.Len() - 1
	priceChange := pctChange(s.Bars[last-lookback].Close, s.Bars[last].Close)
	obvChange := pctChange(s.OBV[last-lookback], s.OBV[last])

	if math.IsNaN(priceChange) || math.IsNaN(obvChange) {
		return false
	}
	return priceChange < 0 && obvChange > 0
}

// checkSupport reports whether the close sits within the configured distance
// of SMA50 or SMA200.
func (d *Detector) checkSupport(s *contracts.Series) contracts.SupportInfo {
	last := s.Len() - 1
	price := s.Bars[last].Close

	info := contracts.SupportInfo{}
	if sma := s.SMA50[last]; !math.IsNaN(sma) && sma != 0 {
		info.NearSMA50 = math.Abs(price-sma)/sma < d.config.SupportProximityPct
	}
	if sma := s.SMA200[last]; !math.IsNaN(sma) && sma != 0 {
		info.NearSMA200 = math.Abs(price-sma)/sma < d.config.SupportProximityPct
	}
	info.AtSupport = info.NearSMA50 || info.NearSMA200

	return info
}

// scoreInstitutional aggregates the ownership, insider, analyst and price
// target lookups into the capped conviction score. Unavailable lookups
// contribute nothing.
func (d *Detector) scoreInstitutional(ctx context.Context, symbol string, currentPrice float64) contracts.InstitutionalConviction {
	conviction := contracts.InstitutionalConviction{}
	if d.institutional == nil {
		return conviction
	}

	score := 0

	// 1. Institutional ownership changes
	ownership, err := d.institutional.InstitutionalOwnership(ctx, symbol)
	if err != nil {
		d.logger.WithError(err).WithField("symbol", symbol).Debug("Institutional ownership unavailable")
	} else if ownership != nil {
		if ownership.ChangePercentage > 60 {
			score += 10
		} else if ownership.ChangePercentage > 40 {
			score += 5
		}
		if ownership.TotalChange > 0 {
			score += 15
		}
		conviction.Ownership = ownership
	}

	// 2. Insider transactions
	insider, err := d.institutional.InsiderTransactions(ctx, symbol, d.config.InsiderLookbackDays)
	if err != nil {
		d.logger.WithError(err).WithField("symbol", symbol).Debug("Insider transactions unavailable")
	} else if insider != nil {
		if insider.InsiderBuying {
			score += 15
		}
		if insider.SellTransactions == 0 && insider.BuyTransactions > 0 {
			score += 5
		}
		conviction.Insider = insider
	}

	// 3. Analyst recommendations
	recs, err := d.institutional.RecommendationTrends(ctx, symbol)
	if err != nil {
		d.logger.WithError(err).WithField("symbol", symbol).Debug("Recommendation trends unavailable")
	} else if recs != nil {
		if recs.BuyPercentage > 60 {
			score += 10
		} else if recs.BuyPercentage > 40 {
			score += 5
		}
		conviction.Recommendations = recs
	}

	// 4. Price target upside
	target, err := d.institutional.PriceTarget(ctx, symbol)
	if err != nil {
		d.logger.WithError(err).WithField("symbol", symbol).Debug("Price target unavailable")
	} else if target != nil && currentPrice > 0 {
		upside := (target.TargetMean - currentPrice) / currentPrice * 100
		if upside > 15 {
			score += 10
		} else if upside > 5 {
			score += 5
		}
		conviction.PriceTarget = target
		conviction.UpsidePotential = upside
	}

	if score > institutionalCap {
		score = institutionalCap
	}
	conviction.Score = score

	return conviction
}

// scoreSentiment maps news sentiment to 0-15 points, preferring the richer
// news source and falling back to the coarser market source. Exactly one
// source contributes; the result is tagged with whichever answered.
func (d *Detector) scoreSentiment(ctx context.Context, symbol string) contracts.SentimentScore {
	if d.news != nil {
		news, err := d.news.NewsSentiment(ctx, symbol)
		if err != nil {
			d.logger.WithError(err).WithField("symbol", symbol).Debug("News sentiment unavailable")
		} else if news != nil {
			score := 0
			switch {
			case news.AverageSentiment > 0.15: // bullish
				score = 15
			case news.AverageSentiment > 0.05: // somewhat bullish
				score = 10
			case news.AverageSentiment > -0.15: // neutral is fine for a dip
				score = 7
			case news.AverageSentiment > -0.3: // slightly bearish, acceptable
				score = 5
			}
			return contracts.SentimentScore{
				Score:  score,
				Source: contracts.SentimentSourceNews,
				News:   news,
			}
		}
	}

	if d.sentiment != nil {
		market, err := d.sentiment.MarketSentiment(ctx, symbol)
		if err != nil {
			d.logger.WithError(err).WithField("symbol", symbol).Debug("Market sentiment unavailable")
		} else if market != nil {
			score := 0
			switch {
			case market.Score > -0.3:
				score = 10
			case market.Score > -0.5:
				score = 5
			}
			return contracts.SentimentScore{
				Score:  score,
				Source: contracts.SentimentSourceMarket,
				Market: market,
			}
		}
	}

	return contracts.SentimentScore{Source: contracts.SentimentSourceNone}
}

// evaluateFundamentals fetches the snapshot and runs the gate. A failed
// fetch gates on an empty snapshot, which fails conservatively.
func (d *Detector) evaluateFundamentals(ctx context.Context, symbol string) contracts.GateResult {
	var snapshot *contracts.FundamentalSnapshot
	if d.fundamentals != nil {
		s, err := d.fundamentals.Snapshot(ctx, symbol)
		if err != nil {
			d.logger.WithError(err).WithField("symbol", symbol).Debug("Fundamental snapshot unavailable")
		} else {
			snapshot = s
		}
	}
	return d.gate.Evaluate(snapshot)
}

// pctChange is the fractional change from prev to cur, NaN when prev is zero.
func pctChange(prev, cur float64) float64 {
	if prev == 0 {
		return math.NaN()
	}
	return (cur - prev) / prev
}
