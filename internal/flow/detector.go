package flow

import (
	"math"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/logger"
)

const (
	mfiPeriod        = 14
	sentimentWindow  = 14
	obvTrendLookback = 5

	// detectMinBars is the minimum history for the smart money heuristic.
	detectMinBars = 20

	// detectThreshold is the additive score at which accumulation is flagged.
	detectThreshold = 4
)

// Scoring weights for the smart money heuristic. Every applicable rule adds
// its points; the sentiment rules are mutually exclusive.
const (
	pointsHighSentiment     = 4
	pointsModerateSentiment = 2
	pointsVolumeAccum       = 3
	pointsMFIOversold       = 1

	highSentimentBars     = 9
	moderateSentimentBars = 7
)

// Config holds the flow detector thresholds.
type Config struct {
	RVOLThreshold float64 // relative volume considered accumulation
	MFIOversold   float64 // MFI below this is oversold
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		RVOLThreshold: 1.5,
		MFIOversold:   30.0,
	}
}

// Detector computes money-flow columns and the institutional accumulation
// heuristic. It fills its own flow columns; the relative volume column must
// already be present (via the technical engine) for the volume rule to fire.
type Detector struct {
	config Config
	logger *logger.Logger
}

// NewDetector creates a new flow detector.
func NewDetector(config Config, log *logger.Logger) *Detector {
	return &Detector{
		config: config,
		logger: log,
	}
}

// Enrich fills the flow columns of the series: 14-bar Money Flow Index,
// On-Balance Volume, the per-bar buying-pressure flag and the rolling 14-bar
// buying-pressure count.
func (d *Detector) Enrich(s *contracts.Series) {
	if s.Empty() {
		return
	}

	s.MFI = moneyFlowIndex(s.Bars, mfiPeriod)
	s.OBV = onBalanceVolume(s.Bars)

	n := s.Len()
	s.BuyingPressure = make([]bool, n)
	for i, bar := range s.Bars {
		// Closed nearer its high than its low.
		s.BuyingPressure[i] = (bar.Close - bar.Low) > (bar.High - bar.Close)
	}

	s.SentimentCount = make([]int, n)
	count := 0
	for i := 0; i < n; i++ {
		if s.BuyingPressure[i] {
			count++
		}
		if i >= sentimentWindow && s.BuyingPressure[i-sentimentWindow] {
			count--
		}
		s.SentimentCount[i] = count
	}
}

// DetectSmartMoney scores the latest bar for institutional accumulation.
// Series shorter than 20 bars yield the degraded zero result.
func (d *Detector) DetectSmartMoney(s *contracts.Series) contracts.SmartMoneyResult {
	if s.Len() < detectMinBars {
		return contracts.SmartMoneyResult{OBVTrend: contracts.OBVUnknown}
	}

	last := s.Len() - 1
	score := 0
	var signals []string

	// 1. Sustained buying pressure over the sentiment window.
	sentiment := s.SentimentCount[last]
	switch {
	case sentiment >= highSentimentBars:
		score += pointsHighSentiment
		signals = append(signals, "Sustained Buying Pressure")
	case sentiment >= moderateSentimentBars:
		score += pointsModerateSentiment
		signals = append(signals, "Moderate Buying Pressure")
	}

	// 2. High relative volume on a bar that closed near its high.
	if len(s.RVOL) == s.Len() {
		rvol := s.RVOL[last]
		if !math.IsNaN(rvol) && rvol > d.config.RVOLThreshold && s.BuyingPressure[last] {
			score += pointsVolumeAccum
			signals = append(signals, "High VOL Accumulation")
		}
	}

	// 3. MFI oversold. NaN means no signal, never oversold.
	mfi := s.MFI[last]
	if !math.IsNaN(mfi) && mfi < d.config.MFIOversold {
		score += pointsMFIOversold
		signals = append(signals, "MFI Oversold (Potential Reversal)")
	}

	obvTrend := contracts.OBVUnknown
	if len(s.OBV) == s.Len() {
		if s.OBV[last] > s.OBV[last-obvTrendLookback] {
			obvTrend = contracts.OBVRising
		} else {
			obvTrend = contracts.OBVFlatFalling
		}
	}

	mfiOut := 0.0
	if !math.IsNaN(mfi) {
		mfiOut = mfi
	}

	return contracts.SmartMoneyResult{
		Detected:       score >= detectThreshold,
		Score:          score,
		Signals:        signals,
		MFI:            mfiOut,
		OBVTrend:       obvTrend,
		SentimentCount: sentiment,
	}
}

// moneyFlowIndex computes the 14-bar MFI. A bar's raw money flow counts as
// positive or negative by comparing its typical price to the prior bar's;
// the first bar counts as neither. The index is NaN while the window is
// incomplete and NaN when the negative flow sum is zero.
func moneyFlowIndex(bars []contracts.Bar, period int) []float64 {
	n := len(bars)
	out := make([]float64, n)

	posFlow := make([]float64, n)
	negFlow := make([]float64, n)
	prevTP := math.NaN()
	for i, bar := range bars {
		tp := (bar.High + bar.Low + bar.Close) / 3.0
		rmf := tp * float64(bar.Volume)

		if !math.IsNaN(prevTP) {
			if tp > prevTP {
				posFlow[i] = rmf
			} else if tp < prevTP {
				negFlow[i] = rmf
			}
		}
		prevTP = tp
	}

	var posSum, negSum float64
	for i := 0; i < n; i++ {
		posSum += posFlow[i]
		negSum += negFlow[i]
		if i >= period {
			posSum -= posFlow[i-period]
			negSum -= negFlow[i-period]
		}

		if i < period-1 || negSum == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = 100.0 - 100.0/(1.0+posSum/negSum)
	}

	return out
}

// onBalanceVolume computes the cumulative directional volume sum. The first
// bar contributes nothing, having no prior close to compare.
func onBalanceVolume(bars []contracts.Bar) []float64 {
	out := make([]float64, len(bars))
	var obv float64
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			obv += float64(bars[i].Volume)
		case bars[i].Close < bars[i-1].Close:
			obv -= float64(bars[i].Volume)
		}
		out[i] = obv
	}
	return out
}
