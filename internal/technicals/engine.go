package technicals

import (
	"math"
	"sort"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// Window lengths for the computed indicators.
const (
	smaShortWindow = 50
	smaLongWindow  = 200
	emaSpan        = 20
	volumeWindow   = 20
	bandWindow     = 20
	bandMultiplier = 2.0

	// setupMinBars is the minimum history for a meaningful setup check.
	setupMinBars = 50

	// squeezeLookback is how much bandwidth history the squeeze check needs.
	squeezeLookback = 50
	squeezeQuantile = 0.20
)

// Engine computes the technical indicator columns of a price series and
// summarizes the setup of the most recent bar.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new indicator engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Enrich fills the technical columns of the series: SMA 50/200, EMA 20,
// 20-bar volume average, relative volume, and Bollinger bands with their
// bandwidth. Bars where a window is incomplete carry NaN.
func (e *Engine) Enrich(s *contracts.Series) {
	if s.Empty() {
		return
	}

	n := s.Len()
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, bar := range s.Bars {
		closes[i] = bar.Close
		volumes[i] = float64(bar.Volume)
	}

	s.SMA50 = rollingMean(closes, smaShortWindow)
	s.SMA200 = rollingMean(closes, smaLongWindow)
	s.EMA20 = ema(closes, emaSpan)
	s.VolSMA20 = rollingMean(volumes, volumeWindow)

	// Relative volume: undefined when the volume average is incomplete or zero.
	s.RVOL = make([]float64, n)
	for i := range s.RVOL {
		avg := s.VolSMA20[i]
		if math.IsNaN(avg) || avg == 0 {
			s.RVOL[i] = math.NaN()
			continue
		}
		s.RVOL[i] = volumes[i] / avg
	}

	// Bollinger bands (20, 2) with sample standard deviation.
	sma20 := rollingMean(closes, bandWindow)
	std20 := rollingStd(closes, bandWindow)

	s.BBUpper = make([]float64, n)
	s.BBLower = make([]float64, n)
	s.Bandwidth = make([]float64, n)
	for i := 0; i < n; i++ {
		s.BBUpper[i] = sma20[i] + bandMultiplier*std20[i]
		s.BBLower[i] = sma20[i] - bandMultiplier*std20[i]
		if math.IsNaN(sma20[i]) || sma20[i] == 0 {
			s.Bandwidth[i] = math.NaN()
			continue
		}
		s.Bandwidth[i] = (s.BBUpper[i] - s.BBLower[i]) / sma20[i]
	}
}

// CheckSetup summarizes the most recent bar: trend versus SMA50, volatility
// squeeze, band breakout and relative volume. Series shorter than 50 bars
// yield a degraded result with every signal false.
func (e *Engine) CheckSetup(s *contracts.Series) contracts.SetupSummary {
	if s.Len() < setupMinBars {
		return contracts.SetupSummary{
			Trend:            contracts.TrendDown,
			LastClose:        s.LastClose(),
			InsufficientData: true,
		}
	}

	last := s.Len() - 1
	lastClose := s.Bars[last].Close

	trend := contracts.TrendDown
	if sma50 := s.SMA50[last]; !math.IsNaN(sma50) && lastClose > sma50 {
		trend = contracts.TrendUp
	}

	squeeze := false
	if bw := s.Bandwidth[last]; !math.IsNaN(bw) && s.Len() >= squeezeLookback {
		recent := trailingDefined(s.Bandwidth, squeezeLookback)
		if len(recent) > 0 {
			squeeze = bw < quantile(recent, squeezeQuantile)
		}
	}

	breakout := false
	if upper := s.BBUpper[last]; !math.IsNaN(upper) {
		breakout = lastClose > upper
	}

	rvol := 0.0
	if v := s.RVOL[last]; !math.IsNaN(v) {
		rvol = v
	}

	return contracts.SetupSummary{
		Trend:     trend,
		Squeeze:   squeeze,
		Breakout:  breakout,
		RVOL:      rvol,
		LastClose: lastClose,
	}
}

// rollingMean computes a simple moving average, NaN until the window fills.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// rollingStd computes the rolling sample standard deviation (ddof=1), NaN
// until the window fills.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < window-1 || window < 2 {
			out[i] = math.NaN()
			continue
		}

		win := values[i-window+1 : i+1]
		var sum float64
		for _, v := range win {
			sum += v
		}
		mean := sum / float64(window)

		var sq float64
		for _, v := range win {
			d := v - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(window-1))
	}
	return out
}

// ema computes an exponentially weighted mean with alpha = 2/(span+1) and no
// bias adjustment: the first value seeds the decay directly.
func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// trailingDefined returns the non-NaN values among the last n entries.
func trailingDefined(values []float64, n int) []float64 {
	start := len(values) - n
	if start < 0 {
		start = 0
	}

	out := make([]float64, 0, n)
	for _, v := range values[start:] {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// quantile computes the q-th quantile with linear interpolation between
// order statistics.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := q * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
