package technicals

import (
	"math"
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

// flatSeries builds n bars with constant close and volume.
func flatSeries(n int, close float64, volume int64) *contracts.Series {
	s := &contracts.Series{Symbol: "TEST"}
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   close,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: volume,
		})
	}
	return s
}

func TestEngine_Enrich_FlatSeries(t *testing.T) {
	engine := NewEngine(testLogger())
	s := flatSeries(60, 100, 1000)

	engine.Enrich(s)

	require.Len(t, s.SMA50, 60)
	require.Len(t, s.RVOL, 60)
	require.Len(t, s.Bandwidth, 60)

	// Windows incomplete at the start carry NaN.
	assert.True(t, math.IsNaN(s.SMA50[48]))
	assert.InDelta(t, 100.0, s.SMA50[49], 1e-9)
	assert.InDelta(t, 100.0, s.SMA50[59], 1e-9)

	// 200-bar window never fills on 60 bars.
	assert.True(t, math.IsNaN(s.SMA200[59]))

	// Constant volume means relative volume of exactly 1.
	assert.True(t, math.IsNaN(s.RVOL[18]))
	assert.InDelta(t, 1.0, s.RVOL[59], 1e-9)

	// Constant closes collapse the bands onto the mean.
	assert.InDelta(t, 100.0, s.BBUpper[59], 1e-9)
	assert.InDelta(t, 100.0, s.BBLower[59], 1e-9)
	assert.InDelta(t, 0.0, s.Bandwidth[59], 1e-9)

	// The EMA seeds from the first value.
	assert.InDelta(t, 100.0, s.EMA20[0], 1e-9)
	assert.InDelta(t, 100.0, s.EMA20[59], 1e-9)
}

func TestEngine_Enrich_ZeroVolume(t *testing.T) {
	engine := NewEngine(testLogger())
	s := flatSeries(30, 100, 0)

	engine.Enrich(s)

	// Zero average volume leaves relative volume undefined, not Inf.
	assert.True(t, math.IsNaN(s.RVOL[29]))
}

func TestEngine_CheckSetup_InsufficientData(t *testing.T) {
	engine := NewEngine(testLogger())
	s := flatSeries(30, 100, 1000)
	engine.Enrich(s)

	setup := engine.CheckSetup(s)

	assert.True(t, setup.InsufficientData)
	assert.Equal(t, contracts.TrendDown, setup.Trend)
	assert.False(t, setup.Squeeze)
	assert.False(t, setup.Breakout)
	assert.Equal(t, 0.0, setup.RVOL)
	assert.InDelta(t, 100.0, setup.LastClose, 1e-9)
}

func TestEngine_CheckSetup_Uptrend(t *testing.T) {
	engine := NewEngine(testLogger())

	s := &contracts.Series{Symbol: "TEST"}
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		price := 100 + float64(i)
		s.Bars = append(s.Bars, contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		})
	}
	engine.Enrich(s)

	setup := engine.CheckSetup(s)

	assert.False(t, setup.InsufficientData)
	assert.Equal(t, contracts.TrendUp, setup.Trend)
	assert.InDelta(t, 1.0, setup.RVOL, 1e-9)
	assert.InDelta(t, 159.0, setup.LastClose, 1e-9)
}

func TestEngine_CheckSetup_Downtrend(t *testing.T) {
	engine := NewEngine(testLogger())

	s := &contracts.Series{Symbol: "TEST"}
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		price := 200 - float64(i)
		s.Bars = append(s.Bars, contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		})
	}
	engine.Enrich(s)

	setup := engine.CheckSetup(s)

	assert.Equal(t, contracts.TrendDown, setup.Trend)
}

func TestEngine_CheckSetup_Squeeze(t *testing.T) {
	engine := NewEngine(testLogger())

	// Volatile history that settles into a tight range: the latest bandwidth
	// should sit below the 20th percentile of its recent history.
	s := &contracts.Series{Symbol: "TEST"}
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		price := 110.0
		if i < 95 {
			if i%2 == 0 {
				price = 100
			} else {
				price = 120
			}
		}
		s.Bars = append(s.Bars, contracts.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		})
	}
	engine.Enrich(s)

	setup := engine.CheckSetup(s)

	assert.True(t, setup.Squeeze)
	assert.False(t, setup.Breakout)
}

func TestEngine_CheckSetup_Idempotent(t *testing.T) {
	engine := NewEngine(testLogger())
	s := flatSeries(60, 100, 1000)
	engine.Enrich(s)

	first := engine.CheckSetup(s)
	second := engine.CheckSetup(s)

	assert.Equal(t, first, second)
}

func TestRollingMean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := rollingMean(values, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestRollingStd_SampleVariance(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := rollingStd(values, 5)

	assert.True(t, math.IsNaN(out[3]))
	// Sample standard deviation of 1..5 is sqrt(2.5).
	assert.InDelta(t, math.Sqrt(2.5), out[4], 1e-9)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{name: "median", values: []float64{1, 2, 3, 4, 5}, q: 0.5, want: 3},
		{name: "interpolated", values: []float64{1, 2, 3, 4, 5}, q: 0.2, want: 1.8},
		{name: "min", values: []float64{1, 2, 3}, q: 0, want: 1},
		{name: "max", values: []float64{1, 2, 3}, q: 1, want: 3},
		{name: "single value", values: []float64{7}, q: 0.2, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quantile(tt.values, tt.q), 1e-9)
		})
	}
}
