package contracts

// Trend labels produced by the technical setup check.
const (
	TrendUp   = "Uptrend"
	TrendDown = "Downtrend"
)

// OBV trend labels produced by the smart money detector.
const (
	OBVRising      = "Rising"
	OBVFlatFalling = "Flat/Falling"
	OBVUnknown     = "Unknown"
)

// SetupSummary describes the technical setup of the most recent bar.
type SetupSummary struct {
	Trend     string  `json:"trend"`
	Squeeze   bool    `json:"squeeze"`
	Breakout  bool    `json:"breakout"`
	RVOL      float64 `json:"rvol"` // 0.0 when undefined
	LastClose float64 `json:"last_close"`

	// InsufficientData is set when the series is shorter than 50 bars; the
	// boolean signals above are all false in that case.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}

// SmartMoneyResult is the outcome of the institutional flow heuristic on the
// latest bar.
type SmartMoneyResult struct {
	Detected bool     `json:"detected"`
	Score    int      `json:"institutional_score"`
	Signals  []string `json:"signals,omitempty"`

	MFI            float64 `json:"mfi"` // 0.0 when undefined
	OBVTrend       string  `json:"obv_trend"`
	SentimentCount int     `json:"sentiment_count"` // buying-pressure bars of the last 14
}
