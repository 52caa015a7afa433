package contracts

import "time"

// Bar is a single OHLCV bar for one trading session.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is an ordered price history for one symbol, ascending by date with
// no duplicate sessions, plus the computed indicator columns.
//
// The indicator columns are owned by the enrichment pipeline: the technical
// engine fills the moving-average/band columns, then the flow detector fills
// the flow columns. After enrichment callers treat the series as read-only.
// Each float column is either empty (not computed) or exactly len(Bars) long,
// with NaN marking bars where the window is incomplete or the value is
// arithmetically undefined.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`

	// Technical columns
	SMA50     []float64 `json:"-"`
	SMA200    []float64 `json:"-"`
	EMA20     []float64 `json:"-"`
	VolSMA20  []float64 `json:"-"`
	RVOL      []float64 `json:"-"`
	BBUpper   []float64 `json:"-"`
	BBLower   []float64 `json:"-"`
	Bandwidth []float64 `json:"-"`

	// Flow columns
	MFI            []float64 `json:"-"`
	OBV            []float64 `json:"-"`
	BuyingPressure []bool    `json:"-"`
	SentimentCount []int     `json:"-"`
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty reports whether the series has no bars.
func (s *Series) Empty() bool {
	return s.Len() == 0
}

// LastClose returns the close of the most recent bar, or 0 for an empty
// series.
func (s *Series) LastClose() float64 {
	if s.Empty() {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Last returns the most recent bar. Callers must check Empty() first.
func (s *Series) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}
