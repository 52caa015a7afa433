package contracts

// DrawdownInfo describes how far the current close sits below its recent
// rolling high.
type DrawdownInfo struct {
	DrawdownPct  float64 `json:"drawdown_pct"` // <= 0 by construction
	RecentHigh   float64 `json:"recent_high"`
	CurrentPrice float64 `json:"current_price"`
	DaysFromHigh int     `json:"days_from_high"`
	IsDip        bool    `json:"is_dip"` // drawdown within the configured dip band
}

// SupportInfo reports proximity to the long moving averages.
type SupportInfo struct {
	NearSMA50  bool `json:"near_sma50"`
	NearSMA200 bool `json:"near_sma200"`
	AtSupport  bool `json:"at_support"`
}

// InstitutionalConviction is the 0-40 conviction sub-score with the provider
// data that produced it. Nil summaries mean the provider had nothing for the
// symbol, contributing zero points.
type InstitutionalConviction struct {
	Score           int                    `json:"institutional_score"`
	Ownership       *OwnershipSummary      `json:"institutional_ownership,omitempty"`
	Insider         *InsiderSummary        `json:"insider_transactions,omitempty"`
	Recommendations *RecommendationSummary `json:"recommendations,omitempty"`
	PriceTarget     *PriceTargetSummary    `json:"price_target,omitempty"`
	UpsidePotential float64                `json:"upside_potential,omitempty"`
}

// Sentiment source tags; exactly one source contributes per analysis.
const (
	SentimentSourceNews   = "AlphaVantage"
	SentimentSourceMarket = "Finnhub"
	SentimentSourceNone   = "None"
)

// SentimentScore is the 0-15 sentiment sub-score tagged with the source that
// answered, for explainability.
type SentimentScore struct {
	Score  int              `json:"sentiment_score"`
	Source string           `json:"source"`
	News   *NewsSentiment   `json:"news,omitempty"`
	Market *MarketSentiment `json:"market,omitempty"`
}

// DipBreakdown is the full dip opportunity analysis for one symbol. It is a
// value: created per analysis, never mutated after return. Every point in the
// total is traceable to one of the sub-scores below.
type DipBreakdown struct {
	Symbol       string  `json:"symbol"`
	Score        int     `json:"dip_score"` // 0-100
	IsStrongDip  bool    `json:"is_strong_dip"`
	CurrentPrice float64 `json:"current_price"`

	Drawdown      DrawdownInfo            `json:"drawdown"`
	OBVDivergence bool                    `json:"obv_divergence"`
	Support       SupportInfo             `json:"support"`
	Institutional InstitutionalConviction `json:"institutional"`
	Sentiment     SentimentScore          `json:"sentiment"`
	Fundamentals  GateResult              `json:"fundamentals"`
	PerfectDip    bool                    `json:"perfect_dip"`
}
