package contracts

import "context"

// MarketDataProvider fetches raw price history. Implementations return an
// empty series (not an error) when the provider has no data for a symbol;
// errors are reserved for transport-level failures.
type MarketDataProvider interface {
	// History fetches daily bars for one symbol.
	History(ctx context.Context, symbol, period, interval string) (*Series, error)

	// BatchHistory fetches bars for many symbols in one call. Symbols the
	// provider could not resolve are simply absent from the result map.
	BatchHistory(ctx context.Context, symbols []string, period, interval string) (map[string]*Series, error)
}

// FundamentalsProvider fetches a fundamental snapshot for one symbol.
type FundamentalsProvider interface {
	Snapshot(ctx context.Context, symbol string) (*FundamentalSnapshot, error)
}

// InstitutionalProvider exposes the ownership/insider/analyst lookups used by
// the dip detector. Each call returns (nil, nil) when the provider has no
// data for the symbol; callers must tolerate any subset being unavailable.
type InstitutionalProvider interface {
	InstitutionalOwnership(ctx context.Context, symbol string) (*OwnershipSummary, error)
	InsiderTransactions(ctx context.Context, symbol string, days int) (*InsiderSummary, error)
	RecommendationTrends(ctx context.Context, symbol string) (*RecommendationSummary, error)
	PriceTarget(ctx context.Context, symbol string) (*PriceTargetSummary, error)
}

// NewsSentimentProvider is the primary, richer sentiment source.
type NewsSentimentProvider interface {
	NewsSentiment(ctx context.Context, symbol string) (*NewsSentiment, error)
}

// MarketSentimentProvider is the coarser fallback sentiment source.
type MarketSentimentProvider interface {
	MarketSentiment(ctx context.Context, symbol string) (*MarketSentiment, error)
}

// UniverseSource discovers the ticker universe to scan.
type UniverseSource interface {
	AllTickers(ctx context.Context) ([]string, error)
}

// ResultStore persists qualifying scan results for later retrieval.
type ResultStore interface {
	Save(ctx context.Context, result *ScanResult) error
	TopStocks(ctx context.Context, minScore, limit int) ([]*StoredResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// OwnershipSummary aggregates institutional holder positions.
type OwnershipSummary struct {
	TotalHolders     int     `json:"total_holders"`
	TotalShares      float64 `json:"total_shares"`
	TotalChange      float64 `json:"total_change"`
	ChangePercentage float64 `json:"change_percentage"`
}

// InsiderSummary aggregates insider transactions over a lookback window.
type InsiderSummary struct {
	BuyTransactions  int     `json:"buy_transactions"`
	SellTransactions int     `json:"sell_transactions"`
	TotalBuyShares   float64 `json:"total_buy_shares"`
	TotalSellShares  float64 `json:"total_sell_shares"`
	NetShares        float64 `json:"net_shares"`
	InsiderBuying    bool    `json:"insider_buying"`
}

// RecommendationSummary is the most recent analyst recommendation trend.
type RecommendationSummary struct {
	Buy           int     `json:"buy"`
	Hold          int     `json:"hold"`
	Sell          int     `json:"sell"`
	StrongBuy     int     `json:"strong_buy"`
	StrongSell    int     `json:"strong_sell"`
	BuyPercentage float64 `json:"buy_percentage"`
	Period        string  `json:"period"`
}

// PriceTargetSummary is the analyst price target consensus.
type PriceTargetSummary struct {
	TargetHigh   float64 `json:"target_high"`
	TargetLow    float64 `json:"target_low"`
	TargetMean   float64 `json:"target_mean"`
	TargetMedian float64 `json:"target_median"`
}

// NewsSentiment is the primary source's article-level sentiment aggregate.
type NewsSentiment struct {
	AverageSentiment float64 `json:"average_sentiment"`
	Label            string  `json:"sentiment_label"`
	ArticleCount     int     `json:"article_count"`
}

// MarketSentiment is the fallback source's coarse sentiment snapshot.
type MarketSentiment struct {
	Score            float64 `json:"sentiment_score"`
	Buzz             float64 `json:"buzz"`
	ArticlesLastWeek int     `json:"articles_in_last_week"`
}
