package finnhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/httputil"
	"github.com/quantlab/smartmoney/pkg/logger"
	"github.com/quantlab/smartmoney/pkg/redis"
)

const (
	// Free tier allows 60 calls/minute; one per second stays safely inside it.
	requestsPerSecond = 1

	cacheTTL = time.Hour
)

// Client wraps the Finnhub REST API for institutional activity, analyst
// coverage, news buzz and fundamental metrics. Responses are cached in Redis
// when a cache is provided; every miss goes through the rate limiter.
type Client struct {
	client  *httputil.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewClient creates a Finnhub client. cache may be nil.
func NewClient(httpClient *httputil.Client, baseURL, apiKey string, cache *redis.Cache, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	return &Client{
		client:  httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 2),
		cache:   cache,
		logger:  log,
	}
}

// get performs one authenticated API call and returns the raw body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("finnhub api key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("token", c.apiKey)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	resp, err := c.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub %s: status %d", path, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// cached runs fetch through the response cache when one is configured.
func (c *Client) cached(ctx context.Context, key string, dest interface{}, fetch func() (interface{}, error)) (interface{}, error) {
	if c.cache != nil {
		hit, err := c.cache.Get(ctx, key, dest)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Debug("Cache read failed")
		} else if hit {
			return dest, nil
		}
	}

	value, err := fetch()
	if err != nil || value == nil {
		return value, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, value, cacheTTL); err != nil {
			c.logger.WithError(err).WithField("key", key).Debug("Cache write failed")
		}
	}
	return value, nil
}

// InstitutionalOwnership aggregates the latest institutional holder report.
// ChangePercentage is the share of reporting holders that increased their
// position. Returns (nil, nil) when Finnhub has no data for the symbol.
func (c *Client) InstitutionalOwnership(ctx context.Context, symbol string) (*contracts.OwnershipSummary, error) {
	key := "finnhub:ownership:" + symbol
	var dest contracts.OwnershipSummary
	value, err := c.cached(ctx, key, &dest, func() (interface{}, error) {
		body, err := c.get(ctx, "/stock/institutional-ownership", url.Values{"symbol": {symbol}})
		if err != nil {
			return nil, err
		}

		holders := gjson.GetBytes(body, "data.0.ownership").Array()
		if len(holders) == 0 {
			return nil, nil
		}

		summary := &contracts.OwnershipSummary{TotalHolders: len(holders)}
		increased := 0
		for _, h := range holders {
			share := h.Get("share").Float()
			change := h.Get("change").Float()
			summary.TotalShares += share
			summary.TotalChange += change
			if change > 0 {
				increased++
			}
		}
		summary.ChangePercentage = float64(increased) / float64(len(holders)) * 100.0
		return summary, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.(*contracts.OwnershipSummary), nil
}

// InsiderTransactions summarizes insider trades over the trailing window.
// Purchase and award codes count as buys, sale codes as sells.
func (c *Client) InsiderTransactions(ctx context.Context, symbol string, days int) (*contracts.InsiderSummary, error) {
	if days <= 0 {
		days = 30
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	key := fmt.Sprintf("finnhub:insider:%s:%d", symbol, days)
	var dest contracts.InsiderSummary
	value, err := c.cached(ctx, key, &dest, func() (interface{}, error) {
		body, err := c.get(ctx, "/stock/insider-transactions", url.Values{
			"symbol": {symbol},
			"from":   {from.Format("2006-01-02")},
			"to":     {to.Format("2006-01-02")},
		})
		if err != nil {
			return nil, err
		}

		txns := gjson.GetBytes(body, "data").Array()
		if len(txns) == 0 {
			return nil, nil
		}

		summary := &contracts.InsiderSummary{}
		for _, t := range txns {
			shares := t.Get("share").Float()
			switch t.Get("transactionCode").String() {
			case "P", "A":
				summary.BuyTransactions++
				summary.TotalBuyShares += shares
			case "S":
				summary.SellTransactions++
				summary.TotalSellShares += shares
			}
		}
		summary.NetShares = summary.TotalBuyShares - summary.TotalSellShares
		summary.InsiderBuying = summary.NetShares > 0
		return summary, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.(*contracts.InsiderSummary), nil
}

// RecommendationTrends returns the latest analyst recommendation period.
func (c *Client) RecommendationTrends(ctx context.Context, symbol string) (*contracts.RecommendationSummary, error) {
	key := "finnhub:recs:" + symbol
	var dest contracts.RecommendationSummary
	value, err := c.cached(ctx, key, &dest, func() (interface{}, error) {
		body, err := c.get(ctx, "/stock/recommendation", url.Values{"symbol": {symbol}})
		if err != nil {
			return nil, err
		}

		latest := gjson.GetBytes(body, "0")
		if !latest.Exists() {
			return nil, nil
		}

		summary := &contracts.RecommendationSummary{
			Buy:        int(latest.Get("buy").Int()),
			Hold:       int(latest.Get("hold").Int()),
			Sell:       int(latest.Get("sell").Int()),
			StrongBuy:  int(latest.Get("strongBuy").Int()),
			StrongSell: int(latest.Get("strongSell").Int()),
			Period:     latest.Get("period").String(),
		}
		total := summary.Buy + summary.Hold + summary.Sell + summary.StrongBuy + summary.StrongSell
		if total > 0 {
			summary.BuyPercentage = float64(summary.Buy+summary.StrongBuy) / float64(total) * 100.0
		}
		return summary, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.(*contracts.RecommendationSummary), nil
}

// PriceTarget returns the analyst consensus price targets.
func (c *Client) PriceTarget(ctx context.Context, symbol string) (*contracts.PriceTargetSummary, error) {
	key := "finnhub:target:" + symbol
	var dest contracts.PriceTargetSummary
	value, err := c.cached(ctx, key, &dest, func() (interface{}, error) {
		body, err := c.get(ctx, "/stock/price-target", url.Values{"symbol": {symbol}})
		if err != nil {
			return nil, err
		}

		root := gjson.ParseBytes(body)
		mean := root.Get("targetMean").Float()
		if mean == 0 {
			return nil, nil
		}

		return &contracts.PriceTargetSummary{
			TargetHigh:   root.Get("targetHigh").Float(),
			TargetLow:    root.Get("targetLow").Float(),
			TargetMean:   mean,
			TargetMedian: root.Get("targetMedian").Float(),
		}, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.(*contracts.PriceTargetSummary), nil
}

// MarketSentiment returns the company news score and buzz statistics.
func (c *Client) MarketSentiment(ctx context.Context, symbol string) (*contracts.MarketSentiment, error) {
	key := "finnhub:sentiment:" + symbol
	var dest contracts.MarketSentiment
	value, err := c.cached(ctx, key, &dest, func() (interface{}, error) {
		body, err := c.get(ctx, "/news-sentiment", url.Values{"symbol": {symbol}})
		if err != nil {
			return nil, err
		}

		root := gjson.ParseBytes(body)
		score := root.Get("companyNewsScore")
		if !score.Exists() || score.Type == gjson.Null {
			return nil, nil
		}

		return &contracts.MarketSentiment{
			Score:            score.Float(),
			Buzz:             root.Get("buzz.buzz").Float(),
			ArticlesLastWeek: int(root.Get("buzz.articlesInLastWeek").Int()),
		}, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.(*contracts.MarketSentiment), nil
}

// Snapshot returns the fundamental metrics used by the stability gate.
// Finnhub reports ROE as a percentage; it is normalized to a fraction here.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*contracts.FundamentalSnapshot, error) {
	key := "finnhub:metrics:" + symbol
	var dest contracts.FundamentalSnapshot
	value, err := c.cached(ctx, key, &dest, func() (interface{}, error) {
		body, err := c.get(ctx, "/stock/metric", url.Values{
			"symbol": {symbol},
			"metric": {"all"},
		})
		if err != nil {
			return nil, err
		}

		metric := gjson.GetBytes(body, "metric")
		if !metric.Exists() {
			return nil, nil
		}

		snapshot := &contracts.FundamentalSnapshot{Symbol: symbol}
		if v := metric.Get("peTTM"); v.Exists() && v.Type != gjson.Null {
			f := v.Float()
			snapshot.PE = &f
		}
		if v := metric.Get("totalDebt/totalEquityQuarterly"); v.Exists() && v.Type != gjson.Null {
			f := v.Float()
			snapshot.DebtToEquity = &f
		}
		if v := metric.Get("roeTTM"); v.Exists() && v.Type != gjson.Null {
			f := v.Float() / 100.0
			snapshot.ROE = &f
		}
		if v := metric.Get("marketCapitalization"); v.Exists() && v.Type != gjson.Null {
			f := v.Float()
			snapshot.MarketCap = &f
		}

		if snapshot.PE == nil && snapshot.DebtToEquity == nil && snapshot.ROE == nil {
			return nil, nil
		}
		return snapshot, nil
	})
	if err != nil || value == nil {
		return nil, err
	}
	return value.(*contracts.FundamentalSnapshot), nil
}
