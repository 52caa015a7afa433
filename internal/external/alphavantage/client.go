package alphavantage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/httputil"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// The free tier allows 25 requests/day, so the limiter is deliberately slow.
const requestInterval = rate.Limit(0.2)

// Client fetches news sentiment from the Alpha Vantage NEWS_SENTIMENT feed.
type Client struct {
	client  *httputil.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewClient creates an Alpha Vantage client.
func NewClient(httpClient *httputil.Client, baseURL, apiKey string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &Client{
		client:  httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(requestInterval, 1),
		logger:  log,
	}
}

// NewsSentiment averages the ticker-level sentiment across recent articles.
// Returns (nil, nil) when the feed is empty or the key is missing.
func (c *Client) NewsSentiment(ctx context.Context, symbol string) (*contracts.NewsSentiment, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"function": {"NEWS_SENTIMENT"},
		"tickers":  {symbol},
		"limit":    {"50"},
		"apikey":   {c.apiKey},
	}
	endpoint := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	resp, err := c.client.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("news sentiment request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news sentiment request for %s: status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read news sentiment for %s: %w", symbol, err)
	}

	root := gjson.ParseBytes(body)

	// Rate limit exhaustion comes back as a 200 with a Note field.
	if note := root.Get("Note"); note.Exists() {
		c.logger.WithField("symbol", symbol).Warn("Alpha Vantage rate limit reached")
		return nil, nil
	}

	feed := root.Get("feed").Array()
	if len(feed) == 0 {
		return nil, nil
	}

	var sum float64
	count := 0
	for _, article := range feed {
		for _, ts := range article.Get("ticker_sentiment").Array() {
			if ts.Get("ticker").String() != symbol {
				continue
			}
			sum += ts.Get("ticker_sentiment_score").Float()
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}

	avg := sum / float64(count)
	return &contracts.NewsSentiment{
		AverageSentiment: avg,
		Label:            sentimentLabel(avg),
		ArticleCount:     count,
	}, nil
}

// sentimentLabel maps a score to the feed's published bands.
func sentimentLabel(score float64) string {
	switch {
	case score >= 0.35:
		return "Bullish"
	case score >= 0.15:
		return "Somewhat-Bullish"
	case score > -0.15:
		return "Neutral"
	case score > -0.35:
		return "Somewhat-Bearish"
	default:
		return "Bearish"
	}
}
