package yahoo

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
)

// requestsPerSecond keeps bulk scans under the unofficial chart API's
// tolerance.
const requestsPerSecond = 5

// Client fetches OHLCV history from the Yahoo Finance chart API.
type Client struct {
	client  *httputil.Client
	baseURL string
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewClient creates a Yahoo chart client.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		client:  httpClient,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		logger:  log,
	}
}

// History fetches daily bars for one symbol. Bars with a null close are
// dropped; a symbol the API does not know yields an empty series, not an
// error.
func (c *Client) History(ctx context.Context, symbol, period, interval string) (*contracts.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s&events=div%%2Csplit",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(period), url.QueryEscape(interval))

	resp, err := c.client.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("chart request for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &contracts.Series{Symbol: symbol}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request for %s: status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart response for %s: %w", symbol, err)
	}

	return parseChart(symbol, body)
}

// BatchHistory fetches history for many symbols through the same per-symbol
// endpoint, keyed by symbol. Symbols that fail or come back empty are simply
// absent from the result.
func (c *Client) BatchHistory(ctx context.Context, symbols []string, period, interval string) (map[string]*contracts.Series, error) {
	out := make(map[string]*contracts.Series, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		series, err := c.History(ctx, symbol, period, interval)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Debug("History fetch failed")
			continue
		}
		if series.Empty() {
			continue
		}
		out[symbol] = series
	}
	return out, nil
}

// parseChart extracts the bar series from a chart API payload.
func parseChart(symbol string, body []byte) (*contracts.Series, error) {
	root := gjson.ParseBytes(body)

	if errDesc := root.Get("chart.error.description"); errDesc.Exists() && errDesc.String() != "" {
		// "No data found" and delisted symbols come back this way.
		return &contracts.Series{Symbol: symbol}, nil
	}

	result := root.Get("chart.result.0")
	if !result.Exists() {
		return &contracts.Series{Symbol: symbol}, nil
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	n := len(timestamps)
	if len(closes) < n {
		n = len(closes)
	}

	series := &contracts.Series{
		Symbol: symbol,
		Bars:   make([]contracts.Bar, 0, n),
	}
	for i := 0; i < n; i++ {
		// Halted or partial bars carry null values; skip the whole bar.
		if closes[i].Type == gjson.Null {
			continue
		}
		bar := contracts.Bar{
			Date:  time.Unix(timestamps[i].Int(), 0).UTC(),
			Close: closes[i].Float(),
		}
		if i < len(volumes) {
			bar.Volume = volumes[i].Int()
		}
		if i < len(opens) {
			bar.Open = opens[i].Float()
		}
		if i < len(highs) {
			bar.High = highs[i].Float()
		}
		if i < len(lows) {
			bar.Low = lows[i].Float()
		}
		series.Bars = append(series.Bars, bar)
	}

	return series, nil
}
