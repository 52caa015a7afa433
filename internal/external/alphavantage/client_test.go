package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/httputil"
	"github.com/quantlab/smartmoney/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
}

func TestClient_NewsSentiment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NEWS_SENTIMENT", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("tickers"))
		fmt.Fprint(w, `{"feed": [
			{"ticker_sentiment": [
				{"ticker": "AAPL", "ticker_sentiment_score": "0.30"},
				{"ticker": "MSFT", "ticker_sentiment_score": "0.90"}
			]},
			{"ticker_sentiment": [
				{"ticker": "AAPL", "ticker_sentiment_score": "0.10"}
			]}
		]}`)
	}))
	defer server.Close()

	client := NewClient(httputil.New(testLogger()), server.URL, "test-key", testLogger())

	sentiment, err := client.NewsSentiment(context.Background(), "AAPL")

	require.NoError(t, err)
	require.NotNil(t, sentiment)

	// Only the AAPL entries count: (0.30 + 0.10) / 2.
	assert.InDelta(t, 0.2, sentiment.AverageSentiment, 1e-9)
	assert.Equal(t, 2, sentiment.ArticleCount)
	assert.Equal(t, "Somewhat-Bullish", sentiment.Label)
}

func TestClient_NewsSentiment_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"feed": []}`)
	}))
	defer server.Close()

	client := NewClient(httputil.New(testLogger()), server.URL, "test-key", testLogger())

	sentiment, err := client.NewsSentiment(context.Background(), "GHOST")

	require.NoError(t, err)
	assert.Nil(t, sentiment)
}

func TestClient_NewsSentiment_RateLimitNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	}))
	defer server.Close()

	client := NewClient(httputil.New(testLogger()), server.URL, "test-key", testLogger())

	sentiment, err := client.NewsSentiment(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Nil(t, sentiment)
}

func TestClient_NewsSentiment_NoKey(t *testing.T) {
	client := NewClient(httputil.New(testLogger()), "http://unused", "", testLogger())

	sentiment, err := client.NewsSentiment(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Nil(t, sentiment)
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, "Bullish"},
		{0.2, "Somewhat-Bullish"},
		{0.0, "Neutral"},
		{-0.2, "Somewhat-Bearish"},
		{-0.5, "Bearish"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, sentimentLabel(tt.score))
		})
	}
}
