package universe

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quantlab/smartmoney/pkg/httputil"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// Exchange ticker lists, maintained as plain text with one symbol per line.
var defaultListURLs = []string{
	"https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/nasdaq/nasdaq_tickers.txt",
	"https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/nyse/nyse_tickers.txt",
	"https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/amex/amex_tickers.txt",
}

// minUniverseSize guards against a truncated or broken list download: a
// combined universe smaller than this falls back to the watchlist.
const minUniverseSize = 1000

// Source discovers the tradeable ticker universe from public exchange lists,
// falling back to a fixed watchlist when discovery fails.
type Source struct {
	client    *httputil.Client
	urls      []string
	watchlist []string
	logger    *logger.Logger
}

// NewSource creates a universe source. The watchlist is both the fallback and
// always merged into the discovered set.
func NewSource(client *httputil.Client, watchlist []string, log *logger.Logger) *Source {
	return &Source{
		client:    client,
		urls:      defaultListURLs,
		watchlist: watchlist,
		logger:    log,
	}
}

// AllTickers returns the deduplicated, sorted universe. Symbols longer than
// five characters or containing non-letter characters are dropped since the
// bulk price provider cannot resolve them reliably.
func (s *Source) AllTickers(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	for _, url := range s.urls {
		symbols, err := s.fetchList(ctx, url)
		if err != nil {
			s.logger.WithError(err).WithField("url", url).Warn("Ticker list fetch failed")
			continue
		}
		for _, sym := range symbols {
			seen[sym] = struct{}{}
		}
	}

	if len(seen) < minUniverseSize {
		s.logger.WithField("found", len(seen)).Warn("Universe too small, falling back to watchlist")
		seen = make(map[string]struct{})
	}

	for _, sym := range s.watchlist {
		if valid(sym) {
			seen[strings.ToUpper(sym)] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("no tickers discovered and watchlist empty")
	}

	tickers := make([]string, 0, len(seen))
	for sym := range seen {
		tickers = append(tickers, sym)
	}
	sort.Strings(tickers)

	s.logger.WithField("count", len(tickers)).Info("Universe discovered")
	return tickers, nil
}

// fetchList downloads one plain-text ticker list.
func (s *Source) fetchList(ctx context.Context, url string) ([]string, error) {
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var symbols []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		sym := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if valid(sym) {
			symbols = append(symbols, sym)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ticker list: %w", err)
	}
	return symbols, nil
}

// valid reports whether sym looks like a plain US equity symbol.
func valid(sym string) bool {
	if len(sym) == 0 || len(sym) > 5 {
		return false
	}
	for _, r := range sym {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
