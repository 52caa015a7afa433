package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/database"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// ResultStore persists scan results in Postgres, one row per symbol with the
// latest score winning.
type ResultStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewResultStore creates a new result store.
func NewResultStore(db *database.DB, log *logger.Logger) *ResultStore {
	return &ResultStore{
		db:     db,
		logger: log,
	}
}

// InitSchema creates the scanner schema and results table if missing.
func (s *ResultStore) InitSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE SCHEMA IF NOT EXISTS scanner`,
		`CREATE TABLE IF NOT EXISTS scanner.stocks (
			symbol            TEXT PRIMARY KEY,
			score             INTEGER NOT NULL DEFAULT 0,
			price             DOUBLE PRECISION,
			passed_financials BOOLEAN NOT NULL DEFAULT FALSE,
			details           JSONB,
			signals           JSONB,
			last_updated      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_score ON scanner.stocks (score DESC)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	s.logger.Info("Result store schema ready")
	return nil
}

// Save upserts one scan result. The full result is kept as JSONB alongside
// the queryable columns.
func (s *ResultStore) Save(ctx context.Context, result *contracts.ScanResult) error {
	if result == nil {
		return fmt.Errorf("nil scan result")
	}

	details, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result for %s: %w", result.Symbol, err)
	}

	var signals []string
	if result.Flow != nil {
		signals = result.Flow.Signals
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("marshal signals for %s: %w", result.Symbol, err)
	}

	query := `
		INSERT INTO scanner.stocks (symbol, score, price, passed_financials, details, signals, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			score             = EXCLUDED.score,
			price             = EXCLUDED.price,
			passed_financials = EXCLUDED.passed_financials,
			details           = EXCLUDED.details,
			signals           = EXCLUDED.signals,
			last_updated      = NOW()`

	_, err = s.db.Pool.Exec(ctx, query,
		result.Symbol,
		result.Score,
		result.LastClose(),
		result.PassedFinancials,
		details,
		signalsJSON,
	)
	if err != nil {
		return fmt.Errorf("save result for %s: %w", result.Symbol, err)
	}
	return nil
}

// TopStocks returns stored results at or above minScore, best first.
func (s *ResultStore) TopStocks(ctx context.Context, minScore, limit int) ([]*contracts.StoredResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT symbol, score, price, passed_financials, details, signals, last_updated
		FROM scanner.stocks
		WHERE score >= $1
		ORDER BY score DESC, symbol ASC
		LIMIT $2`

	rows, err := s.db.Pool.Query(ctx, query, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("query top stocks: %w", err)
	}
	defer rows.Close()

	var results []*contracts.StoredResult
	for rows.Next() {
		var (
			r           contracts.StoredResult
			price       *float64
			signalsJSON []byte
			updated     time.Time
		)
		if err := rows.Scan(&r.Symbol, &r.Score, &price, &r.PassedFinancials, &r.Details, &signalsJSON, &updated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if price != nil {
			r.Price = *price
		}
		if len(signalsJSON) > 0 {
			if err := json.Unmarshal(signalsJSON, &r.Signals); err != nil {
				s.logger.WithError(err).WithField("symbol", r.Symbol).Warn("Corrupt signals column")
			}
		}
		r.LastUpdated = updated
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}

// Count returns the number of stored results.
func (s *ResultStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM scanner.stocks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return count, nil
}

// Clear removes every stored result.
func (s *ResultStore) Clear(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `TRUNCATE scanner.stocks`); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	s.logger.Info("Result store cleared")
	return nil
}
