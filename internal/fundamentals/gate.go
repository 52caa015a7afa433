package fundamentals

import (
	"fmt"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/logger"
)

// Config holds the gate thresholds.
type Config struct {
	MaxPERatio      float64
	MaxDebtToEquity float64
	MinROE          float64
}

// DefaultConfig returns the default financial stability criteria.
func DefaultConfig() Config {
	return Config{
		MaxPERatio:      35.0,
		MaxDebtToEquity: 2.0,
		MinROE:          0.08,
	}
}

// Gate checks whether a company meets the financial stability criteria.
// A missing P/E fails conservatively (likely unprofitable); missing
// debt/equity or ROE are not penalized.
type Gate struct {
	config Config
	logger *logger.Logger
}

// NewGate creates a new fundamental gate.
func NewGate(config Config, log *logger.Logger) *Gate {
	return &Gate{
		config: config,
		logger: log,
	}
}

// Evaluate applies every rule to the snapshot; each failed rule appends a
// human-readable reason. A nil snapshot is treated as all fields unknown.
func (g *Gate) Evaluate(snapshot *contracts.FundamentalSnapshot) contracts.GateResult {
	if snapshot == nil {
		snapshot = &contracts.FundamentalSnapshot{}
	}

	passed := true
	var reasons []string

	// 1. P/E ratio
	if snapshot.PE == nil {
		passed = false
		reasons = append(reasons, "P/E not available (unprofitable?)")
	} else if *snapshot.PE > g.config.MaxPERatio {
		passed = false
		reasons = append(reasons, fmt.Sprintf("P/E too high (%.2f)", *snapshot.PE))
	}

	// 2. Debt to equity. Some upstreams report this as a percentage
	// (e.g. 150 for 1.5x); values above 10 are assumed to be percentages and
	// divided by 100. Ratios legitimately between 10 and 100 would be
	// misclassified by this heuristic.
	if snapshot.DebtToEquity != nil {
		ratio := *snapshot.DebtToEquity
		if ratio > 10 {
			ratio /= 100.0
		}
		if ratio > g.config.MaxDebtToEquity {
			passed = false
			reasons = append(reasons, fmt.Sprintf("High debt/equity (%.2f)", ratio))
		}
	}

	// 3. Return on equity
	if snapshot.ROE != nil && *snapshot.ROE < g.config.MinROE {
		passed = false
		reasons = append(reasons, fmt.Sprintf("Low ROE (%.2f%%)", *snapshot.ROE*100))
	}

	return contracts.GateResult{
		Passed: passed,
		Details: contracts.FundamentalDetails{
			PE:           snapshot.PE,
			DebtToEquity: snapshot.DebtToEquity,
			ROE:          snapshot.ROE,
		},
		FailureReasons: reasons,
	}
}
