package fundamentals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/smartmoney/internal/contracts"
	"github.com/quantlab/smartmoney/pkg/config"
	"github.com/quantlab/smartmoney/pkg/logger"
)

func testGate() *Gate {
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
	return NewGate(DefaultConfig(), log)
}

func f(v float64) *float64 { return &v }

func TestGate_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		snapshot   *contracts.FundamentalSnapshot
		wantPassed bool
		wantReason string
	}{
		{
			name: "healthy company passes",
			snapshot: &contracts.FundamentalSnapshot{
				PE: f(20), DebtToEquity: f(1.0), ROE: f(0.12),
			},
			wantPassed: true,
		},
		{
			name: "high PE fails",
			snapshot: &contracts.FundamentalSnapshot{
				PE: f(40), DebtToEquity: f(1.0), ROE: f(0.12),
			},
			wantPassed: false,
			wantReason: "P/E too high (40.00)",
		},
		{
			name: "missing PE fails conservatively",
			snapshot: &contracts.FundamentalSnapshot{
				DebtToEquity: f(1.0), ROE: f(0.12),
			},
			wantPassed: false,
			wantReason: "P/E not available (unprofitable?)",
		},
		{
			name: "percentage style DE is normalized",
			snapshot: &contracts.FundamentalSnapshot{
				PE: f(20), DebtToEquity: f(150), ROE: f(0.12),
			},
			wantPassed: true,
		},
		{
			name: "high DE fails after normalization",
			snapshot: &contracts.FundamentalSnapshot{
				PE: f(20), DebtToEquity: f(250), ROE: f(0.12),
			},
			wantPassed: false,
			wantReason: "High debt/equity (2.50)",
		},
		{
			name: "low ROE fails",
			snapshot: &contracts.FundamentalSnapshot{
				PE: f(20), DebtToEquity: f(1.0), ROE: f(0.05),
			},
			wantPassed: false,
			wantReason: "Low ROE (5.00%)",
		},
		{
			name: "missing DE and ROE are not penalized",
			snapshot: &contracts.FundamentalSnapshot{
				PE: f(20),
			},
			wantPassed: true,
		},
		{
			name:       "nil snapshot fails",
			snapshot:   nil,
			wantPassed: false,
			wantReason: "P/E not available (unprofitable?)",
		},
	}

	gate := testGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gate.Evaluate(tt.snapshot)

			assert.Equal(t, tt.wantPassed, result.Passed)
			if tt.wantPassed {
				assert.Empty(t, result.FailureReasons)
			} else {
				assert.Contains(t, result.FailureReasons, tt.wantReason)
			}
		})
	}
}

func TestGate_Evaluate_MultipleFailures(t *testing.T) {
	gate := testGate()

	result := gate.Evaluate(&contracts.FundamentalSnapshot{
		PE: f(50), DebtToEquity: f(3.0), ROE: f(0.02),
	})

	assert.False(t, result.Passed)
	assert.Len(t, result.FailureReasons, 3)
}

func TestGate_Evaluate_DetailsPassThrough(t *testing.T) {
	gate := testGate()

	result := gate.Evaluate(&contracts.FundamentalSnapshot{
		PE: f(20), DebtToEquity: f(1.5), ROE: f(0.1),
	})

	assert.Equal(t, 20.0, *result.Details.PE)
	assert.Equal(t, 1.5, *result.Details.DebtToEquity)
	assert.Equal(t, 0.1, *result.Details.ROE)
}
