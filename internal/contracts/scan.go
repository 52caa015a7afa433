package contracts

import (
	"encoding/json"
	"time"
)

// ScanResult is the composite scoring outcome for one symbol.
type ScanResult struct {
	Symbol           string `json:"symbol"`
	Score            int    `json:"score"` // 0-100
	PotentialBuy     bool   `json:"potential_buy"`
	PassedFinancials bool   `json:"passed_financials"`

	Fundamentals *GateResult       `json:"fundamentals,omitempty"`
	Technicals   *SetupSummary     `json:"technicals,omitempty"`
	Flow         *SmartMoneyResult `json:"institutional,omitempty"`
}

// LastClose returns the price to persist alongside the score.
func (r *ScanResult) LastClose() float64 {
	if r.Technicals == nil {
		return 0
	}
	return r.Technicals.LastClose
}

// StoredResult is a scan result as read back from the result store.
type StoredResult struct {
	Symbol           string          `json:"symbol"`
	Score            int             `json:"score"`
	Price            float64         `json:"price"`
	PassedFinancials bool            `json:"passed_financials"`
	LastUpdated      time.Time       `json:"last_updated"`
	Details          json.RawMessage `json:"details"`
	Signals          []string        `json:"signals"`
}
