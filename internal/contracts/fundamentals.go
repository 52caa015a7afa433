package contracts

// FundamentalSnapshot is a point-in-time view of a symbol's financial ratios.
// Fields are pointers because upstream providers routinely omit them; an
// absent field means "unknown", which conservative checks treat differently
// from zero.
type FundamentalSnapshot struct {
	Symbol       string   `json:"symbol"`
	PE           *float64 `json:"pe,omitempty"`
	DebtToEquity *float64 `json:"debt_to_equity,omitempty"`
	ROE          *float64 `json:"roe,omitempty"`
	MarketCap    *float64 `json:"market_cap,omitempty"`
}

// GateResult is the outcome of the fundamental quality gate.
type GateResult struct {
	Passed         bool               `json:"passed"`
	Details        FundamentalDetails `json:"details"`
	FailureReasons []string           `json:"failure_reasons"`
}

// FundamentalDetails echoes the evaluated ratios so every gate decision is
// traceable to its inputs. DebtToEquity is the raw upstream value, not the
// normalized one.
type FundamentalDetails struct {
	PE           *float64 `json:"pe"`
	DebtToEquity *float64 `json:"debt_to_equity"`
	ROE          *float64 `json:"roe"`
}
