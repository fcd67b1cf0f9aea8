package risk

// Policy holds the pre-trade limits applied before a signal becomes a trade.
type Policy struct {
	// Risk limits
	MaxRiskPct float64 `json:"max_risk_pct" yaml:"max_risk_pct"` // 0 disables

	// Exposure limits
	MaxOpenTrades int `json:"max_open_trades" yaml:"max_open_trades"` // 0 disables

	// Trade constraints
	MinRR float64 `json:"min_rr" yaml:"min_rr"` // 0 disables
}

// Intent is a candidate trade together with the account state it will join.
type Intent struct {
	Symbol  string
	Entry   float64
	Stop    float64
	Target  float64
	RiskPct float64

	Balance    float64
	Leverage   float64
	OpenTrades int
}
