package model

import "github.com/shopspring/decimal"

// Period identifies a fiscal period.
type Period struct {
	Start string `json:"start,omitempty"` // YYYY-MM-DD
	End   string `json:"end,omitempty"`   // YYYY-MM-DD
	Year  int    `json:"year,omitempty"`
}

// AccountsSnapshot holds one fiscal period's reported figures. All monetary
// fields are optional decimals; a nil field means "not reported", not zero.
type AccountsSnapshot struct {
	Period             *Period          `json:"period,omitempty"`
	Revenue            *decimal.Decimal `json:"revenue,omitempty"`
	EBIT               *decimal.Decimal `json:"ebit,omitempty"`
	NetIncome          *decimal.Decimal `json:"net_income,omitempty"`
	Assets             *decimal.Decimal `json:"assets,omitempty"`
	Equity             *decimal.Decimal `json:"equity,omitempty"`
	Cash               *decimal.Decimal `json:"cash,omitempty"`
	CurrentAssets      *decimal.Decimal `json:"current_assets,omitempty"`
	CurrentLiabilities *decimal.Decimal `json:"current_liabilities,omitempty"`
	SourceAnchors      []Citation       `json:"source_anchors,omitempty"`
}

// YearOrZero returns the snapshot's reporting year, or 0 when unknown.
func (s *AccountsSnapshot) YearOrZero() int {
	if s == nil || s.Period == nil {
		return 0
	}
	return s.Period.Year
}

// AccountsDelta is one field's change between two periods. It is derived,
// never stored. PercentageChange is nil when the previous value is zero or
// either value is missing.
type AccountsDelta struct {
	Field            string           `json:"field"`
	CurrentValue     *decimal.Decimal `json:"current_value,omitempty"`
	PreviousValue    *decimal.Decimal `json:"previous_value,omitempty"`
	AbsoluteChange   *decimal.Decimal `json:"absolute_change,omitempty"`
	PercentageChange *decimal.Decimal `json:"percentage_change,omitempty"`
}

// Ratios holds the derived financial ratios for a single snapshot. A nil
// ratio means its denominator was zero or unreported.
type Ratios struct {
	Margin    *decimal.Decimal `json:"margin,omitempty"`    // ebit / revenue
	Solvency  *decimal.Decimal `json:"solvency,omitempty"`  // equity / assets
	Liquidity *decimal.Decimal `json:"liquidity,omitempty"` // current assets / current liabilities
}
