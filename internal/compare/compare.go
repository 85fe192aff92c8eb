// Package compare reconciles two fiscal-period snapshots into per-field
// deltas, headline ratios and a short narrative.
package compare

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sells-group/cvrgpt/internal/model"
)

// NoComparableData is the narrative emitted when either period is missing.
const NoComparableData = "No comparable accounts available."

// NoSignificantChanges is the narrative emitted when no delta moves more
// than one percent.
const NoSignificantChanges = "No significant changes between periods."

// trackedField binds a delta label to its snapshot accessor. Declaration
// order is the tie-break order for equal-magnitude deltas.
type trackedField struct {
	label string
	get   func(*model.AccountsSnapshot) *decimal.Decimal
}

var trackedFields = []trackedField{
	{"revenue", func(s *model.AccountsSnapshot) *decimal.Decimal { return s.Revenue }},
	{"ebit", func(s *model.AccountsSnapshot) *decimal.Decimal { return s.EBIT }},
	{"net_income", func(s *model.AccountsSnapshot) *decimal.Decimal { return s.NetIncome }},
	{"assets", func(s *model.AccountsSnapshot) *decimal.Decimal { return s.Assets }},
	{"equity", func(s *model.AccountsSnapshot) *decimal.Decimal { return s.Equity }},
	{"cash", func(s *model.AccountsSnapshot) *decimal.Decimal { return s.Cash }},
}

// fieldTitles maps delta labels to their narrative names.
var fieldTitles = map[string]string{
	"revenue":    "Revenue",
	"ebit":       "EBIT",
	"net_income": "Net income",
	"assets":     "Assets",
	"equity":     "Equity",
	"cash":       "Cash",
}

// Fields returns the tracked field labels in declaration order.
func Fields() []string {
	out := make([]string, len(trackedFields))
	for i, f := range trackedFields {
		out[i] = f.label
	}
	return out
}

// FieldTitle returns the display name for a tracked field label.
func FieldTitle(label string) string {
	if t, ok := fieldTitles[label]; ok {
		return t
	}
	return label
}

// FieldValue returns the named field from a snapshot, or nil for unknown
// labels and nil snapshots.
func FieldValue(s *model.AccountsSnapshot, label string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	for _, f := range trackedFields {
		if f.label == label {
			return f.get(s)
		}
	}
	return nil
}

// Compare computes per-field deltas between two snapshots, ranks them by
// percentage magnitude and renders a narrative. A missing period yields an
// empty result with an explanatory narrative, never an error: partial
// service beats failure.
func Compare(current, previous *model.AccountsSnapshot) model.CompareResult {
	res := model.CompareResult{KeyChanges: []model.AccountsDelta{}}

	if current != nil && current.Period != nil && current.Period.Year > 0 {
		res.CurrentPeriod = strconv.Itoa(current.Period.Year)
	}
	if previous != nil && previous.Period != nil && previous.Period.Year > 0 {
		res.PreviousPeriod = strconv.Itoa(previous.Period.Year)
	}

	if current == nil || previous == nil {
		res.Narrative = NoComparableData
		return res
	}

	for _, f := range trackedFields {
		cur, prev := f.get(current), f.get(previous)
		if cur == nil || prev == nil {
			continue
		}
		delta := model.AccountsDelta{
			Field:         f.label,
			CurrentValue:  cur,
			PreviousValue: prev,
		}
		abs := cur.Sub(*prev)
		delta.AbsoluteChange = &abs
		if !prev.IsZero() {
			pct := abs.Div(prev.Abs()).Mul(decimal.NewFromInt(100))
			delta.PercentageChange = &pct
		}
		res.KeyChanges = append(res.KeyChanges, delta)
	}

	// Descending |percentage_change|; nil percentages sort last. The sort is
	// stable so ties keep field declaration order.
	sort.SliceStable(res.KeyChanges, func(i, j int) bool {
		pi, pj := res.KeyChanges[i].PercentageChange, res.KeyChanges[j].PercentageChange
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return pi.Abs().GreaterThan(pj.Abs())
	})

	res.CurrentRatios = Ratios(current)
	res.PreviousRatios = Ratios(previous)
	res.Narrative = narrate(res.KeyChanges)
	return res
}

// Ratios derives the headline ratios for one snapshot. A ratio is nil when
// its denominator is zero or unreported.
func Ratios(s *model.AccountsSnapshot) *model.Ratios {
	if s == nil {
		return nil
	}
	r := &model.Ratios{}
	r.Margin = safeDiv(s.EBIT, s.Revenue)
	r.Solvency = safeDiv(s.Equity, s.Assets)
	r.Liquidity = safeDiv(s.CurrentAssets, s.CurrentLiabilities)
	return r
}

func safeDiv(num, den *decimal.Decimal) *decimal.Decimal {
	if num == nil || den == nil || den.IsZero() {
		return nil
	}
	q := num.Div(*den).Round(4)
	return &q
}

var onePercent = decimal.NewFromInt(1)

func narrate(deltas []model.AccountsDelta) string {
	parts := make([]string, 0, 3)
	for _, d := range deltas {
		if len(parts) == 3 {
			break
		}
		if d.PercentageChange == nil || !d.PercentageChange.Abs().GreaterThan(onePercent) {
			continue
		}
		direction := "increased"
		if d.PercentageChange.IsNegative() {
			direction = "decreased"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s%% (%s → %s)",
			fieldTitles[d.Field],
			direction,
			d.PercentageChange.Abs().Round(1).String(),
			FormatDKK(d.PreviousValue),
			FormatDKK(d.CurrentValue),
		))
	}
	if len(parts) == 0 {
		return NoSignificantChanges
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "; " + p
	}
	return out
}

var (
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

// FormatDKK renders a monetary value for narratives: millions as "X.YM DKK",
// thousands as "XK DKK", small values as plain integers.
func FormatDKK(v *decimal.Decimal) string {
	if v == nil {
		return "N/A"
	}
	abs := v.Abs()
	switch {
	case abs.GreaterThanOrEqual(million):
		return v.Div(million).Round(1).String() + "M DKK"
	case abs.GreaterThanOrEqual(thousand):
		return v.Div(thousand).Round(0).String() + "K DKK"
	default:
		return v.Round(0).String() + " DKK"
	}
}
