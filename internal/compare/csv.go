package compare

import (
	"bytes"
	"encoding/csv"

	"github.com/shopspring/decimal"

	"github.com/sells-group/cvrgpt/internal/model"
)

// ExportCSV renders a comparison as CSV with one row per tracked delta.
// Missing values render as "N/A"; a comparison without data yields the
// header row only. It never fails on sparse input.
func ExportCSV(res model.CompareResult) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	prevLabel, curLabel := res.PreviousPeriod, res.CurrentPeriod
	if prevLabel == "" {
		prevLabel = "Previous"
	}
	if curLabel == "" {
		curLabel = "Current"
	}

	_ = w.Write([]string{
		"Field",
		prevLabel + " Value",
		curLabel + " Value",
		"Absolute Change",
		"Percentage Change",
	})

	for _, d := range res.KeyChanges {
		_ = w.Write([]string{
			fieldTitles[d.Field],
			csvValue(d.PreviousValue),
			csvValue(d.CurrentValue),
			csvValue(d.AbsoluteChange),
			csvValue(d.PercentageChange),
		})
	}

	w.Flush()
	return buf.Bytes()
}

func csvValue(v *decimal.Decimal) string {
	if v == nil {
		return "N/A"
	}
	return v.String()
}
