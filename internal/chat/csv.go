package chat

import (
	"bytes"
	"encoding/csv"

	"github.com/sells-group/cvrgpt/internal/model"
)

// tableCSV renders a table block as CSV: one header row, then data rows.
func tableCSV(t *model.TableBlock) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write(t.Columns)
	for _, row := range t.Rows {
		_ = w.Write(row)
	}

	w.Flush()
	return buf.Bytes()
}
