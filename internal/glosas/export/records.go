// Package export renders reshaped reports for JSON clients and spreadsheets.
package export

import (
	"time"

	"github.com/cartera-salud/glosas/internal/glosas"
)

// Date layouts used by the API.
const (
	LayoutDateTime = "2006-01-02T15:04:05"
	LayoutDate     = "2006-01-02"
)

// RecordOptions controls how rows become plain records.
type RecordOptions struct {
	// DateLayout formats temporal columns; LayoutDateTime when empty.
	DateLayout string
	// BlankNulls renders nulls as "" instead of JSON null.
	BlankNulls bool
}

// Records converts report rows into field→value maps keyed by the report
// schema column names.
func Records(rows []glosas.ReportRow, opts RecordOptions) []map[string]any {
	layout := opts.DateLayout
	if layout == "" {
		layout = LayoutDateTime
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(glosas.ReportSchema))
		for _, col := range glosas.ReportSchema {
			value := row.Get(col.Name)
			switch v := value.(type) {
			case nil:
				if opts.BlankNulls {
					rec[col.Name] = ""
				} else {
					rec[col.Name] = nil
				}
			case time.Time:
				rec[col.Name] = v.Format(layout)
			default:
				rec[col.Name] = v
			}
		}
		out = append(out, rec)
	}
	return out
}
