package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cartera-salud/glosas/internal/glosas"
)

// ContentTypeXLSX is the MIME type of the workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	fileNameBase = "Reporte_de_Radicaciones"
	dateNumFmt   = "dd/mm/yyyy"
	moneyNumFmt  = "$#,##0"
)

// FileName returns the download name for a window's workbook.
func FileName(window glosas.Window, today time.Time) string {
	period := today.Format(LayoutDate)
	if !window.IsZero() {
		period = window.String()
	}
	return fmt.Sprintf("%s_%s.xlsx", fileNameBase, period)
}

// WriteWorkbook writes one sheet per non-empty category report.
func WriteWorkbook(w io.Writer, reports []glosas.CategoryReport) error {
	f, err := BuildWorkbook(reports)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// BuildWorkbook assembles the workbook. Reports without rows get no sheet.
func BuildWorkbook(reports []glosas.CategoryReport) (*excelize.File, error) {
	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	defaultSheet := f.GetSheetName(0)
	written := 0
	for _, report := range reports {
		if len(report.Rows) == 0 {
			continue
		}
		name := report.Category.SheetName()
		if written == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("export: new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, report.Rows, styles); err != nil {
			_ = f.Close()
			return nil, err
		}
		written++
	}
	if written == 0 {
		_ = f.Close()
		return nil, glosas.ErrNotFound
	}
	f.SetActiveSheet(0)
	return f, nil
}

type sheetStyles struct {
	header int
	date   int
	money  int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("export: header style: %w", err)
	}
	dateFmt := dateNumFmt
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return s, fmt.Errorf("export: date style: %w", err)
	}
	moneyFmt := moneyNumFmt
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt}); err != nil {
		return s, fmt.Errorf("export: money style: %w", err)
	}
	return s, nil
}

func writeSheet(f *excelize.File, sheet string, rows []glosas.ReportRow, styles sheetStyles) error {
	header := make([]any, len(glosas.ReportSchema))
	for i, col := range glosas.ReportSchema {
		header[i] = col.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: header row: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(glosas.ReportSchema), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for i, row := range rows {
		values := make([]any, len(glosas.ReportSchema))
		for j, col := range glosas.ReportSchema {
			values[j] = cellValue(row.Get(col.Name), col.Type)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}

	lastRow := len(rows) + 1
	for j, col := range glosas.ReportSchema {
		var style int
		switch col.Type {
		case glosas.TypeDate:
			style = styles.date
		case glosas.TypeMoney:
			style = styles.money
		default:
			continue
		}
		top, err := excelize.CoordinatesToCellName(j+1, 2)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(j+1, lastRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return fmt.Errorf("export: column style: %w", err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func cellValue(v any, typ glosas.ColumnType) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		y, m, d := val.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case float64:
		if typ == glosas.TypeMoney {
			return math.Round(val)
		}
		return val
	default:
		return val
	}
}
