// Package xlsx exports run tables as an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/table"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name string
	Rows [][]any
}

// TableSheet lays out t with its period columns first. Undefined values are
// left blank.
func TableSheet(t domain.Table) Sheet {
	rows := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, 0, len(t.PeriodColumns)+len(t.Columns))
	for _, h := range t.Header() {
		header = append(header, h)
	}
	rows = append(rows, header)
	for _, r := range t.Rows {
		row := make([]any, 0, len(header))
		for _, c := range t.PeriodColumns {
			switch c {
			case domain.ColumnYear:
				row = append(row, r.Period.Year)
			case domain.ColumnMonth:
				row = append(row, int(r.Period.Month))
			}
		}
		for _, v := range r.Values {
			if math.IsNaN(v) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return Sheet{Name: t.Name, Rows: rows}
}

// RecordsSheet wraps string records, header first.
func RecordsSheet(name string, records [][]string) Sheet {
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, s := range rec {
			row[j] = s
		}
		rows[i] = row
	}
	return Sheet{Name: name, Rows: rows}
}

// Export writes one worksheet per table to path.
func Export(path string, tables ...domain.Table) error {
	sheets := make([]Sheet, len(tables))
	for i, t := range tables {
		sheets[i] = TableSheet(t)
	}
	return WriteSheets(path, sheets...)
}

// WriteSheets writes sheets to a new workbook at path, replacing any
// existing file.
func WriteSheets(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx %s: no sheets", path)
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.Name, err)
		}
		for r, row := range s.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(s.Name, cell, v); err != nil {
					return fmt.Errorf("sheet %s cell %s: %w", s.Name, cell, err)
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Exporter writes a report's tables, trends and correlations to one workbook.
// It implements pipeline.Sink.
type Exporter struct {
	path   string
	logger *slog.Logger
}

// NewExporter creates an Exporter writing to path.
func NewExporter(path string, logger *slog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (e *Exporter) Name() string { return "xlsx" }

// Save writes the workbook. Empty tables are skipped.
func (e *Exporter) Save(_ context.Context, report domain.Report) error {
	var sheets []Sheet
	for _, t := range []domain.Table{report.Monthly, report.Annual, report.Climatology} {
		if t.Len() > 0 {
			sheets = append(sheets, TableSheet(t))
		}
	}
	if len(report.Trends) > 0 {
		sheets = append(sheets, RecordsSheet(table.NameTrends, table.TrendRecords(report.Trends)))
	}
	if len(report.Correlations) > 0 {
		sheets = append(sheets, RecordsSheet(table.NameCorrelations, table.CorrelationRecords(report.Correlations)))
	}
	if len(sheets) == 0 {
		e.logger.Warn("nothing to export", "path", e.path)
		return nil
	}
	if err := WriteSheets(e.path, sheets...); err != nil {
		return err
	}
	e.logger.Info("workbook written", "path", e.path, "sheets", len(sheets))
	return nil
}
