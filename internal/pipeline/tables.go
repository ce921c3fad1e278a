package pipeline

import (
	"path/filepath"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/table"
)

// tables builds the monthly and annual tables once and persists them. The
// report keeps the in-memory tables for every later stage.
func (p *Pipeline) tables(report *domain.Report, vars []variableSeries) error {
	mb := table.New(table.NameMonthly, domain.ColumnYear, domain.ColumnMonth)
	ab := table.New(table.NameAnnual, domain.ColumnYear)
	for _, v := range vars {
		mb.Add(v.monthlyCol, v.monthly)
		ab.Add(v.meanCol, v.annual.Mean).Add(v.maxCol, v.annual.Max)
	}

	monthly, err := mb.Build()
	if err != nil {
		return err
	}
	annual, err := ab.Build()
	if err != nil {
		return err
	}
	report.Monthly, report.Annual = monthly, annual

	for _, t := range []domain.Table{monthly, annual} {
		if err := p.writeTable(report, t); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) writeTable(report *domain.Report, t domain.Table) error {
	path := p.csvPath(t.Name)
	if err := table.WriteCSV(path, t); err != nil {
		return err
	}
	p.wrote(report, "csv", path)
	p.logger.Info("table written", "path", path, "rows", t.Len(), "columns", len(t.Columns))
	return nil
}

func (p *Pipeline) writeRecords(report *domain.Report, name string, records [][]string) error {
	path := p.csvPath(name)
	if err := table.WriteRecords(path, records); err != nil {
		return err
	}
	p.wrote(report, "csv", path)
	p.logger.Info("table written", "path", path, "rows", len(records)-1)
	return nil
}

func (p *Pipeline) csvPath(name string) string {
	return filepath.Join(p.opts.OutputDir, name+".csv")
}

func (p *Pipeline) wrote(report *domain.Report, kind, path string) {
	report.Outputs = append(report.Outputs, path)
	p.metrics.OutputsWritten.WithLabelValues(kind).Inc()
}
