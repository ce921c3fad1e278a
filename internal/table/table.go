// Package table assembles per-period series into statistics tables and
// persists them as CSV.
package table

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Column names of the persisted tables.
const (
	MonthlyTempMean = "Temperatura Média Mensal (°C)"
	MonthlyPrecMean = "Precipitação Média Mensal (m)"

	AnnualTempMean = "Temperatura Média Anual (°C)"
	AnnualTempMax  = "Temperatura Máxima Anual (°C)"
	AnnualPrecMean = "Precipitação Média Anual (m)"
	AnnualPrecMax  = "Precipitação Máxima Anual (m)"

	TmaxMean = "Tmax Média (°C)"
	TmaxMin  = "Tmax Mínima (°C)"
	TmaxMax  = "Tmax Máxima (°C)"
)

// Table names, which double as CSV file stems.
const (
	NameMonthly     = "estatisticas_mensais"
	NameAnnual      = "estatisticas_anuais"
	NameClimatology = "tmax_mensal_regiao"
)

// Builder accumulates series as columns of one table. The first error
// sticks and is returned by Build.
type Builder struct {
	name          string
	periodColumns []string
	columns       []string
	cells         map[domain.Period]map[int]float64
	err           error
}

// New starts a table keyed by the given period columns: "Ano", "Ano"+"Mês",
// or "Mês".
func New(name string, periodColumns ...string) *Builder {
	b := &Builder{
		name:          name,
		periodColumns: periodColumns,
		cells:         make(map[domain.Period]map[int]float64),
	}
	if err := checkPeriodColumns(periodColumns); err != nil {
		b.err = err
	}
	return b
}

// Add appends s as column. Periods must be unique within s and match the
// table's period columns.
func (b *Builder) Add(column string, s domain.PeriodSeries) *Builder {
	if b.err != nil {
		return b
	}
	for _, c := range b.columns {
		if c == column {
			b.err = fmt.Errorf("table %s: duplicate column %q", b.name, column)
			return b
		}
	}
	idx := len(b.columns)
	b.columns = append(b.columns, column)

	seen := make(map[domain.Period]bool, s.Len())
	for _, p := range s.Points {
		if seen[p.Period] {
			b.err = fmt.Errorf("table %s: column %q has period %s twice", b.name, column, p.Period)
			return b
		}
		seen[p.Period] = true
		if err := checkPeriod(b.periodColumns, p.Period); err != nil {
			b.err = fmt.Errorf("table %s: column %q: %w", b.name, column, err)
			return b
		}
		row, ok := b.cells[p.Period]
		if !ok {
			row = make(map[int]float64)
			b.cells[p.Period] = row
		}
		row[idx] = p.Value
	}
	return b
}

// Build returns the table with rows sorted by period. Cells a column did not
// provide are NaN.
func (b *Builder) Build() (domain.Table, error) {
	if b.err != nil {
		return domain.Table{}, b.err
	}
	periods := make([]domain.Period, 0, len(b.cells))
	for p := range b.cells {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	rows := make([]domain.TableRow, len(periods))
	for r, p := range periods {
		vals := make([]float64, len(b.columns))
		for c := range vals {
			v, ok := b.cells[p][c]
			if !ok {
				v = math.NaN()
			}
			vals[c] = v
		}
		rows[r] = domain.TableRow{Period: p, Values: vals}
	}
	return domain.Table{
		Name:          b.name,
		PeriodColumns: append([]string(nil), b.periodColumns...),
		Columns:       append([]string(nil), b.columns...),
		Rows:          rows,
	}, nil
}

// Validate checks that rows are unique, ascending and as wide as the header.
func Validate(t domain.Table) error {
	if err := checkPeriodColumns(t.PeriodColumns); err != nil {
		return err
	}
	for i, r := range t.Rows {
		if len(r.Values) != len(t.Columns) {
			return fmt.Errorf("table %s: row %d has %d values, want %d", t.Name, i, len(r.Values), len(t.Columns))
		}
		if err := checkPeriod(t.PeriodColumns, r.Period); err != nil {
			return fmt.Errorf("table %s: row %d: %w", t.Name, i, err)
		}
		if i > 0 && !t.Rows[i-1].Period.Before(r.Period) {
			return fmt.Errorf("table %s: row %d period %s is not after %s", t.Name, i, r.Period, t.Rows[i-1].Period)
		}
	}
	return nil
}

func checkPeriodColumns(cols []string) error {
	switch {
	case len(cols) == 1 && (cols[0] == domain.ColumnYear || cols[0] == domain.ColumnMonth):
		return nil
	case len(cols) == 2 && cols[0] == domain.ColumnYear && cols[1] == domain.ColumnMonth:
		return nil
	default:
		return fmt.Errorf("unsupported period columns %v", cols)
	}
}

func checkPeriod(cols []string, p domain.Period) error {
	hasYear, hasMonth := false, false
	for _, c := range cols {
		hasYear = hasYear || c == domain.ColumnYear
		hasMonth = hasMonth || c == domain.ColumnMonth
	}
	switch {
	case hasYear && !hasMonth && !p.IsAnnual():
		return fmt.Errorf("period %s is not annual", p)
	case hasMonth && (p.Month < time.January || p.Month > time.December):
		return fmt.Errorf("period %s has no month", p)
	case !hasYear && p.Year != 0:
		return fmt.Errorf("period %s carries a year", p)
	}
	return nil
}
