package domain

import "math"

// Period column names used by every persisted table.
const (
	ColumnYear  = "Ano"
	ColumnMonth = "Mês"
)

// Table is a tabular record: one row per period, one column per variable.
// Rows are kept in ascending period order with unique periods.
type Table struct {
	Name          string
	PeriodColumns []string
	Columns       []string
	Rows          []TableRow
}

// TableRow is one period and its values in Columns order.
type TableRow struct {
	Period Period
	Values []float64
}

// Header returns the full column header: period columns first.
func (t Table) Header() []string {
	h := make([]string, 0, len(t.PeriodColumns)+len(t.Columns))
	h = append(h, t.PeriodColumns...)
	return append(h, t.Columns...)
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Series extracts one column as a PeriodSeries.
func (t Table) Series(column, units string) (PeriodSeries, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return PeriodSeries{}, false
	}
	pts := make([]PeriodValue, len(t.Rows))
	for i, r := range t.Rows {
		v := math.NaN()
		if idx < len(r.Values) {
			v = r.Values[idx]
		}
		pts[i] = PeriodValue{Period: r.Period, Value: v}
	}
	return PeriodSeries{Name: column, Units: units, Points: pts}, true
}

// Len is the number of rows.
func (t Table) Len() int { return len(t.Rows) }
