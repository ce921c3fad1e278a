package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewPeriodSeriesSorts(t *testing.T) {
	s := NewPeriodSeries("x", "m", []PeriodValue{
		{Period: MonthPeriod(2001, time.January), Value: 3},
		{Period: MonthPeriod(2000, time.December), Value: 2},
		{Period: MonthPeriod(2000, time.March), Value: 1},
	})
	assert.Equal(t, []float64{1, 2, 3}, s.Values())
	assert.Equal(t, "2000-03", s.Points[0].Period.String())
}

func TestPeriodIndexAndString(t *testing.T) {
	assert.Equal(t, 2000.0, YearPeriod(2000).Index())
	assert.InDelta(t, 2000.5, MonthPeriod(2000, time.July).Index(), 1e-12)
	assert.Equal(t, "2000", YearPeriod(2000).String())
	assert.Equal(t, "07", Period{Month: time.July}.String())
	assert.True(t, YearPeriod(2000).Before(MonthPeriod(2000, time.January)))
}

func TestKelvinToCelsius(t *testing.T) {
	s := NewPeriodSeries("t2m", UnitsKelvin, []PeriodValue{
		{Period: YearPeriod(2000), Value: 273.15},
		{Period: YearPeriod(2001), Value: math.NaN()},
		{Period: YearPeriod(2002), Value: 300.15},
	})
	c := KelvinToCelsius(s)
	assert.Equal(t, UnitsCelsius, c.Units)
	assert.InDelta(t, 0, c.Points[0].Value, 1e-9)
	assert.True(t, math.IsNaN(c.Points[1].Value))
	assert.InDelta(t, 27, c.Points[2].Value, 1e-9)
	assert.Equal(t, UnitsKelvin, s.Units, "source series untouched")
	assert.Equal(t, 2, c.Valid().Len())
}

func TestTableSeries(t *testing.T) {
	tbl := Table{
		PeriodColumns: []string{ColumnYear},
		Columns:       []string{"a", "b"},
		Rows: []TableRow{
			{Period: YearPeriod(2000), Values: []float64{1, 10}},
			{Period: YearPeriod(2001), Values: []float64{2, 20}},
		},
	}
	s, ok := tbl.Series("b", "m")
	assert.True(t, ok)
	assert.Equal(t, []float64{10, 20}, s.Values())
	assert.Equal(t, []string{"Ano", "a", "b"}, tbl.Header())

	_, ok = tbl.Series("missing", "")
	assert.False(t, ok)
}

func TestClock(t *testing.T) {
	frozen := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)
	assert.Equal(t, frozen, Now())
}

func TestTrendDirection(t *testing.T) {
	assert.Equal(t, "increasing", TrendResult{Slope: 0.1}.Direction())
	assert.Equal(t, "decreasing", TrendResult{Slope: -0.1}.Direction())
	assert.Equal(t, "flat", TrendResult{}.Direction())
}
