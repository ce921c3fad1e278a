package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

func constantMonth(t *testing.T, year int, month time.Month, v float64) domain.Grid {
	t.Helper()
	g, err := domain.NewGrid(domain.GridSpec{
		Variable: "t2m",
		Units:    domain.UnitsKelvin,
		Times:    []time.Time{time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)},
		Lats:     []float64{-22, -23, -24},
		Lons:     []float64{-52, -51},
		Values:   []float64{v, v, v, v, v, v},
		Mask:     []bool{true, true, true, false, true, true},
	})
	require.NoError(t, err)
	return g
}

func TestMonthlyAndAnnualFromConstantGrids(t *testing.T) {
	var grids []domain.Grid
	var want []float64
	for m := time.January; m <= time.December; m++ {
		v := 280 + float64(m)*1.5
		want = append(want, v)
		grids = append(grids, constantMonth(t, 2001, m, v))
	}
	g, err := domain.ConcatTimes(grids...)
	require.NoError(t, err)

	monthly, err := Monthly(g)
	require.NoError(t, err)
	require.Equal(t, 12, monthly.Len())
	for i, p := range monthly.Points {
		assert.Equal(t, domain.MonthPeriod(2001, time.Month(i+1)), p.Period)
		assert.Equal(t, want[i], p.Value)
	}

	annual, err := Annual(g)
	require.NoError(t, err)
	require.Equal(t, 1, annual.Mean.Len())
	expected := 0.0
	for _, v := range want {
		expected += v
	}
	expected /= 12
	assert.InDelta(t, expected, annual.Mean.Points[0].Value, 1e-9)
	assert.Equal(t, want[11], annual.Max.Points[0].Value)
}

func TestAnnualMaxNeverBelowMean(t *testing.T) {
	var grids []domain.Grid
	for y := 2000; y < 2004; y++ {
		for m := time.January; m <= time.December; m++ {
			phase := 2 * math.Pi * float64(m-1) / 12
			vals := make([]float64, 6)
			for k := range vals {
				vals[k] = 290 + 8*math.Sin(phase) + float64(k) - 0.3*float64(y-2000)
			}
			g, err := domain.NewGrid(domain.GridSpec{
				Variable: "t2m",
				Times:    []time.Time{time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)},
				Lats:     []float64{0, 1, 2},
				Lons:     []float64{0, 1},
				Values:   vals,
			})
			require.NoError(t, err)
			grids = append(grids, g)
		}
	}
	g, err := domain.ConcatTimes(grids...)
	require.NoError(t, err)

	annual, err := Annual(g)
	require.NoError(t, err)
	require.Equal(t, 4, annual.Mean.Len())
	for i := range annual.Mean.Points {
		assert.GreaterOrEqual(t, annual.Max.Points[i].Value, annual.Mean.Points[i].Value)
	}
	assert.GreaterOrEqual(t, Mean(annual.Max.Values()), Mean(annual.Mean.Values()))
}

func TestAnnualAllMissingYearIsNaN(t *testing.T) {
	nan := math.NaN()
	g, err := domain.NewGrid(domain.GridSpec{
		Variable: "tp",
		Times: []time.Time{
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Lats:   []float64{0},
		Lons:   []float64{0, 1},
		Values: []float64{0.002, nan, nan, nan},
	})
	require.NoError(t, err)

	annual, err := Annual(g)
	require.NoError(t, err)
	assert.InDelta(t, 0.002, annual.Mean.Points[0].Value, 1e-12)
	assert.True(t, math.IsNaN(annual.Mean.Points[1].Value))
	assert.True(t, math.IsNaN(annual.Max.Points[1].Value))
}

func TestWindowInclusive(t *testing.T) {
	var grids []domain.Grid
	for y := 1939; y <= 1941; y++ {
		grids = append(grids, constantMonth(t, y, time.January, float64(y)))
	}
	g, err := domain.ConcatTimes(grids...)
	require.NoError(t, err)

	out := Window(g, time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(1941, 1, 1, 0, 0, 0, 0, time.UTC))
	nt, _, _ := out.Dims()
	assert.Equal(t, 2, nt)
	assert.Equal(t, 1940, out.Time(0).Year())
}

func TestAnnualMaxGrid(t *testing.T) {
	a := constantMonth(t, 2000, time.January, 1)
	b := constantMonth(t, 2000, time.February, 5)
	g, err := domain.ConcatTimes(a, b)
	require.NoError(t, err)

	out, err := AnnualMaxGrid(g, 2000)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.Value(0, 0, 0))
	assert.False(t, out.Inside(1, 1))
	assert.Equal(t, 5, out.CellCount())

	_, err = AnnualMaxGrid(g, 1999)
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestCellValuesSkipsMaskAndNaN(t *testing.T) {
	g := constantMonth(t, 2000, time.March, 7)
	vals := CellValues(g)
	assert.Len(t, vals, 5)
}

func TestEmptyGridRejected(t *testing.T) {
	_, err := Monthly(domain.Grid{})
	require.ErrorIs(t, err, domain.ErrInsufficientData)
	_, err = Annual(domain.Grid{})
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestReducersOnEmptyInput(t *testing.T) {
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Max([]float64{math.NaN()})))
	assert.Equal(t, 1.0, Min([]float64{3, 1, math.NaN()}))
}

func TestSummarize(t *testing.T) {
	g, err := domain.NewGrid(domain.GridSpec{
		Variable: "tmax",
		Times:    []time.Time{time.Date(2000, time.March, 1, 0, 0, 0, 0, time.UTC)},
		Lats:     []float64{-30, -29},
		Lons:     []float64{-50, -49},
		Values:   []float64{28, 31, math.NaN(), 34},
		Mask:     []bool{true, true, true, false},
	})
	require.NoError(t, err)

	s, err := Summarize(g)
	require.NoError(t, err)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, 28.0, s.Min)
	assert.Equal(t, 31.0, s.Max)
	assert.InDelta(t, 29.5, s.Mean, 1e-12)

	allMissing, err := domain.NewGrid(domain.GridSpec{
		Variable: "tmax",
		Times:    []time.Time{time.Date(2000, time.March, 1, 0, 0, 0, 0, time.UTC)},
		Lats:     []float64{-30},
		Lons:     []float64{-50},
		Values:   []float64{math.NaN()},
	})
	require.NoError(t, err)
	_, err = Summarize(allMissing)
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}
