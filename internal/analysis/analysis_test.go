package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

func yearly(name string, from, to int, f func(year int) float64) domain.PeriodSeries {
	var pts []domain.PeriodValue
	for y := from; y <= to; y++ {
		pts = append(pts, domain.PeriodValue{Period: domain.YearPeriod(y), Value: f(y)})
	}
	return domain.NewPeriodSeries(name, "", pts)
}

func monthly(name string, fromYear, years int, f func(i int) float64) domain.PeriodSeries {
	var pts []domain.PeriodValue
	i := 0
	for y := fromYear; y < fromYear+years; y++ {
		for m := time.January; m <= time.December; m++ {
			pts = append(pts, domain.PeriodValue{Period: domain.MonthPeriod(y, m), Value: f(i)})
			i++
		}
	}
	return domain.NewPeriodSeries(name, "", pts)
}

func TestTrendPerfectLine(t *testing.T) {
	s := yearly("t", 2000, 2010, func(y int) float64 { return 2*float64(y) - 3990 })

	r, err := Trend(s)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, r.Slope, 1e-9)
	assert.InDelta(t, -3990.0, r.Intercept, 1e-6)
	assert.InDelta(t, 1.0, r.RSquared, 1e-9)
	assert.InDelta(t, 0.0, r.PValue, 1e-9)
	assert.True(t, r.Significant)
	assert.Equal(t, 11, r.N)
	assert.Equal(t, "increasing", r.Direction())
}

func TestTrendInsufficientData(t *testing.T) {
	_, err := Trend(yearly("t", 2000, 2000, func(int) float64 { return 1 }))
	require.ErrorIs(t, err, domain.ErrInsufficientData)

	var ide *domain.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 1, ide.Got)

	onlyOneValid := yearly("t", 2000, 2002, func(y int) float64 {
		if y == 2001 {
			return 5
		}
		return math.NaN()
	})
	_, err = Trend(onlyOneValid)
	require.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = Trend(domain.PeriodSeries{})
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestTrendTwoPoints(t *testing.T) {
	r, err := Trend(yearly("t", 2000, 2001, func(y int) float64 { return float64(y) }))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Slope, 1e-9)
	assert.Equal(t, 0.0, r.PValue)

	flat, err := Trend(yearly("t", 2000, 2001, func(int) float64 { return 3 }))
	require.NoError(t, err)
	assert.Equal(t, 1.0, flat.PValue)
	assert.False(t, flat.Significant)
}

func TestTrendConstantSeries(t *testing.T) {
	r, err := Trend(yearly("p", 1990, 1999, func(int) float64 { return 0.1 }))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r.Slope, 1e-12)
	assert.Equal(t, 0.0, r.RValue)
	assert.Equal(t, 0.0, r.RSquared)
	assert.InDelta(t, 1.0, r.PValue, 1e-12)
	assert.False(t, r.Significant)
}

func TestTrendNoisySeriesNotSignificant(t *testing.T) {
	vals := []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1}
	s := yearly("x", 2000, 2009, func(y int) float64 { return vals[y-2000] })

	r, err := Trend(s)
	require.NoError(t, err)
	assert.Greater(t, r.PValue, domain.SignificanceLevel)
	assert.False(t, r.Significant)
	assert.GreaterOrEqual(t, r.RSquared, 0.0)
	assert.LessOrEqual(t, r.RSquared, 1.0)
	assert.Greater(t, r.StdErr, 0.0)
}

func TestTrendSkipsMissingYears(t *testing.T) {
	s := yearly("t", 2000, 2010, func(y int) float64 {
		if y == 2005 {
			return math.NaN()
		}
		return 0.5*float64(y) + 1
	})
	r, err := Trend(s)
	require.NoError(t, err)
	assert.Equal(t, 10, r.N)
	assert.InDelta(t, 0.5, r.Slope, 1e-9)
}

func TestDecomposeRecoversSeasonalAmplitude(t *testing.T) {
	const amplitude = 3.0
	s := monthly("t2m", 2000, 10, func(i int) float64 {
		return 15 + 0.01*float64(i) + amplitude*math.Sin(2*math.Pi*float64(i)/12)
	})

	d, err := Decompose(s, PeriodMonthly)
	require.NoError(t, err)
	require.Equal(t, s.Len(), d.Seasonal.Len())

	seasonal := d.Seasonal.Values()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range seasonal {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	assert.InDelta(t, 2*amplitude, hi-lo, 1e-6)

	trend := d.Trend.Values()
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(trend[i]), "leading edge %d", i)
		assert.True(t, math.IsNaN(trend[len(trend)-1-i]), "trailing edge %d", i)
	}
	assert.InDelta(t, 15+0.01*60, trend[60], 1e-9)

	residual := d.Residual.Values()
	for i := 6; i < len(residual)-6; i++ {
		assert.InDelta(t, 0, residual[i], 1e-9)
	}
}

func TestDecomposeSeasonalSumsToZero(t *testing.T) {
	s := monthly("tp", 2000, 3, func(i int) float64 { return float64(i%12) * 0.001 })
	d, err := Decompose(s, PeriodMonthly)
	require.NoError(t, err)

	sum := 0.0
	for _, v := range d.Seasonal.Values()[:12] {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
}

func TestDecomposeTooShort(t *testing.T) {
	s := monthly("t2m", 2000, 1, func(i int) float64 { return float64(i) })
	_, err := Decompose(s, PeriodMonthly)

	var de *domain.DecompositionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 12, de.Period)
	assert.Equal(t, 12, de.Len)
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestDecomposeAnnualPeriodOne(t *testing.T) {
	s := yearly("t", 2000, 2004, func(y int) float64 { return float64(y % 3) })
	d, err := Decompose(s, PeriodAnnual)
	require.NoError(t, err)
	assert.Equal(t, s.Values(), d.Trend.Values())
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, d.Seasonal.Values())
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, d.Residual.Values())
}

func TestDecomposeRejectsGaps(t *testing.T) {
	s := domain.NewPeriodSeries("t", "", []domain.PeriodValue{
		{Period: domain.YearPeriod(2000), Value: 1},
		{Period: domain.YearPeriod(2001), Value: 2},
		{Period: domain.YearPeriod(2003), Value: 3},
	})
	_, err := Decompose(s, PeriodAnnual)
	require.Error(t, err)

	_, err = Decompose(s, 0)
	require.Error(t, err)
}

func TestCorrelateIdentical(t *testing.T) {
	s := yearly("t", 2000, 2020, func(y int) float64 { return math.Sin(float64(y)) })
	c, err := Correlate(s, s)
	require.NoError(t, err)
	assert.True(t, c.Defined)
	assert.InDelta(t, 1.0, c.Coefficient, 1e-12)
	assert.Equal(t, 21, c.N)
}

func TestCorrelateInverse(t *testing.T) {
	a := yearly("a", 2000, 2009, func(y int) float64 { return float64(y) })
	b := yearly("b", 2000, 2009, func(y int) float64 { return -3 * float64(y) })
	c, err := Correlate(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, c.Coefficient, 1e-12)
}

func TestCorrelateMismatchedLength(t *testing.T) {
	a := yearly("a", 2000, 2009, func(y int) float64 { return float64(y) })
	b := yearly("b", 2000, 2008, func(y int) float64 { return float64(y) })
	_, err := Correlate(a, b)
	require.ErrorIs(t, err, domain.ErrMismatchedLength)

	var mle *domain.MismatchedLengthError
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, 10, mle.Left)
	assert.Equal(t, 9, mle.Right)
}

func TestCorrelateZeroVarianceUndefined(t *testing.T) {
	a := yearly("a", 2000, 2009, func(y int) float64 { return float64(y) })
	b := yearly("b", 2000, 2009, func(int) float64 { return 4 })
	c, err := Correlate(a, b)
	require.NoError(t, err)
	assert.False(t, c.Defined)
	assert.True(t, math.IsNaN(c.Coefficient))
}

func TestCorrelateDropsMissingPairs(t *testing.T) {
	a := yearly("a", 2000, 2004, func(y int) float64 { return float64(y) })
	b := yearly("b", 2000, 2004, func(y int) float64 {
		if y == 2002 {
			return math.NaN()
		}
		return 2 * float64(y)
	})
	c, err := Correlate(a, b)
	require.NoError(t, err)
	assert.Equal(t, 4, c.N)
	assert.InDelta(t, 1.0, c.Coefficient, 1e-12)
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{4, 1, math.NaN(), 3, 2, 5})
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.InDelta(t, 3.0, s.Median, 1e-12)
	assert.InDelta(t, 1.5, s.Q25, 1e-12)
	assert.InDelta(t, 4.5, s.Q75, 1e-12)
	assert.LessOrEqual(t, s.Min, s.Q25)
	assert.LessOrEqual(t, s.Q25, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q75)
	assert.LessOrEqual(t, s.Q75, s.Max)

	empty := Describe(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}
