package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthTimes(year, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func seqValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestNewGrid(t *testing.T) {
	t.Run("valid descending latitude", func(t *testing.T) {
		g, err := NewGrid(GridSpec{
			Variable: "t2m",
			Times:    monthTimes(2000, 2),
			Lats:     []float64{-20, -21, -22},
			Lons:     []float64{-50, -49},
			Values:   seqValues(12),
		})
		require.NoError(t, err)
		nt, ny, nx := g.Dims()
		assert.Equal(t, 2, nt)
		assert.Equal(t, 3, ny)
		assert.Equal(t, 2, nx)
		assert.False(t, g.LatAscending())
		assert.True(t, g.LonAscending())
		assert.Equal(t, 6, g.CellCount())
		assert.Equal(t, 7.0, g.Value(1, 0, 1))
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := NewGrid(GridSpec{Times: monthTimes(2000, 1), Lats: []float64{1, 2}, Lons: []float64{1}, Values: []float64{1}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFormat))
	})

	t.Run("non monotonic latitude", func(t *testing.T) {
		_, err := NewGrid(GridSpec{Times: monthTimes(2000, 1), Lats: []float64{1, 3, 2}, Lons: []float64{1}, Values: []float64{1, 2, 3}})
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("unsorted time", func(t *testing.T) {
		ts := monthTimes(2000, 2)
		ts[0], ts[1] = ts[1], ts[0]
		_, err := NewGrid(GridSpec{Times: ts, Lats: []float64{1}, Lons: []float64{1}, Values: []float64{1, 2}})
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("input slices are copied", func(t *testing.T) {
		lats := []float64{1, 2}
		g, err := NewGrid(GridSpec{Times: monthTimes(2000, 1), Lats: lats, Lons: []float64{1}, Values: []float64{1, 2}})
		require.NoError(t, err)
		lats[0] = 99
		assert.Equal(t, 1.0, g.Lat(0))
		g.Lats()[0] = 42
		assert.Equal(t, 1.0, g.Lat(0))
	})
}

func TestGridCrop(t *testing.T) {
	g, err := NewGrid(GridSpec{
		Times:  monthTimes(2000, 2),
		Lats:   []float64{0, 1, 2},
		Lons:   []float64{10, 11, 12},
		Values: seqValues(18),
	})
	require.NoError(t, err)

	out, err := g.Crop(1, 3, 0, 2, []bool{true, false, true, true})
	require.NoError(t, err)

	nt, ny, nx := out.Dims()
	assert.Equal(t, []int{2, 2, 2}, []int{nt, ny, nx})
	assert.Equal(t, []float64{1, 2}, out.Lats())
	assert.Equal(t, []float64{10, 11}, out.Lons())
	assert.Equal(t, 3, out.CellCount())
	assert.Equal(t, 3.0, out.Value(0, 0, 0))
	assert.True(t, math.IsNaN(out.Value(0, 0, 1)))
	assert.Equal(t, 9.0+7.0, out.Value(1, 1, 1))

	_, err = g.Crop(0, 4, 0, 1, nil)
	require.Error(t, err)
}

func TestGridSelectTimes(t *testing.T) {
	g, err := NewGrid(GridSpec{Times: monthTimes(2000, 3), Lats: []float64{0}, Lons: []float64{0}, Values: []float64{1, 2, 3}})
	require.NoError(t, err)

	out := g.SelectTimes(func(ts time.Time) bool { return ts.Month() != time.February })
	nt, _, _ := out.Dims()
	require.Equal(t, 2, nt)
	assert.Equal(t, 1.0, out.Value(0, 0, 0))
	assert.Equal(t, 3.0, out.Value(1, 0, 0))

	nt, _, _ = g.Dims()
	assert.Equal(t, 3, nt, "source grid untouched")
}

func TestConcatTimes(t *testing.T) {
	a, err := NewGrid(GridSpec{Times: monthTimes(2000, 1), Lats: []float64{0}, Lons: []float64{0, 1}, Values: []float64{1, 2}})
	require.NoError(t, err)
	b, err := NewGrid(GridSpec{Times: []time.Time{time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC)}, Lats: []float64{0}, Lons: []float64{0, 1}, Values: []float64{3, 4}})
	require.NoError(t, err)

	out, err := ConcatTimes(a, b)
	require.NoError(t, err)
	nt, _, _ := out.Dims()
	assert.Equal(t, 2, nt)
	assert.Equal(t, 4.0, out.Value(1, 0, 1))

	other, err := NewGrid(GridSpec{Times: monthTimes(2001, 1), Lats: []float64{5}, Lons: []float64{0, 1}, Values: []float64{1, 2}})
	require.NoError(t, err)
	_, err = ConcatTimes(a, other)
	require.ErrorIs(t, err, ErrFormat)

	_, err = ConcatTimes()
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestGridKelvinToCelsius(t *testing.T) {
	g, err := NewGrid(GridSpec{
		Variable: "t2m",
		Units:    UnitsKelvin,
		Times:    monthTimes(2000, 1),
		Lats:     []float64{-20, -21},
		Lons:     []float64{-50},
		Values:   []float64{273.15, math.NaN()},
	})
	require.NoError(t, err)

	c := GridKelvinToCelsius(g)
	assert.Equal(t, UnitsCelsius, c.Units())
	assert.InDelta(t, 0, c.Value(0, 0, 0), 1e-9)
	assert.True(t, math.IsNaN(c.Value(0, 1, 0)))
	assert.InDelta(t, 273.15, g.Value(0, 0, 0), 1e-9, "source grid is untouched")
}
