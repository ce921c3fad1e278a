package figures

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	return NewRenderer(filepath.Join(t.TempDir(), "figures"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func annual(from, to int, f func(int) float64) domain.PeriodSeries {
	var pts []domain.PeriodValue
	for y := from; y <= to; y++ {
		pts = append(pts, domain.PeriodValue{Period: domain.YearPeriod(y), Value: f(y)})
	}
	return domain.NewPeriodSeries("Temperatura Média Anual (°C)", domain.UnitsCelsius, pts)
}

func requirePNG(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 8)
	assert.Equal(t, "\x89PNG", string(raw[:4]))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Temperatura Média Anual (°C)", "temperatura_media_anual"},
		{"Precipitação Máxima Anual (m)", "precipitacao_maxima_anual"},
		{"regiao_sul", "regiao_sul"},
		{"  Tmax -- Mês 03 ", "tmax_mes_03"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "boxplot_temperatura_media_anual_5anos_regiao_sul",
		Name("boxplot", "Temperatura Média Anual (°C)", "5anos", "regiao_sul"))
	assert.Equal(t, "temperatura_maxima_2024", Name("temperatura_maxima", "", "2024"))
}

func TestLineAndTrend(t *testing.T) {
	r := newTestRenderer(t)
	s := annual(1940, 2024, func(y int) float64 { return 18 + 0.01*float64(y-1940) })

	path, err := r.Line(Name(s.Name, "regiao_sul"), s, "Temperatura Média Anual", "°C")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir(), "temperatura_media_anual_regiao_sul.png"), path)
	requirePNG(t, path)

	path, err = r.Trend("tendencia_anual_temperatura_media_anual", s, domain.TrendResult{Slope: 0.01, Intercept: -1.4, PValue: 0.001}, "Tendência", "°C")
	require.NoError(t, err)
	requirePNG(t, path)
}

func TestLineSkipsMissingAndRejectsEmpty(t *testing.T) {
	r := newTestRenderer(t)
	s := annual(2000, 2005, func(y int) float64 {
		if y == 2002 {
			return math.NaN()
		}
		return float64(y)
	})
	_, err := r.Line("gaps", s, "t", "y")
	require.NoError(t, err)

	empty := annual(2000, 2001, func(int) float64 { return math.NaN() })
	_, err = r.Line("empty", empty, "t", "y")
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestHistogram(t *testing.T) {
	r := newTestRenderer(t)
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = math.Sin(float64(i))
	}
	vals[3] = math.NaN()
	path, err := r.Histogram("histograma_x_regiao_sul", vals, AnnualBins, "Histograma", "x")
	require.NoError(t, err)
	requirePNG(t, path)
}

func TestBoxPlots(t *testing.T) {
	r := newTestRenderer(t)
	s := annual(1940, 1964, func(y int) float64 { return float64(y % 7) })
	path, err := r.BlockBoxPlot("boxplot_blocos", s, "Blocos", "°C")
	require.NoError(t, err)
	requirePNG(t, path)

	var pts []domain.PeriodValue
	for y := 2000; y < 2003; y++ {
		for m := time.January; m <= time.December; m++ {
			pts = append(pts, domain.PeriodValue{Period: domain.MonthPeriod(y, m), Value: float64(m) + float64(y-2000)})
		}
	}
	path, err = r.MonthBoxPlot("boxplot_mensal", domain.NewPeriodSeries("t", "°C", pts), "Mensal", "°C")
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.ValuesBoxPlot("mismatch", []string{"a"}, nil, "t", "x", "y")
	require.ErrorIs(t, err, domain.ErrMismatchedLength)
}

func TestScatter(t *testing.T) {
	r := newTestRenderer(t)
	x := annual(2000, 2010, func(y int) float64 { return float64(y) })
	y := annual(2000, 2010, func(y int) float64 { return float64(y) * 0.1 })
	path, err := r.Scatter("dispersao", x, y, "Dispersão", "x", "y")
	require.NoError(t, err)
	requirePNG(t, path)

	_, err = r.Scatter("bad", x, annual(2000, 2001, func(int) float64 { return 0 }), "t", "x", "y")
	require.ErrorIs(t, err, domain.ErrMismatchedLength)
}

func TestDecompositionPanel(t *testing.T) {
	r := newTestRenderer(t)
	obs := annual(2000, 2009, func(y int) float64 { return float64(y) })
	nan := obs.Map(func(float64) float64 { return math.NaN() })
	path, err := r.Decomposition("decomposicao_temperatura_anual", domain.DecompositionResult{
		Period:   1,
		Observed: obs,
		Trend:    obs,
		Seasonal: obs.Map(func(float64) float64 { return 0 }),
		Residual: nan,
	}, "Decomposição")
	require.NoError(t, err)
	requirePNG(t, path)
}

func TestMap(t *testing.T) {
	r := newTestRenderer(t)
	g, err := domain.NewGrid(domain.GridSpec{
		Variable: "t2m",
		Units:    domain.UnitsCelsius,
		Times:    []time.Time{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		Lats:     []float64{-22, -23, -24},
		Lons:     []float64{-52, -51, -50},
		Values:   []float64{30, 31, 32, 29, math.NaN(), 33, 28, 27, 26},
		Mask:     []bool{true, true, true, true, true, true, false, true, true},
	})
	require.NoError(t, err)

	path, err := r.Map("temperatura_maxima_2000", g, "Temperatura Máxima Anual em 2000")
	require.NoError(t, err)
	requirePNG(t, path)
}

func TestLineHTML(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	r := newTestRenderer(t)
	s := annual(2000, 2003, func(y int) float64 {
		if y == 2001 {
			return math.NaN()
		}
		return float64(y) / 100
	})
	path, err := r.LineHTML("temperatura_media_anual_regiao_sul", s, "Temperatura Média Anual", "°C")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".html"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "Temperatura Média Anual")
	assert.Contains(t, body, "2025")
	assert.Contains(t, body, "2003")
}

func TestTable(t *testing.T) {
	r := newTestRenderer(t)
	tbl := domain.Table{
		Name:          "estatisticas_tmax_mensal",
		PeriodColumns: []string{domain.ColumnMonth},
		Columns:       []string{"Tmax Média (°C)", "Tmax Mínima (°C)", "Tmax Máxima (°C)"},
	}
	for m := time.January; m <= time.December; m++ {
		v := 20 + float64(m)
		tbl.Rows = append(tbl.Rows, domain.TableRow{Period: domain.MonthPeriod(0, m), Values: []float64{v, v - 3, v + 4}})
	}
	tbl.Rows[5].Values[1] = math.NaN()

	path, err := r.Table(Name("tabela tmax mensal", "regiao_sul"), tbl, "Estatísticas mensais de Tmax")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir(), "tabela_tmax_mensal_regiao_sul.png"), path)
	requirePNG(t, path)

	_, err = r.Table("vazia", domain.Table{PeriodColumns: []string{domain.ColumnMonth}}, "t")
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestTableCells(t *testing.T) {
	assert.Equal(t, "03", periodCell(domain.ColumnMonth, domain.MonthPeriod(0, time.March)))
	assert.Equal(t, "1999", periodCell(domain.ColumnYear, domain.YearPeriod(1999)))
	assert.Equal(t, "23.46", valueCell(23.456))
	assert.Equal(t, "-", valueCell(math.NaN()))
}
