// Package figures renders the charts of a run: static PNGs through
// gonum/plot and interactive HTML line charts through go-echarts.
//
// File names are deterministic: every method takes a stem built with Name,
// so the same inputs always land on the same path.
package figures

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Default canvas sizes.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

var (
	colorLine    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorTrend   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorScatter = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	colorBar     = color.RGBA{R: 135, G: 206, B: 235, A: 255}
)

// Renderer writes charts under one directory.
type Renderer struct {
	dir    string
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing into dir. The directory is created
// on the first save.
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, width: DefaultWidth, height: DefaultHeight, logger: logger}
}

// Dir returns the output directory.
func (r *Renderer) Dir() string { return r.dir }

// Name joins the slugs of parts with underscores, skipping empty ones.
func Name(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Slug(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "_")
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug lowercases s, drops accents and any parenthesised suffix such as a
// unit, and collapses everything that is not a letter or digit into single
// underscores: "Temperatura Média Anual (°C)" becomes
// "temperatura_media_anual".
func Slug(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}

func (r *Renderer) newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func (r *Renderer) save(p *plot.Plot, stem string) (string, error) {
	path, err := r.path(stem, ".png")
	if err != nil {
		return "", err
	}
	if err := p.Save(r.width, r.height, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	r.logger.Debug("figure written", "path", path)
	return path, nil
}

func (r *Renderer) path(stem, ext string) (string, error) {
	if stem == "" {
		return "", fmt.Errorf("figure name is empty")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create figures dir: %w", err)
	}
	return filepath.Join(r.dir, stem+ext), nil
}

// seriesXY converts the valid points of s to plot coordinates on the year
// axis.
func seriesXY(s domain.PeriodSeries) plotter.XYs {
	valid := s.Valid()
	xys := make(plotter.XYs, valid.Len())
	for i, p := range valid.Points {
		xys[i] = plotter.XY{X: p.Period.Index(), Y: p.Value}
	}
	return xys
}

func errNoData(stem string) error {
	return fmt.Errorf("figure %s: %w: no valid values", stem, domain.ErrInsufficientData)
}
