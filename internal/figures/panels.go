package figures

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Decomposition stacks the observed, trend, seasonal and residual components
// in one column of panels.
func (r *Renderer) Decomposition(stem string, d domain.DecompositionResult, title string) (string, error) {
	panels := []struct {
		name string
		s    domain.PeriodSeries
	}{
		{"Observado", d.Observed},
		{"Tendência", d.Trend},
		{"Sazonal", d.Seasonal},
		{"Resíduo", d.Residual},
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, pn := range panels {
		p := plot.New()
		p.Y.Label.Text = pn.name
		p.Add(plotter.NewGrid())
		if i == 0 {
			p.Title.Text = title
		}
		if i == len(panels)-1 {
			p.X.Label.Text = "Ano"
		}
		if xys := seriesXY(pn.s); len(xys) > 0 {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return "", fmt.Errorf("figure %s: %s: %w", stem, pn.name, err)
			}
			line.Color = colorLine
			p.Add(line)
		}
		plots[i] = []*plot.Plot{p}
	}
	return r.savePanels(stem, plots, r.width, 2*r.height)
}

func (r *Renderer) savePanels(stem string, plots [][]*plot.Plot, w, h vg.Length) (string, error) {
	path, err := r.path(stem, ".png")
	if err != nil {
		return "", err
	}

	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadX:      vg.Millimeter,
		PadY:      2 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	if err := writePNG(path, img); err != nil {
		return "", err
	}
	r.logger.Debug("figure written", "path", path)
	return path, nil
}

func writePNG(path string, img *vgimg.Canvas) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
