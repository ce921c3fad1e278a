package figures

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// LineHTML renders s as an interactive line chart. Missing values leave a
// gap in the line.
func (r *Renderer) LineHTML(stem string, s domain.PeriodSeries, title, ylabel string) (string, error) {
	if s.Valid().Len() == 0 {
		return "", errNoData(stem)
	}
	path, err := r.path(stem, ".html")
	if err != nil {
		return "", err
	}

	labels := make([]string, s.Len())
	data := make([]opts.LineData, s.Len())
	for i, pt := range s.Points {
		labels[i] = pt.Period.String()
		if math.IsNaN(pt.Value) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: pt.Value}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(domain.Now())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Ano"}),
		charts.WithYAxisOpts(opts.YAxis{Name: ylabel}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(labels).AddSeries(s.Name, data)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := line.Render(f); err != nil {
		f.Close()
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	r.logger.Debug("figure written", "path", path)
	return path, nil
}
