package figures

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

const (
	cellHeight = 0.3 * vg.Inch
	cellMinW   = 0.9 * vg.Inch
	cellPad    = 0.15 * vg.Inch
	tableTitle = 0.5 * vg.Inch
)

var (
	colorHeader = color.RGBA{R: 220, G: 230, B: 241, A: 255}
	colorRule   = color.Gray{Y: 160}
)

// Table draws t as a grid of cells, period columns first and values with
// two decimals. Missing values print as "-".
func (r *Renderer) Table(stem string, t domain.Table, title string) (string, error) {
	if t.Len() == 0 {
		return "", errNoData(stem)
	}
	cells := make([][]string, 0, t.Len()+1)
	cells = append(cells, t.Header())
	for _, row := range t.Rows {
		rec := make([]string, 0, len(t.PeriodColumns)+len(row.Values))
		for _, c := range t.PeriodColumns {
			rec = append(rec, periodCell(c, row.Period))
		}
		for _, v := range row.Values {
			rec = append(rec, valueCell(v))
		}
		cells = append(cells, rec)
	}

	body := textStyle(10)
	head := textStyle(11)

	widths := make([]vg.Length, len(cells[0]))
	for _, rec := range cells {
		for j, s := range rec {
			widths[j] = max(widths[j], cellMinW, head.Width(s)+2*cellPad)
		}
	}
	var width vg.Length
	for _, w := range widths {
		width += w
	}
	height := tableTitle + vg.Length(len(cells))*cellHeight + cellPad

	img := vgimg.New(width+2*cellPad, height)
	dc := draw.New(img)
	top := dc.Max.Y - tableTitle

	titleStyle := textStyle(12)
	dc.FillText(titleStyle, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - tableTitle/2}, title)

	rule := draw.LineStyle{Color: colorRule, Width: vg.Points(0.5)}
	for i, rec := range cells {
		y0 := top - vg.Length(i+1)*cellHeight
		x := dc.Min.X + cellPad
		if i == 0 {
			dc.FillPolygon(colorHeader, []vg.Point{
				{X: x, Y: y0}, {X: x + width, Y: y0}, {X: x + width, Y: y0 + cellHeight}, {X: x, Y: y0 + cellHeight},
			})
		}
		sty := body
		if i == 0 {
			sty = head
		}
		for j, s := range rec {
			dc.FillText(sty, vg.Point{X: x + widths[j]/2, Y: y0 + cellHeight/2}, s)
			x += widths[j]
		}
		dc.StrokeLine2(rule, dc.Min.X+cellPad, y0, dc.Min.X+cellPad+width, y0)
	}
	dc.StrokeLine2(rule, dc.Min.X+cellPad, top, dc.Min.X+cellPad+width, top)

	path, err := r.path(stem, ".png")
	if err != nil {
		return "", err
	}
	if err := writePNG(path, img); err != nil {
		return "", err
	}
	r.logger.Debug("figure written", "path", path)
	return path, nil
}

func textStyle(size vg.Length) draw.TextStyle {
	return draw.TextStyle{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, size),
		XAlign:  draw.XCenter,
		YAlign:  draw.YCenter,
		Handler: plot.DefaultTextHandler,
	}
}

func periodCell(column string, p domain.Period) string {
	switch column {
	case domain.ColumnYear:
		return strconv.Itoa(p.Year)
	case domain.ColumnMonth:
		return fmt.Sprintf("%02d", int(p.Month))
	}
	return p.String()
}

func valueCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
