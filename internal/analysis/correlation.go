package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Correlate returns the Pearson coefficient between left and right, paired
// by position. Pairs where either side is missing are dropped. When fewer
// than two pairs remain or either side has zero variance the coefficient is
// undefined.
func Correlate(left, right domain.PeriodSeries) (domain.CorrelationResult, error) {
	if left.Len() != right.Len() {
		return domain.CorrelationResult{}, &domain.MismatchedLengthError{Left: left.Len(), Right: right.Len()}
	}

	var xs, ys []float64
	for i := range left.Points {
		x, y := left.Points[i].Value, right.Points[i].Value
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	res := domain.CorrelationResult{Left: left.Name, Right: right.Name, N: len(xs), Coefficient: math.NaN()}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return res, nil
	}
	res.Coefficient = clamp(stat.Correlation(xs, ys, nil), -1, 1)
	res.Defined = true
	return res, nil
}
