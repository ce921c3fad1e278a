package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Trend fits value = Slope*period + Intercept by ordinary least squares,
// where period is the numeric year axis. Missing samples are dropped first.
// The p-value is two-sided for H0: slope = 0 using Student's t with n-2
// degrees of freedom.
func Trend(s domain.PeriodSeries) (domain.TrendResult, error) {
	valid := s.Valid()
	x, y := valid.Index(), valid.Values()
	if d := distinct(x); d < 2 {
		return domain.TrendResult{}, &domain.InsufficientDataError{Op: "trend " + s.Name, Need: 2, Got: d}
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	n := len(x)
	res := domain.TrendResult{
		Variable:  s.Name,
		Slope:     slope,
		Intercept: intercept,
		N:         n,
	}

	if !constant(y) {
		res.RValue = clamp(stat.Correlation(x, y, nil), -1, 1)
	}
	res.RSquared = res.RValue * res.RValue

	df := float64(n - 2)
	switch {
	case n == 2:
		// A line through two points is exact.
		res.PValue = 1
		if y[0] != y[1] {
			res.PValue = 0
		}
	case math.Abs(res.RValue) == 1:
		res.PValue = 0
	default:
		r := res.RValue
		t := r * math.Sqrt(df/((1-r)*(1+r)))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		res.PValue = 2 * dist.Survival(math.Abs(t))
		res.StdErr = math.Sqrt((1 - res.RSquared) * stat.Variance(y, nil) / stat.Variance(x, nil) / df)
	}
	res.Significant = res.PValue < domain.SignificanceLevel
	return res, nil
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}

// constant reports whether every element equals the first. Exact equality
// avoids the rounding noise a computed variance carries.
func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
