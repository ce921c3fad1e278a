package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Describe summarizes the valid values of xs. Quartiles are the medians of
// the lower and upper halves. An empty input yields Count 0 and NaN fields.
func Describe(xs []float64) domain.Summary {
	valid := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	nan := math.NaN()
	sum := domain.Summary{Count: len(valid), Mean: nan, StdDev: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan}
	if len(valid) == 0 {
		return sum
	}
	sort.Float64s(valid)

	sum.Mean = must(stats.Mean(valid))
	sum.StdDev = must(stats.StandardDeviationSample(valid))
	sum.Min = must(stats.Min(valid))
	sum.Max = must(stats.Max(valid))
	sum.Median = must(stats.Median(valid))
	if q, err := stats.Quartile(valid); err == nil {
		sum.Q25, sum.Q75 = q.Q1, q.Q3
	}
	return sum
}

func must(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}
