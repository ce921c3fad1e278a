package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Seasonal cycle lengths used by the pipeline.
const (
	PeriodMonthly = 12
	PeriodAnnual  = 1
)

// Decompose splits s additively into trend, seasonal and residual parts
// using a centred moving average of length period (2 x period for even
// periods). Trend and residual are NaN where the window runs off either end.
// The seasonal pattern is the mean detrended value per cycle position,
// shifted to zero mean.
//
// Period 1 means the series has no intra-cycle seasonality: trend equals the
// observed values and seasonal and residual are zero.
func Decompose(s domain.PeriodSeries, period int) (domain.DecompositionResult, error) {
	if period < 1 {
		return domain.DecompositionResult{}, fmt.Errorf("decompose %s: invalid period %d", s.Name, period)
	}
	n := s.Len()
	if n < 2*period {
		return domain.DecompositionResult{}, &domain.DecompositionError{Period: period, Len: n}
	}
	if err := checkRegular(s); err != nil {
		return domain.DecompositionResult{}, fmt.Errorf("decompose %s: %w", s.Name, err)
	}

	obs := s.Values()
	trend := movingAverage(obs, period)

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	if period > 1 {
		pattern := seasonalPattern(obs, trend, period)
		for i := range seasonal {
			seasonal[i] = pattern[i%period]
		}
	}
	for i := range residual {
		residual[i] = obs[i] - trend[i] - seasonal[i]
	}

	return domain.DecompositionResult{
		Variable: s.Name,
		Period:   period,
		Observed: s,
		Trend:    withValues(s, s.Name+" tendência", trend),
		Seasonal: withValues(s, s.Name+" sazonal", seasonal),
		Residual: withValues(s, s.Name+" resíduo", residual),
	}, nil
}

func movingAverage(xs []float64, period int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += 0.5*xs[i-half] + 0.5*xs[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += xs[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += xs[j]
			}
		}
		out[i] = sum / float64(period)
	}
	return out
}

func seasonalPattern(obs, trend []float64, period int) []float64 {
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i := range obs {
		d := obs[i] - trend[i]
		if math.IsNaN(d) {
			continue
		}
		pattern[i%period] += d
		counts[i%period]++
	}
	mean := 0.0
	for k := range pattern {
		if counts[k] > 0 {
			pattern[k] /= float64(counts[k])
		}
		mean += pattern[k]
	}
	mean /= float64(period)
	for k := range pattern {
		pattern[k] -= mean
	}
	return pattern
}

// checkRegular requires consecutive buckets: whole years for annual series
// and calendar months for monthly ones.
func checkRegular(s domain.PeriodSeries) error {
	for i := 1; i < s.Len(); i++ {
		prev, cur := s.Points[i-1].Period, s.Points[i].Period
		if next(prev) != cur {
			return fmt.Errorf("%w: %s does not follow %s", domain.ErrInsufficientData, cur, prev)
		}
	}
	return nil
}

func next(p domain.Period) domain.Period {
	switch {
	case p.IsAnnual():
		return domain.YearPeriod(p.Year + 1)
	case p.Month == time.December:
		return domain.MonthPeriod(p.Year+1, time.January)
	default:
		return domain.MonthPeriod(p.Year, p.Month+1)
	}
}

func withValues(s domain.PeriodSeries, name string, vals []float64) domain.PeriodSeries {
	pts := make([]domain.PeriodValue, len(vals))
	for i, v := range vals {
		pts[i] = domain.PeriodValue{Period: s.Points[i].Period, Value: v}
	}
	return domain.PeriodSeries{Name: name, Units: s.Units, Points: pts}
}
