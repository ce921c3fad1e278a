package domain

import (
	"math"
	"sort"
)

// PeriodValue is one (period, value) sample. NaN marks an undefined value.
type PeriodValue struct {
	Period Period  `json:"period"`
	Value  float64 `json:"value"`
}

// PeriodSeries is an ordered scalar series, one value per time bucket.
// Treat it as immutable; transforms return new series.
type PeriodSeries struct {
	Name   string        `json:"name"`
	Units  string        `json:"units"`
	Points []PeriodValue `json:"points"`
}

// NewPeriodSeries copies pts and sorts them chronologically.
func NewPeriodSeries(name, units string, pts []PeriodValue) PeriodSeries {
	cp := make([]PeriodValue, len(pts))
	copy(cp, pts)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Period.Before(cp[j].Period) })
	return PeriodSeries{Name: name, Units: units, Points: cp}
}

func (s PeriodSeries) Len() int { return len(s.Points) }

// Values returns the samples in period order.
func (s PeriodSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Index returns the numeric period axis (see Period.Index).
func (s PeriodSeries) Index() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Period.Index()
	}
	return out
}

// Map applies f to every value. NaN stays NaN unless f says otherwise.
func (s PeriodSeries) Map(f func(float64) float64) PeriodSeries {
	pts := make([]PeriodValue, len(s.Points))
	for i, p := range s.Points {
		pts[i] = PeriodValue{Period: p.Period, Value: f(p.Value)}
	}
	return PeriodSeries{Name: s.Name, Units: s.Units, Points: pts}
}

// Valid drops undefined samples.
func (s PeriodSeries) Valid() PeriodSeries {
	pts := make([]PeriodValue, 0, len(s.Points))
	for _, p := range s.Points {
		if !math.IsNaN(p.Value) {
			pts = append(pts, p)
		}
	}
	return PeriodSeries{Name: s.Name, Units: s.Units, Points: pts}
}

// Renamed returns a copy carrying a different name and units.
func (s PeriodSeries) Renamed(name, units string) PeriodSeries {
	return PeriodSeries{Name: name, Units: units, Points: s.Points}
}
