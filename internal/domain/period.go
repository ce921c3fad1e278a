package domain

import (
	"fmt"
	"time"
)

// Period identifies a time bucket. A zero Month marks an annual bucket and a
// zero Year marks a calendar-month bucket that spans all years (climatology).
type Period struct {
	Year  int
	Month time.Month
}

// YearPeriod returns the annual bucket for year y.
func YearPeriod(y int) Period { return Period{Year: y} }

// MonthPeriod returns the bucket for month m of year y.
func MonthPeriod(y int, m time.Month) Period { return Period{Year: y, Month: m} }

// PeriodOf returns the monthly bucket containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// IsAnnual reports whether p is a whole-year bucket.
func (p Period) IsAnnual() bool { return p.Month == 0 }

// Before orders periods chronologically, annual buckets ahead of the months of
// the same year.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Index is the numeric position of the period on a year axis: the year for
// annual buckets and year + (month-1)/12 for monthly ones.
func (p Period) Index() float64 {
	if p.IsAnnual() {
		return float64(p.Year)
	}
	return float64(p.Year) + float64(p.Month-1)/12
}

func (p Period) String() string {
	switch {
	case p.IsAnnual():
		return fmt.Sprintf("%04d", p.Year)
	case p.Year == 0:
		return fmt.Sprintf("%02d", int(p.Month))
	default:
		return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
	}
}
