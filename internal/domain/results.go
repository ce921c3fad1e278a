package domain

// SignificanceLevel is the two-sided p-value threshold for trend slopes.
const SignificanceLevel = 0.05

// TrendResult is the ordinary least-squares fit of a series against its
// numeric period axis.
type TrendResult struct {
	Variable    string  `json:"variable"`
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	RValue      float64 `json:"r_value"`
	RSquared    float64 `json:"r_squared"`
	PValue      float64 `json:"p_value"`
	StdErr      float64 `json:"std_err"`
	N           int     `json:"n"`
	Significant bool    `json:"significant"`
}

// Direction classifies the sign of the slope.
func (r TrendResult) Direction() string {
	switch {
	case r.Slope > 0:
		return "increasing"
	case r.Slope < 0:
		return "decreasing"
	default:
		return "flat"
	}
}

// DecompositionResult holds an additive decomposition:
// Observed = Trend + Seasonal + Residual. Trend and Residual edges may be NaN.
type DecompositionResult struct {
	Variable string
	Period   int
	Observed PeriodSeries
	Trend    PeriodSeries
	Seasonal PeriodSeries
	Residual PeriodSeries
}

// CorrelationResult is a Pearson coefficient between two aligned series.
// Defined is false when either side has zero variance; Coefficient is NaN then.
type CorrelationResult struct {
	Left        string  `json:"left"`
	Right       string  `json:"right"`
	Coefficient float64 `json:"coefficient"`
	N           int     `json:"n"`
	Defined     bool    `json:"defined"`
}

// Summary is a descriptive statistics row.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}
