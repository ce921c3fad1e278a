package domain

import "strings"

// KelvinOffset converts between Kelvin and degrees Celsius.
const KelvinOffset = 273.15

const (
	UnitsKelvin  = "K"
	UnitsCelsius = "°C"
	UnitsMetres  = "m"
)

// IsKelvin reports whether a units attribute names Kelvin. Temperatures are
// converted to °C only when the source file says they are in Kelvin.
func IsKelvin(units string) bool {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "k", "kelvin", "degk":
		return true
	}
	return false
}

// Celsius converts a single Kelvin value.
func Celsius(k float64) float64 { return k - KelvinOffset }

// KelvinToCelsius shifts a temperature series into °C. It is applied after
// spatial and temporal reduction.
func KelvinToCelsius(s PeriodSeries) PeriodSeries {
	out := s.Map(Celsius)
	out.Units = UnitsCelsius
	return out
}

// GridKelvinToCelsius shifts every sample of a temperature grid into °C.
func GridKelvinToCelsius(g Grid) Grid {
	return g.MapValues(Celsius, UnitsCelsius)
}
