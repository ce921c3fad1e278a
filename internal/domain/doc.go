// Package domain models gridded climate reanalysis data and the statistics
// derived from it for one study region.
//
// # Data Source
//
// Inputs are ERA5 monthly-averaged single-level fields from the Copernicus
// Climate Data Store, delivered as NetCDF:
//
//	t2m  2 metre temperature, Kelvin
//	tp   total precipitation, metres of water equivalent
//
// Coordinates are named "latitude" and "longitude" with the time axis in
// "time" (older downloads) or "valid_time" (CDS-Beta downloads). ERA5 stores
// latitude in descending order (north to south); other products store it
// ascending, so the direction is detected per grid and never assumed.
//
// Time is encoded as CF "<unit> since <reference>" offsets, by default hours
// since 1900-01-01 00:00:00 UTC. Packed variables carry scale_factor and
// add_offset; _FillValue and missing_value samples become NaN.
//
// # Units
//
// Temperature stays in Kelvin through clipping and reduction and is converted
// to °C (subtract 273.15) only on the finished series. Precipitation stays in
// metres.
//
// # Periods
//
// A [Period] is a monthly bucket (Year + Month), an annual bucket (Month == 0)
// or a calendar month across all years (Year == 0, used by the monthly
// climatology files). Tables persist periods as "Ano" and "Mês" columns.
//
// # Errors
//
// Loaders and analyses return the typed errors in errors.go. Each unwraps to a
// sentinel (ErrInputNotFound, ErrFormat, ErrCRSMismatch, ErrInsufficientData,
// ErrMismatchedLength) for errors.Is checks.
package domain
