package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below unwraps to one of them.
var (
	ErrInputNotFound    = errors.New("input not found")
	ErrFormat           = errors.New("format error")
	ErrCRSMismatch      = errors.New("crs mismatch")
	ErrInsufficientData = errors.New("insufficient data")
	ErrMismatchedLength = errors.New("mismatched length")
)

// InputNotFoundError reports a required raster or vector file that is absent.
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string { return "input not found: " + e.Path }
func (e *InputNotFoundError) Unwrap() error { return ErrInputNotFound }

// FormatError reports a file that exists but cannot be opened or decoded.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() []error { return []error{ErrFormat, e.Err} }

// CRSMismatchError is raised when a clip cannot reconcile the grid and region
// coordinate systems. The clipper recovers from it with a bounding-box
// selection.
type CRSMismatchError struct {
	Grid   string
	Region string
}

func (e *CRSMismatchError) Error() string {
	return fmt.Sprintf("crs mismatch: grid=%q region=%q", e.Grid, e.Region)
}

func (e *CRSMismatchError) Unwrap() error { return ErrCRSMismatch }

// InsufficientDataError is returned when a statistic needs more points than
// it was given.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d, got %d", e.Op, e.Need, e.Got)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// MismatchedLengthError is returned when two series compared position by
// position have different lengths.
type MismatchedLengthError struct {
	Left  int
	Right int
}

func (e *MismatchedLengthError) Error() string {
	return fmt.Sprintf("mismatched length: %d vs %d", e.Left, e.Right)
}

func (e *MismatchedLengthError) Unwrap() error { return ErrMismatchedLength }

// DecompositionError is returned when a series holds fewer than two full
// seasonal cycles.
type DecompositionError struct {
	Period int
	Len    int
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("decomposition: period %d needs at least %d observations, got %d", e.Period, 2*e.Period, e.Len)
}

func (e *DecompositionError) Unwrap() error { return ErrInsufficientData }
