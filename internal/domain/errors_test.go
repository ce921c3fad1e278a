package domain

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"input not found", &InputNotFoundError{Path: "data/x.nc"}, ErrInputNotFound},
		{"format", &FormatError{Path: "data/x.nc", Err: io.ErrUnexpectedEOF}, ErrFormat},
		{"crs", &CRSMismatchError{Grid: "", Region: "wgs84"}, ErrCRSMismatch},
		{"insufficient", &InsufficientDataError{Op: "trend", Need: 2, Got: 1}, ErrInsufficientData},
		{"length", &MismatchedLengthError{Left: 3, Right: 4}, ErrMismatchedLength},
		{"decomposition", &DecompositionError{Period: 12, Len: 20}, ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestFormatErrorUnwrapsCause(t *testing.T) {
	err := &FormatError{Path: "a.nc", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "a.nc")
}

func TestDecompositionErrorMessage(t *testing.T) {
	err := &DecompositionError{Period: 12, Len: 20}
	assert.Equal(t, "decomposition: period 12 needs at least 24 observations, got 20", err.Error())
}
