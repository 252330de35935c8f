package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Precondition errors, fatal to a whole analysis run
	ErrDegenerateInput = errors.New("degenerate input")
	ErrNoDevices       = fmt.Errorf("%w: no devices", ErrDegenerateInput)
	ErrEmptyAxis       = fmt.Errorf("%w: empty time axis", ErrDegenerateInput)
	ErrInvalidBand     = errors.New("invalid filter band")
	ErrInvalidWindow   = errors.New("invalid coherence window")

	// Local insufficiency. Analyzers report it as a missing value, never as a returned error;
	// the sentinel exists for adapters that want to name the condition.
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Adapter errors
	ErrMalformedRecord = errors.New("malformed record")
)

// NewBandError describes an unusable band-pass configuration.
func NewBandError(low, high, nyquist float64, order int) error {
	return fmt.Errorf("%w: low=%g high=%g nyquist=%g order=%d", ErrInvalidBand, low, high, nyquist, order)
}

// NewWindowError describes an unusable window size.
func NewWindowError(size int) error {
	return fmt.Errorf("%w: window size %d", ErrInvalidWindow, size)
}

// IsDegenerateInput reports whether err is a fatal precondition violation on the input data
func IsDegenerateInput(err error) bool {
	return errors.Is(err, ErrDegenerateInput)
}

// IsConfigurationError reports whether err stems from analysis parameters rather than data
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidBand) || errors.Is(err, ErrInvalidWindow)
}
