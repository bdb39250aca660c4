package compute

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for caller contract violations: an invalid
	// capacity or score range, a negative precision, or a missing target.
	ErrConfiguration = errors.New("compute: configuration error")

	// ErrNoTarget is returned by rate and score operations while no target
	// temperature is set. It wraps ErrConfiguration.
	ErrNoTarget = fmt.Errorf("%w: no target temperature set", ErrConfiguration)

	// ErrDegenerateTiming is returned when the two newest samples are not
	// strictly ordered in time, so no rate can be derived from them.
	ErrDegenerateTiming = errors.New("compute: elapsed time between samples is not positive")

	// ErrSensorRead wraps a failure of the sensor read capability.
	ErrSensorRead = errors.New("compute: sensor read failed")

	// ErrInvalidReading is returned for NaN or infinite sensor values.
	ErrInvalidReading = errors.New("compute: reading is not a finite number")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}
