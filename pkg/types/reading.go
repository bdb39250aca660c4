package types

import "time"

// Reading is one (temperature, time) observation from a thermometer.
type Reading struct {
	// Celsius is the measured temperature in degrees Celsius.
	Celsius float64

	// At is the wall-clock time the value was read.
	At time.Time
}
