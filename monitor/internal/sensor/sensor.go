package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/config"
	"github.com/Tummers/Precision-Refrigerator/pkg/types"
)

var (
	// ErrCRC is returned when the w1 driver reports a failed CRC check.
	ErrCRC = errors.New("sensor: crc check failed")

	// ErrNoTemperature is returned when the w1 output has no t= field.
	ErrNoTemperature = errors.New("sensor: no temperature in device output")

	// ErrPowerOnReset is returned for the DS18x20 power-on value of 85 °C,
	// which the device reports when a conversion did not complete.
	ErrPowerOnReset = errors.New("sensor: power-on reset value read")

	// ErrExhausted is returned by a replay reader after its last value.
	ErrExhausted = errors.New("sensor: replay exhausted")
)

// Reader is the common interface implemented by every sensor.
type Reader interface {
	// Read returns one temperature reading stamped with the time it was taken.
	Read(ctx context.Context) (types.Reading, error)

	// Resolution returns the smallest temperature step the sensor reports,
	// in °C, or 0 if unknown.
	Resolution() float64
}

// New returns the Reader for the given thermometer configuration.
func New(th config.Thermometer) (Reader, error) {
	switch th.Sensor.Type {
	case config.SensorW1:
		return NewW1(th.Sensor.BaseDir, th.Sensor.Device), nil
	case config.SensorReplay:
		r, err := NewReplayFile(th.Sensor.Path)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", th.ID, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("sensor: unsupported type %q", th.Sensor.Type)
	}
}

// ReadFunc adapts r to the zero-argument read capability of
// compute.SampleBuffer.Sample, bound to ctx.
func ReadFunc(ctx context.Context, r Reader) func() (float64, error) {
	return func() (float64, error) {
		reading, err := r.Read(ctx)
		return reading.Celsius, err
	}
}

// clock is overridden in tests.
var clock = time.Now
