package compute

import (
	"fmt"
	"math"
	"time"
)

// ReadFunc is the sensor read capability consumed by SampleBuffer.Sample.
// It returns one temperature in degrees Celsius.
type ReadFunc func() (float64, error)

// SampleBuffer is a fixed-capacity rolling store of (temperature, timestamp)
// pairs. Each new sample evicts the oldest one. Accessors always present the
// history oldest first; index Cap()-1 is the current sample.
//
// A SampleBuffer is owned by a single driver loop and is not safe for
// concurrent use.
type SampleBuffer struct {
	temps   *ring[float64]
	times   *ring[time.Time]
	samples int
}

// NewSampleBuffer returns a buffer whose capacity slots are all pre-filled
// with the first reading taken at the given time, so rate and averaging have
// no startup singularity. Capacity must be at least 2.
func NewSampleBuffer(capacity int, first float64, at time.Time) (*SampleBuffer, error) {
	if capacity < 2 {
		return nil, configErrorf("capacity %d is below the minimum of 2", capacity)
	}
	if !isFinite(first) {
		return nil, fmt.Errorf("%w: initial reading %v", ErrInvalidReading, first)
	}
	return &SampleBuffer{
		temps:   newRing(capacity, first),
		times:   newRing(capacity, at),
		samples: 1,
	}, nil
}

// Sample invokes read, evicts the oldest stored temperature and appends the
// new value stamped with now. It returns the value just read.
//
// A failed read or a non-finite value leaves the buffer untouched.
func (b *SampleBuffer) Sample(read ReadFunc, now time.Time) (float64, error) {
	v, err := read()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSensorRead, err)
	}
	if err := b.Push(v, now); err != nil {
		return 0, err
	}
	return v, nil
}

// Push appends an already obtained reading.
func (b *SampleBuffer) Push(celsius float64, now time.Time) error {
	if !isFinite(celsius) {
		return fmt.Errorf("%w: %v", ErrInvalidReading, celsius)
	}
	b.temps.push(celsius)
	b.times.push(now)
	b.samples++
	return nil
}

// Cap returns the fixed capacity.
func (b *SampleBuffer) Cap() int { return b.temps.Len() }

// Samples returns the number of real readings stored over the buffer's
// lifetime, counting the initial one.
func (b *SampleBuffer) Samples() int { return b.samples }

// Current returns the newest temperature.
func (b *SampleBuffer) Current() float64 { return b.temps.last() }

// Previous returns the second newest temperature.
func (b *SampleBuffer) Previous() float64 { return b.temps.at(b.Cap() - 2) }

// At returns the temperature at history index i (0 = oldest).
// It panics if i is outside [0, Cap()).
func (b *SampleBuffer) At(i int) float64 {
	if i < 0 || i >= b.Cap() {
		panic(fmt.Sprintf("compute: sample index %d out of range [0, %d)", i, b.Cap()))
	}
	return b.temps.at(i)
}

// LastSampleTime returns the timestamp of the newest sample.
func (b *SampleBuffer) LastSampleTime() time.Time { return b.times.last() }

// Elapsed returns the time between the two newest samples.
func (b *SampleBuffer) Elapsed() time.Duration {
	return b.times.last().Sub(b.times.at(b.Cap() - 2))
}

// Window returns a copy of the n newest temperatures, oldest first.
// n is clamped to [0, Cap()].
func (b *SampleBuffer) Window(n int) []float64 { return b.temps.window(n) }

// Values returns a copy of the whole temperature history, oldest first.
func (b *SampleBuffer) Values() []float64 { return b.temps.window(b.Cap()) }

// Timestamps returns a copy of the timestamps parallel to Values.
func (b *SampleBuffer) Timestamps() []time.Time { return b.times.window(b.Cap()) }

// slice returns the temperatures in the history range [start, stop).
func (b *SampleBuffer) slice(start, stop int) []float64 { return b.temps.slice(start, stop) }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
