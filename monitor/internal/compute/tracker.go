package compute

import (
	"fmt"
	"math"
)

// RateWindow is the number of newest rate samples averaged by UpdateRate.
const RateWindow = 5

// DefaultMinPrecision is the smallest temperature step the DS18B20 reports.
const DefaultMinPrecision = 0.0625

// Tracker derives the rate of convergence toward a target temperature from
// a SampleBuffer and scores how well the history holds a tolerance band.
//
// The rate history has the same capacity and FIFO discipline as the buffer.
// A Tracker is owned by a single driver loop and is not safe for concurrent
// use.
type Tracker struct {
	buf       *SampleBuffer
	rates     *ring[float64]
	target    float64
	hasTarget bool

	// MinPrecision is the sensor's smallest resolvable step in °C. It is a
	// hint for choosing a band precision and is not enforced.
	MinPrecision float64
}

// NewTracker returns a Tracker over buf with a zero-filled rate history and
// no target set.
func NewTracker(buf *SampleBuffer) *Tracker {
	return &Tracker{
		buf:          buf,
		rates:        newRing(buf.Cap(), 0.0),
		MinPrecision: DefaultMinPrecision,
	}
}

// SetTarget replaces the target temperature. Stored history is unchanged;
// later rate and score calls use the new value. A non-finite target is an
// ErrConfiguration and leaves the current target in place.
func (t *Tracker) SetTarget(celsius float64) error {
	if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return configErrorf("target %v must be a finite temperature", celsius)
	}
	t.target = celsius
	t.hasTarget = true
	return nil
}

// ClearTarget returns the tracker to the "no target" state.
func (t *Tracker) ClearTarget() {
	t.target = 0
	t.hasTarget = false
}

// Target returns the target temperature and whether one is set.
func (t *Tracker) Target() (float64, bool) {
	return t.target, t.hasTarget
}

// Buffer returns the SampleBuffer the tracker reads from.
func (t *Tracker) Buffer() *SampleBuffer { return t.buf }

// UpdateRate computes the instantaneous convergence rate (°C/s) from the two
// newest samples, appends it to the rate history and returns it together with
// the mean of the RateWindow newest rates.
//
// On error the rate history is left untouched.
func (t *Tracker) UpdateRate() (instant, avg float64, err error) {
	if !t.hasTarget {
		return 0, 0, ErrNoTarget
	}
	elapsed := t.buf.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrDegenerateTiming, t.buf.Elapsed())
	}

	deltaNow := t.buf.Current() - t.target
	deltaPrev := t.buf.Previous() - t.target
	instant = (deltaNow - deltaPrev) / elapsed

	t.rates.push(instant)
	return instant, t.AverageRate(RateWindow), nil
}

// AverageRate returns the mean of the n newest rates. n is clamped to
// [0, capacity]; an empty window averages to 0.
func (t *Tracker) AverageRate(n int) float64 {
	return mean(t.rates.window(n))
}

// CurrentRate returns the newest stored rate.
func (t *Tracker) CurrentRate() float64 { return t.rates.last() }

// RecentRates returns a copy of the n newest rates, oldest first.
func (t *Tracker) RecentRates(n int) []float64 { return t.rates.window(n) }

// Rates returns a copy of the whole rate history, oldest first.
func (t *Tracker) Rates() []float64 { return t.rates.window(t.rates.Len()) }

// Converging reports whether the newest sample is closer to the target than
// the one before it. It is false while no target is set.
func (t *Tracker) Converging() bool {
	if !t.hasTarget {
		return false
	}
	return math.Abs(t.buf.Current()-t.target) < math.Abs(t.buf.Previous()-t.target)
}

// BandScore returns the fraction of samples in the history range
// [start, stop) lying outside [target-precision, target+precision].
//
// 0 means the whole window stayed within tolerance and 1 means it never
// did. Callers depend on this polarity.
func (t *Tracker) BandScore(precision float64, start, stop int) (float64, error) {
	if !t.hasTarget {
		return 0, ErrNoTarget
	}
	if err := checkPrecision(precision); err != nil {
		return 0, err
	}
	if start < 0 || start >= stop || stop > t.buf.Cap() {
		return 0, configErrorf("score range [%d, %d) invalid for capacity %d", start, stop, t.buf.Cap())
	}

	low, high := t.target-precision, t.target+precision
	var outside int
	for _, v := range t.buf.slice(start, stop) {
		if v < low || v > high {
			outside++
		}
	}
	return float64(outside) / float64(stop-start), nil
}

// checkPrecision rejects tolerance radii that cannot bound a band.
func checkPrecision(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return configErrorf("precision %v must be a finite non-negative radius", p)
	}
	return nil
}
