// Package compute tracks a thermometer's rolling history and derives how
// well it converges on, and then holds, a target temperature.
//
// buffer.go provides SampleBuffer, a fixed-capacity FIFO of (temperature,
// timestamp) pairs backed by a ring with a write cursor. It is pre-filled
// with the first reading so rates and averages have no startup singularity.
//
// tracker.go provides Tracker, which keeps a parallel rate history in °C/s
// and computes the band score: the fraction of a history range spent
// OUTSIDE target ± precision (0 = always in band, 1 = never in band).
//
// engine.go provides the per-thermometer Engine that runs one
// sample/rate/score step per tick. Engine.Process takes the reading's own
// timestamp so tests are deterministic.
//
// State thresholds on the band score: holding <= 0.10, settling <= 0.50,
// drifting above that, unknown without a target or a full score window.
package compute
