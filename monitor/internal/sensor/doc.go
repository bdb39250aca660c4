// Package sensor provides the temperature read capability consumed by the
// compute engine. Each Reader returns one Celsius reading per call.
//
// Implemented readers: 1-Wire DS18B20/DS18S20 via the Linux w1 sysfs
// interface (w1.go) and playback of a recorded data log (replay.go).
// Factory: New(config.Thermometer) returns the correct Reader.
//
// Readers never retry. A failed read is returned to the driver loop, which
// skips the tick and tries again on the next one.
package sensor
