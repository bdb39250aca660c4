// Package types defines shared Go types passed between the sensor, compute
// and logging layers of the refrigerator monitor. They are the canonical
// in-memory representation of a thermometer observation.
package types
