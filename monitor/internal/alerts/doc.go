// Package alerts evaluates threshold rules against each thermometer's
// latest compute.Result and logs firing and resolved transitions.
//
// A rule condition has the form "field operator value", for example:
//
//	band_score > 0.5
//	celsius >= 30
//	avg_rate > 0
//	state == drifting
//
// Numeric fields are celsius, target, rate, avg_rate, band_score and
// samples. Rate fields never fire before a rate exists, band_score never
// fires before a score exists and target never fires without a target.
package alerts
