// Package datalog appends thermometer readings to a plain text log and
// reads such logs back.
//
// The first AppendReading on a Logger truncates the file and writes a fixed
// header; every call then appends one newline-prefixed float. The header
// text is kept byte for byte so existing analysis scripts keep parsing it.
//
// ReadFile skips the header and returns the recorded values, which the
// replay sensor feeds back through the compute engine.
package datalog
