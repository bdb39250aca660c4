// Package store keeps the latest compute.Result per thermometer so the
// metrics textfile still reports a thermometer whose read failed on the
// current tick. Entries older than the staleness TTL are dropped.
package store
