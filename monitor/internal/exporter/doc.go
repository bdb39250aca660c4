// Package exporter renders compute.Results as a Prometheus text exposition
// and writes it atomically to a file, in the format node_exporter's
// textfile collector reads. Plotters and dashboards poll that file; nothing
// here opens a socket.
package exporter
