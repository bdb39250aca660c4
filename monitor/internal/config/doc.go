// Package config loads and watches the monitor configuration file (config.yaml).
//
// Top-level types:
//   - Config{Monitor}: full config tree parsed from YAML
//   - MonitorConfig: tick_interval, capacity, metrics_textfile, stale_after, log, thermometers [], alerts []
//   - Thermometer: id, name, sensor, target, precision, score_window, data_log
//   - SensorConfig: type (w1|replay), device, base_dir, path
//   - AlertRule: name, condition, severity, cooldown
//
// Load(path) reads the YAML file, applies defaults (1s tick, capacity 100,
// stale after 5 ticks, precision 0.0625 °C, json logging at info), then
// validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory and calls
// onChange with the newly parsed Config. The driver applies target and
// precision changes live; capacity, sensor and alert changes need a restart.
package config
