package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTickInterval = 1 * time.Second
	DefaultCapacity     = 100
	DefaultPrecision    = 0.0625
	DefaultW1BaseDir    = "/sys/bus/w1/devices"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"

	// DefaultStaleTicks is stale_after expressed in ticks when unset.
	DefaultStaleTicks = 5
)

// Sensor types accepted in thermometers[].sensor.type.
const (
	SensorW1     = "w1"
	SensorReplay = "replay"
)

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
}

// MonitorConfig holds the driver loop settings and the thermometer list.
type MonitorConfig struct {
	// TickInterval is the time between sample/rate/score steps.
	TickInterval time.Duration `yaml:"tick_interval"`

	// Capacity is the length of every thermometer's rolling history.
	Capacity int `yaml:"capacity"`

	// MetricsTextfile, when set, receives a Prometheus text snapshot of all
	// thermometers after each tick.
	MetricsTextfile string `yaml:"metrics_textfile"`

	// StaleAfter drops a thermometer from the textfile when it has produced
	// no result for this long. Defaults to DefaultStaleTicks ticks.
	StaleAfter time.Duration `yaml:"stale_after"`

	// Log selects the slog level and output handler.
	Log LogConfig `yaml:"log"`

	// Thermometers is the list of independently tracked sensors.
	Thermometers []Thermometer `yaml:"thermometers"`

	// Alerts are threshold rules evaluated against every result.
	Alerts []AlertRule `yaml:"alerts"`
}

// AlertRule is one alert definition. Condition syntax is documented in
// package alerts.
type AlertRule struct {
	Name      string        `yaml:"name"`
	Condition string        `yaml:"condition"`
	Severity  string        `yaml:"severity"` // warning | critical
	Cooldown  time.Duration `yaml:"cooldown"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is json (machine readable) or text (colour console).
	Format string `yaml:"format"`
}

// Thermometer describes one tracked sensor.
type Thermometer struct {
	// ID is a unique identifier used in logs and metric labels.
	ID string `yaml:"id"`

	// Name is a human-readable label, e.g. "water" or "room". Defaults to ID.
	Name string `yaml:"name"`

	Sensor SensorConfig `yaml:"sensor"`

	// Target is the aim temperature in °C. Omit it to only record readings.
	Target *float64 `yaml:"target"`

	// Precision is the tolerance radius around Target in °C.
	Precision *float64 `yaml:"precision"`

	// ScoreWindow is the number of newest samples the band score covers.
	// Zero means the whole history.
	ScoreWindow int `yaml:"score_window"`

	// DataLog is the path of the append-only reading log. Empty disables it.
	DataLog string `yaml:"data_log"`
}

// Tolerance returns the configured precision or DefaultPrecision.
func (t Thermometer) Tolerance() float64 {
	if t.Precision == nil {
		return DefaultPrecision
	}
	return *t.Precision
}

// SensorConfig selects and configures the sensor read capability.
type SensorConfig struct {
	// Type is one of: w1 | replay.
	Type string `yaml:"type"`

	// Device is the 1-Wire slave name, e.g. 28-000006cb82c6. Used by w1.
	Device string `yaml:"device"`

	// BaseDir is the sysfs directory holding 1-Wire slaves. Used by w1.
	BaseDir string `yaml:"base_dir"`

	// Path is a data log to play back. Used by replay.
	Path string `yaml:"path"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyThermometerDefaults(cfg)
	if cfg.Monitor.StaleAfter == 0 {
		cfg.Monitor.StaleAfter = DefaultStaleTicks * cfg.Monitor.TickInterval
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Monitor: MonitorConfig{
			TickInterval: DefaultTickInterval,
			Capacity:     DefaultCapacity,
			Log: LogConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
		},
	}
}

// applyThermometerDefaults fills per-item defaults that yaml cannot
// pre-populate inside a list.
func applyThermometerDefaults(cfg *Config) {
	for i := range cfg.Monitor.Thermometers {
		th := &cfg.Monitor.Thermometers[i]
		if th.Name == "" {
			th.Name = th.ID
		}
		if th.Sensor.Type == SensorW1 && th.Sensor.BaseDir == "" {
			th.Sensor.BaseDir = DefaultW1BaseDir
		}
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	m := cfg.Monitor
	if m.TickInterval <= 0 {
		return fmt.Errorf("monitor.tick_interval must be positive")
	}
	if m.StaleAfter < 0 {
		return fmt.Errorf("monitor.stale_after must not be negative")
	}
	if m.Capacity < 2 {
		return fmt.Errorf("monitor.capacity must be at least 2")
	}
	switch strings.ToLower(m.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("monitor.log.level: unknown level %q", m.Log.Level)
	}
	switch m.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("monitor.log.format: unknown format %q", m.Log.Format)
	}

	seen := make(map[string]bool, len(m.Thermometers))
	for i, th := range m.Thermometers {
		if th.ID == "" {
			return fmt.Errorf("thermometers[%d]: id is required", i)
		}
		if seen[th.ID] {
			return fmt.Errorf("thermometers[%d]: duplicate id %q", i, th.ID)
		}
		seen[th.ID] = true

		if p := th.Tolerance(); !finite(p) || p < 0 {
			return fmt.Errorf("thermometers[%d] %q: precision must be a finite non-negative number", i, th.ID)
		}
		if th.Target != nil && !finite(*th.Target) {
			return fmt.Errorf("thermometers[%d] %q: target must be a finite temperature", i, th.ID)
		}
		if th.ScoreWindow < 0 || th.ScoreWindow > m.Capacity {
			return fmt.Errorf("thermometers[%d] %q: score_window must be within [0, %d]", i, th.ID, m.Capacity)
		}
		switch th.Sensor.Type {
		case SensorW1:
			if th.Sensor.Device == "" {
				return fmt.Errorf("thermometers[%d] %q: sensor.device is required for w1", i, th.ID)
			}
		case SensorReplay:
			if th.Sensor.Path == "" {
				return fmt.Errorf("thermometers[%d] %q: sensor.path is required for replay", i, th.ID)
			}
		default:
			return fmt.Errorf("thermometers[%d] %q: unknown sensor type %q", i, th.ID, th.Sensor.Type)
		}
	}

	names := make(map[string]bool, len(m.Alerts))
	for i, a := range m.Alerts {
		if a.Name == "" {
			return fmt.Errorf("alerts[%d]: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("alerts[%d]: duplicate name %q", i, a.Name)
		}
		names[a.Name] = true
		if a.Condition == "" {
			return fmt.Errorf("alerts[%d] %q: condition is required", i, a.Name)
		}
		switch a.Severity {
		case "", "warning", "critical":
		default:
			return fmt.Errorf("alerts[%d] %q: unknown severity %q", i, a.Name, a.Severity)
		}
		if a.Cooldown < 0 {
			return fmt.Errorf("alerts[%d] %q: cooldown must not be negative", i, a.Name)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
