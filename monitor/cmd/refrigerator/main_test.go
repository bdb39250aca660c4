package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/alerts"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/config"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/datalog"
	"github.com/Tummers/Precision-Refrigerator/pkg/types"
)

// writeLog records values with a datalog.Logger and returns the path.
func writeLog(t *testing.T, dir, name string, values ...float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	l := datalog.New(path)
	for _, v := range values {
		if err := l.AppendReading(v); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func ptr(v float64) *float64 { return &v }

func TestReplayCmd_CoolingScenario(t *testing.T) {
	path := writeLog(t, t.TempDir(), "cooling.txt", 25, 24, 23, 22, 21, 20)

	var out bytes.Buffer
	cmd := newReplayCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--target", "20", "--capacity", "5", "--precision", "0.5"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("replay error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8:\n%s", len(lines), out.String())
	}
	last := strings.Fields(lines[6])
	if last[0] != "5" || last[1] != "20.0000" || last[2] != "-1.000000" || last[3] != "-1.000000" {
		t.Errorf("final tick line = %q", lines[6])
	}
	// History [24 23 22 21 20]: only 20 lies within 20 ± 0.5.
	if !strings.HasSuffix(lines[7], ": 0.8000") {
		t.Errorf("score line = %q", lines[7])
	}
}

func TestReplayCmd_NoTarget(t *testing.T) {
	path := writeLog(t, t.TempDir(), "room.txt", 23.62, 23.5)

	var out bytes.Buffer
	cmd := newReplayCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if strings.Contains(out.String(), "band score") {
		t.Errorf("no score expected without a target:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "23.5000") {
		t.Errorf("readings missing:\n%s", out.String())
	}
}

func TestReplayCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "log.txt", 1, 2)
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{filepath.Join(dir, "absent.txt")}},
		{"capacity too small", []string{path, "--capacity", "1"}},
		{"zero interval", []string{path, "--interval", "0s"}},
		{"NaN target", []string{path, "--target", "NaN"}},
		{"infinite target", []string{path, "--target", "+Inf"}},
		{"NaN precision", []string{path, "--target", "1", "--precision", "NaN"}},
		{"negative score window", []string{path, "--target", "1", "--capacity", "4", "--score-window", "-3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := newReplayCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tc.args)
			if err := cmd.ExecuteContext(context.Background()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestTickOnce_WritesLogAndTextfile(t *testing.T) {
	dir := t.TempDir()
	src := writeLog(t, dir, "src.txt", 25, 24, 23)
	dataLog := filepath.Join(dir, "water.txt")
	textfile := filepath.Join(dir, "refrigerator.prom")

	m := config.MonitorConfig{
		Capacity:        4,
		MetricsTextfile: textfile,
		StaleAfter:      time.Minute,
		Thermometers: []config.Thermometer{{
			ID:      "water",
			Sensor:  config.SensorConfig{Type: config.SensorReplay, Path: src},
			Target:  ptr(20),
			DataLog: dataLog,
		}},
		Alerts: []config.AlertRule{{Name: "warm", Condition: "celsius > 23.5"}},
	}
	ctx := context.Background()
	pipelines := buildPipelines(ctx, m)
	if len(pipelines) != 1 {
		t.Fatalf("pipelines = %d, want 1", len(pipelines))
	}
	out := mustOutputs(t, m)

	for i := 0; i < 2; i++ {
		active, err := tickOnce(ctx, pipelines, out)
		if err != nil || active != 1 {
			t.Fatalf("tick %d: active=%d err=%v", i, active, err)
		}
	}
	active, err := tickOnce(ctx, pipelines, out)
	if err != nil || active != 0 {
		t.Fatalf("exhausted tick: active=%d err=%v", active, err)
	}

	// 24 fired the rule and 23 resolved it.
	fired := out.alerts.Active()
	if len(fired) != 1 || fired[0].State != alerts.Resolved || fired[0].Value != 24 {
		t.Errorf("alerts = %+v, want one resolved alert at 24", fired)
	}
	if latest := out.latest.Results(); len(latest) != 1 || latest[0].Celsius != 23 {
		t.Errorf("latest results = %+v, want water at 23", latest)
	}

	got, err := datalog.ReadFile(dataLog)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 24 || got[1] != 23 {
		t.Errorf("data log = %v, want [24 23]", got)
	}
	prom, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), `refrigerator_temperature_celsius{session="`) {
		t.Errorf("textfile missing temperature:\n%s", prom)
	}
}

func TestTickOnce_DataLogFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := writeLog(t, dir, "src.txt", 25, 24)
	m := config.MonitorConfig{
		Capacity: 3,
		Thermometers: []config.Thermometer{{
			ID:      "water",
			Sensor:  config.SensorConfig{Type: config.SensorReplay, Path: src},
			DataLog: filepath.Join(dir, "missing-dir", "log.txt"),
		}},
	}
	pipelines := buildPipelines(context.Background(), m)
	if _, err := tickOnce(context.Background(), pipelines, mustOutputs(t, m)); err == nil {
		t.Fatal("expected data log error, got nil")
	}
}

func TestBuildPipelines_SkipsBrokenSensors(t *testing.T) {
	dir := t.TempDir()
	good := writeLog(t, dir, "good.txt", 20)
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte(datalog.Header), 0o644); err != nil {
		t.Fatal(err)
	}

	m := config.MonitorConfig{
		Capacity: 3,
		Thermometers: []config.Thermometer{
			{ID: "good", Sensor: config.SensorConfig{Type: config.SensorReplay, Path: good}},
			{ID: "absent", Sensor: config.SensorConfig{Type: config.SensorReplay, Path: filepath.Join(dir, "nope.txt")}},
			{ID: "empty", Sensor: config.SensorConfig{Type: config.SensorReplay, Path: empty}},
			{ID: "w1", Sensor: config.SensorConfig{Type: config.SensorW1, BaseDir: dir, Device: "28-000000000000"}},
		},
	}
	pipelines := buildPipelines(context.Background(), m)
	if len(pipelines) != 1 || pipelines[0].th.ID != "good" {
		t.Fatalf("pipelines = %+v, want only good", pipelines)
	}
}

func TestApplyReload(t *testing.T) {
	dir := t.TempDir()
	src := writeLog(t, dir, "src.txt", 25)
	m := config.MonitorConfig{
		Capacity: 3,
		Thermometers: []config.Thermometer{{
			ID:     "water",
			Sensor: config.SensorConfig{Type: config.SensorReplay, Path: src},
		}},
	}
	ctx := context.Background()
	pipelines := buildPipelines(ctx, m)

	if _, err := pipelines[0].engine.Process(nextReading(pipelines[0], 24)); err == nil {
		t.Fatal("expected no-target error before reload")
	}

	reloaded := m
	reloaded.Thermometers = []config.Thermometer{{ID: "water", Target: ptr(23), Precision: ptr(0.5)}}
	applyReload(pipelines, reloaded)

	res, err := pipelines[0].engine.Process(nextReading(pipelines[0], 23))
	if err != nil {
		t.Fatalf("after reload: %v", err)
	}
	if !res.HasTarget || res.Target != 23 || !res.ScoreValid {
		t.Errorf("result after reload = %+v", res)
	}
	// History [25 24 23] against 23 ± 0.5: two samples outside.
	if res.BandScore < 0.66 || res.BandScore > 0.67 {
		t.Errorf("BandScore = %v, want 2/3", res.BandScore)
	}
	if res.State != compute.StateDrifting {
		t.Errorf("State = %q, want %q", res.State, compute.StateDrifting)
	}

	// A non-finite target is refused and the previous one stays in force.
	reloaded.Thermometers = []config.Thermometer{{ID: "water", Target: ptr(math.NaN()), Precision: ptr(0.5)}}
	applyReload(pipelines, reloaded)
	res, err = pipelines[0].engine.Process(nextReading(pipelines[0], 23))
	if err != nil || res.Target != 23 {
		t.Errorf("after NaN reload: target=%v err=%v", res.Target, err)
	}

	// A thermometer missing from the reloaded file keeps its settings.
	applyReload(pipelines, config.MonitorConfig{})
	res, err = pipelines[0].engine.Process(nextReading(pipelines[0], 23))
	if err != nil || res.Target != 23 {
		t.Errorf("after removal reload: target=%v err=%v", res.Target, err)
	}
}

func TestTickOnce_ReportsRetainedResults(t *testing.T) {
	dir := t.TempDir()
	textfile := filepath.Join(dir, "refrigerator.prom")
	m := config.MonitorConfig{
		Capacity:        3,
		MetricsTextfile: textfile,
		StaleAfter:      time.Minute,
		Thermometers: []config.Thermometer{{
			ID:     "water",
			Sensor: config.SensorConfig{Type: config.SensorReplay, Path: writeLog(t, dir, "src.txt", 25, 24)},
		}},
	}
	out := mustOutputs(t, m)
	out.latest.Put(&compute.Result{ThermometerID: "ghost", Celsius: 4})
	if _, err := tickOnce(context.Background(), buildPipelines(context.Background(), m), out); err != nil {
		t.Fatal(err)
	}
	prom, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatal(err)
	}
	// A result kept from an earlier tick is still reported until it goes stale.
	if !strings.Contains(string(prom), `thermometer="ghost"`) || !strings.Contains(string(prom), `thermometer="water"`) {
		t.Errorf("textfile should report both thermometers:\n%s", prom)
	}
}

func TestTickOnce_ExportsFiringAlertsAndSummarises(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	textfile := filepath.Join(dir, "refrigerator.prom")
	m := config.MonitorConfig{
		Capacity:        3,
		MetricsTextfile: textfile,
		StaleAfter:      time.Minute,
		Thermometers: []config.Thermometer{{
			ID:     "water",
			Sensor: config.SensorConfig{Type: config.SensorReplay, Path: writeLog(t, dir, "src.txt", 20, 27)},
			Target: ptr(20),
		}},
		Alerts: []config.AlertRule{{Name: "too-warm", Condition: "celsius > 25", Severity: "critical"}},
	}
	ctx := context.Background()
	pipelines := buildPipelines(ctx, m)
	out := mustOutputs(t, m)

	if _, err := tickOnce(ctx, pipelines, out); err != nil {
		t.Fatal(err)
	}
	prom, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatal(err)
	}
	want := `refrigerator_alert_firing{rule="too-warm",severity="critical",thermometer="water"} 1`
	if !strings.Contains(string(prom), want) {
		t.Errorf("textfile missing %s:\n%s", want, prom)
	}

	if active, err := tickOnce(ctx, pipelines, out); err != nil || active != 0 {
		t.Fatalf("exhausted tick: active=%d err=%v", active, err)
	}
	var summary map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err == nil && rec["msg"] == "session summary" {
			summary = rec
		}
	}
	if summary == nil {
		t.Fatalf("no session summary logged:\n%s", logs.String())
	}
	if summary["min_celsius"] != 20.0 || summary["max_celsius"] != 27.0 || summary["celsius"] != 27.0 {
		t.Errorf("summary = %v", summary)
	}
}

func TestNewOutputs_RejectsBadAlert(t *testing.T) {
	m := config.MonitorConfig{Alerts: []config.AlertRule{{Name: "bad", Condition: "humidity > 3"}}}
	if _, err := newOutputs(m); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func mustOutputs(t *testing.T, m config.MonitorConfig) *outputs {
	t.Helper()
	out, err := newOutputs(m)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// nextReading returns a reading one second after the engine's newest sample,
// so rate derivation never depends on wall-clock resolution.
func nextReading(p *pipeline, celsius float64) types.Reading {
	ts := p.engine.History().Timestamps
	return types.Reading{Celsius: celsius, At: ts[len(ts)-1].Add(time.Second)}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, level := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	level.Set(slog.LevelDebug)
	logger.Debug("now visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("json handler output: %v", err)
	}
	if rec["msg"] != "shown" {
		t.Errorf("msg = %v", rec["msg"])
	}

	buf.Reset()
	text, _ := newLogger(&buf, config.LogConfig{Level: "info", Format: "text"})
	text.Info("console", "thermometer", "water")
	if !strings.Contains(buf.String(), "console") || !strings.Contains(buf.String(), "water") {
		t.Errorf("tint output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
