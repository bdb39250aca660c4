package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/alerts"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/config"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/datalog"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/exporter"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/sensor"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/store"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sampling loop until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, configPath, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

// pipeline is one thermometer's reader, engine and optional data log.
type pipeline struct {
	th     config.Thermometer
	reader sensor.Reader
	engine *compute.Engine
	log    *datalog.Logger
	done   bool
}

// outputs receive every tick's results.
type outputs struct {
	textfile string
	latest   *store.Store
	alerts   *alerts.Engine
}

func newOutputs(m config.MonitorConfig) (*outputs, error) {
	eng, err := alerts.New(m.Alerts)
	if err != nil {
		return nil, err
	}
	return &outputs{
		textfile: m.MetricsTextfile,
		latest:   store.New(m.StaleAfter),
		alerts:   eng,
	}, nil
}

func run(ctx context.Context, configPath string, cfg *config.Config) error {
	logger, level := newLogger(os.Stdout, cfg.Monitor.Log)
	slog.SetDefault(logger)

	slog.Info("refrigerator starting",
		"config", configPath,
		"thermometers", len(cfg.Monitor.Thermometers),
		"tick_interval", cfg.Monitor.TickInterval,
		"capacity", cfg.Monitor.Capacity,
		"alert_rules", len(cfg.Monitor.Alerts),
	)

	out, err := newOutputs(cfg.Monitor)
	if err != nil {
		return err
	}
	pipelines := buildPipelines(ctx, cfg.Monitor)
	if len(pipelines) == 0 {
		return errors.New("no thermometer could be started")
	}

	// Target and precision edits apply live; capacity, sensors and alert
	// rules need a restart.
	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			level.Set(parseLevel(updated.Monitor.Log.Level))
			applyReload(pipelines, updated.Monitor)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ticker := time.NewTicker(cfg.Monitor.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("refrigerator shutting down")
			for _, p := range pipelines {
				if !p.done {
					logSummary(p)
				}
			}
			if n := countFiring(out.alerts.Active()); n > 0 {
				slog.Warn("alerts still firing at shutdown", "count", n)
			}
			return nil
		case <-ticker.C:
			active, err := tickOnce(ctx, pipelines, out)
			if err != nil {
				return err
			}
			if active == 0 {
				slog.Info("all sensors exhausted, stopping")
				return nil
			}
		}
	}
}

// buildPipelines takes the first reading of every thermometer and seeds its
// engine with it. Thermometers that cannot be read are skipped.
func buildPipelines(ctx context.Context, m config.MonitorConfig) []*pipeline {
	var out []*pipeline
	for _, th := range m.Thermometers {
		r, err := sensor.New(th)
		if err != nil {
			slog.Error("skipping thermometer, could not build sensor", "thermometer", th.ID, "err", err)
			continue
		}
		first, err := r.Read(ctx)
		if err != nil {
			slog.Error("skipping thermometer, initial read failed", "thermometer", th.ID, "err", err)
			continue
		}
		eng, err := compute.NewEngine(compute.Settings{
			ID:           th.ID,
			Capacity:     m.Capacity,
			Target:       th.Target,
			Precision:    th.Tolerance(),
			ScoreWindow:  th.ScoreWindow,
			MinPrecision: r.Resolution(),
		}, first)
		if err != nil {
			slog.Error("skipping thermometer", "thermometer", th.ID, "err", err)
			continue
		}
		p := &pipeline{th: th, reader: r, engine: eng}
		if th.DataLog != "" {
			p.log = datalog.New(th.DataLog)
		}
		out = append(out, p)
		slog.Info("registered thermometer",
			"id", th.ID, "name", th.Name, "sensor", th.Sensor.Type,
			"celsius", first.Celsius, "session", eng.SessionID())
	}
	return out
}

// tickOnce runs one sample/rate/score step on every active pipeline and
// returns how many pipelines are still active. A data log write failure is
// fatal and returned.
func tickOnce(ctx context.Context, pipelines []*pipeline, out *outputs) (int, error) {
	active := 0
	for _, p := range pipelines {
		if p.done {
			continue
		}
		reading, err := p.reader.Read(ctx)
		if errors.Is(err, sensor.ErrExhausted) {
			slog.Info("sensor exhausted", "thermometer", p.th.ID)
			p.done = true
			logSummary(p)
			continue
		}
		active++
		if err != nil {
			slog.Warn("read error", "thermometer", p.th.ID, "err", err)
			continue
		}

		res, err := p.engine.Process(reading)
		switch {
		case err == nil, errors.Is(err, compute.ErrNoTarget):
		default:
			slog.Warn("process error", "thermometer", p.th.ID, "err", err)
		}
		if res == nil {
			continue
		}
		out.latest.Put(res)
		out.alerts.Evaluate(res)

		if p.log != nil {
			if err := p.log.AppendReading(res.Celsius); err != nil {
				return active, fmt.Errorf("thermometer %q: %w", p.th.ID, err)
			}
		}
		slog.Debug("tick",
			"thermometer", res.ThermometerID,
			"celsius", res.Celsius,
			"rate", res.InstantRate,
			"avg_rate", res.AvgRate,
			"score", res.BandScore,
			"state", res.State,
		)
	}

	if n := out.latest.Evict(); n > 0 {
		slog.Warn("dropped stale thermometers from metrics", "count", n)
	}
	if results := out.latest.Results(); out.textfile != "" && len(results) > 0 {
		if err := exporter.WriteTextfile(out.textfile, results, out.alerts.Active()); err != nil {
			slog.Warn("metrics textfile not written", "path", out.textfile, "err", err)
		}
	}
	return active, nil
}

// applyReload pushes reloaded targets and precisions into running engines.
func applyReload(pipelines []*pipeline, m config.MonitorConfig) {
	byID := make(map[string]config.Thermometer, len(m.Thermometers))
	for _, th := range m.Thermometers {
		byID[th.ID] = th
	}
	for _, p := range pipelines {
		th, ok := byID[p.th.ID]
		if !ok {
			slog.Warn("thermometer removed from config, keeps running until restart", "thermometer", p.th.ID)
			continue
		}
		var target any = "none"
		if th.Target == nil {
			p.engine.ClearTarget()
		} else if err := p.engine.SetTarget(*th.Target); err != nil {
			slog.Warn("target not applied", "thermometer", p.th.ID, "err", err)
			target = "unchanged"
		} else {
			target = *th.Target
		}
		if err := p.engine.SetPrecision(th.Tolerance()); err != nil {
			slog.Warn("precision not applied", "thermometer", p.th.ID, "err", err)
		}
		slog.Info("thermometer retargeted",
			"thermometer", p.th.ID, "target", target, "precision", th.Tolerance(),
			"celsius", p.engine.Current())
	}
}

// logSummary reports the range of temperatures still held in a pipeline's
// history when its session ends.
func logSummary(p *pipeline) {
	h := p.engine.History()
	slog.Info("session summary",
		"thermometer", p.th.ID,
		"session", p.engine.SessionID(),
		"celsius", p.engine.Current(),
		"min_celsius", slices.Min(h.Temperatures),
		"max_celsius", slices.Max(h.Temperatures),
		"since", h.Timestamps[0],
		"last_rate", h.Rates[len(h.Rates)-1],
	)
}

func countFiring(active []*alerts.Alert) int {
	n := 0
	for _, a := range active {
		if a.State == alerts.Firing {
			n++
		}
	}
	return n
}
