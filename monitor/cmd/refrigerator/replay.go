package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/config"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/sensor"
)

// replayOptions are the flags of the replay command.
type replayOptions struct {
	target      float64
	hasTarget   bool
	precision   float64
	capacity    int
	scoreWindow int
	interval    time.Duration
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay <data-log>",
		Short: "Recompute rates and band score from a recorded data log.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasTarget = cmd.Flags().Changed("target")
			r, err := sensor.NewReplayFile(args[0])
			if err != nil {
				return err
			}
			return replay(cmd, r, opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.target, "target", 0, "aim temperature in °C (omit to print readings only)")
	f.Float64Var(&opts.precision, "precision", config.DefaultPrecision, "tolerance radius in °C for the band score")
	f.IntVar(&opts.capacity, "capacity", config.DefaultCapacity, "history length")
	f.IntVar(&opts.scoreWindow, "score-window", 0, "newest samples covered by the band score (0 = whole history)")
	f.DurationVar(&opts.interval, "interval", time.Second, "time between recorded samples")
	return cmd
}

// replay feeds every recorded value through a SampleBuffer and Tracker on a
// synthetic clock and prints one line per tick plus a final band score.
func replay(cmd *cobra.Command, r *sensor.Replay, opts replayOptions) error {
	if opts.interval <= 0 {
		return fmt.Errorf("replay: interval must be positive")
	}
	out := cmd.OutOrStdout()
	read := sensor.ReadFunc(cmd.Context(), r)

	now := time.Unix(0, 0).UTC()
	first, err := read()
	if err != nil {
		return fmt.Errorf("replay: first reading: %w", err)
	}
	buf, err := compute.NewSampleBuffer(opts.capacity, first, now)
	if err != nil {
		return err
	}
	tr := compute.NewTracker(buf)
	if opts.hasTarget {
		if err := tr.SetTarget(opts.target); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}

	fmt.Fprintf(out, "%6s %10s %12s %12s\n", "tick", "celsius", "rate", "avg_rate")
	fmt.Fprintf(out, "%6d %10.4f %12s %12s\n", 0, first, "-", "-")
	for tick := 1; r.Remaining() > 0; tick++ {
		now = now.Add(opts.interval)
		v, err := buf.Sample(read, now)
		if err != nil {
			return fmt.Errorf("replay: tick %d: %w", tick, err)
		}
		if !opts.hasTarget {
			fmt.Fprintf(out, "%6d %10.4f %12s %12s\n", tick, v, "-", "-")
			continue
		}
		instant, avg, err := tr.UpdateRate()
		if err != nil {
			return fmt.Errorf("replay: tick %d: %w", tick, err)
		}
		fmt.Fprintf(out, "%6d %10.4f %12.6f %12.6f\n", tick, v, instant, avg)
	}

	return printScore(out, tr, opts)
}

// printScore reports the band score over the newest score window, limited
// to the samples actually replayed.
func printScore(out io.Writer, tr *compute.Tracker, opts replayOptions) error {
	if !opts.hasTarget {
		return nil
	}
	buf := tr.Buffer()
	window := opts.scoreWindow
	if window == 0 {
		window = buf.Cap()
	}
	window = min(window, buf.Samples(), buf.Cap())

	score, err := tr.BandScore(opts.precision, buf.Cap()-window, buf.Cap())
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	fmt.Fprintf(out, "band score over last %d samples (target %.4f ± %.4f): %.4f\n",
		window, opts.target, opts.precision, score)
	return nil
}
