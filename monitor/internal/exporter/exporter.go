package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/alerts"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
)

// Metric names written by Encode.
const (
	MetricTemperature = "refrigerator_temperature_celsius"
	MetricTarget      = "refrigerator_target_celsius"
	MetricRate        = "refrigerator_convergence_rate_celsius_per_second"
	MetricConverging  = "refrigerator_converging"
	MetricBandScore   = "refrigerator_band_score"
	MetricState       = "refrigerator_state"
	MetricSamples     = "refrigerator_samples_total"
	MetricAlertFiring = "refrigerator_alert_firing"
)

var states = []string{
	compute.StateHolding,
	compute.StateSettling,
	compute.StateDrifting,
	compute.StateUnknown,
}

// Encode writes results as Prometheus text exposition to w. Results are
// ordered by thermometer ID so output is stable across ticks. Families with
// no samples (e.g. band score before the window fills) are omitted. Only
// alerts in the firing state are exported.
func Encode(w io.Writer, results []*compute.Result, active []*alerts.Alert) error {
	sorted := make([]*compute.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ThermometerID < sorted[j].ThermometerID
	})

	temp := gaugeFamily(MetricTemperature, "Newest temperature reading.")
	target := gaugeFamily(MetricTarget, "Configured aim temperature.")
	rate := gaugeFamily(MetricRate, "Rate of change of the distance to target; window is instant or average.")
	conv := gaugeFamily(MetricConverging, "1 if the newest sample is closer to target than the previous one.")
	score := gaugeFamily(MetricBandScore, "Fraction of the score window spent outside target +/- precision (0 is best).")
	state := gaugeFamily(MetricState, "Band state of the thermometer; the active state is 1.")
	samples := &dto.MetricFamily{
		Name: proto.String(MetricSamples),
		Help: proto.String("Readings stored since the session started."),
		Type: dto.MetricType_COUNTER.Enum(),
	}

	for _, r := range sorted {
		labels := []*dto.LabelPair{
			label("session", r.SessionID),
			label("thermometer", r.ThermometerID),
		}
		temp.Metric = append(temp.Metric, gauge(labels, r.Celsius))
		samples.Metric = append(samples.Metric, &dto.Metric{
			Label:   labels,
			Counter: &dto.Counter{Value: proto.Float64(float64(r.Samples))},
		})
		if r.HasTarget {
			target.Metric = append(target.Metric, gauge(labels, r.Target))
		}
		if r.RateValid {
			rate.Metric = append(rate.Metric,
				gauge(withLabel(labels, "window", "average"), r.AvgRate),
				gauge(withLabel(labels, "window", "instant"), r.InstantRate),
			)
			conv.Metric = append(conv.Metric, gauge(labels, boolValue(r.Converging)))
		}
		if r.ScoreValid {
			score.Metric = append(score.Metric, gauge(labels, r.BandScore))
		}
		for _, s := range states {
			state.Metric = append(state.Metric,
				gauge(withLabel(labels, "state", s), boolValue(r.State == s)))
		}
	}

	firing := gaugeFamily(MetricAlertFiring, "1 for every alert rule currently firing on a thermometer.")
	for _, a := range active {
		if a == nil || a.State != alerts.Firing {
			continue
		}
		firing.Metric = append(firing.Metric, gauge([]*dto.LabelPair{
			label("rule", a.RuleName),
			label("severity", a.Severity),
			label("thermometer", a.ThermometerID),
		}, 1))
	}
	sort.Slice(firing.Metric, func(i, j int) bool {
		li, lj := firing.Metric[i].Label, firing.Metric[j].Label
		if li[2].GetValue() != lj[2].GetValue() {
			return li[2].GetValue() < lj[2].GetValue()
		}
		return li[0].GetValue() < lj[0].GetValue()
	})

	for _, mf := range []*dto.MetricFamily{firing, score, rate, conv, samples, state, target, temp} {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("exporter: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile encodes results into path via a temp file and rename, so a
// concurrent reader never sees a partial exposition.
func WriteTextfile(path string, results []*compute.Result, active []*alerts.Alert) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("exporter: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := Encode(tmp, results, active); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("exporter: close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("exporter: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("exporter: rename: %w", err)
	}
	return nil
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(labels []*dto.LabelPair, v float64) *dto.Metric {
	return &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

// withLabel returns a copy of labels with one more pair appended, keeping
// names sorted.
func withLabel(labels []*dto.LabelPair, name, value string) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, len(labels)+1)
	out = append(out, labels...)
	out = append(out, label(name, value))
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
