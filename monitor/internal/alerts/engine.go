package alerts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
	"github.com/Tummers/Precision-Refrigerator/monitor/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	defaultSeverity = "warning"
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	Firing   = "firing"
	Resolved = "resolved"
)

// Alert is one alert event produced by the engine.
type Alert struct {
	ID            string
	RuleName      string
	ThermometerID string
	Severity      string
	Message       string
	Value         float64
	FiredAt       time.Time
	ResolvedAt    *time.Time
	State         string
}

type rule struct {
	name     string
	cond     Condition
	severity string
	cooldown time.Duration
}

// Engine evaluates rules against results and tracks which alerts are firing.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules []rule

	mu       sync.Mutex
	active   map[string]*Alert    // key: "rule:thermometer"
	lastFire map[string]time.Time // per key, for cooldown
	history  []*Alert             // recently resolved
	now      func() time.Time
}

// New builds an Engine from config rules. A rule with an unparsable
// condition is an error. An Engine with no rules is valid and never fires.
func New(rules []config.AlertRule) (*Engine, error) {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, r := range rules {
		cond, err := ParseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alert %q: %w", r.Name, err)
		}
		rl := rule{name: r.Name, cond: cond, severity: r.Severity, cooldown: r.Cooldown}
		if rl.severity == "" {
			rl.severity = defaultSeverity
		}
		if rl.cooldown <= 0 {
			rl.cooldown = defaultCooldown
		}
		e.rules = append(e.rules, rl)
	}
	return e, nil
}

// Evaluate tests every rule against res and returns copies of the alerts
// that fired or resolved as a result.
func (e *Engine) Evaluate(res *compute.Result) []Alert {
	if len(e.rules) == 0 {
		return nil
	}

	var changed []Alert
	e.mu.Lock()
	now := e.now()
	for _, r := range e.rules {
		key := r.name + ":" + res.ThermometerID
		fires, value := r.cond.Eval(res)

		if fires {
			if last, ok := e.lastFire[key]; ok && now.Sub(last) < r.cooldown {
				continue
			}
			a := &Alert{
				ID:            uuid.NewString(),
				RuleName:      r.name,
				ThermometerID: res.ThermometerID,
				Severity:      r.severity,
				Value:         value,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.4g)",
					r.severity, r.name, res.ThermometerID, r.cond, value),
				FiredAt: now,
				State:   Firing,
			}
			e.active[key] = a
			e.lastFire[key] = now
			changed = append(changed, *a)
			continue
		}

		a, ok := e.active[key]
		if !ok {
			continue
		}
		resolved := now
		a.State = Resolved
		a.ResolvedAt = &resolved
		delete(e.active, key)
		delete(e.lastFire, key)
		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		changed = append(changed, *a)
	}
	e.mu.Unlock()

	for _, a := range changed {
		if a.State == Firing {
			slog.Warn("alerts: fired",
				"rule", a.RuleName,
				"thermometer", a.ThermometerID,
				"value", a.Value,
				"severity", a.Severity,
			)
		} else {
			slog.Info("alerts: resolved",
				"rule", a.RuleName,
				"thermometer", a.ThermometerID,
			)
		}
	}
	return changed
}

// Active returns copies of all firing alerts plus alerts resolved within
// the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}
