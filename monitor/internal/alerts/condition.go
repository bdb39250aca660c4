package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/compute"
)

// Condition is a parsed "field operator value" expression.
type Condition struct {
	Field string
	Op    string
	Value float64 // numeric fields
	State string  // state field
}

// ParseCondition parses and validates a rule condition.
func ParseCondition(s string) (Condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"field operator value\"", s)
	}
	c := Condition{Field: parts[0], Op: parts[1]}

	if c.Field == "state" {
		if c.Op != "==" && c.Op != "!=" {
			return Condition{}, fmt.Errorf("condition %q: state supports only == and !=", s)
		}
		switch parts[2] {
		case compute.StateHolding, compute.StateSettling, compute.StateDrifting, compute.StateUnknown:
		default:
			return Condition{}, fmt.Errorf("condition %q: unknown state %q", s, parts[2])
		}
		c.State = parts[2]
		return c, nil
	}

	switch c.Field {
	case "celsius", "target", "rate", "avg_rate", "band_score", "samples":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", s, c.Field)
	}
	switch c.Op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", s, c.Op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: %w", s, err)
	}
	c.Value = v
	return c, nil
}

// String returns the condition in its source form.
func (c Condition) String() string {
	if c.Field == "state" {
		return c.Field + " " + c.Op + " " + c.State
	}
	return c.Field + " " + c.Op + " " + strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// Eval reports whether res satisfies the condition, with the value tested.
func (c Condition) Eval(res *compute.Result) (bool, float64) {
	if c.Field == "state" {
		match := res.State == c.State
		if c.Op == "!=" {
			match = !match
		}
		return match, 0
	}
	v, ok := numericField(c.Field, res)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.Op, c.Value), v
}

// numericField maps a field name to its value in res. ok is false when the
// value is not meaningful yet.
func numericField(field string, res *compute.Result) (v float64, ok bool) {
	switch field {
	case "celsius":
		return res.Celsius, true
	case "target":
		return res.Target, res.HasTarget
	case "rate":
		return res.InstantRate, res.RateValid
	case "avg_rate":
		return res.AvgRate, res.RateValid
	case "band_score":
		return res.BandScore, res.ScoreValid
	case "samples":
		return float64(res.Samples), true
	default:
		return 0, false
	}
}

func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
