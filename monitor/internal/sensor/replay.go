package sensor

import (
	"context"

	"github.com/Tummers/Precision-Refrigerator/monitor/internal/datalog"
	"github.com/Tummers/Precision-Refrigerator/pkg/types"
)

// Replay plays back recorded readings, one per Read, stamping each with the
// current time. After the last value every Read returns ErrExhausted.
type Replay struct {
	values []float64
	pos    int
}

// NewReplay returns a reader over values.
func NewReplay(values []float64) *Replay {
	return &Replay{values: values}
}

// NewReplayFile loads a data log written by datalog.Logger.
func NewReplayFile(path string) (*Replay, error) {
	values, err := datalog.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewReplay(values), nil
}

func (r *Replay) Read(ctx context.Context) (types.Reading, error) {
	if err := ctx.Err(); err != nil {
		return types.Reading{}, err
	}
	if r.pos >= len(r.values) {
		return types.Reading{}, ErrExhausted
	}
	v := r.values[r.pos]
	r.pos++
	return types.Reading{Celsius: v, At: clock()}, nil
}

// Remaining returns how many values are left to play.
func (r *Replay) Remaining() int { return len(r.values) - r.pos }

// Resolution is unknown for recorded data.
func (r *Replay) Resolution() float64 { return 0 }
