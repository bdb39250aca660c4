package compute

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tummers/Precision-Refrigerator/pkg/types"
)

// Settings configures one Engine.
type Settings struct {
	// ID identifies the thermometer in logs and exported metrics.
	ID string

	// Capacity is the length of the temperature and rate histories.
	Capacity int

	// Target is the aim temperature in °C. Nil means no target is set.
	Target *float64

	// Precision is the tolerance radius around Target used for scoring.
	Precision float64

	// ScoreWindow is the number of newest samples the band score covers.
	// Zero means the whole history.
	ScoreWindow int

	// MinPrecision is the sensor resolution. Zero keeps DefaultMinPrecision.
	MinPrecision float64
}

// Result is the derived snapshot for one tick of one thermometer, ready for
// the data log, the metrics exporter and controller consumers.
type Result struct {
	ThermometerID string
	SessionID     string
	Timestamp     time.Time
	Celsius       float64
	Target        float64
	HasTarget     bool
	InstantRate   float64 // °C/s of the distance to target
	AvgRate       float64 // mean of the RateWindow newest rates
	RateValid     bool
	Converging    bool
	BandScore     float64 // fraction of ScoreWindow outside the band
	ScoreValid    bool
	State         string
	Samples       int
	ErrorMessage  string // non-empty when the rate or score could not be derived
}

// History is a read-only copy of an Engine's rolling histories, oldest first.
type History struct {
	Temperatures []float64
	Timestamps   []time.Time
	Rates        []float64
}

// Engine owns the SampleBuffer and Tracker of one thermometer session and
// runs one sample/rate/score step per tick.
//
// All exported methods are safe for concurrent use, so a config watcher can
// retarget the engine while the driver loop ticks.
type Engine struct {
	mu          sync.Mutex
	id          string
	session     string
	buf         *SampleBuffer
	tracker     *Tracker
	precision   float64
	scoreWindow int
}

// NewEngine builds the histories from the first reading of the session.
func NewEngine(s Settings, first types.Reading) (*Engine, error) {
	buf, err := NewSampleBuffer(s.Capacity, first.Celsius, first.At)
	if err != nil {
		return nil, err
	}
	window := s.ScoreWindow
	if window == 0 {
		window = s.Capacity
	}
	if window < 1 || window > s.Capacity {
		return nil, configErrorf("score window %d outside [1, %d]", window, s.Capacity)
	}
	if err := checkPrecision(s.Precision); err != nil {
		return nil, err
	}

	tr := NewTracker(buf)
	if s.MinPrecision > 0 {
		tr.MinPrecision = s.MinPrecision
	}
	if s.Target != nil {
		if err := tr.SetTarget(*s.Target); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		id:          s.ID,
		session:     uuid.NewString(),
		buf:         buf,
		tracker:     tr,
		precision:   s.Precision,
		scoreWindow: window,
	}
	e.warnPrecision()
	slog.Info("compute: session started",
		"thermometer", e.id, "session", e.session,
		"capacity", s.Capacity, "initial_celsius", first.Celsius)
	return e, nil
}

// ID returns the thermometer ID.
func (e *Engine) ID() string { return e.id }

// SessionID returns the random ID assigned to this engine at construction.
func (e *Engine) SessionID() string { return e.session }

// Process stores r, derives the convergence rate and, once enough samples
// exist, the band score.
//
// A Result is returned whenever the sample was stored, even if the rate
// could not be computed; the error then explains why. A rejected sample
// returns a nil Result.
func (e *Engine) Process(r types.Reading) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.buf.Push(r.Celsius, r.At); err != nil {
		return nil, err
	}

	out := &Result{
		ThermometerID: e.id,
		SessionID:     e.session,
		Timestamp:     r.At,
		Celsius:       r.Celsius,
		Samples:       e.buf.Samples(),
		State:         StateUnknown,
	}
	out.Target, out.HasTarget = e.tracker.Target()

	instant, avg, err := e.tracker.UpdateRate()
	if err != nil {
		if !errors.Is(err, ErrNoTarget) {
			slog.Warn("compute: rate not derived",
				"thermometer", e.id, "err", err)
		}
		out.ErrorMessage = err.Error()
		return out, err
	}
	out.InstantRate = instant
	out.AvgRate = avg
	out.RateValid = true
	out.Converging = e.tracker.Converging()

	// The band score only becomes meaningful once the window holds real
	// samples rather than the initial fill.
	if e.buf.Samples() < e.scoreWindow {
		return out, nil
	}
	capacity := e.buf.Cap()
	score, err := e.tracker.BandScore(e.precision, capacity-e.scoreWindow, capacity)
	if err != nil {
		out.ErrorMessage = err.Error()
		return out, err
	}
	out.BandScore = score
	out.ScoreValid = true
	out.State = stateFromScore(score)
	return out, nil
}

// SetTarget retargets the tracker. A non-finite target is rejected and the
// previous target stays in effect.
func (e *Engine) SetTarget(celsius float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, had := e.tracker.Target()
	if err := e.tracker.SetTarget(celsius); err != nil {
		return err
	}
	if !had {
		e.warnPrecision()
	}
	return nil
}

// ClearTarget disables rate and score derivation until a target is set.
func (e *Engine) ClearTarget() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.ClearTarget()
}

// SetPrecision replaces the tolerance radius used for scoring.
func (e *Engine) SetPrecision(p float64) error {
	if err := checkPrecision(p); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.precision = p
	e.warnPrecision()
	return nil
}

// Current returns the newest stored temperature.
func (e *Engine) Current() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Current()
}

// History returns copies of the temperature, timestamp and rate histories.
func (e *Engine) History() History {
	e.mu.Lock()
	defer e.mu.Unlock()
	return History{
		Temperatures: e.buf.Values(),
		Timestamps:   e.buf.Timestamps(),
		Rates:        e.tracker.Rates(),
	}
}

// warnPrecision logs when the band is finer than the sensor can resolve.
// Without a target there is no band, so nothing is logged.
// Caller holds e.mu.
func (e *Engine) warnPrecision() {
	if _, ok := e.tracker.Target(); !ok {
		return
	}
	if e.precision < e.tracker.MinPrecision {
		slog.Warn("compute: precision below sensor resolution",
			"thermometer", e.id,
			"precision", e.precision,
			"min_precision", e.tracker.MinPrecision)
	}
}
