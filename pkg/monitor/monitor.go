// Package monitor runs the single-threaded polling loop: one bounded receive,
// ingestion into both trackers and the climate state, then the periodic
// display and status duties measured against a clock.
package monitor

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/climabus/climabus"
	"github.com/climabus/climabus/internal/config"
	"github.com/climabus/climabus/internal/timeutil"
	"github.com/climabus/climabus/pkg/candidate"
	"github.com/climabus/climabus/pkg/classify"
	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/history"
	"github.com/rs/zerolog"
)

// Receiver is the transport seen by the loop. climabus.Client satisfies it.
type Receiver interface {
	Receive(ctx context.Context, budget time.Duration) (*climabus.CANFrame, bool, error)
}

// Config sizes the trackers and sets the cadence.
type Config struct {
	MaxTrackedIDs    int
	HistoryDepth     int
	MaxCandidates    int
	ReceiveBudget    time.Duration
	DisplayInterval  time.Duration
	StatusInterval   time.Duration
	RedrawThresholdF float64
	Signals          climate.SignalMap
	// Watch restricts the candidate session to these identifiers; empty
	// watches everything.
	Watch []uint32
}

// FromConfig converts a loaded tuning file.
func FromConfig(c *config.Config) Config {
	return Config{
		MaxTrackedIDs:    c.MaxTrackedIDs,
		HistoryDepth:     c.HistoryDepth,
		MaxCandidates:    c.MaxCandidates,
		ReceiveBudget:    c.GetReceiveBudget(),
		DisplayInterval:  c.GetDisplayInterval(),
		StatusInterval:   c.GetStatusInterval(),
		RedrawThresholdF: c.RedrawThresholdF,
		Signals:          c.Signals,
	}
}

// Status is the periodic health summary.
type Status struct {
	Uptime     time.Duration
	Frames     uint64
	LastID     uint32
	Tracked    int
	Candidates int
	// Dropped counts frames ignored by each table because it was full.
	HistoryDropped   uint64
	CandidateDropped uint64
}

// Hooks receive engine output. Every hook runs on the loop goroutine and
// must not block.
type Hooks struct {
	// OnFrame sees every frame after ingestion. m is nil when the history
	// table was full.
	OnFrame func(f *climabus.CANFrame, m *history.Message, changed bool)
	// OnDelta sees candidate updates that changed at least one byte.
	OnDelta func(u *candidate.Update)
	// OnDisplay runs every display interval with the pending flags.
	OnDisplay func(s climate.Snapshot)
	// OnStatus runs every status interval.
	OnStatus func(s Status)
}

// Engine owns all mutable analysis state. It is not safe for concurrent use.
type Engine struct {
	cfg   Config
	rx    Receiver
	clock timeutil.Clock
	log   zerolog.Logger
	hooks Hooks

	classifier *classify.Classifier
	history    *history.Store
	tracker    *candidate.Tracker
	climate    *climate.State
	watch      map[uint32]struct{}

	start       time.Time
	lastDisplay time.Time
	lastStatus  time.Time
	frames      uint64
	lastID      uint32
}

type Option func(*Engine)

func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

func WithClassifier(c *classify.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// New builds an engine reading from rx. Zero durations fall back to the
// tuning defaults.
func New(rx Receiver, cfg Config, opts ...Option) *Engine {
	def := FromConfig(config.Default())
	if cfg.ReceiveBudget <= 0 {
		cfg.ReceiveBudget = def.ReceiveBudget
	}
	if cfg.DisplayInterval <= 0 {
		cfg.DisplayInterval = def.DisplayInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = def.StatusInterval
	}
	if cfg.Signals == (climate.SignalMap{}) {
		cfg.Signals = def.Signals
	}

	e := &Engine{
		cfg:        cfg,
		rx:         rx,
		clock:      timeutil.RealClock{},
		log:        zerolog.Nop(),
		classifier: classify.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.history = history.NewStore(cfg.MaxTrackedIDs, cfg.HistoryDepth, history.WithClassifier(e.classifier))
	e.tracker = candidate.NewTracker(cfg.MaxCandidates)
	e.climate = climate.NewState(cfg.Signals, cfg.RedrawThresholdF)
	if len(cfg.Watch) > 0 {
		e.watch = make(map[uint32]struct{}, len(cfg.Watch))
		for _, id := range cfg.Watch {
			e.watch[id] = struct{}{}
		}
	}
	e.start = e.clock.Now()
	e.lastDisplay = e.start
	e.lastStatus = e.start
	return e
}

func (e *Engine) History() *history.Store { return e.history }
func (e *Engine) Tracker() *candidate.Tracker { return e.tracker }
func (e *Engine) Climate() *climate.State { return e.climate }
func (e *Engine) Classifier() *classify.Classifier { return e.classifier }
func (e *Engine) Config() Config { return e.cfg }

// Watching reports whether id feeds the candidate session.
func (e *Engine) Watching(id uint32) bool {
	if e.watch == nil {
		return true
	}
	_, ok := e.watch[id]
	return ok
}

// Status returns the current health summary.
func (e *Engine) Status() Status {
	return Status{
		Uptime:           e.clock.Since(e.start),
		Frames:           e.frames,
		LastID:           e.lastID,
		Tracked:          e.history.Len(),
		Candidates:       e.tracker.Len(),
		HistoryDropped:   e.history.Dropped(),
		CandidateDropped: e.tracker.Dropped(),
	}
}

// Ingest feeds one frame through every consumer. Confirmed identifiers reach
// the climate state whether or not the history table had room for them.
func (e *Engine) Ingest(f *climabus.CANFrame, now time.Time) {
	e.frames++
	e.lastID = f.Identifier

	m, changed := e.history.Ingest(f.Identifier, f.Data, now)
	if e.hooks.OnFrame != nil {
		e.hooks.OnFrame(f, m, changed)
	}

	if e.Watching(f.Identifier) {
		if u, ok := e.tracker.Ingest(f.Identifier, f.Data, now); ok && u.Changed && e.hooks.OnDelta != nil {
			e.hooks.OnDelta(&u)
		}
	}

	if flags := e.climate.Apply(f.Identifier, f.Data); flags != 0 {
		e.log.Debug().Uint32("id", f.Identifier).Stringer("changed", flags).Msg("climate update")
	}
}

// Tick runs the display and status duties that are due at now.
func (e *Engine) Tick(now time.Time) {
	if now.Sub(e.lastDisplay) >= e.cfg.DisplayInterval {
		e.lastDisplay = now
		if e.hooks.OnDisplay != nil {
			e.hooks.OnDisplay(e.climate.Snapshot())
		}
		e.climate.ClearChanged()
	}
	if now.Sub(e.lastStatus) >= e.cfg.StatusInterval {
		e.lastStatus = now
		st := e.Status()
		if st.Frames == 0 {
			e.log.Warn().Dur("uptime", st.Uptime).Msg("no CAN frames received yet")
		} else {
			e.log.Info().
				Uint64("frames", st.Frames).
				Int("tracked", st.Tracked).
				Int("candidates", st.Candidates).
				Uint64("dropped", st.HistoryDropped+st.CandidateDropped).
				Msg("status")
		}
		if e.hooks.OnStatus != nil {
			e.hooks.OnStatus(st)
		}
	}
}

// Step performs one loop iteration: a receive bounded by the receive budget,
// ingestion of the frame if one arrived, then the periodic duties.
func (e *Engine) Step(ctx context.Context) error {
	f, ok, err := e.rx.Receive(ctx, e.cfg.ReceiveBudget)
	if err != nil {
		return err
	}
	if ok {
		e.Ingest(f, e.clock.Now())
	}
	e.Tick(e.clock.Now())
	return nil
}

// Run steps until ctx ends or the transport reports a terminal error. End of
// a replayed trace and cancellation are normal exits.
func (e *Engine) Run(ctx context.Context) error {
	for {
		err := e.Step(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			e.log.Debug().Err(err).Msg("engine stopped")
			return nil
		default:
			return err
		}
	}
}
