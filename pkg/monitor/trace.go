package monitor

import (
	"context"
	"time"

	"github.com/climabus/climabus"
	"github.com/climabus/climabus/internal/timeutil"
)

// TraceReceiver feeds a recorded trace to the engine as fast as it can be
// read, moving a manual clock to each frame's recorded time so the display
// and status cadence follows the recording rather than the wall clock.
type TraceReceiver struct {
	r     climabus.FrameSource
	clock *timeutil.ManualClock
	base  time.Time
}

// NewTraceReceiver returns a receiver over r. The clock should be the one
// handed to the engine; its current time is the trace origin.
func NewTraceReceiver(r climabus.FrameSource, clock *timeutil.ManualClock) *TraceReceiver {
	return &TraceReceiver{r: r, clock: clock, base: clock.Now()}
}

// Receive returns the next frame, or io.EOF once the trace is exhausted.
// Frames without a recorded time advance the clock by the budget.
func (t *TraceReceiver) Receive(ctx context.Context, budget time.Duration) (*climabus.CANFrame, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	f, err := t.r.Next()
	if err != nil {
		return nil, false, err
	}
	if at := t.base.Add(f.Stamp); f.Stamp > 0 && at.After(t.clock.Now()) {
		t.clock.Set(at)
	} else if f.Stamp == 0 {
		t.clock.Advance(budget)
	}
	return f, true, nil
}
