package climabus

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "Replay",
		Description:        "Recorded trace file (CSV, candump or SocketCAN pcap), port is the file path",
		RequiresSerialPort: false,
		New:                NewReplay,
	}); err != nil {
		panic(err)
	}
}

// Replay feeds a recorded trace through the adapter interface. With a
// positive "speed" in AdditionalConfig frames are paced by their recorded
// timestamps divided by speed; otherwise they are delivered as fast as the
// reader consumes them. End of file is reported as io.EOF on Err.
type Replay struct {
	*BaseAdapter
	src   io.ReadCloser
	speed float64
}

func NewReplay(cfg *AdapterConfig) (Adapter, error) {
	r, err := newReplay(nil, cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NewReplayReader builds a Replay over an already open stream.
func NewReplayReader(src io.Reader, cfg *AdapterConfig) (*Replay, error) {
	return newReplay(io.NopCloser(src), cfg)
}

func newReplay(src io.ReadCloser, cfg *AdapterConfig) (*Replay, error) {
	r := &Replay{BaseAdapter: NewBaseAdapter("Replay", cfg), src: src}
	if v, ok := r.cfg.AdditionalConfig["speed"]; ok {
		speed, err := strconv.ParseFloat(v, 64)
		if err != nil || speed < 0 {
			return nil, Unrecoverable(fmt.Errorf("replay: invalid speed %q", v))
		}
		r.speed = speed
	}
	return r, nil
}

func (r *Replay) Open(ctx context.Context) error {
	if r.src == nil {
		f, err := os.Open(r.cfg.Port)
		if err != nil {
			return Unrecoverable(fmt.Errorf("replay: %w", err))
		}
		r.src = f
	}
	go r.run(ctx)
	return nil
}

func (r *Replay) Close() error {
	r.BaseAdapter.Close()
	if r.src != nil {
		return r.src.Close()
	}
	return nil
}

func (r *Replay) run(ctx context.Context) {
	tr, err := OpenTrace(r.src, r.cfg.Port, func(err error) { r.Warn(err.Error()) })
	if err != nil {
		r.Fatal(Unrecoverable(fmt.Errorf("replay: %w", err)))
		return
	}

	var first time.Duration
	var started time.Time
	frames := 0
	for {
		f, err := tr.Next()
		if err == io.EOF {
			r.Info(fmt.Sprintf("replay finished, %d frames", frames))
			r.Fatal(io.EOF)
			return
		}
		if err != nil {
			r.Fatal(fmt.Errorf("replay: %w", err))
			return
		}
		if r.speed > 0 {
			if frames == 0 {
				first, started = f.Stamp, time.Now()
			}
			due := time.Duration(float64(f.Stamp-first) / r.speed)
			if wait := due - time.Since(started); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return
				case <-r.closeChan:
					return
				}
			}
		}
		if ctx.Err() != nil || !r.deliverWait(f) {
			return
		}
		frames++
	}
}
