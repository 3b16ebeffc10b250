package climabus

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/climabus/climabus/pkg/decode"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "Simulator",
		Description:        "Synthetic HVAC traffic for bench testing",
		RequiresSerialPort: false,
		New:                NewSimulator,
	}); err != nil {
		panic(err)
	}
}

// Simulator emits a fixed rotation of body, HVAC and OBD frames with slowly
// drifting values. "interval" and "seed" in AdditionalConfig tune it.
type Simulator struct {
	*BaseAdapter
	interval time.Duration
	rnd      *rand.Rand
	counter  int
}

func NewSimulator(cfg *AdapterConfig) (Adapter, error) {
	s := &Simulator{
		BaseAdapter: NewBaseAdapter("Simulator", cfg),
		interval:    25 * time.Millisecond,
	}
	seed := time.Now().UnixNano()
	if v, ok := s.cfg.AdditionalConfig["interval"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, Unrecoverable(fmt.Errorf("simulator: invalid interval %q", v))
		}
		s.interval = d
	}
	if v, ok := s.cfg.AdditionalConfig["seed"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, Unrecoverable(fmt.Errorf("simulator: invalid seed %q", v))
		}
		seed = n
	}
	s.rnd = rand.New(rand.NewSource(seed))
	return s, nil
}

func (s *Simulator) Open(ctx context.Context) error {
	s.Info("simulator started")
	go s.run(ctx)
	return nil
}

func (s *Simulator) Close() error {
	return s.BaseAdapter.Close()
}

func (s *Simulator) run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeChan:
			return
		case <-t.C:
			s.deliver(s.Next())
		}
	}
}

func (s *Simulator) between(lo, hi int) byte {
	return byte(lo + s.rnd.Intn(hi-lo))
}

// Next builds the next frame of the rotation.
func (s *Simulator) Next() *CANFrame {
	n := s.counter
	s.counter++
	phase := float64(n%400) / 400
	switch n % 7 {
	case 0:
		// body controller
		return NewFrame(0x3B3, []byte{0x42, 0x11, s.between(0x20, 0x80), s.between(0x10, 0x90), 0xFF, 0x00})
	case 1:
		driver := 68 + int(4*math.Sin(2*math.Pi*phase))
		dt, do := decode.EncodeSetpoint(driver)
		pt, po := decode.EncodeSetpoint(70)
		return NewFrame(0x3D3, []byte{dt, do, pt, po})
	case 2:
		return NewFrame(0x420, []byte{0x7E, s.between(0x80, 0xC0)})
	case 3:
		// OBD coolant temperature response
		return NewFrame(0x7E8, []byte{0x03, 0x41, 0x05, s.between(0x50, 0x90)})
	case 4:
		hi, lo := decode.EncodeOAT(21.5 + 3*(phase-0.5))
		return NewFrame(0x3C4, []byte{0, 0, 0, 0, 0, 0, hi, lo})
	case 5:
		return NewFrame(0x3D4, []byte{byte(n/7) % 0xE0})
	default:
		return NewFrame(0x3B2, []byte{0x80})
	}
}
