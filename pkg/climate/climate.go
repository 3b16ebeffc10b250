// Package climate holds the last confirmed HVAC values decoded from the bus
// and the change flags a display uses to redraw only what moved.
package climate

import (
	"fmt"
	"math"

	"github.com/climabus/climabus/internal/validate"
	"github.com/climabus/climabus/pkg/decode"
)

// DefaultRedrawThresholdF is the smallest outside temperature movement, in
// °F, that flags a redraw.
const DefaultRedrawThresholdF = 1.0

// SignalMap locates the confirmed signals. Offsets are byte indexes into the
// payload of the given identifier.
type SignalMap struct {
	OATID uint32 `json:"oat_id"`
	OATHi int    `json:"oat_hi" validate:"min=0,max=7"`
	OATLo int    `json:"oat_lo" validate:"min=0,max=7"`

	SetpointID    uint32 `json:"setpoint_id"`
	DriverTens    int    `json:"driver_tens" validate:"min=0,max=7"`
	DriverOnes    int    `json:"driver_ones" validate:"min=0,max=7"`
	PassengerTens int    `json:"passenger_tens" validate:"min=0,max=7"`
	PassengerOnes int    `json:"passenger_ones" validate:"min=0,max=7"`

	FanID   uint32 `json:"fan_id"`
	FanByte int    `json:"fan_byte" validate:"min=0,max=7"`

	DimID   uint32 `json:"dim_id"`
	DimByte int    `json:"dim_byte" validate:"min=0,max=7"`
}

// DefaultSignalMap returns the confirmed layout.
func DefaultSignalMap() SignalMap {
	return SignalMap{
		OATID:         0x3C4,
		OATHi:         6,
		OATLo:         7,
		SetpointID:    0x3D3,
		DriverTens:    0,
		DriverOnes:    1,
		PassengerTens: 2,
		PassengerOnes: 3,
		FanID:         0x3D4,
		FanByte:       0,
		DimID:         0x3B2,
		DimByte:       0,
	}
}

// Validate checks every offset is inside a classic CAN payload.
func (m SignalMap) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("signal map: %w", err)
	}
	return nil
}

// IDs returns the identifiers carrying confirmed signals.
func (m SignalMap) IDs() []uint32 {
	return []uint32{m.OATID, m.SetpointID, m.FanID, m.DimID}
}

// Flags marks which values changed.
type Flags uint8

const (
	OutsideChanged Flags = 1 << iota
	DriverChanged
	PassengerChanged
	FanChanged
	DimChanged

	AllChanged = OutsideChanged | DriverChanged | PassengerChanged | FanChanged | DimChanged
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	names := []string{"outside", "driver", "passenger", "fan", "dim"}
	out := ""
	for i, n := range names {
		if f&(1<<i) == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n
	}
	return out
}

// Snapshot is a copy of the display-facing values.
type Snapshot struct {
	OutsideF     float64 `json:"outside_temp_f"`
	HasOutside   bool    `json:"has_outside"`
	Driver       int     `json:"driver_setpoint"`
	HasDriver    bool    `json:"has_driver"`
	Passenger    int     `json:"passenger_setpoint"`
	HasPassenger bool    `json:"has_passenger"`
	Fan          uint8   `json:"fan_level"`
	Dim          uint8   `json:"dim_level"`
	Changed      Flags   `json:"changed"`
}

// DriverSetpoint returns the driver setpoint when present.
func (s Snapshot) DriverSetpoint() (int, bool) { return s.Driver, s.HasDriver }

// PassengerSetpoint returns the passenger setpoint when present.
func (s Snapshot) PassengerSetpoint() (int, bool) { return s.Passenger, s.HasPassenger }

// State is updated from confirmed frames only. It is owned by the polling
// loop and is not safe for concurrent use.
type State struct {
	signals   SignalMap
	threshold float64

	snap  Snapshot
	drawn float64
}

// NewState returns an empty state. A non-positive threshold uses
// DefaultRedrawThresholdF.
func NewState(signals SignalMap, thresholdF float64) *State {
	if thresholdF <= 0 {
		thresholdF = DefaultRedrawThresholdF
	}
	return &State{signals: signals, threshold: thresholdF}
}

// Signals returns the map in use.
func (s *State) Signals() SignalMap { return s.signals }

// Confirmed reports whether id carries at least one confirmed signal.
func (s *State) Confirmed(id uint32) bool {
	switch id {
	case s.signals.OATID, s.signals.SetpointID, s.signals.FanID, s.signals.DimID:
		return true
	}
	return false
}

// Apply decodes every confirmed signal carried by the frame and returns the
// flags it raised. Signals whose bytes lie beyond len(data) are skipped and
// keep their prior value. Raised flags accumulate until ClearChanged.
func (s *State) Apply(id uint32, data []byte) Flags {
	var f Flags
	m := s.signals
	if id == m.OATID && covers(data, m.OATHi, m.OATLo) {
		f |= s.applyOutside(decode.OAT(data[m.OATHi], data[m.OATLo]))
	}
	if id == m.SetpointID {
		if covers(data, m.DriverTens, m.DriverOnes) {
			v, ok := decode.HVACSetpoint(data[m.DriverTens], data[m.DriverOnes])
			if setOptional(&s.snap.Driver, &s.snap.HasDriver, v, ok) {
				f |= DriverChanged
			}
		}
		if covers(data, m.PassengerTens, m.PassengerOnes) {
			v, ok := decode.HVACSetpoint(data[m.PassengerTens], data[m.PassengerOnes])
			if setOptional(&s.snap.Passenger, &s.snap.HasPassenger, v, ok) {
				f |= PassengerChanged
			}
		}
	}
	if id == m.FanID && covers(data, m.FanByte) {
		if lvl := decode.FanSpeed(data[m.FanByte]); lvl != s.snap.Fan {
			s.snap.Fan = lvl
			f |= FanChanged
		}
	}
	if id == m.DimID && covers(data, m.DimByte) {
		if lvl := decode.ConsoleDim(data[m.DimByte]); lvl != s.snap.Dim {
			s.snap.Dim = lvl
			f |= DimChanged
		}
	}
	s.snap.Changed |= f
	return f
}

func (s *State) applyOutside(f float64) Flags {
	s.snap.OutsideF = f
	if !s.snap.HasOutside {
		s.snap.HasOutside = true
		s.drawn = f
		return OutsideChanged
	}
	if math.Abs(f-s.drawn) >= s.threshold {
		s.drawn = f
		return OutsideChanged
	}
	return 0
}

// Snapshot returns a copy of the current values and pending flags.
func (s *State) Snapshot() Snapshot { return s.snap }

// Changed returns the pending flags.
func (s *State) Changed() Flags { return s.snap.Changed }

// ClearChanged acknowledges the pending flags after a redraw.
func (s *State) ClearChanged() { s.snap.Changed = 0 }

func covers(data []byte, offsets ...int) bool {
	for _, o := range offsets {
		if o < 0 || o >= len(data) {
			return false
		}
	}
	return true
}

func setOptional(dst *int, has *bool, v int, ok bool) bool {
	if ok == *has && (!ok || v == *dst) {
		return false
	}
	*dst, *has = v, ok
	if !ok {
		*dst = 0
	}
	return true
}
