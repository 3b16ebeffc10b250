package climate

import (
	"testing"

	"github.com/climabus/climabus/pkg/decode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oatFrame(celsius float64) []byte {
	hi, lo := decode.EncodeOAT(celsius)
	return []byte{0, 0, 0, 0, 0, 0, hi, lo}
}

func TestSetpointFrame(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	f := s.Apply(0x3D3, []byte{0x37, 0x32, 0x37, 0x30})
	assert.True(t, f.Has(DriverChanged|PassengerChanged))

	snap := s.Snapshot()
	v, ok := snap.DriverSetpoint()
	require.True(t, ok)
	assert.Equal(t, 72, v)
	v, ok = snap.PassengerSetpoint()
	require.True(t, ok)
	assert.Equal(t, 70, v)

	// same frame again raises nothing
	assert.Equal(t, Flags(0), s.Apply(0x3D3, []byte{0x37, 0x32, 0x37, 0x30}))
}

func TestSetpointOff(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	s.Apply(0x3D3, []byte{0x37, 0x32, 0x37, 0x30})
	f := s.Apply(0x3D3, []byte{0x00, 0x00, 0x37, 0x30})
	assert.Equal(t, DriverChanged, f)
	_, ok := s.Snapshot().DriverSetpoint()
	assert.False(t, ok)
}

func TestOutsideTemperature(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	f := s.Apply(0x3C4, []byte{0, 0, 0, 0, 0, 0, 0x50, 0x00})
	assert.Equal(t, OutsideChanged, f)
	snap := s.Snapshot()
	assert.True(t, snap.HasOutside)
	assert.InDelta(t, 89.6, snap.OutsideF, 1e-9)
}

func TestOutsideHysteresis(t *testing.T) {
	s := NewState(DefaultSignalMap(), 1.0)
	require.Equal(t, OutsideChanged, s.Apply(0x3C4, oatFrame(20)))

	// 0.5 °C is 0.9 °F, below the threshold
	assert.Equal(t, Flags(0), s.Apply(0x3C4, oatFrame(20.5)))
	assert.InDelta(t, decode.CelsiusToFahrenheit(20.5), s.Snapshot().OutsideF, 1e-6, "value tracks even without a flag")

	// 1 °C from the drawn value is 1.8 °F
	assert.Equal(t, OutsideChanged, s.Apply(0x3C4, oatFrame(21)))
}

func TestShortFrameKeepsPriorValue(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	s.Apply(0x3C4, oatFrame(10))
	before := s.Snapshot().OutsideF

	assert.Equal(t, Flags(0), s.Apply(0x3C4, []byte{0x50, 0x00}))
	assert.Equal(t, before, s.Snapshot().OutsideF)

	// only the driver pair is present
	f := s.Apply(0x3D3, []byte{0x36, 0x38})
	assert.Equal(t, DriverChanged, f)
	_, ok := s.Snapshot().PassengerSetpoint()
	assert.False(t, ok)
}

func TestFanAndDim(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	assert.Equal(t, FanChanged, s.Apply(0x3D4, []byte{0x41}))
	assert.Equal(t, uint8(3), s.Snapshot().Fan)
	assert.Equal(t, Flags(0), s.Apply(0x3D4, []byte{0x42}))

	assert.Equal(t, DimChanged, s.Apply(0x3B2, []byte{0xFF}))
	assert.Equal(t, uint8(6), s.Snapshot().Dim)
	assert.Equal(t, Flags(0), s.Apply(0x3B2, nil))
}

func TestFlagsAccumulateUntilCleared(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	s.Apply(0x3D4, []byte{0x41})
	s.Apply(0x3B2, []byte{0x30})
	assert.Equal(t, FanChanged|DimChanged, s.Changed())
	assert.Equal(t, "fan|dim", s.Changed().String())
	s.ClearChanged()
	assert.Equal(t, Flags(0), s.Snapshot().Changed)
	assert.Equal(t, "none", s.Changed().String())
}

func TestUnconfirmedIDIgnored(t *testing.T) {
	s := NewState(DefaultSignalMap(), 0)
	assert.False(t, s.Confirmed(0x123))
	assert.True(t, s.Confirmed(0x3D3))
	assert.Equal(t, Flags(0), s.Apply(0x123, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Equal(t, Snapshot{}, s.Snapshot())
}

func TestSignalMapValidate(t *testing.T) {
	assert.NoError(t, DefaultSignalMap().Validate())
	m := DefaultSignalMap()
	m.FanByte = 8
	assert.Error(t, m.Validate())
}
