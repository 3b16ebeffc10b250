package decode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	assert.InDelta(t, 32.0, CelsiusToFahrenheit(0), 1e-9)
	assert.InDelta(t, 212.0, CelsiusToFahrenheit(100), 1e-9)
	assert.InDelta(t, -40.0, CelsiusToFahrenheit(-40), 1e-9)
	assert.InDelta(t, 21.5, FahrenheitToCelsius(CelsiusToFahrenheit(21.5)), 1e-9)
}

func TestGenericTemp(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		m    Method
		want float64
	}{
		{"offset40 zero", 0x00, MethodOffset40, -40},
		{"offset40 max", 0xFF, MethodOffset40, 215},
		{"offset40 room", 0x3C, MethodOffset40, 20},
		{"half zero", 0x00, MethodHalfDegree, -40},
		{"half 0x55", 0x55, MethodHalfDegree, 2.5},
		{"half max", 0xFF, MethodHalfDegree, 87.5},
		{"signed center", 0x80, MethodSigned, 0},
		{"direct", 0x15, MethodDirect, 21},
		{"bcd", 0x72, MethodBCD, 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GenericTemp(tt.b, tt.m), 1e-9)
		})
	}
	assert.True(t, math.IsNaN(GenericTemp(0x10, Method(99))))
}

func TestHypothesesCoverEveryMethod(t *testing.T) {
	h := Hypotheses(0x55)
	require.Len(t, h, NumMethods)
	for i, m := range Methods {
		assert.Equal(t, m, h[i].Method)
		assert.InDelta(t, GenericTemp(0x55, m), h[i].Celsius, 1e-9)
	}
}

func TestAnalysisWorthy(t *testing.T) {
	assert.True(t, AnalysisWorthy(0x3C))  // 20 °C under offset40
	assert.True(t, AnalysisWorthy(0x10))  // 16 °C direct
	assert.False(t, AnalysisWorthy(0xF0)) // nothing plausible
}

func TestOAT(t *testing.T) {
	// 0x5000 = 20480 -> 32 °C -> 89.6 °F
	assert.InDelta(t, 32.0, OATCelsius(0x50, 0x00), 1e-9)
	assert.InDelta(t, 89.6, OAT(0x50, 0x00), 1e-9)
}

func TestOATRoundTrip(t *testing.T) {
	for _, v := range []uint16{0, 1, 0x3FFF, 0x4000, 0x5000, 0x5A40, 0xFFFF} {
		celsius := float64(v)/128 - 128
		hi, lo := EncodeOAT(celsius)
		assert.Equal(t, byte(v>>8), hi)
		assert.Equal(t, byte(v), lo)
		assert.InDelta(t, CelsiusToFahrenheit(celsius), OAT(hi, lo), 1e-9)
	}
}

func TestHVACSetpoint(t *testing.T) {
	_, ok := HVACSetpoint(0, 0)
	assert.False(t, ok, "0,0 is the off sentinel")

	v, ok := HVACSetpoint('7', '2')
	require.True(t, ok)
	assert.Equal(t, 72, v)

	v, ok = HVACSetpoint('7', 0xFF)
	require.True(t, ok)
	assert.Equal(t, 70, v)

	v, ok = HVACSetpoint('0', '0')
	require.True(t, ok, "ASCII zeros are a value, not the off sentinel")
	assert.Equal(t, 0, v)

	tens, ones := EncodeSetpoint(68)
	v, _ = HVACSetpoint(tens, ones)
	assert.Equal(t, 68, v)
}

func TestFanSpeed(t *testing.T) {
	assert.EqualValues(t, 0, FanSpeed(0x00))
	assert.EqualValues(t, 1, FanSpeed(0x01))
	assert.EqualValues(t, 1, FanSpeed(0x20))
	assert.EqualValues(t, 2, FanSpeed(0x21))
	assert.EqualValues(t, 2, FanSpeed(0x40))
	assert.EqualValues(t, 3, FanSpeed(0x41))
	assert.EqualValues(t, 6, FanSpeed(0xC0))
	assert.EqualValues(t, 7, FanSpeed(0xC1))
	assert.EqualValues(t, 7, FanSpeed(0xFF))

	prev := FanSpeed(0)
	for b := 0; b <= 0xFF; b++ {
		lvl := FanSpeed(byte(b))
		assert.GreaterOrEqual(t, lvl, prev, "byte 0x%02X", b)
		assert.LessOrEqual(t, lvl, uint8(7))
		prev = lvl
	}
}

func TestConsoleDim(t *testing.T) {
	assert.EqualValues(t, 0, ConsoleDim(0x00))
	assert.EqualValues(t, 1, ConsoleDim(0x2A))
	assert.EqualValues(t, 2, ConsoleDim(0x2B))
	assert.EqualValues(t, 2, ConsoleDim(0x55))
	assert.EqualValues(t, 3, ConsoleDim(0x80))
	assert.EqualValues(t, 4, ConsoleDim(0xAA))
	assert.EqualValues(t, 5, ConsoleDim(0xD5))
	assert.EqualValues(t, 6, ConsoleDim(0xD6))
	assert.EqualValues(t, 6, ConsoleDim(0xFF))

	prev := ConsoleDim(0)
	for b := 0; b <= 0xFF; b++ {
		lvl := ConsoleDim(byte(b))
		assert.GreaterOrEqual(t, lvl, prev, "byte 0x%02X", b)
		assert.LessOrEqual(t, lvl, uint8(6))
		prev = lvl
	}
}

func TestSetpointSetting(t *testing.T) {
	assert.Equal(t, SettingLow, SetpointSetting(60).Kind)
	assert.Equal(t, SettingHigh, SetpointSetting(90).Kind)
	s := SetpointSetting(77)
	assert.Equal(t, SettingTemperature, s.Kind)
	assert.Equal(t, 72, s.Fahrenheit)
	assert.Equal(t, "72°F", s.String())
	assert.Equal(t, SettingUnknown, SetpointSetting(85).Kind)
	assert.Equal(t, "LO", SetpointSetting(60).String())
}

func TestPair(t *testing.T) {
	pv := Pair('7', '2')
	assert.Equal(t, uint16(0x3732), pv.BigEndian)
	assert.Equal(t, uint16(0x3237), pv.LittleEndian)
	assert.Equal(t, uint16(0x37+0x32), pv.Sum)
	assert.Equal(t, "72", pv.ASCII)
	assert.True(t, pv.Digits)
	assert.Equal(t, 72, pv.Position)

	pv = Pair(0x01, 0xFF)
	assert.Equal(t, "..", pv.ASCII)
	assert.False(t, pv.Digits)
}
