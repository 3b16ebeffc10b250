package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedID(t *testing.T) {
	c := New()
	for _, id := range KnownIDs {
		assert.True(t, c.AllowedID(id), "0x%03X", id)
	}
	assert.True(t, c.AllowedID(0x300))
	assert.True(t, c.AllowedID(0x500))
	assert.True(t, c.AllowedID(OBDResponseID))
	assert.False(t, c.AllowedID(0x2FF))
	assert.False(t, c.AllowedID(0x501))
	assert.False(t, c.AllowedID(0x7E0))
}

func TestIsTemperatureCandidate(t *testing.T) {
	tests := []struct {
		name string
		id   uint32
		data []byte
		want bool
	}{
		{"ambient frame with 0x55", 0x3B3, []byte{0x42, 0x11, 0x55, 0x00}, true},
		{"first byte in celsius window", 0x3D3, []byte{0x20}, true},
		{"fahrenheit only", 0x410, []byte{0x00, 0xA0}, true},
		{"nothing in range", 0x3D3, []byte{0x00, 0x10, 0xFF, 0xC0}, false},
		{"id gate rejects", 0x123, []byte{0x55}, false},
		{"obd response", OBDResponseID, []byte{0x03, 0x41, 0x05, 0x5A}, true},
		{"empty payload", 0x3B3, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTemperatureCandidate(tt.id, tt.data))
		})
	}
}

func TestMatchOverlaps(t *testing.T) {
	c := New()
	all := c.Match(0x55)
	assert.True(t, all.Has(0))
	assert.True(t, all.Has(1))
	assert.True(t, all.Has(2))
	assert.Equal(t, "celsius+fahrenheit+direct", c.Names(all))

	onlyC := c.Match(0x25)
	assert.True(t, onlyC.Has(0))
	assert.False(t, onlyC.Has(1))
	assert.False(t, onlyC.Has(2))

	onlyF := c.Match(0x90)
	assert.Equal(t, "fahrenheit", c.Names(onlyF))

	assert.True(t, c.Match(0xFF).Empty())
}

func TestOptions(t *testing.T) {
	c := New(
		WithKnownIDs(0x123),
		WithRange(0x600, 0x610),
		WithWindows(Window{Name: "narrow", Lo: 0x10, Hi: 0x11}),
	)
	assert.True(t, c.IsTemperatureCandidate(0x123, []byte{0x10}))
	assert.True(t, c.IsTemperatureCandidate(0x605, []byte{0x11}))
	assert.False(t, c.IsTemperatureCandidate(0x3B3, []byte{0x10}))
	assert.False(t, c.IsTemperatureCandidate(0x123, []byte{0x55}))
	assert.True(t, c.IsTemperatureCandidate(OBDResponseID, []byte{0x10}), "OBD response always passes the id gate")
}
