package climabus

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestNewFrameCopiesAndTruncates(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	f := NewFrame(0x3D3, data)
	data[0] = 0xFF
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, f.Data)
	assert.Equal(t, 8, f.DLC())
	assert.False(t, f.Extended)
	assert.True(t, NewExtendedFrame(0x18DAF110, nil).Extended)
}

func TestFrameString(t *testing.T) {
	f := NewFrame(0x3D3, []byte{0x37, 0x32, 0x00})
	s := f.String()
	assert.True(t, strings.HasPrefix(s, "0x3D3 || 3 || 37 32 00"))
	assert.True(t, strings.HasSuffix(s, " || 72·"))
	assert.Contains(t, s, "00110111 00110010 00000000")

	ext := NewExtendedFrame(0x18DAF110, []byte{0x01})
	assert.True(t, strings.HasPrefix(ext.String(), "0x18DAF110 || 1 || 01"))
}

func TestFrameColorStringWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	f := NewFrame(0x3B3, []byte{0x42, 0x11})
	assert.Equal(t, f.String(), f.ColorString())
}
