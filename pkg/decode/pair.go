package decode

import (
	"encoding/binary"
	"fmt"
)

// SettingKind classifies an ASCII setpoint position.
type SettingKind int

const (
	SettingUnknown SettingKind = iota
	SettingLow
	SettingHigh
	SettingTemperature
)

// Setting is the climate head's interpretation of a two digit position.
type Setting struct {
	Kind       SettingKind
	Position   int
	Fahrenheit int
}

func (s Setting) String() string {
	switch s.Kind {
	case SettingLow:
		return "LO"
	case SettingHigh:
		return "HI"
	case SettingTemperature:
		return fmt.Sprintf("%d°F", s.Fahrenheit)
	default:
		return fmt.Sprintf("pos %d", s.Position)
	}
}

// Positions observed on the climate head: 60 is LO, 90 is HI and 65..84 map to
// position-5 °F.
const (
	positionLow     = 60
	positionHigh    = 90
	positionFirst   = 65
	positionLast    = 84
	positionOffsetF = 5
)

// SetpointSetting maps a decoded setpoint position to what the head displays.
func SetpointSetting(position int) Setting {
	s := Setting{Position: position}
	switch {
	case position == positionLow:
		s.Kind = SettingLow
	case position == positionHigh:
		s.Kind = SettingHigh
	case position >= positionFirst && position <= positionLast:
		s.Kind = SettingTemperature
		s.Fahrenheit = position - positionOffsetF
	}
	return s
}

// PairValues are the integer combinations of two selected bytes.
type PairValues struct {
	BigEndian    uint16
	LittleEndian uint16
	Sum          uint16
	ASCII        string
	// Digits is set when both bytes are ASCII digits.
	Digits   bool
	Position int
}

// Pair combines a and b the ways the grid tool does when two cells are
// selected.
func Pair(a, b byte) PairValues {
	pv := PairValues{
		BigEndian:    binary.BigEndian.Uint16([]byte{a, b}),
		LittleEndian: binary.LittleEndian.Uint16([]byte{a, b}),
		Sum:          uint16(a) + uint16(b),
		ASCII:        string([]byte{Printable(a), Printable(b)}),
	}
	if isDigit(a) && isDigit(b) {
		pv.Digits = true
		pv.Position = asciiDigit(a)*10 + asciiDigit(b)
	}
	return pv
}

// Printable returns b when it is printable ASCII, '.' otherwise.
func Printable(b byte) byte {
	if b >= 32 && b <= 126 {
		return b
	}
	return '.'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
