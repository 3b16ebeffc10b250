// Package decode holds the fixed decoding rules for known climate signals and
// the byte hypotheses used while hunting for unknown ones. Every function is
// total: out of range input gives out of range output and the caller filters.
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/albenik/bcd"
)

// Method names a single-byte temperature encoding hypothesis.
type Method int

const (
	// MethodOffset40 is the common automotive encoding, 1 °C/LSB, 0 = -40 °C.
	MethodOffset40 Method = iota + 1
	// MethodHalfDegree is 0.5 °C/LSB with a -40 °C offset.
	MethodHalfDegree
	// MethodSigned treats 0x80 as 0 °C.
	MethodSigned
	// MethodDirect is the raw byte as °C.
	MethodDirect
	// MethodBCD reads the byte as two packed decimal digits.
	MethodBCD
)

// Methods lists every hypothesis in reporting order.
var Methods = [...]Method{MethodOffset40, MethodHalfDegree, MethodSigned, MethodDirect, MethodBCD}

// NumMethods is len(Methods).
const NumMethods = len(Methods)

func (m Method) String() string {
	switch m {
	case MethodOffset40:
		return "offset40"
	case MethodHalfDegree:
		return "half"
	case MethodSigned:
		return "signed"
	case MethodDirect:
		return "direct"
	case MethodBCD:
		return "bcd"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Tag is the short letter used in analysis lines.
func (m Method) Tag() string {
	switch m {
	case MethodOffset40:
		return "A"
	case MethodSigned:
		return "B"
	case MethodDirect:
		return "C"
	case MethodHalfDegree:
		return "D"
	case MethodBCD:
		return "E"
	default:
		return "?"
	}
}

// Plausible temperature bounds in °C used by every reporting filter.
const (
	PlausibleMinC = -50.0
	PlausibleMaxC = 100.0
)

// Signal is a decoded physical value together with the hypothesis that
// produced it.
type Signal struct {
	Method  Method
	Celsius float64
}

// Plausible reports whether the value is inside PlausibleMinC..PlausibleMaxC.
func (s Signal) Plausible() bool {
	return Plausible(s.Celsius)
}

func (s Signal) String() string {
	return fmt.Sprintf("%s: %.1f°C", s.Method.Tag(), s.Celsius)
}

// Plausible reports whether c is a believable cabin or ambient temperature.
func Plausible(c float64) bool {
	return c >= PlausibleMinC && c <= PlausibleMaxC
}

// CelsiusToFahrenheit converts c to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

// FahrenheitToCelsius converts f to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}

// GenericTemp decodes b under method m. An unknown method yields NaN.
func GenericTemp(b byte, m Method) float64 {
	switch m {
	case MethodOffset40:
		return float64(b) - 40.0
	case MethodHalfDegree:
		return float64(b)*0.5 - 40.0
	case MethodSigned:
		return float64(b) - 128.0
	case MethodDirect:
		return float64(b)
	case MethodBCD:
		return float64(bcd.ToUint16([]byte{0x00, b}))
	default:
		return math.NaN()
	}
}

// Hypotheses decodes b under every method, in Methods order.
func Hypotheses(b byte) [NumMethods]Signal {
	var out [NumMethods]Signal
	for i, m := range Methods {
		out[i] = Signal{Method: m, Celsius: GenericTemp(b, m)}
	}
	return out
}

// AnalysisWorthy reports whether any of the four classic hypotheses lands in
// its narrow ambient range. Used to decide which bytes get an analysis line.
func AnalysisWorthy(b byte) bool {
	a := GenericTemp(b, MethodOffset40)
	s := GenericTemp(b, MethodSigned)
	d := GenericTemp(b, MethodDirect)
	h := GenericTemp(b, MethodHalfDegree)
	return (a >= -20 && a <= 50) ||
		(s >= -20 && s <= 50) ||
		(d >= 0 && d <= 40) ||
		(h >= -20 && h <= 50)
}

// OATCelsius decodes the outside air temperature pair to °C.
func OATCelsius(hi, lo byte) float64 {
	raw := binary.BigEndian.Uint16([]byte{hi, lo})
	return float64(raw)/128.0 - 128.0
}

// OAT decodes the outside air temperature pair to °F.
func OAT(hi, lo byte) float64 {
	return CelsiusToFahrenheit(OATCelsius(hi, lo))
}

// EncodeOAT is the inverse of OATCelsius for values representable in 16 bits.
func EncodeOAT(celsius float64) (hi, lo byte) {
	raw := uint16(math.Round((celsius + 128.0) * 128.0))
	return byte(raw >> 8), byte(raw)
}

// Setpoint off sentinel: both bytes zero.
const setpointOff = 0x00

// HVACSetpoint decodes an ASCII-decimal setpoint. ok is false when the zone is
// off. Non-digit bytes count as 0.
func HVACSetpoint(tens, ones byte) (value int, ok bool) {
	if tens == setpointOff && ones == setpointOff {
		return 0, false
	}
	return asciiDigit(tens)*10 + asciiDigit(ones), true
}

func asciiDigit(b byte) int {
	if b < '0' || b > '9' {
		return 0
	}
	return int(b - '0')
}

// EncodeSetpoint renders v (0..99) as two ASCII digits.
func EncodeSetpoint(v int) (tens, ones byte) {
	return byte('0' + (v/10)%10), byte('0' + v%10)
}

var fanThresholds = [...]byte{0x00, 0x20, 0x40, 0x60, 0x80, 0xA0, 0xC0}

// FanSpeed quantizes b into levels 0..7.
func FanSpeed(b byte) uint8 {
	return quantize(b, fanThresholds[:])
}

var dimThresholds = [...]byte{0x00, 0x2A, 0x55, 0x80, 0xAA, 0xD5}

// ConsoleDim quantizes b into levels 0..6.
func ConsoleDim(b byte) uint8 {
	return quantize(b, dimThresholds[:])
}

// quantize returns the first level whose inclusive upper bound holds b, or
// len(bounds) for the remainder.
func quantize(b byte, bounds []byte) uint8 {
	for level, hi := range bounds {
		if b <= hi {
			return uint8(level)
		}
	}
	return uint8(len(bounds))
}
