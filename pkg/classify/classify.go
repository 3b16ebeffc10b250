// Package classify flags frames that might carry a temperature. A positive
// answer means "show this to the operator", never "decode this automatically".
package classify

import "strings"

// OBDResponseID is the OBD-II ECU response identifier.
const OBDResponseID = 0x7E8

// Empirical HVAC identifier range, inclusive.
const (
	HVACRangeLo = 0x300
	HVACRangeHi = 0x500
)

// KnownIDs are HVAC/BCM/OBD frames seen carrying climate data.
var KnownIDs = []uint32{0x3B3, 0x3D3, 0x410, 0x420, 0x430, OBDResponseID}

// Window is a named inclusive raw byte range.
type Window struct {
	Name   string
	Lo, Hi byte
}

// Contains reports whether b falls in the window.
func (w Window) Contains(b byte) bool {
	return b >= w.Lo && b <= w.Hi
}

// The three plausibility windows overlap on purpose; none is authoritative.
var (
	CelsiusWindow    = Window{Name: "celsius", Lo: 0x20, Hi: 0x80}
	FahrenheitWindow = Window{Name: "fahrenheit", Lo: 0x50, Hi: 0xA0}
	DirectWindow     = Window{Name: "direct", Lo: 0x30, Hi: 0x60}
)

// WindowSet is a bitmask over a classifier's windows, bit i for window i.
type WindowSet uint8

// Has reports whether window i matched.
func (s WindowSet) Has(i int) bool {
	return s&(1<<uint(i)) != 0
}

// Empty reports whether no window matched.
func (s WindowSet) Empty() bool {
	return s == 0
}

// Classifier holds the tunable parameters. The zero value accepts nothing; use
// New or Default.
type Classifier struct {
	allow   map[uint32]struct{}
	rangeLo uint32
	rangeHi uint32
	windows []Window
}

// Option tunes a Classifier.
type Option func(*Classifier)

// WithKnownIDs replaces the allow-list.
func WithKnownIDs(ids ...uint32) Option {
	return func(c *Classifier) {
		c.allow = make(map[uint32]struct{}, len(ids))
		for _, id := range ids {
			c.allow[id] = struct{}{}
		}
	}
}

// WithRange replaces the inclusive identifier range.
func WithRange(lo, hi uint32) Option {
	return func(c *Classifier) {
		c.rangeLo, c.rangeHi = lo, hi
	}
}

// WithWindows replaces the plausibility windows. At most 8 are used.
func WithWindows(w ...Window) Option {
	return func(c *Classifier) {
		if len(w) > 8 {
			w = w[:8]
		}
		c.windows = append([]Window(nil), w...)
	}
}

// New builds a classifier from the defaults and applies opts.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		rangeLo: HVACRangeLo,
		rangeHi: HVACRangeHi,
		windows: []Window{CelsiusWindow, FahrenheitWindow, DirectWindow},
	}
	WithKnownIDs(KnownIDs...)(c)
	for _, o := range opts {
		o(c)
	}
	return c
}

var defaultClassifier = New()

// Default returns the shared default classifier.
func Default() *Classifier {
	return defaultClassifier
}

// Windows returns the configured windows in bit order.
func (c *Classifier) Windows() []Window {
	return c.windows
}

// AllowedID is the identifier gate.
func (c *Classifier) AllowedID(id uint32) bool {
	if _, ok := c.allow[id]; ok {
		return true
	}
	if id >= c.rangeLo && id <= c.rangeHi {
		return true
	}
	return id == OBDResponseID
}

// Match returns every window containing b.
func (c *Classifier) Match(b byte) WindowSet {
	var set WindowSet
	for i, w := range c.windows {
		if w.Contains(b) {
			set |= 1 << uint(i)
		}
	}
	return set
}

// IsTemperatureCandidate applies the identifier gate, then returns true on the
// first byte inside any window.
func (c *Classifier) IsTemperatureCandidate(id uint32, data []byte) bool {
	if !c.AllowedID(id) {
		return false
	}
	for _, b := range data {
		if !c.Match(b).Empty() {
			return true
		}
	}
	return false
}

// Names renders the window names in set, joined with '+'.
func (c *Classifier) Names(set WindowSet) string {
	var parts []string
	for i, w := range c.windows {
		if set.Has(i) {
			parts = append(parts, w.Name)
		}
	}
	return strings.Join(parts, "+")
}

// IsTemperatureCandidate runs the default classifier.
func IsTemperatureCandidate(id uint32, data []byte) bool {
	return defaultClassifier.IsTemperatureCandidate(id, data)
}
