// Package candidate tracks the current and previous payload of each
// identifier for a focused live session and reports what just changed.
//
// It deliberately duplicates part of the history store's bookkeeping: the
// history store surveys many identifiers under every hypothesis, while a
// candidate session follows one decode hypothesis and carries a dirty flag so
// that only deltas are printed.
package candidate

import (
	"math"
	"time"

	"github.com/climabus/climabus/pkg/decode"
)

const (
	// MaxDataLen is the classic CAN payload size.
	MaxDataLen = 8
	// DefaultMaxCandidates is the default table capacity.
	DefaultMaxCandidates = 20
	// Method is the single hypothesis applied to changed bytes.
	Method = decode.MethodHalfDegree
)

// Candidate is one tracked identifier.
type Candidate struct {
	id         uint32
	length     int
	last       [MaxDataLen]byte
	current    [MaxDataLen]byte
	changes    [MaxDataLen]uint32
	decoded    [MaxDataLen]float64
	hasDecoded [MaxDataLen]bool
	changed    bool
	lastChange time.Time
}

// ID returns the CAN identifier.
func (c *Candidate) ID() uint32 { return c.id }

// Length returns the DLC of the most recent frame.
func (c *Candidate) Length() int { return c.length }

// Current returns the most recent payload.
func (c *Candidate) Current() []byte {
	out := make([]byte, c.length)
	copy(out, c.current[:c.length])
	return out
}

// Last returns the previous value of each byte of the current payload.
func (c *Candidate) Last() []byte {
	out := make([]byte, c.length)
	copy(out, c.last[:c.length])
	return out
}

// ChangeCount returns the change count of byte i.
func (c *Candidate) ChangeCount(i int) int {
	if i < 0 || i >= MaxDataLen {
		return 0
	}
	return int(c.changes[i])
}

// TotalChanges sums every byte counter.
func (c *Candidate) TotalChanges() int {
	total := 0
	for _, n := range c.changes {
		total += int(n)
	}
	return total
}

// Decoded returns the last temperature decoded for byte i, if any.
func (c *Candidate) Decoded(i int) (float64, bool) {
	if i < 0 || i >= MaxDataLen || !c.hasDecoded[i] {
		return 0, false
	}
	return c.decoded[i], true
}

// Temperatures returns the last decoded value of byte i when plausible.
func (c *Candidate) Temperatures(i int) []decode.Signal {
	v, ok := c.Decoded(i)
	if !ok || !decode.Plausible(v) {
		return nil
	}
	return []decode.Signal{{Method: Method, Celsius: v}}
}

// HasChanged reports whether the latest ingest changed any byte.
func (c *Candidate) HasChanged() bool { return c.changed }

// LastChange returns the time of the most recent change, or of creation.
func (c *Candidate) LastChange() time.Time { return c.lastChange }

// Delta is one byte that changed on an ingest.
type Delta struct {
	Index    int
	From, To byte
	Celsius  float64
}

// Plausible reports whether the decoded value is worth printing.
func (d Delta) Plausible() bool {
	return decode.Plausible(d.Celsius)
}

// Update describes the outcome of one ingest.
type Update struct {
	ID      uint32
	Length  int
	Data    [MaxDataLen]byte
	Changed bool
	deltas  [MaxDataLen]Delta
	n       int
}

// Deltas returns the bytes that changed, in index order.
func (u *Update) Deltas() []Delta {
	return u.deltas[:u.n]
}

// Delta returns the change for byte i, if it changed.
func (u *Update) Delta(i int) (Delta, bool) {
	for _, d := range u.deltas[:u.n] {
		if d.Index == i {
			return d, true
		}
	}
	return Delta{}, false
}

// Tracker is the fixed capacity table.
type Tracker struct {
	entries []Candidate
	index   map[uint32]int
	dropped uint64
}

// NewTracker allocates a table for max identifiers.
func NewTracker(max int) *Tracker {
	if max <= 0 {
		max = DefaultMaxCandidates
	}
	return &Tracker{
		entries: make([]Candidate, 0, max),
		index:   make(map[uint32]int, max),
	}
}

// Cap returns the identifier capacity.
func (t *Tracker) Cap() int { return cap(t.entries) }

// Len returns the number of tracked identifiers.
func (t *Tracker) Len() int { return len(t.entries) }

// Dropped returns how many frames were ignored because the table was full.
func (t *Tracker) Dropped() uint64 { return t.dropped }

// Get returns the entry for id.
func (t *Tracker) Get(id uint32) (*Candidate, bool) {
	idx, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.entries[idx], true
}

// Candidates returns the entries in creation order.
func (t *Tracker) Candidates() []*Candidate {
	out := make([]*Candidate, len(t.entries))
	for i := range t.entries {
		out[i] = &t.entries[i]
	}
	return out
}

// Ingest records a frame. ok is false when the frame was dropped because the
// table is full or the payload is empty. A new entry is seeded with the frame
// itself, so its first ingest never reports a change.
func (t *Tracker) Ingest(id uint32, data []byte, now time.Time) (u Update, ok bool) {
	if len(data) == 0 {
		return u, false
	}
	if len(data) > MaxDataLen {
		data = data[:MaxDataLen]
	}
	c := t.lookupOrCreate(id, data, now)
	if c == nil {
		t.dropped++
		return u, false
	}

	c.length = len(data)
	u.ID = id
	u.Length = len(data)
	copy(u.Data[:], data)

	for i, b := range data {
		if c.current[i] == b {
			continue
		}
		c.last[i] = c.current[i]
		c.current[i] = b
		if c.changes[i] < math.MaxUint32 {
			c.changes[i]++
		}
		c.decoded[i] = decode.GenericTemp(b, Method)
		c.hasDecoded[i] = true
		u.deltas[u.n] = Delta{Index: i, From: c.last[i], To: b, Celsius: c.decoded[i]}
		u.n++
	}

	c.changed = u.n > 0
	if c.changed {
		c.lastChange = now
	}
	u.Changed = c.changed
	return u, true
}

func (t *Tracker) lookupOrCreate(id uint32, data []byte, now time.Time) *Candidate {
	if idx, ok := t.index[id]; ok {
		return &t.entries[idx]
	}
	if len(t.entries) == cap(t.entries) {
		return nil
	}
	idx := len(t.entries)
	t.entries = append(t.entries, Candidate{
		id:         id,
		length:     len(data),
		lastChange: now,
	})
	c := &t.entries[idx]
	copy(c.last[:], data)
	copy(c.current[:], data)
	t.index[id] = idx
	return c
}
