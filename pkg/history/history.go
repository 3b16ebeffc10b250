// Package history keeps a short circular history of raw bytes for every CAN
// identifier seen, counts byte changes and caches the classifier verdict for
// the most recent frame.
//
// The table is a fixed arena: entries are created once, never evicted, and a
// frame with an unseen identifier is dropped when the table is full. All
// backing storage is allocated by NewStore so Ingest does not allocate.
package history

import (
	"math"
	"time"

	"github.com/climabus/climabus/pkg/classify"
	"github.com/climabus/climabus/pkg/decode"
)

const (
	// MaxDataLen is the classic CAN payload size.
	MaxDataLen = 8
	// DefaultMaxIDs is the default number of identifiers tracked.
	DefaultMaxIDs = 30
	// DefaultDepth is the default number of history slots per identifier.
	DefaultDepth = 10
)

// ByteAnalysis is the cached verdict for one byte of the latest frame that
// matched at least one plausibility window.
type ByteAnalysis struct {
	Index      int
	Raw        byte
	Windows    classify.WindowSet
	Hypotheses [decode.NumMethods]decode.Signal
}

// Plausible returns the hypotheses inside the plausible temperature range.
func (a ByteAnalysis) Plausible() []decode.Signal {
	var out []decode.Signal
	for _, h := range a.Hypotheses {
		if h.Plausible() {
			out = append(out, h)
		}
	}
	return out
}

// Message is one tracked identifier.
type Message struct {
	id     uint32
	length int

	// data[i][slot] is byte i as written at slot.
	data    [MaxDataLen][]byte
	stamps  []time.Time
	changes [MaxDataLen]uint16
	cursor  int
	ingests uint64

	candidate bool
	analysis  [MaxDataLen]ByteAnalysis
	analyzed  int
}

// ID returns the CAN identifier.
func (m *Message) ID() uint32 { return m.id }

// Length returns the DLC of the most recent frame.
func (m *Message) Length() int { return m.length }

// Depth returns the number of history slots.
func (m *Message) Depth() int { return len(m.stamps) }

// Cursor returns the slot the next frame will be written to.
func (m *Message) Cursor() int { return m.cursor }

// Ingests returns the number of frames recorded for this identifier.
func (m *Message) Ingests() uint64 { return m.ingests }

// ChangeCount returns the lifetime change count of byte i.
func (m *Message) ChangeCount(i int) int {
	if i < 0 || i >= MaxDataLen {
		return 0
	}
	return int(m.changes[i])
}

// ChangeCounts returns all eight counters.
func (m *Message) ChangeCounts() [MaxDataLen]uint16 { return m.changes }

// IsCandidate is the classifier verdict for the latest frame.
func (m *Message) IsCandidate() bool { return m.candidate }

// CandidateValue is the offset40 reading of the first window-matching byte
// when the latest frame is a candidate and that reading is plausible.
func (m *Message) CandidateValue() (float64, bool) {
	if !m.candidate || m.analyzed == 0 {
		return 0, false
	}
	c := m.analysis[0].Hypotheses[0].Celsius
	if !decode.Plausible(c) {
		return 0, false
	}
	return c, true
}

// Analysis returns the cached per-byte verdicts for the latest frame.
func (m *Message) Analysis() []ByteAnalysis {
	return m.analysis[:m.analyzed]
}

// AnalysisFor returns the cached verdict for byte i, if it matched a window.
func (m *Message) AnalysisFor(i int) (ByteAnalysis, bool) {
	for _, a := range m.analysis[:m.analyzed] {
		if a.Index == i {
			return a, true
		}
	}
	return ByteAnalysis{}, false
}

// Temperatures returns the plausible hypotheses cached for byte i.
func (m *Message) Temperatures(i int) []decode.Signal {
	a, ok := m.AnalysisFor(i)
	if !ok {
		return nil
	}
	return a.Plausible()
}

func (m *Message) prev() int {
	return (m.cursor + len(m.stamps) - 1) % len(m.stamps)
}

// Latest returns a copy of the most recent payload.
func (m *Message) Latest() []byte {
	if m.ingests == 0 {
		return nil
	}
	p := m.prev()
	out := make([]byte, m.length)
	for i := range out {
		out[i] = m.data[i][p]
	}
	return out
}

// History returns byte i's populated slots, oldest first.
func (m *Message) History(i int) []byte {
	if i < 0 || i >= MaxDataLen {
		return nil
	}
	depth := len(m.stamps)
	out := make([]byte, 0, depth)
	for n := 0; n < depth; n++ {
		slot := (m.cursor + n) % depth
		if m.stamps[slot].IsZero() {
			continue
		}
		out = append(out, m.data[i][slot])
	}
	return out
}

// Store is the fixed capacity table.
type Store struct {
	classifier *classify.Classifier
	depth      int
	entries    []Message
	index      map[uint32]int
	dropped    uint64
}

// Option tunes a Store.
type Option func(*Store)

// WithClassifier replaces the default classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(s *Store) {
		s.classifier = c
	}
}

// NewStore allocates a table for maxIDs identifiers with depth slots each.
// Non-positive arguments fall back to the defaults; depth is at least 2.
func NewStore(maxIDs, depth int, opts ...Option) *Store {
	if maxIDs <= 0 {
		maxIDs = DefaultMaxIDs
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth < 2 {
		depth = 2
	}
	s := &Store{
		classifier: classify.Default(),
		depth:      depth,
		entries:    make([]Message, 0, maxIDs),
		index:      make(map[uint32]int, maxIDs),
	}
	// one backing block per concern, sliced per entry
	bytesBlock := make([]byte, maxIDs*MaxDataLen*depth)
	stampBlock := make([]time.Time, maxIDs*depth)
	s.entries = s.entries[:maxIDs]
	for e := range s.entries {
		m := &s.entries[e]
		m.stamps = stampBlock[e*depth : (e+1)*depth : (e+1)*depth]
		for i := 0; i < MaxDataLen; i++ {
			off := (e*MaxDataLen + i) * depth
			m.data[i] = bytesBlock[off : off+depth : off+depth]
		}
	}
	s.entries = s.entries[:0]
	for _, o := range opts {
		o(s)
	}
	return s
}

// Cap returns the identifier capacity.
func (s *Store) Cap() int { return cap(s.entries) }

// Len returns the number of tracked identifiers.
func (s *Store) Len() int { return len(s.entries) }

// Depth returns the history depth.
func (s *Store) Depth() int { return s.depth }

// Dropped returns how many frames were ignored because the table was full.
func (s *Store) Dropped() uint64 { return s.dropped }

// Get returns the entry for id.
func (s *Store) Get(id uint32) (*Message, bool) {
	idx, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.entries[idx], true
}

// Messages returns the entries in creation order.
func (s *Store) Messages() []*Message {
	out := make([]*Message, len(s.entries))
	for i := range s.entries {
		out[i] = &s.entries[i]
	}
	return out
}

// Ingest records a frame. It returns the entry and whether any of the first
// len(data) bytes changed against the previous slot. A nil entry means the
// frame was dropped because the table is full.
func (s *Store) Ingest(id uint32, data []byte, now time.Time) (*Message, bool) {
	m := s.lookupOrCreate(id)
	if m == nil {
		s.dropped++
		return nil, false
	}
	if len(data) > MaxDataLen {
		data = data[:MaxDataLen]
	}

	cur := m.cursor
	prev := m.prev()
	m.length = len(data)
	m.stamps[cur] = now
	m.ingests++

	compare := !m.stamps[prev].IsZero() && prev != cur
	changed := false
	for i, b := range data {
		m.data[i][cur] = b
		if compare && m.data[i][prev] != b {
			if m.changes[i] < math.MaxUint16 {
				m.changes[i]++
			}
			changed = true
		}
	}
	m.cursor = (cur + 1) % len(m.stamps)

	s.classifyLatest(m, data)
	return m, changed
}

func (s *Store) classifyLatest(m *Message, data []byte) {
	m.candidate = s.classifier.IsTemperatureCandidate(m.id, data)
	m.analyzed = 0
	for i, b := range data {
		set := s.classifier.Match(b)
		if set.Empty() {
			continue
		}
		m.analysis[m.analyzed] = ByteAnalysis{
			Index:      i,
			Raw:        b,
			Windows:    set,
			Hypotheses: decode.Hypotheses(b),
		}
		m.analyzed++
	}
}

func (s *Store) lookupOrCreate(id uint32) *Message {
	if idx, ok := s.index[id]; ok {
		return &s.entries[idx]
	}
	if len(s.entries) == cap(s.entries) {
		return nil
	}
	idx := len(s.entries)
	s.entries = s.entries[:idx+1]
	m := &s.entries[idx]
	m.id = id
	m.length = 0
	m.cursor = 0
	m.ingests = 0
	m.changes = [MaxDataLen]uint16{}
	m.candidate = false
	m.analyzed = 0
	for i := range m.stamps {
		m.stamps[i] = time.Time{}
	}
	s.index[id] = idx
	return m
}
