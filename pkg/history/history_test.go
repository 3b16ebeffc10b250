package history

import (
	"math"
	"testing"
	"time"

	"github.com/climabus/climabus/pkg/decode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(n int) time.Time {
	return t0.Add(time.Duration(n) * 10 * time.Millisecond)
}

func TestFirstIngestCountsNothing(t *testing.T) {
	s := NewStore(4, 10)
	m, changed := s.Ingest(0x3D3, []byte{0x37, 0x32, 0x37, 0x30}, at(0))
	require.NotNil(t, m)
	assert.False(t, changed)
	assert.Equal(t, [MaxDataLen]uint16{}, m.ChangeCounts())
	assert.Equal(t, 4, m.Length())
	assert.Equal(t, 1, m.Cursor())
	assert.Equal(t, []byte{0x37, 0x32, 0x37, 0x30}, m.Latest())
}

func TestIdenticalFrameIsIdempotent(t *testing.T) {
	s := NewStore(4, 10)
	frame := []byte{0x01, 0x02, 0x03}
	s.Ingest(0x100, frame, at(0))
	s.Ingest(0x100, []byte{0x01, 0x09, 0x03}, at(1))
	m, changed := s.Ingest(0x100, []byte{0x01, 0x09, 0x03}, at(2))
	assert.False(t, changed)
	assert.Equal(t, 0, m.ChangeCount(0))
	assert.Equal(t, 1, m.ChangeCount(1))
	assert.Equal(t, 0, m.ChangeCount(2))
}

func TestChangeCountsAccumulate(t *testing.T) {
	s := NewStore(4, 3)
	for n, b := range []byte{0x10, 0x11, 0x11, 0x12, 0x10, 0x10, 0x13} {
		s.Ingest(0x3B3, []byte{0xAA, b}, at(n))
	}
	m, ok := s.Get(0x3B3)
	require.True(t, ok)
	assert.Equal(t, 0, m.ChangeCount(0))
	assert.Equal(t, 4, m.ChangeCount(1))
	assert.Equal(t, 7, int(m.Ingests()))
	assert.Equal(t, 7%3, m.Cursor())
	assert.Equal(t, []byte{0x10, 0x10, 0x13}, m.History(1))
}

func TestCapacityNeverExceeded(t *testing.T) {
	const max = 5
	s := NewStore(max, 4)
	for id := uint32(0); id < max; id++ {
		s.Ingest(0x300+id, []byte{byte(id)}, at(int(id)))
	}
	before, _ := s.Get(0x300)
	beforeCounts := before.ChangeCounts()

	m, _ := s.Ingest(0x400, []byte{0x55}, at(10))
	assert.Nil(t, m, "sixth identifier is dropped")
	_, ok := s.Get(0x400)
	assert.False(t, ok)
	assert.Equal(t, max, s.Len())
	assert.Equal(t, uint64(1), s.Dropped())

	for id := uint32(0x500); id < 0x600; id++ {
		s.Ingest(id, []byte{0x01}, at(20))
	}
	assert.Equal(t, max, s.Len())

	after, ok := s.Get(0x300)
	require.True(t, ok)
	assert.Equal(t, beforeCounts, after.ChangeCounts())
	assert.Equal(t, []byte{0x00}, after.Latest())

	// existing identifiers still ingest
	_, changed := s.Ingest(0x300, []byte{0x01}, at(30))
	assert.True(t, changed)
}

func TestLengthShrinkKeepsStaleBytes(t *testing.T) {
	s := NewStore(2, 4)
	s.Ingest(0x3D3, []byte{0x01, 0x02, 0x03, 0x04}, at(0))
	s.Ingest(0x3D3, []byte{0x01, 0x02, 0x03, 0x05}, at(1))
	m, changed := s.Ingest(0x3D3, []byte{0x01, 0x02}, at(2))
	assert.False(t, changed)
	assert.Equal(t, 2, m.Length())
	assert.Equal(t, 1, m.ChangeCount(3), "byte 3 is excluded while the frame is short")
	assert.Equal(t, []byte{0x01, 0x02}, m.Latest())
	assert.Equal(t, []byte{0x04, 0x05}, m.History(3)[:2])
}

func TestCountersSaturate(t *testing.T) {
	s := NewStore(1, 2)
	for n := 0; n < math.MaxUint16+10; n++ {
		s.Ingest(0x123, []byte{byte(n & 1)}, at(n))
	}
	m, _ := s.Get(0x123)
	assert.Equal(t, math.MaxUint16, m.ChangeCount(0))
}

func TestClassificationCachedPerIngest(t *testing.T) {
	s := NewStore(4, 4)
	m, _ := s.Ingest(0x3B3, []byte{0x42, 0x11, 0x55, 0xFF}, at(0))
	require.True(t, m.IsCandidate())

	an := m.Analysis()
	require.Len(t, an, 2)
	assert.Equal(t, 0, an[0].Index)
	assert.Equal(t, 2, an[1].Index)
	assert.Equal(t, byte(0x55), an[1].Raw)
	assert.True(t, an[1].Windows.Has(0) && an[1].Windows.Has(1) && an[1].Windows.Has(2))
	assert.InDelta(t, decode.GenericTemp(0x55, decode.MethodHalfDegree), an[1].Hypotheses[1].Celsius, 1e-9)

	v, ok := m.CandidateValue()
	require.True(t, ok)
	assert.InDelta(t, float64(0x42)-40, v, 1e-9)

	temps := m.Temperatures(2)
	assert.NotEmpty(t, temps)
	for _, sig := range temps {
		assert.True(t, sig.Plausible())
	}

	// recomputed, not accumulated
	m, _ = s.Ingest(0x3B3, []byte{0x00, 0xFF}, at(1))
	assert.False(t, m.IsCandidate())
	assert.Empty(t, m.Analysis())
	_, ok = m.CandidateValue()
	assert.False(t, ok)
}

func TestNonCandidateIDStillTracked(t *testing.T) {
	s := NewStore(4, 4)
	m, _ := s.Ingest(0x123, []byte{0x55}, at(0))
	require.NotNil(t, m)
	assert.False(t, m.IsCandidate())
	assert.Len(t, m.Analysis(), 1, "window matches are cached even when the id gate fails")
}

func TestEntriesDoNotShareStorage(t *testing.T) {
	s := NewStore(3, 3)
	s.Ingest(0x1, []byte{0x11, 0x11}, at(0))
	s.Ingest(0x2, []byte{0x22, 0x22}, at(0))
	a, _ := s.Get(0x1)
	b, _ := s.Get(0x2)
	assert.Equal(t, []byte{0x11, 0x11}, a.Latest())
	assert.Equal(t, []byte{0x22, 0x22}, b.Latest())
	assert.Len(t, s.Messages(), 2)
	assert.Equal(t, uint32(0x1), s.Messages()[0].ID())
}
