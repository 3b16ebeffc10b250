package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/climabus/climabus/pkg/candidate"
	"github.com/climabus/climabus/pkg/decode"
	"github.com/climabus/climabus/pkg/history"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type fakeSource struct {
	id     uint32
	counts [8]int
	temps  map[int][]decode.Signal
}

func (f *fakeSource) ID() uint32                         { return f.id }
func (f *fakeSource) Length() int                        { return 8 }
func (f *fakeSource) ChangeCount(i int) int              { return f.counts[i] }
func (f *fakeSource) Temperatures(i int) []decode.Signal { return f.temps[i] }

func TestTopBytesOrdering(t *testing.T) {
	src := &fakeSource{id: 0x3D3, counts: [8]int{5, 9, 0, 9, 1, 0, 5, 0}}
	top := TopBytes(src, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []int{1, 3, 0}, []int{top[0].Index, top[1].Index, top[2].Index})
	assert.Equal(t, 9, top[0].Changes)
	assert.Equal(t, 5, top[2].Changes)
}

func TestTopBytesSkipsQuietBytes(t *testing.T) {
	src := &fakeSource{counts: [8]int{0, 0, 2}}
	top := TopBytes(src, 3)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].Index)

	assert.Empty(t, TopBytes(&fakeSource{}, 3))
}

func TestTopBytesDropsImplausible(t *testing.T) {
	src := &fakeSource{
		counts: [8]int{3},
		temps: map[int][]decode.Signal{0: {
			{Method: decode.MethodOffset40, Celsius: 21},
			{Method: decode.MethodDirect, Celsius: 200},
		}},
	}
	top := TopBytes(src, 3)
	require.Len(t, top, 1)
	require.Len(t, top[0].Values, 1)
	assert.Equal(t, decode.MethodOffset40, top[0].Values[0].Method)
}

func TestTotalChanges(t *testing.T) {
	assert.Equal(t, 12, TotalChanges(&fakeSource{counts: [8]int{1, 2, 3, 0, 0, 0, 0, 6}}))
}

func TestTraceLine(t *testing.T) {
	assert.Equal(t, "CAN ID: 0x3B3 | Data: 42 11 55 | Len: 3 [TEMP?]", TraceLine(0x3B3, []byte{0x42, 0x11, 0x55}, true))
	assert.Equal(t, "CAN ID: 0x123 | Data: | Len: 0", TraceLine(0x123, nil, false))
}

func TestDetailLine(t *testing.T) {
	line := DetailLine(1500*time.Millisecond, 0x3B3, []byte{0x42, 0x00})
	assert.True(t, strings.HasPrefix(line, "1500 | ID: 0x3B3 | Len: 2 | Data: 42 00"))
	assert.Contains(t, line, "B0: 26.0°C")
	assert.Contains(t, line, "B0*: -7.0°C")
	assert.Contains(t, line, "B1: -40.0°C")
	assert.NotContains(t, line, "B1*: -40.0°C", "identical readings print once")
}

func TestDeltaLine(t *testing.T) {
	tr := candidate.NewTracker(2)
	tr.Ingest(0x3D3, []byte{0x10, 0x42}, time.Unix(0, 0))
	u, _ := tr.Ingest(0x3D3, []byte{0x10, 0x64}, time.Unix(1, 0))
	assert.Equal(t, "★ CHANGE in 0x3D3: 10 [42→64] (10.0°C)", DeltaLine(&u))

	u, _ = tr.Ingest(0x3D3, []byte{0x10, 0x64}, time.Unix(2, 0))
	assert.Equal(t, "", DeltaLine(&u))
}

func TestAnalysisLines(t *testing.T) {
	s := history.NewStore(2, 4)
	m, _ := s.Ingest(0x3B3, []byte{0x42, 0x11, 0x55}, time.Unix(0, 0))
	lines := AnalysisLines(m, nil)
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "0x3B3")
	assert.Equal(t, "  [Byte changes] 0:0 1:0 2:0", lines[1])
	assert.Contains(t, lines[2], "[Byte 0 potential temp] Raw: 66")
	assert.Contains(t, lines[2], "A: 26.0°C")
}

func TestCandidateTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidateTable(&buf, nil))
	assert.Contains(t, buf.String(), "No temperature candidates")

	tr := candidate.NewTracker(2)
	tr.Ingest(0x3D3, []byte{0x40, 0x50}, time.Unix(0, 0))
	tr.Ingest(0x3D3, []byte{0x41, 0x50}, time.Unix(1, 0))
	tr.Ingest(0x3D3, []byte{0x42, 0x51}, time.Unix(2, 0))

	buf.Reset()
	require.NoError(t, WriteCandidateTable(&buf, tr.Candidates()))
	out := buf.String()
	assert.Contains(t, out, "ID     | Changes | Most Active Bytes")
	assert.Contains(t, out, "0x3D3 |       3 | B0:2 (-7.0°C) B1:1 (0.5°C)")
}

func TestSurveyTableFiltersCandidates(t *testing.T) {
	s := history.NewStore(4, 4)
	s.Ingest(0x3B3, []byte{0x42}, time.Unix(0, 0))
	s.Ingest(0x123, []byte{0x01}, time.Unix(0, 0))

	var buf bytes.Buffer
	require.NoError(t, WriteSurveyTable(&buf, s.Messages(), true))
	assert.Contains(t, buf.String(), "0x3B3")
	assert.NotContains(t, buf.String(), "0x123")

	buf.Reset()
	require.NoError(t, WriteSurveyTable(&buf, s.Messages(), false))
	assert.Contains(t, buf.String(), "0x123")
}

func TestActivityChart(t *testing.T) {
	srcs := []Source{
		&fakeSource{id: 0x3D3, counts: [8]int{4, 1}},
		&fakeSource{id: 0x3C4, counts: [8]int{0, 0, 0, 0, 0, 0, 9, 2}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteActivityChart(&buf, "candidate activity", srcs))
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "candidate activity")
	assert.Contains(t, out, "0x3D3")
	assert.Contains(t, out, "0x3C4")
	assert.Contains(t, out, `"B7"`)
}
