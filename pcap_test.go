package climabus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketCANPacket(id uint32, data ...byte) []byte {
	pkt := make([]byte, 16)
	binary.BigEndian.PutUint32(pkt, id)
	pkt[4] = byte(len(data))
	copy(pkt[8:], data)
	return pkt
}

func writeCapture(t *testing.T, lt layers.LinkType, pkts ...[]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, lt))
	for i, p := range pkts {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000, int64(i)*int64(100*time.Millisecond)),
			CaptureLength: len(p),
			Length:        len(p),
		}
		require.NoError(t, w.WritePacket(ci, p))
	}
	return &buf
}

func TestPcapReader(t *testing.T) {
	buf := writeCapture(t, LinkTypeSocketCAN,
		socketCANPacket(0x3D3, 0x37, 0x32, 0x37, 0x30),
		socketCANPacket(0x123|canRTRFlag),
		socketCANPacket(0x18DAF110|canEFFFlag, 0x02, 0x10),
	)
	pr, err := NewPcapReader(buf)
	require.NoError(t, err)
	var bad []error
	pr.OnError = func(err error) { bad = append(bad, err) }

	f, err := pr.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3D3), f.Identifier)
	assert.False(t, f.Extended)
	assert.Equal(t, []byte{0x37, 0x32, 0x37, 0x30}, f.Data)
	assert.Equal(t, time.Duration(time.Unix(1700000000, 0).UnixNano()), f.Stamp)

	f, err = pr.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x18DAF110), f.Identifier)
	assert.True(t, f.Extended)
	assert.Equal(t, 200*time.Millisecond, f.Stamp-time.Duration(time.Unix(1700000000, 0).UnixNano()))

	_, err = pr.Next()
	assert.Equal(t, io.EOF, err)

	require.Len(t, bad, 1)
	var pe *ParseError
	require.True(t, errors.As(bad[0], &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "remote frame", pe.Reason)
	assert.Equal(t, 3, pr.Packets())
}

func TestPcapReaderRejectsOtherLinkTypes(t *testing.T) {
	buf := writeCapture(t, layers.LinkTypeEthernet)
	_, err := NewPcapReader(buf)
	assert.Error(t, err)
}

func TestDecodeSocketCANErrors(t *testing.T) {
	_, err := decodeSocketCAN([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrTraceLine))

	pkt := socketCANPacket(0x100 | canERRFlag)
	_, err = decodeSocketCAN(pkt)
	assert.Error(t, err)

	pkt = socketCANPacket(0x100, 1, 2)
	pkt[4] = 9
	_, err = decodeSocketCAN(pkt)
	assert.Error(t, err)
}

func TestOpenTracePicksReader(t *testing.T) {
	src, err := OpenTrace(strings.NewReader("3D4#41\n"), "drive.log", nil)
	require.NoError(t, err)
	_, isText := src.(*TraceReader)
	assert.True(t, isText)
	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3D4), f.Identifier)

	src, err = OpenTrace(writeCapture(t, LinkTypeSocketCAN, socketCANPacket(0x3B2, 0xFF)), "drive.PCAP", nil)
	require.NoError(t, err)
	_, isPcap := src.(*PcapReader)
	assert.True(t, isPcap)
	f, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3B2), f.Identifier)
}
