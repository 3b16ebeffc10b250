package climabus

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LinkTypeSocketCAN is the pcap link type of Linux SocketCAN captures, as
// written by Wireshark and tcpdump on a can interface.
const LinkTypeSocketCAN = layers.LinkType(227)

const (
	canEFFFlag = 0x80000000
	canRTRFlag = 0x40000000
	canERRFlag = 0x20000000
	canEFFMask = 0x1FFFFFFF
	canSFFMask = 0x000007FF
)

// FrameSource yields recorded frames in order and io.EOF at the end.
type FrameSource interface {
	Next() (*CANFrame, error)
}

// OpenTrace picks a reader by file name: ".pcap" files are read as SocketCAN
// captures, anything else as CSV or candump text. onError sees every
// skipped line or packet and may be nil.
func OpenTrace(r io.Reader, name string, onError func(error)) (FrameSource, error) {
	if strings.EqualFold(filepath.Ext(name), ".pcap") {
		pr, err := NewPcapReader(r)
		if err != nil {
			return nil, err
		}
		pr.OnError = onError
		return pr, nil
	}
	tr := NewTraceReader(r)
	tr.OnError = onError
	return tr, nil
}

// PcapReader yields frames from a SocketCAN pcap capture. Frame stamps are
// the capture times since the unix epoch, like candump -L.
type PcapReader struct {
	r       *pcapgo.Reader
	packets int
	// OnError is called for each packet that is not a data frame; nil ignores
	// them.
	OnError func(error)
}

func NewPcapReader(r io.Reader) (*PcapReader, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("pcap: %w", err)
	}
	if lt := pr.LinkType(); lt != LinkTypeSocketCAN {
		return nil, fmt.Errorf("pcap: link type %d is not SocketCAN", lt)
	}
	return &PcapReader{r: pr}, nil
}

// Next returns the next data frame, or io.EOF at the end of the capture.
func (p *PcapReader) Next() (*CANFrame, error) {
	for {
		data, ci, err := p.r.ReadPacketData()
		if err != nil {
			return nil, err
		}
		p.packets++
		f, err := decodeSocketCAN(data)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Line = p.packets
			}
			if p.OnError != nil {
				p.OnError(err)
			}
			continue
		}
		f.Stamp = time.Duration(ci.Timestamp.UnixNano())
		return f, nil
	}
}

// Packets returns the number of packets consumed so far.
func (p *PcapReader) Packets() int { return p.packets }

// decodeSocketCAN reads a struct can_frame: big endian id and flags, length,
// three pad bytes and the payload.
func decodeSocketCAN(data []byte) (*CANFrame, error) {
	if len(data) < 8 {
		return nil, &ParseError{Text: hex.EncodeToString(data), Reason: "short packet"}
	}
	raw := binary.BigEndian.Uint32(data[0:4])
	switch {
	case raw&canERRFlag != 0:
		return nil, &ParseError{Text: hex.EncodeToString(data), Reason: "error frame"}
	case raw&canRTRFlag != 0:
		return nil, &ParseError{Text: hex.EncodeToString(data), Reason: "remote frame"}
	}
	n := int(data[4])
	if n > MaxDataLen || 8+n > len(data) {
		return nil, &ParseError{Text: hex.EncodeToString(data), Reason: "bad length"}
	}
	if raw&canEFFFlag != 0 {
		f := NewFrame(raw&canEFFMask, data[8:8+n])
		f.Extended = true
		return f, nil
	}
	return NewFrame(raw&canSFFMask, data[8:8+n]), nil
}
