package climabus

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// slcanMaxLine bounds a single adapter line; longer garbage is truncated.
const slcanMaxLine = 64

// SLCan drives a Lawicel/CANable serial adapter in listen-only mode.
type SLCan struct {
	*BaseAdapter
	port   serial.Port
	closed atomic.Bool
}

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "SLCan",
		Description:        "Canable SLCan adapter, listen-only",
		RequiresSerialPort: true,
		New:                NewSLCan,
	}); err != nil {
		panic(err)
	}
}

func NewSLCan(cfg *AdapterConfig) (Adapter, error) {
	return &SLCan{
		BaseAdapter: NewBaseAdapter("SLCan", cfg),
	}, nil
}

var slcanRates = map[float64]string{
	10:   "S0",
	20:   "S1",
	50:   "S2",
	100:  "S3",
	125:  "S4",
	250:  "S5",
	500:  "S6",
	750:  "S7",
	1000: "S8",
}

// slcanRate returns the bitrate command for a rate in kbit/s.
func slcanRate(kbit float64) (string, error) {
	cmd, ok := slcanRates[kbit]
	if !ok {
		return "", Unrecoverable(fmt.Errorf("unsupported CAN rate %g kbit/s", kbit))
	}
	return cmd, nil
}

func (sl *SLCan) Open(ctx context.Context) error {
	rate, err := slcanRate(sl.cfg.CANRate)
	if err != nil {
		return err
	}
	mode := &serial.Mode{
		BaudRate: sl.cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(sl.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open com port %q : %w", sl.cfg.Port, err)
	}
	if err := p.SetReadTimeout(3 * time.Millisecond); err != nil {
		p.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	sl.port = p

	p.ResetOutputBuffer()
	p.ResetInputBuffer()

	// close any session left open, set bitrate, open listen-only
	for _, cmd := range []string{"C", rate, "L"} {
		sl.Debug(">> " + cmd)
		if _, err := p.Write([]byte(cmd + "\r")); err != nil {
			p.Close()
			return fmt.Errorf("failed to write %q: %w", cmd, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	go sl.recvManager(ctx)
	return nil
}

func (sl *SLCan) Close() error {
	sl.BaseAdapter.Close()
	if sl.port == nil || sl.closed.Swap(true) {
		return nil
	}
	sl.port.Write([]byte("C\r"))
	time.Sleep(10 * time.Millisecond)
	return sl.port.Close()
}

func (sl *SLCan) recvManager(ctx context.Context) {
	buf := make([]byte, 0, slcanMaxLine)
	readBuf := make([]byte, 32)
	for ctx.Err() == nil {
		n, err := sl.port.Read(readBuf)
		if err != nil {
			if !sl.closed.Load() {
				sl.Fatal(fmt.Errorf("failed to read com port: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		buf = sl.parse(buf, readBuf[:n])
	}
}

// parse processes the read data and returns any remaining partial data.
func (sl *SLCan) parse(buf, readBuf []byte) []byte {
	for _, b := range readBuf {
		switch b {
		case '\r':
			if len(buf) == 0 {
				continue
			}
			switch buf[0] {
			case 't', 'T':
				sl.Debug("<< " + string(buf))
				f, err := decodeSLCanFrame(buf)
				if err != nil {
					sl.Warn(fmt.Sprintf("%v: %X", err, buf))
					break
				}
				sl.deliver(f)
			case 'r', 'R':
				// remote frames carry no data
			default:
				sl.Debug("unknown << " + string(buf))
			}
			buf = buf[:0]
		case 0x07:
			sl.Warn("adapter rejected command")
			buf = buf[:0]
		default:
			if len(buf) < slcanMaxLine {
				buf = append(buf, b)
			}
		}
	}
	return buf
}

// decodeSLCanFrame decodes a 't' (11-bit) or 'T' (29-bit) line without the
// trailing CR. A trailing timestamp field, if enabled, is ignored.
func decodeSLCanFrame(buff []byte) (*CANFrame, error) {
	idLen := 3
	if buff[0] == 'T' {
		idLen = 8
	}
	if len(buff) < 1+idLen+1 {
		return nil, fmt.Errorf("short frame")
	}
	id, err := strconv.ParseUint(string(buff[1:1+idLen]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to decode identifier: %w", err)
	}
	dataLen, err := strconv.ParseUint(string(buff[1+idLen]), 16, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data length: %w", err)
	}
	if dataLen > MaxDataLen {
		return nil, fmt.Errorf("invalid data length: %d", dataLen)
	}
	start := 2 + idLen
	end := start + int(dataLen)*2
	if len(buff) < end {
		return nil, fmt.Errorf("truncated frame body")
	}
	data, err := hex.DecodeString(string(buff[start:end]))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame body: %w", err)
	}
	if buff[0] == 'T' {
		return NewExtendedFrame(uint32(id), data), nil
	}
	return NewFrame(uint32(id), data), nil
}
