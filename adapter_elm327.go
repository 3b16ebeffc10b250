package climabus

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "ELM327",
		Description:        "ELM327/STN OBD dongle in monitor-all mode",
		RequiresSerialPort: true,
		New:                NewELM327,
	}); err != nil {
		panic(err)
	}
}

// ELM327 puts an OBD dongle in ATMA (monitor all) mode. The dongle never
// transmits while monitoring; any byte written stops it.
type ELM327 struct {
	*BaseAdapter
	port     serial.Port
	protocol string
	filter   string
	mask     string
	closed   atomic.Bool
}

var elmProtocols = map[float64]string{
	500: "ATSP6",
	250: "ATSP8",
}

func NewELM327(cfg *AdapterConfig) (Adapter, error) {
	el := &ELM327{BaseAdapter: NewBaseAdapter("ELM327", cfg)}
	proto, ok := elmProtocols[el.cfg.CANRate]
	if !ok {
		return nil, Unrecoverable(fmt.Errorf("unsupported CAN rate %g kbit/s", el.cfg.CANRate))
	}
	el.protocol = proto
	el.filter, el.mask = elmFilter(el.cfg.CANFilter)
	return el, nil
}

// elmFilter computes the hardware code/mask pair letting every id through.
// It may pass more than asked for; BaseAdapter filters exactly.
func elmFilter(ids []uint32) (filter, mask string) {
	if len(ids) == 0 {
		return "ATCF000", "ATCM000"
	}
	var filt uint32 = 0x7FF
	var or uint32
	for _, id := range ids {
		filt &= id
		or |= id
	}
	m := ^(filt ^ or) & 0x7FF
	return fmt.Sprintf("ATCF%03X", filt&m), fmt.Sprintf("ATCM%03X", m)
}

func (el *ELM327) Open(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: el.cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(el.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open com port %q : %w", el.cfg.Port, err)
	}
	if err := p.SetReadTimeout(3 * time.Millisecond); err != nil {
		p.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	el.port = p
	p.ResetOutputBuffer()
	p.ResetInputBuffer()

	initCmds := []string{
		"ATZ",       // reset
		"ATE0",      // echo off
		"ATS0",      // spaces off
		"ATH1",      // headers on
		"ATCAF0",    // automatic formatting off
		el.protocol, // CAN protocol
		el.mask,
		el.filter,
	}
	for _, cmd := range initCmds {
		el.Debug(">> " + cmd)
		if _, err := p.Write([]byte(cmd + "\r")); err != nil {
			p.Close()
			return fmt.Errorf("failed to write %q: %w", cmd, err)
		}
		if cmd == "ATZ" {
			time.Sleep(500 * time.Millisecond)
		} else {
			time.Sleep(15 * time.Millisecond)
		}
	}
	p.ResetInputBuffer()
	if err := el.monitor(); err != nil {
		p.Close()
		return err
	}

	go el.recvManager(ctx)
	return nil
}

func (el *ELM327) monitor() error {
	el.Debug(">> ATMA")
	if _, err := el.port.Write([]byte("ATMA\r")); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}
	return nil
}

func (el *ELM327) Close() error {
	el.BaseAdapter.Close()
	if el.port == nil || el.closed.Swap(true) {
		return nil
	}
	el.port.Write([]byte("\r"))
	time.Sleep(50 * time.Millisecond)
	el.port.Write([]byte("ATZ\r"))
	time.Sleep(50 * time.Millisecond)
	el.port.ResetInputBuffer()
	return el.port.Close()
}

func (el *ELM327) recvManager(ctx context.Context) {
	buf := make([]byte, 0, slcanMaxLine)
	readBuf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := el.port.Read(readBuf)
		if err != nil {
			if !el.closed.Load() {
				el.Fatal(fmt.Errorf("failed to read com port: %w", err))
			}
			return
		}
		if n == 0 {
			continue
		}
		buf = el.parse(buf, readBuf[:n])
	}
}

// parse splits the read data into lines and returns any partial line.
func (el *ELM327) parse(buf, readBuf []byte) []byte {
	for _, b := range readBuf {
		switch b {
		case '\r', '\n':
			if len(buf) == 0 {
				continue
			}
			line := string(buf)
			buf = buf[:0]
			if f, err := decodeELMLine(line); err == nil {
				el.deliver(f)
				continue
			}
			el.Debug("<< " + line)
			if strings.Contains(line, "BUFFER FULL") {
				el.Warn("adapter buffer overflow, frames lost")
			}
		case '>':
			// the prompt means monitoring stopped, usually after BUFFER FULL
			buf = buf[:0]
			if el.closed.Load() {
				continue
			}
			if err := el.monitor(); err != nil {
				el.Fatal(err)
			}
		default:
			if len(buf) < slcanMaxLine {
				buf = append(buf, b)
			}
		}
	}
	return buf
}

// decodeELMLine decodes a monitor line printed with headers on and spaces
// off: three hex digits of 11-bit identifier (eight for 29-bit) followed by
// the payload.
func decodeELMLine(line string) (*CANFrame, error) {
	line = strings.TrimSpace(line)
	idLen := 3
	if len(line)%2 == 0 && len(line) >= 8 {
		idLen = 8
	}
	if len(line) < idLen || (len(line)-idLen)%2 != 0 {
		return nil, fmt.Errorf("malformed monitor line %q", line)
	}
	id, err := strconv.ParseUint(line[:idLen], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to decode identifier: %w", err)
	}
	data, err := hex.DecodeString(line[idLen:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame body: %w", err)
	}
	if len(data) > MaxDataLen {
		return nil, fmt.Errorf("invalid data length: %d", len(data))
	}
	if idLen == 8 {
		return NewExtendedFrame(uint32(id), data), nil
	}
	return NewFrame(uint32(id), data), nil
}
