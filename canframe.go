package climabus

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

// MaxDataLen is the classic CAN payload size.
const MaxDataLen = 8

// CANFrame is one received frame. Stamp is set by the adapter when the frame
// carries its own capture time (trace replay); live adapters leave it zero
// and the engine stamps on ingest.
type CANFrame struct {
	Identifier uint32
	Extended   bool
	Data       []byte
	Stamp      time.Duration
}

// NewFrame creates a new CANFrame and copies the data slice, truncated to
// MaxDataLen.
func NewFrame(identifier uint32, data []byte) *CANFrame {
	if len(data) > MaxDataLen {
		data = data[:MaxDataLen]
	}
	d := make([]byte, len(data))
	copy(d, data)
	return &CANFrame{
		Identifier: identifier,
		Data:       d,
	}
}

// NewExtendedFrame creates a new 29-bit CANFrame and copies the data slice
func NewExtendedFrame(identifier uint32, data []byte) *CANFrame {
	frame := NewFrame(identifier, data)
	frame.Extended = true
	return frame
}

// Returns the length of the data (DLC)
func (f *CANFrame) DLC() int {
	return len(f.Data)
}

var (
	blue  = color.New(color.FgHiBlue).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
	green = color.New(color.FgGreen).SprintfFunc()
)

func (f *CANFrame) idString() string {
	if f.Extended {
		return fmt.Sprintf("0x%08X", f.Identifier)
	}
	return fmt.Sprintf("0x%03X", f.Identifier)
}

func (f *CANFrame) hexView() string {
	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	return fmt.Sprintf("%-23s", hexView.String())
}

func (f *CANFrame) binView() string {
	var binView strings.Builder
	for i, b := range f.Data {
		binView.WriteString(fmt.Sprintf("%08b", b))
		if i != len(f.Data)-1 {
			binView.WriteString(" ")
		}
	}
	return fmt.Sprintf("%-71s", binView.String())
}

func (f *CANFrame) String() string {
	var out strings.Builder
	out.WriteString(f.idString() + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(f.hexView())
	out.WriteString(" || ")
	out.WriteString(f.binView())
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Data))
	return out.String()
}

func (f *CANFrame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("%s", f.idString()) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(f.hexView())
	out.WriteString(" || ")
	out.WriteString(red("%s", f.binView()))
	out.WriteString(" || ")
	out.WriteString(blue("%s", onlyPrintable(f.Data)))
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 126 {
			out.WriteString("·")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
