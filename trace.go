package climabus

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"go.einride.tech/can"
)

// ParseTraceLine decodes one line of a recorded trace. Two layouts are
// accepted:
//
//	CSV:     <ms>,<any>,0x<id>,<len>,0x<b0>,...,0x<b7>
//	candump: (<sec.usec>) <iface> <id>#<hex>   or bare cansend <id>#<hex>
//
// Blank lines and lines starting with '#' return ok false and no error.
// CSV byte fields that are missing or not 0x-prefixed read as zero and the
// payload is trimmed to the length field when it is present.
func ParseTraceLine(line string) (f *CANFrame, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false, nil
	}
	if strings.Contains(line, ",") {
		f, err = parseCSVLine(line)
	} else {
		f, err = parseCandumpLine(line)
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func parseCSVLine(line string) (*CANFrame, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 8 {
		return nil, &ParseError{Text: line, Reason: "too few fields"}
	}
	idField := strings.TrimSpace(parts[2])
	if !strings.HasPrefix(idField, "0x") {
		return nil, &ParseError{Text: line, Reason: "identifier is not 0x prefixed"}
	}
	id, err := strconv.ParseUint(idField[2:], 16, 32)
	if err != nil {
		return nil, &ParseError{Text: line, Reason: "bad identifier"}
	}

	data := make([]byte, MaxDataLen)
	for i := 0; i < MaxDataLen && 4+i < len(parts); i++ {
		v := strings.TrimSpace(parts[4+i])
		if !strings.HasPrefix(v, "0x") {
			continue
		}
		b, err := strconv.ParseUint(v[2:], 16, 8)
		if err != nil {
			return nil, &ParseError{Text: line, Reason: "bad data byte " + strconv.Itoa(i)}
		}
		data[i] = byte(b)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(parts[3])); err == nil && n >= 0 && n <= MaxDataLen {
		data = data[:n]
	}

	f := NewFrame(uint32(id), data)
	f.Extended = id > 0x7FF
	if ms, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
		f.Stamp = time.Duration(ms * float64(time.Millisecond))
	}
	return f, nil
}

func parseCandumpLine(line string) (*CANFrame, error) {
	fields := strings.Fields(line)
	var stamp time.Duration
	if strings.HasPrefix(fields[0], "(") {
		sec, err := strconv.ParseFloat(strings.Trim(fields[0], "()"), 64)
		if err != nil {
			return nil, &ParseError{Text: line, Reason: "bad timestamp"}
		}
		stamp = time.Duration(sec * float64(time.Second))
		fields = fields[1:]
	}
	// drop the interface name when present
	if len(fields) > 1 {
		fields = fields[len(fields)-1:]
	}
	if len(fields) == 0 {
		return nil, &ParseError{Text: line, Reason: "missing frame"}
	}
	var cf can.Frame
	if err := cf.UnmarshalString(fields[0]); err != nil {
		return nil, &ParseError{Text: line, Reason: err.Error()}
	}
	if cf.IsRemote {
		return nil, &ParseError{Text: line, Reason: "remote frame"}
	}
	f := NewFrame(cf.ID, cf.Data[:cf.Length])
	f.Extended = cf.IsExtended
	f.Stamp = stamp
	return f, nil
}

// TraceReader yields frames from a trace stream, skipping comments and
// reporting malformed lines through OnError.
type TraceReader struct {
	scanner *bufio.Scanner
	line    int
	// OnError is called for each malformed line; nil ignores them.
	OnError func(error)
}

func NewTraceReader(r io.Reader) *TraceReader {
	return &TraceReader{scanner: bufio.NewScanner(r)}
}

// Next returns the next frame, or io.EOF at the end of the stream.
func (t *TraceReader) Next() (*CANFrame, error) {
	for t.scanner.Scan() {
		t.line++
		f, ok, err := ParseTraceLine(t.scanner.Text())
		if err != nil {
			if pe, isParse := err.(*ParseError); isParse {
				pe.Line = t.line
			}
			if t.OnError != nil {
				t.OnError(err)
			}
			continue
		}
		if !ok {
			continue
		}
		return f, nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Line returns the number of lines consumed so far.
func (t *TraceReader) Line() int { return t.line }
