// Package display renders the confirmed climate signals on a terminal
// dashboard.
package display

import (
	"fmt"
	"time"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/fatih/color"
)

// TempClass buckets a Fahrenheit reading for coloring.
type TempClass int

const (
	Cold TempClass = iota
	Normal
	Warm
	Hot
)

// Classify returns the class of f: cold below 50, normal below 77, warm below
// 95, hot otherwise.
func Classify(f float64) TempClass {
	switch {
	case f < 50:
		return Cold
	case f < 77:
		return Normal
	case f < 95:
		return Warm
	default:
		return Hot
	}
}

func (c TempClass) String() string {
	switch c {
	case Cold:
		return "cold"
	case Normal:
		return "normal"
	case Warm:
		return "warm"
	case Hot:
		return "hot"
	}
	return "unknown"
}

var classColors = map[TempClass]*color.Color{
	Cold:   color.New(color.FgBlue),
	Normal: color.New(color.FgGreen),
	Warm:   color.New(color.FgYellow),
	Hot:    color.New(color.FgRed),
}

// Sprint colors s with the class color.
func (c TempClass) Sprint(s string) string {
	if col, ok := classColors[c]; ok {
		return col.Sprint(s)
	}
	return s
}

// Outside formats the outside temperature, "--" until one was decoded.
func Outside(s climate.Snapshot) string {
	if !s.HasOutside {
		return "--"
	}
	return Classify(s.OutsideF).Sprint(fmt.Sprintf("%.0f°F", s.OutsideF))
}

// Setpoint formats a setpoint, "OFF" when absent.
func Setpoint(v int, ok bool) string {
	if !ok {
		return "OFF"
	}
	return fmt.Sprintf("%d°F", v)
}

// Level draws a 0..max level as a bar of blocks.
func Level(lvl, max uint8) string {
	if lvl > max {
		lvl = max
	}
	out := make([]rune, 0, max)
	for i := uint8(0); i < max; i++ {
		if i < lvl {
			out = append(out, '█')
		} else {
			out = append(out, '░')
		}
	}
	return fmt.Sprintf("%s %d", string(out), lvl)
}

// ClimateLines renders the climate view. Values whose flag is pending are
// marked with an asterisk.
func ClimateLines(s climate.Snapshot) []string {
	mark := func(f climate.Flags) string {
		if s.Changed.Has(f) {
			return "*"
		}
		return " "
	}
	d, dok := s.DriverSetpoint()
	p, pok := s.PassengerSetpoint()
	return []string{
		fmt.Sprintf("%sOutside:   %s", mark(climate.OutsideChanged), Outside(s)),
		fmt.Sprintf("%sDriver:    %s", mark(climate.DriverChanged), Setpoint(d, dok)),
		fmt.Sprintf("%sPassenger: %s", mark(climate.PassengerChanged), Setpoint(p, pok)),
		fmt.Sprintf("%sFan:       %s", mark(climate.FanChanged), Level(s.Fan, 7)),
		fmt.Sprintf("%sDimming:   %s", mark(climate.DimChanged), Level(s.Dim, 6)),
	}
}

// StatusLines renders the engine health view.
func StatusLines(st monitor.Status) []string {
	lines := []string{
		fmt.Sprintf("uptime:     %s", st.Uptime.Truncate(time.Second)),
		fmt.Sprintf("frames:     %d", st.Frames),
	}
	if st.Frames == 0 {
		lines = append(lines, "waiting for CAN frames")
	} else {
		lines = append(lines, fmt.Sprintf("last id:    0x%03X", st.LastID))
	}
	return append(lines,
		fmt.Sprintf("tracked:    %d", st.Tracked),
		fmt.Sprintf("candidates: %d", st.Candidates),
		fmt.Sprintf("dropped:    %d/%d", st.HistoryDropped, st.CandidateDropped),
	)
}
