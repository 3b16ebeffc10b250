package display

import (
	"testing"
	"time"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestClassify(t *testing.T) {
	tests := []struct {
		f    float64
		want TempClass
	}{
		{-10, Cold},
		{49.9, Cold},
		{50, Normal},
		{76.9, Normal},
		{77, Warm},
		{94.9, Warm},
		{95, Hot},
		{120, Hot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.f), "%.1f", tt.f)
	}
	assert.Equal(t, "warm", Warm.String())
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "--", Outside(climate.Snapshot{}))
	assert.Equal(t, "90°F", Outside(climate.Snapshot{OutsideF: 89.6, HasOutside: true}))
	assert.Equal(t, "OFF", Setpoint(0, false))
	assert.Equal(t, "72°F", Setpoint(72, true))
	assert.Equal(t, "██░░ 2", Level(2, 4))
	assert.Equal(t, "████ 4", Level(9, 4))
}

func TestClimateLinesMarkPending(t *testing.T) {
	s := climate.Snapshot{Driver: 72, HasDriver: true, Fan: 3, Changed: climate.DriverChanged}
	lines := ClimateLines(s)
	require.Len(t, lines, 5)
	assert.Equal(t, "*Driver:    72°F", lines[1])
	assert.Equal(t, " Passenger: OFF", lines[2])
	assert.Equal(t, " Fan:       ███░░░░ 3", lines[3])
}

func TestStatusLines(t *testing.T) {
	lines := StatusLines(monitor.Status{Uptime: 3500 * time.Millisecond})
	assert.Contains(t, lines, "waiting for CAN frames")
	assert.Equal(t, "uptime:     3s", lines[0])

	lines = StatusLines(monitor.Status{Frames: 10, LastID: 0x3D3, Tracked: 2})
	assert.Contains(t, lines, "last id:    0x3D3")
	assert.Contains(t, lines, "tracked:    2")
}
