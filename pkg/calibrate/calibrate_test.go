package calibrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitExactLine(t *testing.T) {
	var s Session
	// OAT style raw values: F = (raw/128 - 128) * 9/5 + 32
	for _, raw := range []float64{18944, 19200, 19456, 20480} {
		s.Add(raw, (raw/128-128)*9/5+32)
	}
	fit, err := s.Fit()
	require.NoError(t, err)
	assert.InDelta(t, 9.0/5.0/128.0, fit.Slope, 1e-9)
	assert.InDelta(t, -128*9.0/5.0+32, fit.Intercept, 1e-6)
	assert.InDelta(t, 0, fit.AvgError, 1e-6)
	assert.InDelta(t, 89.6, fit.Predict(20480), 1e-6)
	require.Len(t, fit.Residuals, 4)
	assert.Equal(t, 4, s.Len())
}

func TestFitNoisy(t *testing.T) {
	fit, err := FitPoints([]Point{{0, 1}, {1, 2}, {2, 5}})
	require.NoError(t, err)
	assert.InDelta(t, 2, fit.Slope, 1e-9)
	assert.InDelta(t, 2.0/3.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 4.0/9.0, fit.AvgError, 1e-9)
	assert.Contains(t, fit.String(), "temp = 2.000000 * raw")
}

func TestFitNeedsDistinctPoints(t *testing.T) {
	_, err := FitPoints(nil)
	assert.ErrorIs(t, err, ErrTooFewPoints)
	_, err = FitPoints([]Point{{1, 10}})
	assert.ErrorIs(t, err, ErrTooFewPoints)
	_, err = FitPoints([]Point{{1, 10}, {1, 12}})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestSavePlot(t *testing.T) {
	pts := []Point{{0, 1}, {1, 2}, {2, 5}}
	fit, err := FitPoints(pts)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "fit.png")
	require.NoError(t, SavePlot(path, "0x3C4 bytes 6,7", pts, fit))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
