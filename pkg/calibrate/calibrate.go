// Package calibrate fits a linear formula between a raw bus value and
// temperatures read off a reference thermometer.
package calibrate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrTooFewPoints is returned until two distinct raw values are recorded.
var ErrTooFewPoints = errors.New("need at least two points with distinct raw values")

// Point pairs a raw value with the observed temperature.
type Point struct {
	Raw    float64
	Actual float64
}

// Residual is one point checked against a fit.
type Residual struct {
	Point
	Predicted float64
	Error     float64
}

// Fit is actual = Slope*raw + Intercept.
type Fit struct {
	Slope     float64
	Intercept float64
	AvgError  float64
	Residuals []Residual
}

// Predict applies the formula.
func (f Fit) Predict(raw float64) float64 {
	return f.Slope*raw + f.Intercept
}

func (f Fit) String() string {
	return fmt.Sprintf("temp = %.6f * raw + %.3f (avg error %.2f)", f.Slope, f.Intercept, f.AvgError)
}

// Session collects calibration points.
type Session struct {
	points []Point
}

// Add records a point.
func (s *Session) Add(raw, actual float64) {
	s.points = append(s.points, Point{Raw: raw, Actual: actual})
}

// Points returns the recorded points.
func (s *Session) Points() []Point {
	return s.points
}

// Len returns the number of points.
func (s *Session) Len() int {
	return len(s.points)
}

// Fit runs an ordinary least squares fit over the recorded points.
func (s *Session) Fit() (Fit, error) {
	return FitPoints(s.points)
}

// FitPoints runs an ordinary least squares fit over pts.
func FitPoints(pts []Point) (Fit, error) {
	if len(pts) < 2 {
		return Fit{}, ErrTooFewPoints
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	distinct := false
	for i, p := range pts {
		xs[i], ys[i] = p.Raw, p.Actual
		if p.Raw != pts[0].Raw {
			distinct = true
		}
	}
	if !distinct {
		return Fit{}, ErrTooFewPoints
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	fit := Fit{Slope: beta, Intercept: alpha}
	var sum float64
	for _, p := range pts {
		pred := fit.Predict(p.Raw)
		e := math.Abs(p.Actual - pred)
		sum += e
		fit.Residuals = append(fit.Residuals, Residual{Point: p, Predicted: pred, Error: e})
	}
	fit.AvgError = sum / float64(len(pts))
	return fit, nil
}
