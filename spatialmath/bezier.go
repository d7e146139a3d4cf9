// Package spatialmath defines the 2D geometric primitives used for planning
// robot paths on a field: Bezier curves, polygons, and oriented rectangles.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// maxArcLengthSamples bounds the cost of sampling a single curve regardless of degree.
const maxArcLengthSamples = 48

// BezierCurve is an immutable 2D Bezier curve of arbitrary degree, defined by
// its full control polygon: the start point, zero or more interior control
// points, and the end point. Degree = len(polygon) - 1.
type BezierCurve struct {
	polygon []r2.Point
}

// NewBezierCurve instantiates a curve from a start point, interior control
// points, and an end point. A curve with no interior control points is a
// straight line (degree 1).
func NewBezierCurve(start r2.Point, control []r2.Point, end r2.Point) *BezierCurve {
	polygon := make([]r2.Point, 0, len(control)+2)
	polygon = append(polygon, start)
	polygon = append(polygon, control...)
	polygon = append(polygon, end)
	return &BezierCurve{polygon: polygon}
}

// Degree returns the polynomial degree of the curve.
func (c *BezierCurve) Degree() int {
	return len(c.polygon) - 1
}

// Start returns the first point of the control polygon.
func (c *BezierCurve) Start() r2.Point {
	return c.polygon[0]
}

// End returns the last point of the control polygon.
func (c *BezierCurve) End() r2.Point {
	return c.polygon[len(c.polygon)-1]
}

// ControlPolygon returns a copy of the full control polygon.
func (c *BezierCurve) ControlPolygon() []r2.Point {
	polygon := make([]r2.Point, len(c.polygon))
	copy(polygon, c.polygon)
	return polygon
}

// deCasteljau evaluates a control polygon at t by repeated linear interpolation.
func deCasteljau(polygon []r2.Point, t float64) r2.Point {
	if len(polygon) == 1 {
		return polygon[0]
	}
	work := make([]r2.Point, len(polygon))
	copy(work, polygon)
	for level := len(work) - 1; level > 0; level-- {
		for i := 0; i < level; i++ {
			work[i] = work[i].Add(work[i+1].Sub(work[i]).Mul(t))
		}
	}
	return work[0]
}

// hodograph returns the control polygon of the curve's derivative.
func hodograph(polygon []r2.Point) []r2.Point {
	n := len(polygon) - 1
	if n < 1 {
		return []r2.Point{{}}
	}
	derived := make([]r2.Point, n)
	for i := 0; i < n; i++ {
		derived[i] = polygon[i+1].Sub(polygon[i]).Mul(float64(n))
	}
	return derived
}

// Point evaluates the curve position at t in [0, 1] using De Casteljau's algorithm.
func (c *BezierCurve) Point(t float64) r2.Point {
	return deCasteljau(c.polygon, t)
}

// Derivative evaluates the first derivative of the curve at t.
func (c *BezierCurve) Derivative(t float64) r2.Point {
	return deCasteljau(hodograph(c.polygon), t)
}

// SecondDerivative evaluates the second derivative of the curve at t.
// Curves of degree < 2 have an identically zero second derivative.
func (c *BezierCurve) SecondDerivative(t float64) r2.Point {
	if c.Degree() < 2 {
		return r2.Point{}
	}
	return deCasteljau(hodograph(hodograph(c.polygon)), t)
}

// Tangent returns a unit vector along the curve's direction of travel at t.
// Where the first derivative vanishes (coincident control points) it nudges t
// inward and finally falls back to the start-to-end chord.
func (c *BezierCurve) Tangent(t float64) r2.Point {
	d := c.Derivative(t)
	if d.Norm() < 1e-9 {
		nudged := math.Min(math.Max(t, 1e-4), 1-1e-4)
		d = c.Derivative(nudged)
	}
	if d.Norm() < 1e-9 {
		d = c.End().Sub(c.Start())
	}
	if d.Norm() < 1e-9 {
		return r2.Point{X: 1}
	}
	return d.Normalize()
}

// Curvature returns the signed-magnitude curvature at t, computed from the
// cross product of the first and second derivatives over speed cubed.
// Straight (degree-1) and degenerate curves have zero curvature.
func (c *BezierCurve) Curvature(t float64) float64 {
	if c.Degree() < 2 {
		return 0
	}
	d1 := c.Derivative(t)
	d2 := c.SecondDerivative(t)
	speed := d1.Norm()
	if speed < 1e-9 {
		return 0
	}
	return math.Abs(d1.Cross(d2)) / (speed * speed * speed)
}

// ArcLengthSample pairs a curve parameter with the cumulative distance
// traveled along the curve to reach it.
type ArcLengthSample struct {
	T        float64
	Distance float64
}

// DefaultArcLengthResolution scales the sample count with the number of
// interior control points, so higher-degree curves are sampled more densely,
// capped at maxArcLengthSamples.
func DefaultArcLengthResolution(controlPoints int) int {
	resolution := 16 + 8*controlPoints
	if resolution > maxArcLengthSamples {
		return maxArcLengthSamples
	}
	return resolution
}

// SampleArcLength discretizes the curve into resolution+1 samples at uniform
// parameter spacing, accumulating chord lengths into cumulative distances.
// A resolution below 1 selects the default for the curve's degree.
func (c *BezierCurve) SampleArcLength(resolution int) []ArcLengthSample {
	if resolution < 1 {
		resolution = DefaultArcLengthResolution(len(c.polygon) - 2)
	}
	if resolution > maxArcLengthSamples {
		resolution = maxArcLengthSamples
	}
	samples := make([]ArcLengthSample, 0, resolution+1)
	samples = append(samples, ArcLengthSample{T: 0, Distance: 0})
	prev := c.polygon[0]
	dist := 0.0
	for i := 1; i <= resolution; i++ {
		t := float64(i) / float64(resolution)
		pt := c.Point(t)
		dist += pt.Sub(prev).Norm()
		samples = append(samples, ArcLengthSample{T: t, Distance: dist})
		prev = pt
	}
	return samples
}

// Length returns the approximate arc length of the curve at the default resolution.
func (c *BezierCurve) Length() float64 {
	samples := c.SampleArcLength(0)
	return samples[len(samples)-1].Distance
}
