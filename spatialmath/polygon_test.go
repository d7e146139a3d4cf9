package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func square(minX, minY, maxX, maxY float64) *Polygon {
	p, err := NewPolygon([]r2.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	})
	if err != nil {
		panic(err)
	}
	return p
}

func TestNewPolygon(t *testing.T) {
	_, err := NewPolygon([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	test.That(t, err, test.ShouldNotBeNil)

	p, err := NewPolygon([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Vertices(), test.ShouldHaveLength, 3)
}

func TestPolygonContainsPoint(t *testing.T) {
	p := square(0, 0, 10, 10)
	test.That(t, p.ContainsPoint(r2.Point{X: 5, Y: 5}), test.ShouldBeTrue)
	test.That(t, p.ContainsPoint(r2.Point{X: 11, Y: 5}), test.ShouldBeFalse)
	test.That(t, p.ContainsPoint(r2.Point{X: -1, Y: -1}), test.ShouldBeFalse)
	// edge points count as inside
	test.That(t, p.ContainsPoint(r2.Point{X: 0, Y: 5}), test.ShouldBeTrue)
}

func TestRectangleCorners(t *testing.T) {
	r := NewRectangle(r2.Point{X: 0, Y: 0}, 4, 2, 0)
	for _, corner := range r.Corners() {
		test.That(t, math.Abs(corner.X), test.ShouldAlmostEqual, 2, 1e-9)
		test.That(t, math.Abs(corner.Y), test.ShouldAlmostEqual, 1, 1e-9)
	}

	maxX, maxY := 0.0, 0.0
	for _, corner := range r.Corners() {
		if x := corner.X; x > maxX {
			maxX = x
		}
		if y := corner.Y; y > maxY {
			maxY = y
		}
	}
	test.That(t, maxX, test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, maxY, test.ShouldAlmostEqual, 1, 1e-9)

	// Rotating 90 degrees swaps the footprint's extents.
	rotated := NewRectangle(r2.Point{X: 0, Y: 0}, 4, 2, 90)
	maxX, maxY = 0.0, 0.0
	for _, corner := range rotated.Corners() {
		if x := corner.X; x > maxX {
			maxX = x
		}
		if y := corner.Y; y > maxY {
			maxY = y
		}
	}
	test.That(t, maxX, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, maxY, test.ShouldAlmostEqual, 2, 1e-9)

	test.That(t, r.ContainsPoint(r2.Point{X: 1.9, Y: 0.9}), test.ShouldBeTrue)
	test.That(t, r.ContainsPoint(r2.Point{X: 2.1, Y: 0}), test.ShouldBeFalse)
}

func TestRectanglePolygonIntersection(t *testing.T) {
	obstacle := square(40, -10, 60, 10)

	overlapping := NewRectangle(r2.Point{X: 50, Y: 0}, 18, 18, 0)
	test.That(t, overlapping.IntersectsPolygon(obstacle), test.ShouldBeTrue)

	separated := NewRectangle(r2.Point{X: 100, Y: 50}, 18, 18, 30)
	test.That(t, separated.IntersectsPolygon(obstacle), test.ShouldBeFalse)

	// A rectangle fully inside the polygon intersects it.
	inside := NewRectangle(r2.Point{X: 50, Y: 0}, 2, 2, 45)
	test.That(t, inside.IntersectsPolygon(obstacle), test.ShouldBeTrue)

	// A rectangle fully containing the polygon intersects it.
	containing := NewRectangle(r2.Point{X: 50, Y: 0}, 100, 100, 0)
	test.That(t, containing.IntersectsPolygon(obstacle), test.ShouldBeTrue)

	// Rotated rectangle clipping a corner.
	clipping := NewRectangle(r2.Point{X: 38, Y: -12}, 8, 2, 45)
	test.That(t, clipping.IntersectsPolygon(obstacle), test.ShouldBeTrue)
}

func TestRectangleContainedBy(t *testing.T) {
	keepIn := square(0, 0, 144, 144)

	inside := NewRectangle(r2.Point{X: 72, Y: 72}, 18, 18, 37)
	test.That(t, inside.ContainedBy(keepIn), test.ShouldBeTrue)

	straddling := NewRectangle(r2.Point{X: 0, Y: 72}, 18, 18, 0)
	test.That(t, straddling.ContainedBy(keepIn), test.ShouldBeFalse)

	outside := NewRectangle(r2.Point{X: -50, Y: -50}, 18, 18, 0)
	test.That(t, outside.ContainedBy(keepIn), test.ShouldBeFalse)
}

func TestObstacleConfig(t *testing.T) {
	config := ObstacleConfig{
		Type:     ObstacleTypeKeepIn,
		Label:    "field",
		Vertices: [][2]float64{{0, 0}, {144, 0}, {144, 144}, {0, 144}},
	}
	obstacle, err := config.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obstacle.KeepIn(), test.ShouldBeTrue)
	test.That(t, obstacle.Label(), test.ShouldEqual, "field")

	config.Type = "blob"
	_, err = config.ParseConfig()
	test.That(t, err, test.ShouldNotBeNil)

	config.Type = ""
	obstacle, err = config.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obstacle.KeepIn(), test.ShouldBeFalse)
}
