package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/pathplan/utils"
)

const floatEpsilon = 1e-9

// Polygon is a simple 2D polygon defined by an ordered vertex list.
// Vertices may wind in either direction; the polygon may be concave but
// must not self-intersect.
type Polygon struct {
	vertices        []r2.Point
	center          r2.Point
	boundingCircleR float64
}

// NewPolygon instantiates a new Polygon from at least three vertices.
func NewPolygon(vertices []r2.Point) (*Polygon, error) {
	if len(vertices) < 3 {
		return nil, errors.Errorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	var center r2.Point
	for _, v := range vertices {
		center = center.Add(v)
	}
	center = center.Mul(1 / float64(len(vertices)))
	boundingR := 0.0
	for _, v := range vertices {
		if d := v.Sub(center).Norm(); d > boundingR {
			boundingR = d
		}
	}
	verts := make([]r2.Point, len(vertices))
	copy(verts, vertices)
	return &Polygon{vertices: verts, center: center, boundingCircleR: boundingR}, nil
}

// Center returns the vertex centroid of the polygon.
func (p *Polygon) Center() r2.Point {
	return p.center
}

// BoundingRadius returns the radius of the bounding circle around Center.
func (p *Polygon) BoundingRadius() float64 {
	return p.boundingCircleR
}

// Vertices returns a copy of the polygon's vertex list.
func (p *Polygon) Vertices() []r2.Point {
	verts := make([]r2.Point, len(p.vertices))
	copy(verts, p.vertices)
	return verts
}

// String returns a human readable string that represents the polygon.
func (p *Polygon) String() string {
	return fmt.Sprintf("Type: Polygon | Vertices: %d | Center: X:%.1f, Y:%.1f", len(p.vertices), p.center.X, p.center.Y)
}

// ContainsPoint reports whether pt lies inside the polygon, using the
// even-odd ray casting rule. Points exactly on an edge count as inside.
func (p *Polygon) ContainsPoint(pt r2.Point) bool {
	inside := false
	n := len(p.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := p.vertices[i], p.vertices[j]
		if pointOnSegment(pt, vi, vj) {
			return true
		}
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) {
			xCross := vi.X + (pt.Y-vi.Y)/(vj.Y-vi.Y)*(vj.X-vi.X)
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// Rectangle is an oriented 2D rectangle, used as the robot footprint swept
// along a timeline. Heading is in degrees, zero pointing along +X.
type Rectangle struct {
	center          r2.Point
	halfLength      float64
	halfWidth       float64
	headingDeg      float64
	axisLong        r2.Point
	axisShort       r2.Point
	boundingCircleR float64
}

// NewRectangle instantiates an oriented rectangle centered at center, with the
// given full length along the heading direction and full width across it.
func NewRectangle(center r2.Point, length, width, headingDeg float64) *Rectangle {
	rad := utils.DegToRad(headingDeg)
	axisLong := r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}
	axisShort := r2.Point{X: -axisLong.Y, Y: axisLong.X}
	halfLength := length / 2
	halfWidth := width / 2
	return &Rectangle{
		center:          center,
		halfLength:      halfLength,
		halfWidth:       halfWidth,
		headingDeg:      headingDeg,
		axisLong:        axisLong,
		axisShort:       axisShort,
		boundingCircleR: math.Hypot(halfLength, halfWidth),
	}
}

// Center returns the rectangle's center point.
func (r *Rectangle) Center() r2.Point {
	return r.center
}

// BoundingRadius returns the circumradius of the rectangle.
func (r *Rectangle) BoundingRadius() float64 {
	return r.boundingCircleR
}

// Corners returns the rectangle's four corners in winding order.
func (r *Rectangle) Corners() [4]r2.Point {
	dl := r.axisLong.Mul(r.halfLength)
	dw := r.axisShort.Mul(r.halfWidth)
	return [4]r2.Point{
		r.center.Add(dl).Add(dw),
		r.center.Add(dl).Sub(dw),
		r.center.Sub(dl).Sub(dw),
		r.center.Sub(dl).Add(dw),
	}
}

// ContainsPoint reports whether pt lies inside the rectangle by projecting
// onto the rectangle's axes.
func (r *Rectangle) ContainsPoint(pt r2.Point) bool {
	d := pt.Sub(r.center)
	return math.Abs(d.Dot(r.axisLong)) <= r.halfLength+floatEpsilon &&
		math.Abs(d.Dot(r.axisShort)) <= r.halfWidth+floatEpsilon
}

// IntersectsPolygon reports whether the rectangle overlaps the polygon.
// A separating axis drawn from the rectangle axes or any polygon edge normal
// proves disjointness early (valid even for concave polygons, where
// separation of projections is a conservative proof); otherwise exact
// containment and edge intersection tests decide.
func (r *Rectangle) IntersectsPolygon(p *Polygon) bool {
	// bounding circle early exit, as in box-vs-box collision
	if r.center.Sub(p.center).Norm() > r.boundingCircleR+p.boundingCircleR {
		return false
	}

	axes := []r2.Point{r.axisLong, r.axisShort}
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		edge := p.vertices[(i+1)%n].Sub(p.vertices[i])
		if edge.Norm() < floatEpsilon {
			continue
		}
		axes = append(axes, r2.Point{X: -edge.Y, Y: edge.X}.Normalize())
	}
	corners := r.Corners()
	for _, axis := range axes {
		if separatingAxisTest(axis, corners[:], p.vertices) > 0 {
			return false
		}
	}

	for _, corner := range corners {
		if p.ContainsPoint(corner) {
			return true
		}
	}
	for _, vertex := range p.vertices {
		if r.ContainsPoint(vertex) {
			return true
		}
	}
	for i := 0; i < 4; i++ {
		c1, c2 := corners[i], corners[(i+1)%4]
		for j := 0; j < n; j++ {
			if segmentsIntersect(c1, c2, p.vertices[j], p.vertices[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}

// ContainedBy reports whether the rectangle lies entirely inside the polygon:
// all four corners inside and no rectangle edge crossing a polygon edge.
func (r *Rectangle) ContainedBy(p *Polygon) bool {
	corners := r.Corners()
	for _, corner := range corners {
		if !p.ContainsPoint(corner) {
			return false
		}
	}
	n := len(p.vertices)
	for i := 0; i < 4; i++ {
		c1, c2 := corners[i], corners[(i+1)%4]
		for j := 0; j < n; j++ {
			if segmentsIntersect(c1, c2, p.vertices[j], p.vertices[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}

// separatingAxisTest projects both point sets onto the given axis and returns
// the gap between their projection intervals. Per the separating hyperplane
// theorem a positive gap proves the sets do not intersect.
func separatingAxisTest(axis r2.Point, ptsA, ptsB []r2.Point) float64 {
	minA, maxA := projectOntoAxis(axis, ptsA)
	minB, maxB := projectOntoAxis(axis, ptsB)
	return math.Max(minB-maxA, minA-maxB)
}

func projectOntoAxis(axis r2.Point, pts []r2.Point) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pt := range pts {
		proj := pt.Dot(axis)
		if proj < lo {
			lo = proj
		}
		if proj > hi {
			hi = proj
		}
	}
	return lo, hi
}

// pointOnSegment reports whether pt lies on the closed segment [a, b].
func pointOnSegment(pt, a, b r2.Point) bool {
	ab := b.Sub(a)
	ap := pt.Sub(a)
	if math.Abs(ab.Cross(ap)) > floatEpsilon*math.Max(1, ab.Norm()) {
		return false
	}
	dot := ap.Dot(ab)
	return dot >= -floatEpsilon && dot <= ab.Dot(ab)+floatEpsilon
}

// segmentsIntersect reports whether closed segments [p1,p2] and [q1,q2] intersect.
func segmentsIntersect(p1, p2, q1, q2 r2.Point) bool {
	d1 := direction(q1, q2, p1)
	d2 := direction(q1, q2, p2)
	d3 := direction(p1, p2, q1)
	d4 := direction(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && pointOnSegment(p1, q1, q2)) ||
		(d2 == 0 && pointOnSegment(p2, q1, q2)) ||
		(d3 == 0 && pointOnSegment(q1, p1, p2)) ||
		(d4 == 0 && pointOnSegment(q2, p1, p2))
}

func direction(a, b, c r2.Point) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}
