package motionplan

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/pathplan/utils"
)

// headingAt resolves the robot heading, in degrees normalized to (-180, 180],
// for a point along a segment governed by the given policy.
//
// tangent is the path's instantaneous direction of travel at the point and
// fraction is the arc-length fraction along the segment (0 at the start, 1 at
// the end). Linear policies interpolate through the shortest angular path so
// a 350° -> 10° sweep takes the 20° route rather than spinning -340°.
func headingAt(policy HeadingPolicy, tangent r2.Point, fraction float64) float64 {
	switch p := policy.(type) {
	case ConstantHeading:
		return utils.NormalizeDeg(p.Degrees)
	case LinearHeading:
		delta := utils.ShortestAngleDeg(p.StartDegrees, p.EndDegrees)
		return utils.NormalizeDeg(p.StartDegrees + delta*fraction)
	case TangentialHeading:
		deg := utils.RadToDeg(atan2Point(tangent))
		if p.Reverse {
			deg += 180
		}
		return utils.NormalizeDeg(deg)
	default:
		// Policies are sealed; a nil policy holds the prior heading by
		// resolving to tangential without reverse.
		return utils.NormalizeDeg(utils.RadToDeg(atan2Point(tangent)))
	}
}

// startHeading resolves the heading the robot holds before any motion, given
// the start waypoint's policy and the initial travel direction of the first
// path action (zero vector when the sequence starts with a wait or rotate).
func startHeading(policy HeadingPolicy, initialTangent r2.Point) float64 {
	switch p := policy.(type) {
	case LinearHeading:
		return utils.NormalizeDeg(p.StartDegrees)
	default:
		return headingAt(p, initialTangent, 0)
	}
}

func atan2Point(v r2.Point) float64 {
	if v.Norm() < 1e-12 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}
