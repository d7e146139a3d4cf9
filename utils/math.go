// Package utils contains math and parallelization helpers shared across the planner.
package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// NormalizeDeg maps an angle in degrees onto (-180, 180].
func NormalizeDeg(ang float64) float64 {
	ang = math.Mod(math.Mod(ang, 360)+360, 360)
	if ang > 180 {
		ang -= 360
	}
	return ang
}

// ShortestAngleDeg returns the signed shortest rotation, in degrees, that
// takes the `from` angle onto the `to` angle. The result is in (-180, 180].
func ShortestAngleDeg(from, to float64) float64 {
	return NormalizeDeg(to - from)
}

// AngleDiffDeg returns the unsigned closest difference between two angles.
// The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return float64(180) - math.Abs(math.Abs(a1-a2)-float64(180))
}

// Float64AlmostEqual returns whether two floats are within epsilon of each other.
func Float64AlmostEqual(v1, v2, epsilon float64) bool {
	return math.Abs(v1-v2) <= epsilon
}

// Math.pow( x, 2 ) is slow, this is faster
func Square(n float64) float64 {
	return n * n
}

// Clamp restricts a value to the closed interval [lower, upper].
func Clamp(value, lower, upper float64) float64 {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
