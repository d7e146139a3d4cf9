// Package motionplan converts a 2D path description into a time-parameterized
// motion profile, validates it against kinematic limits and field geometry,
// and searches for improved control-point placements.
package motionplan

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/pathplan/spatialmath"
)

// HeadingPolicy determines the robot's heading along a path segment. Exactly
// one policy is active per waypoint; the set of implementations is sealed so
// switches over it can be exhaustive.
type HeadingPolicy interface {
	isHeadingPolicy()
}

// ConstantHeading holds a fixed heading for the whole segment.
type ConstantHeading struct {
	Degrees float64
}

// LinearHeading interpolates between two headings by arc-length fraction
// along the segment, through the shortest angular path.
type LinearHeading struct {
	StartDegrees float64
	EndDegrees   float64
}

// TangentialHeading follows the path's instantaneous direction of travel,
// optionally flipped 180 degrees for robots driving in reverse.
type TangentialHeading struct {
	Reverse bool
}

func (ConstantHeading) isHeadingPolicy()   {}
func (LinearHeading) isHeadingPolicy()     {}
func (TangentialHeading) isHeadingPolicy() {}

// Waypoint is a field position in inches plus the heading policy that governs
// the approach to it.
type Waypoint struct {
	Point   r2.Point
	Heading HeadingPolicy
}

// PathSegment is one Bezier curve: zero or more interior control points plus
// a terminal waypoint. Together with the previous segment's terminal point
// (or the global start) it defines a curve of degree len(ControlPoints)+1.
type PathSegment struct {
	ID            uuid.UUID
	ControlPoints []r2.Point
	End           Waypoint
}

// NewPathSegment creates a PathSegment with a fresh identifier.
func NewPathSegment(end Waypoint, controlPoints ...r2.Point) PathSegment {
	return PathSegment{ID: uuid.New(), ControlPoints: controlPoints, End: end}
}

// Action is one entry of a Sequence: drive a path segment, hold position, or
// rotate in place. The set of implementations is sealed.
type Action interface {
	isAction()
}

// PathAction drives the referenced path segment.
type PathAction struct {
	SegmentID uuid.UUID
}

// WaitAction holds position and heading for the given duration in milliseconds.
type WaitAction struct {
	DurationMS float64
}

// RotateAction turns in place to the target heading through the shortest
// signed direction.
type RotateAction struct {
	TargetDegrees float64
}

func (PathAction) isAction()   {}
func (WaitAction) isAction()   {}
func (RotateAction) isAction() {}

// Sequence is the authoritative execution order of actions, independent of
// segment storage order.
type Sequence []Action

// RepairSequence enforces the 1:1 invariant between Path actions and
// segments: dangling Path references are pruned, duplicate references keep
// only their first occurrence, and unreferenced segments are appended in
// storage order. The input sequence is not modified.
func RepairSequence(seq Sequence, segments []PathSegment) Sequence {
	known := make(map[uuid.UUID]bool, len(segments))
	for _, seg := range segments {
		known[seg.ID] = true
	}
	repaired := make(Sequence, 0, len(seq)+len(segments))
	referenced := make(map[uuid.UUID]bool, len(segments))
	for _, action := range seq {
		if pa, ok := action.(PathAction); ok {
			if !known[pa.SegmentID] || referenced[pa.SegmentID] {
				continue
			}
			referenced[pa.SegmentID] = true
		}
		repaired = append(repaired, action)
	}
	for _, seg := range segments {
		if !referenced[seg.ID] {
			repaired = append(repaired, PathAction{SegmentID: seg.ID})
		}
	}
	return repaired
}

// PlanRequest is the immutable snapshot handed to every planning entry point.
// The planner never mutates it; results are always returned as new values.
type PlanRequest struct {
	Start    Waypoint
	Segments []PathSegment
	Sequence Sequence
	Limits   KinematicLimits
	Field    FieldBounds
}

// Copy returns a deep copy of the request. The optimizer mutates copies so
// the caller-owned request is never touched.
func (req *PlanRequest) Copy() *PlanRequest {
	segments := make([]PathSegment, len(req.Segments))
	for i, seg := range req.Segments {
		control := make([]r2.Point, len(seg.ControlPoints))
		copy(control, seg.ControlPoints)
		segments[i] = PathSegment{ID: seg.ID, ControlPoints: control, End: seg.End}
	}
	sequence := make(Sequence, len(req.Sequence))
	copy(sequence, req.Sequence)
	return &PlanRequest{
		Start:    req.Start,
		Segments: segments,
		Sequence: sequence,
		Limits:   req.Limits,
		Field:    req.Field,
	}
}

func (req *PlanRequest) segmentByID(id uuid.UUID) (PathSegment, bool) {
	for _, seg := range req.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return PathSegment{}, false
}

// resolvedPath is a Path action bound to its segment and the curve built from
// the carried-forward start point.
type resolvedPath struct {
	segment      PathSegment
	segmentIndex int
	curve        *spatialmath.BezierCurve
}

// resolvedAction is one sequence entry after repair, with path actions bound
// to their curves.
type resolvedAction struct {
	path   *resolvedPath
	wait   *WaitAction
	rotate *RotateAction
}

// resolveActions repairs the sequence and chains the segments' curves
// together, each starting where the previous path action ended.
func (req *PlanRequest) resolveActions() []resolvedAction {
	seq := RepairSequence(req.Sequence, req.Segments)
	resolved := make([]resolvedAction, 0, len(seq))
	cursor := req.Start.Point
	segmentIndex := 0
	for _, action := range seq {
		switch a := action.(type) {
		case PathAction:
			seg, ok := req.segmentByID(a.SegmentID)
			if !ok {
				continue // unreachable after repair
			}
			curve := spatialmath.NewBezierCurve(cursor, seg.ControlPoints, seg.End.Point)
			resolved = append(resolved, resolvedAction{path: &resolvedPath{
				segment:      seg,
				segmentIndex: segmentIndex,
				curve:        curve,
			}})
			cursor = seg.End.Point
			segmentIndex++
		case WaitAction:
			wait := a
			resolved = append(resolved, resolvedAction{wait: &wait})
		case RotateAction:
			rotate := a
			resolved = append(resolved, resolvedAction{rotate: &rotate})
		}
	}
	return resolved
}

// validate rejects caller contract violations: nil requests and non-finite
// coordinates. Planning outcomes (bad limits, colliding paths) are never
// errors; they surface as Issues instead.
func (req *PlanRequest) validate() error {
	if req == nil {
		return errors.New("plan request must not be nil")
	}
	if !finitePoint(req.Start.Point) {
		return newNonFiniteError("start point", req.Start.Point)
	}
	for i, seg := range req.Segments {
		if !finitePoint(seg.End.Point) {
			return errors.Wrapf(newNonFiniteError("segment end", seg.End.Point), "segment %d", i)
		}
		for j, cp := range seg.ControlPoints {
			if !finitePoint(cp) {
				return errors.Wrapf(newNonFiniteError("control point", cp), "segment %d control point %d", i, j)
			}
		}
	}
	for _, action := range req.Sequence {
		switch a := action.(type) {
		case WaitAction:
			if math.IsNaN(a.DurationMS) || math.IsInf(a.DurationMS, 0) || a.DurationMS < 0 {
				return errors.Errorf("wait duration must be a non-negative finite number of ms, got %v", a.DurationMS)
			}
		case RotateAction:
			if math.IsNaN(a.TargetDegrees) || math.IsInf(a.TargetDegrees, 0) {
				return errors.Errorf("rotate target must be finite, got %v", a.TargetDegrees)
			}
		}
	}
	return nil
}

func finitePoint(pt r2.Point) bool {
	return !math.IsNaN(pt.X) && !math.IsInf(pt.X, 0) && !math.IsNaN(pt.Y) && !math.IsInf(pt.Y, 0)
}
