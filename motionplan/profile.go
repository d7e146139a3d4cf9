package motionplan

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/pathplan/utils"
)

const (
	// Segments shorter than this are degenerate: they contribute a
	// zero-duration timeline entry and are flagged by the validator.
	zeroLengthEps = 1e-6

	// Number of timeline samples emitted for one in-place rotation.
	rotateSampleCount = 8
)

// ComputeTimeline walks the full sequence and produces the time-parameterized
// motion profile. It is a pure function over the request snapshot; the only
// errors returned are caller contract violations (nil request, NaN/Inf
// coordinates). Missing limits fall back to permissive defaults so planning
// never aborts on incomplete configuration.
func ComputeTimeline(req *PlanRequest) (*TimePrediction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := req.Limits.Validate(); err != nil {
		return nil, err
	}
	limits, _ := req.Limits.withDefaults()
	return computeTimeline(req, limits), nil
}

// computeTimeline is the shared core for ComputeTimeline, Inspect and the
// optimizer's fitness evaluation; the request is assumed validated and the
// limits defaulted.
func computeTimeline(req *PlanRequest, limits KinematicLimits) *TimePrediction {
	actions := req.resolveActions()

	p := &profiler{
		limits:   limits,
		position: req.Start.Point,
	}

	var initialTangent r2.Point
	for _, action := range actions {
		if action.path != nil {
			initialTangent = action.path.curve.Tangent(0)
			break
		}
	}
	p.heading = startHeading(req.Start.Heading, initialTangent)
	p.samples = append(p.samples, TimelineSample{
		Position:     p.position,
		Heading:      p.heading,
		SegmentIndex: -1,
	})

	for i, action := range actions {
		switch {
		case action.path != nil:
			p.profilePath(action.path, p.exitSpeed(actions, i))
		case action.wait != nil:
			p.profileWait(action.wait)
		case action.rotate != nil:
			p.profileRotate(action.rotate)
		}
	}

	pred := &TimePrediction{
		TotalDistance: p.distance,
		SegmentTimes:  p.segmentTimes,
		Timeline:      p.samples,
	}
	pred.finalize()
	return pred
}

// profiler carries the end state of each action forward as the start state of
// the next while assembling the timeline.
type profiler struct {
	limits       KinematicLimits
	samples      []TimelineSample
	segmentTimes []float64
	time         float64
	distance     float64
	position     r2.Point
	heading      float64
	entrySpeed   float64
}

// centripetalSpeedCap returns the highest speed permitted at the given
// curvature so lateral acceleration stays within the wheels' traction budget.
func (p *profiler) centripetalSpeedCap(curvature float64) float64 {
	limit := p.limits.MaxVelocity
	if curvature > 1e-9 {
		limit = math.Min(limit, math.Sqrt(p.limits.lateralAccelLimit()/curvature))
	}
	return limit
}

// exitSpeed decides how fast the robot may be moving when the path action at
// index i ends. Any non-path successor (wait, rotate, end of sequence) forces
// a full stop. A following path carries speed through the junction, bounded by
// the centripetal caps on both sides and scaled by the cosine of the tangent
// turn angle; turns of 90 degrees or more stop completely.
func (p *profiler) exitSpeed(actions []resolvedAction, i int) float64 {
	if i+1 >= len(actions) || actions[i+1].path == nil {
		return 0
	}
	cur := actions[i].path
	next := actions[i+1].path
	capExit := p.centripetalSpeedCap(cur.curve.Curvature(1))
	capEntry := p.centripetalSpeedCap(next.curve.Curvature(0))
	cosTurn := cur.curve.Tangent(1).Dot(next.curve.Tangent(0))
	if cosTurn <= 0 {
		return 0
	}
	return math.Min(capExit, capEntry) * cosTurn
}

// profilePath converts one Bezier segment into timeline samples using a
// three-phase trapezoidal model: per-sample speed caps from the configured
// maximum and the centripetal limit, a reverse integration pass from the exit
// speed so the robot can always stop or match the next segment's entry speed
// within the available distance, and a forward integration pass from the
// carried entry speed bounded by the acceleration limit.
func (p *profiler) profilePath(rp *resolvedPath, exitSpeed float64) {
	arc := rp.curve.SampleArcLength(0)
	total := arc[len(arc)-1].Distance

	if total < zeroLengthEps {
		// Degenerate segment: zero-duration entry, flagged by the validator.
		tangent := p.headingVector()
		p.heading = headingAt(rp.segment.End.Heading, tangent, 1)
		p.samples = append(p.samples, TimelineSample{
			Time:         p.time,
			Position:     p.position,
			Heading:      p.heading,
			SegmentIndex: rp.segmentIndex,
		})
		p.segmentTimes = append(p.segmentTimes, 0)
		p.entrySpeed = 0
		return
	}

	n := len(arc)
	curvatures := make([]float64, n)
	v := make([]float64, n)
	for i := range arc {
		curvatures[i] = rp.curve.Curvature(arc[i].T)
		v[i] = p.centripetalSpeedCap(curvatures[i])
	}

	// Reverse pass: bound each sample by the speed still sheddable before the
	// segment end, v^2 = vExit^2 + 2*a*d.
	v[n-1] = math.Min(v[n-1], exitSpeed)
	for i := n - 2; i >= 0; i-- {
		ds := arc[i+1].Distance - arc[i].Distance
		reachable := math.Sqrt(utils.Square(v[i+1]) + 2*p.limits.MaxDeceleration*ds)
		v[i] = math.Min(v[i], reachable)
	}

	// Forward pass: bound by the carried entry speed and the acceleration limit.
	v[0] = math.Min(v[0], p.entrySpeed)
	for i := 1; i < n; i++ {
		ds := arc[i].Distance - arc[i-1].Distance
		reachable := math.Sqrt(utils.Square(v[i-1]) + 2*p.limits.MaxAcceleration*ds)
		v[i] = math.Min(v[i], reachable)
	}

	segmentStart := p.time
	for i := 1; i < n; i++ {
		ds := arc[i].Distance - arc[i-1].Distance
		vSum := v[i-1] + v[i]
		var dt float64
		if vSum < 1e-9 {
			// Both endpoint speeds pinned to zero over a finite distance;
			// cross it as a stop-and-go under the acceleration limit.
			dt = 2 * math.Sqrt(ds/p.limits.MaxAcceleration)
		} else {
			dt = 2 * ds / vSum
		}
		accel := 0.0
		if dt > 0 {
			accel = (v[i] - v[i-1]) / dt
		}
		p.time += dt
		p.distance += ds
		p.position = rp.curve.Point(arc[i].T)
		p.heading = headingAt(rp.segment.End.Heading, rp.curve.Tangent(arc[i].T), arc[i].Distance/total)
		p.samples = append(p.samples, TimelineSample{
			Time:                    p.time,
			Position:                p.position,
			Heading:                 p.heading,
			Velocity:                v[i],
			Acceleration:            accel,
			CentripetalAcceleration: utils.Square(v[i]) * curvatures[i],
			SegmentIndex:            rp.segmentIndex,
		})
	}
	p.segmentTimes = append(p.segmentTimes, p.time-segmentStart)
	p.entrySpeed = v[n-1]
}

// profileWait holds position and heading for the action's duration, emitting
// a flat zero-velocity stretch in the timeline.
func (p *profiler) profileWait(w *WaitAction) {
	duration := w.DurationMS / 1000
	if duration <= 0 {
		p.segmentTimes = append(p.segmentTimes, 0)
		return
	}
	p.time += duration
	p.samples = append(p.samples, TimelineSample{
		Time:         p.time,
		Position:     p.position,
		Heading:      p.heading,
		SegmentIndex: -1,
	})
	p.segmentTimes = append(p.segmentTimes, duration)
	p.entrySpeed = 0
}

// profileRotate turns in place to the target heading through the shortest
// signed direction, time-profiled with the same trapezoidal model as linear
// motion but against the angular limits.
func (p *profiler) profileRotate(r *RotateAction) {
	delta := utils.ShortestAngleDeg(p.heading, r.TargetDegrees)
	magnitude := math.Abs(delta)
	if magnitude < 1e-9 {
		p.segmentTimes = append(p.segmentTimes, 0)
		return
	}

	omega := p.limits.MaxAngularVelocity
	alpha := p.limits.MaxAngularAcceleration

	var totalTime, accelTime, peak float64
	if magnitude >= utils.Square(omega)/alpha {
		// Trapezoidal: accelerate to the angular velocity limit, cruise, decelerate.
		accelTime = omega / alpha
		totalTime = magnitude/omega + omega/alpha
		peak = omega
	} else {
		// Triangular: the limit is never reached.
		accelTime = math.Sqrt(magnitude / alpha)
		totalTime = 2 * accelTime
		peak = alpha * accelTime
	}

	traveled := func(t float64) float64 {
		switch {
		case t <= accelTime:
			return 0.5 * alpha * utils.Square(t)
		case t <= totalTime-accelTime:
			return 0.5*alpha*utils.Square(accelTime) + peak*(t-accelTime)
		default:
			return magnitude - 0.5*alpha*utils.Square(totalTime-t)
		}
	}

	fromHeading := p.heading
	sign := 1.0
	if delta < 0 {
		sign = -1
	}
	for k := 1; k <= rotateSampleCount; k++ {
		t := totalTime * float64(k) / rotateSampleCount
		p.samples = append(p.samples, TimelineSample{
			Time:         p.time + t,
			Position:     p.position,
			Heading:      utils.NormalizeDeg(fromHeading + sign*traveled(t)),
			SegmentIndex: -1,
		})
	}
	p.time += totalTime
	p.heading = utils.NormalizeDeg(r.TargetDegrees)
	p.segmentTimes = append(p.segmentTimes, totalTime)
	p.entrySpeed = 0
}

// headingVector returns the unit vector of the current heading.
func (p *profiler) headingVector() r2.Point {
	rad := utils.DegToRad(p.heading)
	return r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}
}
