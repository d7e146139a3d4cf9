package motionplan

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/pathplan/spatialmath"
	"go.viam.com/pathplan/utils"
)

// Severity ranks how actionable an issue is.
type Severity int

// Issue severities, ordered so the max of a group is its worst member.
const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns a human readable severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// IssueKind categorizes validator findings.
type IssueKind string

// The validator's issue categories.
const (
	IssueCollision             IssueKind = "collision"
	IssueBoundary              IssueKind = "boundary"
	IssueZeroLengthSegment     IssueKind = "zero_length_segment"
	IssueSlipRisk              IssueKind = "slip_risk"
	IssueVelocityOvershoot     IssueKind = "velocity_overshoot"
	IssueAccelerationOvershoot IssueKind = "acceleration_overshoot"
	IssueAngularOvershoot      IssueKind = "angular_overshoot"
	IssueConfiguration         IssueKind = "configuration"
)

// Relative tolerance absorbing floating-point profiling error before a limit
// counts as overshot.
const overshootTolerance = 1e-3

// Slip risk escalates from warning to error at this multiple of the traction limit.
const slipErrorFactor = 1.25

// Issue is one categorized finding. A contiguous run of violating samples is
// collapsed into a single parent issue whose Children hold the individual
// samples, so long violations do not flood the output. Time, Position and
// SegmentIndex let a caller jump an editor view to the violating moment.
type Issue struct {
	Severity     Severity
	Kind         IssueKind
	Time         float64
	Position     r2.Point
	SegmentIndex int
	Message      string
	Children     []Issue
}

// Inspect classifies the motion profile plus static field geometry into
// actionable issues. Given the same inputs it always returns the same issues
// in the same order (ascending time, then kind). Like ComputeTimeline it only
// errors on caller contract violations.
func Inspect(req *PlanRequest, obstacles []*spatialmath.Obstacle) ([]Issue, error) {
	if err := validateInputs(req, obstacles); err != nil {
		return nil, err
	}

	limits, issues := req.Limits.withDefaults()
	field := req.Field.withDefaults()
	pred := computeTimeline(req, limits)
	issues = append(issues, inspectPrediction(req, limits, field, pred, obstacles)...)

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Time != issues[j].Time {
			return issues[i].Time < issues[j].Time
		}
		return issues[i].Kind < issues[j].Kind
	})
	return issues, nil
}

// validateInputs rejects caller contract violations shared by Inspect and the
// optimizer: nil/non-finite requests, invalid limits, nil or non-finite obstacles.
func validateInputs(req *PlanRequest, obstacles []*spatialmath.Obstacle) error {
	if err := req.validate(); err != nil {
		return err
	}
	if err := req.Limits.Validate(); err != nil {
		return err
	}
	for _, obstacle := range obstacles {
		if obstacle == nil {
			return errors.New("obstacle must not be nil")
		}
		for _, v := range obstacle.Polygon().Vertices() {
			if !finitePoint(v) {
				return newNonFiniteError("obstacle vertex", v)
			}
		}
	}
	return nil
}

// inspectPrediction runs every check against an already-computed profile. The
// optimizer calls this directly so each fitness evaluation profiles only once.
func inspectPrediction(
	req *PlanRequest,
	limits KinematicLimits,
	field FieldBounds,
	pred *TimePrediction,
	obstacles []*spatialmath.Obstacle,
) []Issue {
	var issues []Issue
	issues = append(issues, checkZeroLengthSegments(req, pred)...)
	issues = append(issues, checkVelocityOvershoot(pred.Timeline, limits)...)
	issues = append(issues, checkAccelerationOvershoot(pred.Timeline, limits)...)
	issues = append(issues, checkAngularOvershoot(pred.Timeline, limits)...)
	issues = append(issues, checkSlipRisk(pred.Timeline, limits)...)
	issues = append(issues, checkBoundary(pred.Timeline, limits, field)...)
	for _, obstacle := range obstacles {
		issues = append(issues, checkObstacle(pred.Timeline, limits, obstacle)...)
	}
	return issues
}

func checkZeroLengthSegments(req *PlanRequest, pred *TimePrediction) []Issue {
	var issues []Issue
	elapsed := 0.0
	actionIndex := 0
	for _, action := range req.resolveActions() {
		if action.path != nil && action.path.curve.Length() < zeroLengthEps {
			issues = append(issues, Issue{
				Severity:     SeverityWarning,
				Kind:         IssueZeroLengthSegment,
				Time:         elapsed,
				Position:     action.path.curve.Start(),
				SegmentIndex: action.path.segmentIndex,
				Message:      "segment has zero length",
			})
		}
		if actionIndex < len(pred.SegmentTimes) {
			elapsed += pred.SegmentTimes[actionIndex]
		}
		actionIndex++
	}
	return issues
}

func checkVelocityOvershoot(timeline []TimelineSample, limits KinematicLimits) []Issue {
	threshold := limits.MaxVelocity * (1 + overshootTolerance)
	return groupSampleRuns(timeline, func(s TimelineSample) (Issue, bool) {
		if s.Velocity <= threshold {
			return Issue{}, false
		}
		return Issue{
			Severity:     SeverityWarning,
			Kind:         IssueVelocityOvershoot,
			Time:         s.Time,
			Position:     s.Position,
			SegmentIndex: s.SegmentIndex,
			Message:      "velocity exceeds configured limit",
		}, true
	})
}

func checkAccelerationOvershoot(timeline []TimelineSample, limits KinematicLimits) []Issue {
	// Signed: positive acceleration checks against the drive limit, negative
	// against the braking limit.
	accelThreshold := limits.MaxAcceleration * (1 + overshootTolerance)
	decelThreshold := limits.MaxDeceleration * (1 + overshootTolerance)
	return groupSampleRuns(timeline, func(s TimelineSample) (Issue, bool) {
		if s.Acceleration <= accelThreshold && -s.Acceleration <= decelThreshold {
			return Issue{}, false
		}
		return Issue{
			Severity:     SeverityWarning,
			Kind:         IssueAccelerationOvershoot,
			Time:         s.Time,
			Position:     s.Position,
			SegmentIndex: s.SegmentIndex,
			Message:      "acceleration exceeds configured limit",
		}, true
	})
}

func checkAngularOvershoot(timeline []TimelineSample, limits KinematicLimits) []Issue {
	threshold := limits.MaxAngularVelocity * (1 + overshootTolerance)
	rates := make([]float64, len(timeline))
	for i := 1; i < len(timeline); i++ {
		dt := timeline[i].Time - timeline[i-1].Time
		if dt <= 0 {
			continue
		}
		rates[i] = math.Abs(utils.ShortestAngleDeg(timeline[i-1].Heading, timeline[i].Heading)) / dt
	}
	i := -1
	return groupSampleRuns(timeline, func(s TimelineSample) (Issue, bool) {
		i++
		if rates[i] <= threshold {
			return Issue{}, false
		}
		return Issue{
			Severity:     SeverityWarning,
			Kind:         IssueAngularOvershoot,
			Time:         s.Time,
			Position:     s.Position,
			SegmentIndex: s.SegmentIndex,
			Message:      "heading rate exceeds angular velocity limit",
		}, true
	})
}

func checkSlipRisk(timeline []TimelineSample, limits KinematicLimits) []Issue {
	tractionLimit := limits.lateralAccelLimit()
	return groupSampleRuns(timeline, func(s TimelineSample) (Issue, bool) {
		if s.CentripetalAcceleration <= tractionLimit*(1+overshootTolerance) {
			return Issue{}, false
		}
		severity := SeverityWarning
		if s.CentripetalAcceleration > tractionLimit*slipErrorFactor {
			severity = SeverityError
		}
		return Issue{
			Severity:     severity,
			Kind:         IssueSlipRisk,
			Time:         s.Time,
			Position:     s.Position,
			SegmentIndex: s.SegmentIndex,
			Message:      "cornering likely to exceed wheel traction",
		}, true
	})
}

// footprintAt builds the robot footprint, inflated by the safety margin, at a
// timeline sample.
func footprintAt(s TimelineSample, limits KinematicLimits) *spatialmath.Rectangle {
	return spatialmath.NewRectangle(
		s.Position,
		limits.RobotLength+2*limits.SafetyMargin,
		limits.RobotWidth+2*limits.SafetyMargin,
		s.Heading,
	)
}

func checkBoundary(timeline []TimelineSample, limits KinematicLimits, field FieldBounds) []Issue {
	return groupSampleRuns(timeline, func(s TimelineSample) (Issue, bool) {
		footprint := footprintAt(s, limits)
		outside := false
		for _, corner := range footprint.Corners() {
			if corner.X < 0 || corner.Y < 0 || corner.X > field.Width || corner.Y > field.Height {
				outside = true
				break
			}
		}
		if !outside {
			return Issue{}, false
		}
		return Issue{
			Severity:     SeverityError,
			Kind:         IssueBoundary,
			Time:         s.Time,
			Position:     s.Position,
			SegmentIndex: s.SegmentIndex,
			Message:      "robot footprint leaves the field",
		}, true
	})
}

func checkObstacle(timeline []TimelineSample, limits KinematicLimits, obstacle *spatialmath.Obstacle) []Issue {
	message := "robot footprint collides with obstacle"
	if obstacle.KeepIn() {
		message = "robot footprint exits keep-in region"
	}
	if obstacle.Label() != "" {
		message += " " + obstacle.Label()
	}
	return groupSampleRuns(timeline, func(s TimelineSample) (Issue, bool) {
		footprint := footprintAt(s, limits)
		var violating bool
		if obstacle.KeepIn() {
			violating = !footprint.ContainedBy(obstacle.Polygon())
		} else {
			violating = footprint.IntersectsPolygon(obstacle.Polygon())
		}
		if !violating {
			return Issue{}, false
		}
		return Issue{
			Severity:     SeverityError,
			Kind:         IssueCollision,
			Time:         s.Time,
			Position:     s.Position,
			SegmentIndex: s.SegmentIndex,
			Message:      message,
		}, true
	})
}

// groupSampleRuns walks the timeline in order and collapses each unbroken run
// of violating samples into one parent issue. The parent carries the run's
// first time/position and the max severity of its children; single-sample
// runs stay childless.
func groupSampleRuns(timeline []TimelineSample, check func(TimelineSample) (Issue, bool)) []Issue {
	var grouped []Issue
	var run []Issue
	flush := func() {
		if len(run) == 0 {
			return
		}
		parent := run[0]
		if len(run) > 1 {
			parent.Children = run
			for _, child := range run {
				if child.Severity > parent.Severity {
					parent.Severity = child.Severity
				}
			}
		}
		grouped = append(grouped, parent)
		run = nil
	}
	for _, sample := range timeline {
		if issue, violating := check(sample); violating {
			run = append(run, issue)
		} else {
			flush()
		}
	}
	flush()
	return grouped
}
