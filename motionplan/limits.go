package motionplan

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pathplan/utils"
)

// Standard gravity in inches per second squared, for slip-risk thresholds.
const gravityInchesPerSec2 = 386.088

// Permissive fallbacks applied when limits are missing, so planning never
// aborts on incomplete configuration.
const (
	defaultMaxVelocity  = 50.0 // in/s
	defaultMaxAccel     = 50.0 // in/s^2
	defaultFriction     = 0.7
	defaultRobotLength  = 18.0 // in
	defaultRobotWidth   = 18.0 // in
	defaultFieldExtent  = 144.0
	defaultSafetyMargin = 0.0
)

// KinematicLimits bounds the motion profile. Zero values mean "not
// configured" and are replaced by permissive defaults; zero angular limits
// are auto-derived from the linear limits and track geometry.
type KinematicLimits struct {
	MaxVelocity            float64 `json:"max_velocity"`             // in/s
	MaxAcceleration        float64 `json:"max_acceleration"`         // in/s^2
	MaxDeceleration        float64 `json:"max_deceleration"`         // in/s^2, positive
	MaxAngularVelocity     float64 `json:"max_angular_velocity"`     // deg/s
	MaxAngularAcceleration float64 `json:"max_angular_acceleration"` // deg/s^2
	Friction               float64 `json:"friction"`
	RobotLength            float64 `json:"robot_length"`  // in
	RobotWidth             float64 `json:"robot_width"`   // in
	SafetyMargin           float64 `json:"safety_margin"` // in, inflates footprint checks
}

// Validate rejects limits that are negative or non-finite. Missing (zero)
// fields are legal; they select defaults.
func (l KinematicLimits) Validate() error {
	var err error
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			err = multierr.Combine(err, errors.Errorf("%s must be a non-negative finite number, got %v", name, v))
		}
	}
	check("max_velocity", l.MaxVelocity)
	check("max_acceleration", l.MaxAcceleration)
	check("max_deceleration", l.MaxDeceleration)
	check("max_angular_velocity", l.MaxAngularVelocity)
	check("max_angular_acceleration", l.MaxAngularAcceleration)
	check("friction", l.Friction)
	check("robot_length", l.RobotLength)
	check("robot_width", l.RobotWidth)
	check("safety_margin", l.SafetyMargin)
	return err
}

// withDefaults fills in missing limits and reports each substitution as a
// configuration warning Issue.
func (l KinematicLimits) withDefaults() (KinematicLimits, []Issue) {
	var issues []Issue
	warn := func(msg string) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Kind:     IssueConfiguration,
			Message:  msg,
		})
	}
	if l.MaxVelocity <= 0 {
		l.MaxVelocity = defaultMaxVelocity
		warn("max velocity not configured, using default")
	}
	if l.MaxAcceleration <= 0 {
		l.MaxAcceleration = defaultMaxAccel
		warn("max acceleration not configured, using default")
	}
	if l.MaxDeceleration <= 0 {
		l.MaxDeceleration = l.MaxAcceleration
	}
	if l.Friction <= 0 {
		l.Friction = defaultFriction
		warn("friction coefficient not configured, using default")
	}
	if l.RobotLength <= 0 {
		l.RobotLength = defaultRobotLength
		warn("robot length not configured, using default")
	}
	if l.RobotWidth <= 0 {
		l.RobotWidth = defaultRobotWidth
		warn("robot width not configured, using default")
	}
	// Angular limits derive from the linear limits and the track width when
	// not explicitly configured.
	halfTrack := l.RobotWidth / 2
	if l.MaxAngularVelocity <= 0 {
		l.MaxAngularVelocity = utils.RadToDeg(l.MaxVelocity / halfTrack)
		warn("max angular velocity not configured, derived from linear limits")
	}
	if l.MaxAngularAcceleration <= 0 {
		l.MaxAngularAcceleration = utils.RadToDeg(l.MaxAcceleration / halfTrack)
	}
	return l, issues
}

// lateralAccelLimit is the maximum centripetal acceleration the wheels can
// sustain before slipping, per the simplified friction model.
func (l KinematicLimits) lateralAccelLimit() float64 {
	return l.Friction * gravityInchesPerSec2
}

// FieldBounds is the rectangular field extent in inches, origin at (0, 0).
type FieldBounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// withDefaults substitutes the standard 144x144 inch field for missing extents.
func (f FieldBounds) withDefaults() FieldBounds {
	if f.Width <= 0 {
		f.Width = defaultFieldExtent
	}
	if f.Height <= 0 {
		f.Height = defaultFieldExtent
	}
	return f
}
