package motionplan

import (
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/pathplan/spatialmath"
)

// Heading policy discriminator strings used in JSON configs.
const (
	HeadingTypeConstant   = "constant"
	HeadingTypeLinear     = "linear"
	HeadingTypeTangential = "tangential"
)

// Action discriminator strings used in JSON configs.
const (
	ActionTypePath   = "path"
	ActionTypeWait   = "wait"
	ActionTypeRotate = "rotate"
)

// HeadingConfig is the JSON representation of a HeadingPolicy.
type HeadingConfig struct {
	Type         string  `json:"type"`
	Degrees      float64 `json:"degrees,omitempty"`
	StartDegrees float64 `json:"start_degrees,omitempty"`
	EndDegrees   float64 `json:"end_degrees,omitempty"`
	Reverse      bool    `json:"reverse,omitempty"`
}

// ParseConfig converts a HeadingConfig into a HeadingPolicy. A missing type
// selects tangential, the most common policy for drive paths.
func (config *HeadingConfig) ParseConfig() (HeadingPolicy, error) {
	switch config.Type {
	case HeadingTypeConstant:
		return ConstantHeading{Degrees: config.Degrees}, nil
	case HeadingTypeLinear:
		return LinearHeading{StartDegrees: config.StartDegrees, EndDegrees: config.EndDegrees}, nil
	case HeadingTypeTangential, "":
		return TangentialHeading{Reverse: config.Reverse}, nil
	default:
		return nil, errors.Errorf("unsupported heading type %q", config.Type)
	}
}

// SegmentConfig is the JSON representation of a PathSegment.
type SegmentConfig struct {
	ID            string        `json:"id,omitempty"`
	ControlPoints [][2]float64  `json:"control_points,omitempty"`
	End           [2]float64    `json:"end"`
	Heading       HeadingConfig `json:"heading"`
}

// ActionConfig is the JSON representation of one Sequence entry.
type ActionConfig struct {
	Type          string  `json:"type"`
	Segment       string  `json:"segment,omitempty"`
	DurationMS    float64 `json:"duration_ms,omitempty"`
	TargetDegrees float64 `json:"target_degrees,omitempty"`
}

// ProjectConfig is the JSON schema consumed by the CLI previewer: the full
// path description plus limits, field extent, and obstacles.
type ProjectConfig struct {
	Start        [2]float64                   `json:"start"`
	StartHeading HeadingConfig                `json:"start_heading"`
	Segments     []SegmentConfig              `json:"segments"`
	Sequence     []ActionConfig               `json:"sequence"`
	Limits       KinematicLimits              `json:"limits"`
	Field        FieldBounds                  `json:"field"`
	Obstacles    []spatialmath.ObstacleConfig `json:"obstacles,omitempty"`
}

// ParseConfig converts a ProjectConfig into a PlanRequest and obstacle list.
// Sequence entries referencing unknown segment ids survive parsing and are
// pruned by the repair pass at planning time.
func (config *ProjectConfig) ParseConfig() (*PlanRequest, []*spatialmath.Obstacle, error) {
	startHeading, err := config.StartHeading.ParseConfig()
	if err != nil {
		return nil, nil, errors.Wrap(err, "start heading")
	}

	ids := make(map[string]uuid.UUID, len(config.Segments))
	segments := make([]PathSegment, 0, len(config.Segments))
	for i, sc := range config.Segments {
		heading, err := sc.Heading.ParseConfig()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "segment %d", i)
		}
		id := uuid.New()
		if sc.ID != "" {
			parsed, err := uuid.Parse(sc.ID)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "segment %d id", i)
			}
			id = parsed
		}
		control := make([]r2.Point, 0, len(sc.ControlPoints))
		for _, cp := range sc.ControlPoints {
			control = append(control, r2.Point{X: cp[0], Y: cp[1]})
		}
		segments = append(segments, PathSegment{
			ID:            id,
			ControlPoints: control,
			End:           Waypoint{Point: r2.Point{X: sc.End[0], Y: sc.End[1]}, Heading: heading},
		})
		if sc.ID != "" {
			ids[sc.ID] = id
		}
	}

	sequence := make(Sequence, 0, len(config.Sequence))
	for i, ac := range config.Sequence {
		switch ac.Type {
		case ActionTypePath:
			sequence = append(sequence, PathAction{SegmentID: ids[ac.Segment]})
		case ActionTypeWait:
			sequence = append(sequence, WaitAction{DurationMS: ac.DurationMS})
		case ActionTypeRotate:
			sequence = append(sequence, RotateAction{TargetDegrees: ac.TargetDegrees})
		default:
			return nil, nil, errors.Errorf("sequence entry %d: unsupported action type %q", i, ac.Type)
		}
	}

	obstacles := make([]*spatialmath.Obstacle, 0, len(config.Obstacles))
	for i, oc := range config.Obstacles {
		obstacle, err := oc.ParseConfig()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "obstacle %d", i)
		}
		obstacles = append(obstacles, obstacle)
	}

	req := &PlanRequest{
		Start:    Waypoint{Point: r2.Point{X: config.Start[0], Y: config.Start[1]}, Heading: startHeading},
		Segments: segments,
		Sequence: sequence,
		Limits:   config.Limits,
		Field:    config.Field,
	}
	return req, obstacles, nil
}
