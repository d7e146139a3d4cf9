package motionplan

import (
	"encoding/json"
	"testing"

	"go.viam.com/test"
)

const projectJSON = `{
	"start": [20, 72],
	"start_heading": {"type": "tangential"},
	"segments": [
		{
			"id": "4b1b3f3e-9df2-4f55-8a6a-0d5dd1f2a001",
			"control_points": [[60, 100]],
			"end": [100, 72],
			"heading": {"type": "tangential"}
		},
		{
			"end": [120, 72],
			"heading": {"type": "constant", "degrees": 90}
		}
	],
	"sequence": [
		{"type": "path", "segment": "4b1b3f3e-9df2-4f55-8a6a-0d5dd1f2a001"},
		{"type": "wait", "duration_ms": 250},
		{"type": "rotate", "target_degrees": 0}
	],
	"limits": {
		"max_velocity": 40,
		"max_acceleration": 40,
		"friction": 0.7,
		"robot_length": 18,
		"robot_width": 18
	},
	"field": {"width": 144, "height": 144},
	"obstacles": [
		{"type": "obstacle", "label": "pole", "vertices": [[5, 5], [10, 5], [10, 10], [5, 10]]}
	]
}`

func TestProjectConfigRoundTrip(t *testing.T) {
	var config ProjectConfig
	test.That(t, json.Unmarshal([]byte(projectJSON), &config), test.ShouldBeNil)

	req, obstacles, err := config.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Segments, test.ShouldHaveLength, 2)
	test.That(t, req.Segments[0].ID.String(), test.ShouldEqual, "4b1b3f3e-9df2-4f55-8a6a-0d5dd1f2a001")
	test.That(t, req.Segments[0].ControlPoints, test.ShouldHaveLength, 1)
	test.That(t, req.Segments[1].End.Heading, test.ShouldResemble, ConstantHeading{Degrees: 90})
	test.That(t, req.Limits.MaxVelocity, test.ShouldEqual, 40)
	test.That(t, obstacles, test.ShouldHaveLength, 1)
	test.That(t, obstacles[0].Label(), test.ShouldEqual, "pole")

	// The second segment is unreferenced by the sequence; planning repairs
	// that by appending it, so the parsed project profiles end to end.
	pred, err := ComputeTimeline(req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pred.TotalTime, test.ShouldBeGreaterThan, 0)
	test.That(t, pred.SegmentTimes, test.ShouldHaveLength, 4)

	issues, err := Inspect(req, obstacles)
	test.That(t, err, test.ShouldBeNil)
	for _, issue := range issues {
		test.That(t, issue.Kind, test.ShouldNotEqual, IssueCollision)
	}
}

func TestProjectConfigErrors(t *testing.T) {
	config := ProjectConfig{StartHeading: HeadingConfig{Type: "spiral"}}
	_, _, err := config.ParseConfig()
	test.That(t, err, test.ShouldNotBeNil)

	config = ProjectConfig{
		Sequence: []ActionConfig{{Type: "teleport"}},
	}
	_, _, err = config.ParseConfig()
	test.That(t, err, test.ShouldNotBeNil)

	config = ProjectConfig{
		Segments: []SegmentConfig{{ID: "not-a-uuid", End: [2]float64{10, 10}}},
	}
	_, _, err = config.ParseConfig()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHeadingConfigDefaultsTangential(t *testing.T) {
	policy, err := (&HeadingConfig{}).ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, policy, test.ShouldResemble, TangentialHeading{})

	policy, err = (&HeadingConfig{Type: HeadingTypeLinear, StartDegrees: 10, EndDegrees: 20}).ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, policy, test.ShouldResemble, LinearHeading{StartDegrees: 10, EndDegrees: 20})
}
