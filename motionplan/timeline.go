package motionplan

import (
	"fmt"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"
)

// TimelineSample is the robot's kinematic state at one instant of a planned run.
type TimelineSample struct {
	Time                    float64  // seconds from run start
	Position                r2.Point // inches
	Heading                 float64  // degrees in (-180, 180]
	Velocity                float64  // in/s, along the path
	Acceleration            float64  // in/s^2, signed along the path
	CentripetalAcceleration float64  // in/s^2, lateral
	SegmentIndex            int      // index of the owning path action, -1 for waits/rotates
}

// TimePrediction is the full output of the motion profiler: the discretized
// timeline plus aggregate statistics used by the validator and optimizer.
type TimePrediction struct {
	TotalTime     float64
	TotalDistance float64
	SegmentTimes  []float64 // one entry per sequence action, in execution order
	MaxVelocity   float64   // highest speed achieved anywhere on the timeline
	EnergyProxy   float64   // mass-independent sum of |v*a| dt terms
	Timeline      []TimelineSample
}

// String returns a human-readable summary of the prediction, suitable for debugging.
func (pred *TimePrediction) String() string {
	return fmt.Sprintf("TimePrediction | Total: %.3fs over %.1fin | Samples: %d | Peak: %.1fin/s",
		pred.TotalTime, pred.TotalDistance, len(pred.Timeline), pred.MaxVelocity)
}

// finalize computes the aggregate statistics from the assembled timeline.
func (pred *TimePrediction) finalize() {
	if len(pred.Timeline) == 0 {
		return
	}
	pred.TotalTime = pred.Timeline[len(pred.Timeline)-1].Time

	velocities := make([]float64, len(pred.Timeline))
	for i, sample := range pred.Timeline {
		velocities[i] = sample.Velocity
	}
	pred.MaxVelocity = floats.Max(velocities)

	energy := 0.0
	for i := 1; i < len(pred.Timeline); i++ {
		prev := pred.Timeline[i-1]
		dt := pred.Timeline[i].Time - prev.Time
		if dt <= 0 {
			continue
		}
		if v := prev.Velocity * prev.Acceleration; v > 0 {
			energy += v * dt
		} else {
			energy -= v * dt
		}
	}
	pred.EnergyProxy = energy
}
