package motionplan

import (
	"context"
	"reflect"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.uber.org/atomic"
	"go.viam.com/test"

	"go.viam.com/pathplan/spatialmath"
)

// blockedRequest drives straight through the obstacle returned alongside it,
// so the seed layout scores a large collision penalty.
func blockedRequest(t *testing.T) (*PlanRequest, []*spatialmath.Obstacle) {
	t.Helper()
	seg := NewPathSegment(
		Waypoint{Point: r2.Point{X: 124, Y: 72}, Heading: ConstantHeading{}},
		r2.Point{X: 55, Y: 72},
		r2.Point{X: 90, Y: 72},
	)
	req := &PlanRequest{
		Start:    Waypoint{Point: r2.Point{X: 20, Y: 72}, Heading: ConstantHeading{}},
		Segments: []PathSegment{seg},
		Sequence: Sequence{PathAction{SegmentID: seg.ID}},
		Limits:   fullLimits(),
	}
	return req, []*spatialmath.Obstacle{obstacleSquare(t, 62, 64, 82, 80, false)}
}

func runToCompletion(t *testing.T, req *PlanRequest, obstacles []*spatialmath.Obstacle, cfg OptimizerConfig) *OptimizerHandle {
	t.Helper()
	h, err := RunOptimizer(context.Background(), req, obstacles, cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	<-h.Done()
	return h
}

func TestOptimizerImprovesBlockedPath(t *testing.T) {
	req, obstacles := blockedRequest(t)
	limits, _ := req.Limits.withDefaults()
	field := req.Field.withDefaults()

	seed := make(genome, len(req.Segments))
	for i, seg := range req.Segments {
		seed[i] = append([]r2.Point(nil), seg.ControlPoints...)
	}
	seedScore := evaluateGenome(req, seed, limits, field, obstacles)
	test.That(t, seedScore.ErrorCount, test.ShouldBeGreaterThan, 0)

	h := runToCompletion(t, req, obstacles, OptimizerConfig{
		Iterations:       50,
		PopulationSize:   16,
		MutationStrength: 12,
		StagnationLimit:  -1,
		Seed:             7,
	})

	test.That(t, h.Generation(), test.ShouldEqual, 50)

	best := h.BestResult()
	test.That(t, best, test.ShouldNotBeNil)
	// Converged asserts the run cleared every error-severity issue; a run
	// that could not reports Failed while retaining its best candidate.
	switch h.State() {
	case OptimizerConverged:
		test.That(t, best.ErrorCount, test.ShouldEqual, 0)
	default:
		test.That(t, h.State(), test.ShouldEqual, OptimizerFailed)
		test.That(t, best.ErrorCount, test.ShouldBeGreaterThan, 0)
	}
	// Elitism plus best-ever retention guarantees the result never regresses
	// below the seed layout.
	test.That(t, best.Fitness, test.ShouldBeLessThanOrEqualTo, seedScore.Fitness)
	test.That(t, best.ControlPoints, test.ShouldHaveLength, 1)
	test.That(t, best.ControlPoints[0], test.ShouldHaveLength, 2)

	// The caller's request is never mutated.
	test.That(t, req.Segments[0].ControlPoints[0], test.ShouldResemble, r2.Point{X: 55, Y: 72})
	test.That(t, req.Segments[0].ControlPoints[1], test.ShouldResemble, r2.Point{X: 90, Y: 72})
}

func TestOptimizerDeterminism(t *testing.T) {
	cfg := OptimizerConfig{
		Iterations:      25,
		PopulationSize:  12,
		StagnationLimit: -1,
		Seed:            42,
	}

	req, obstacles := blockedRequest(t)
	first := runToCompletion(t, req, obstacles, cfg).BestResult()

	req, obstacles = blockedRequest(t)
	second := runToCompletion(t, req, obstacles, cfg).BestResult()

	test.That(t, first, test.ShouldNotBeNil)
	test.That(t, second, test.ShouldNotBeNil)
	test.That(t, first.Fitness, test.ShouldEqual, second.Fitness)
	test.That(t, reflect.DeepEqual(first.ControlPoints, second.ControlPoints), test.ShouldBeTrue)
}

func TestOptimizerCancel(t *testing.T) {
	req, obstacles := blockedRequest(t)
	h, err := RunOptimizer(context.Background(), req, obstacles, OptimizerConfig{
		Iterations:      1_000_000,
		PopulationSize:  4,
		StagnationLimit: -1,
	}, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	h.Cancel()
	<-h.Done()
	test.That(t, h.State(), test.ShouldEqual, OptimizerStoppedEarly)
}

func TestOptimizerContextCancel(t *testing.T) {
	req, obstacles := blockedRequest(t)
	ctx, cancel := context.WithCancel(context.Background())
	h, err := RunOptimizer(ctx, req, obstacles, OptimizerConfig{
		Iterations:      1_000_000,
		PopulationSize:  4,
		StagnationLimit: -1,
	}, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	cancel()
	<-h.Done()
	test.That(t, h.State(), test.ShouldEqual, OptimizerStoppedEarly)
}

func TestOptimizerStagnation(t *testing.T) {
	// No interior control points means mutation cannot change anything, so
	// fitness never improves past the first generation and the run reports
	// failure while keeping the best-known candidate.
	seg := NewPathSegment(Waypoint{Point: r2.Point{X: 120, Y: 72}, Heading: ConstantHeading{}})
	req := &PlanRequest{
		Start:    Waypoint{Point: r2.Point{X: 20, Y: 72}, Heading: ConstantHeading{}},
		Segments: []PathSegment{seg},
		Sequence: Sequence{PathAction{SegmentID: seg.ID}},
		Limits:   fullLimits(),
	}

	h := runToCompletion(t, req, nil, OptimizerConfig{
		Iterations:      200,
		PopulationSize:  4,
		StagnationLimit: 3,
	})

	test.That(t, h.State(), test.ShouldEqual, OptimizerFailed)
	best := h.BestResult()
	test.That(t, best, test.ShouldNotBeNil)
	test.That(t, best.ErrorCount, test.ShouldEqual, 0)
	test.That(t, best.TotalTime, test.ShouldBeGreaterThan, 0)
}

func TestOptimizerLifecycle(t *testing.T) {
	// A handle starts Idle until the background run's first generation and
	// always lands in a terminal state.
	h := &OptimizerHandle{
		state:      atomic.NewInt32(int32(OptimizerIdle)),
		cancelled:  atomic.NewBool(false),
		generation: atomic.NewInt32(0),
		done:       make(chan struct{}),
	}
	test.That(t, h.State(), test.ShouldEqual, OptimizerIdle)
	test.That(t, h.BestResult(), test.ShouldBeNil)

	req, obstacles := blockedRequest(t)
	run := runToCompletion(t, req, obstacles, OptimizerConfig{Iterations: 2, PopulationSize: 4})
	terminal := map[OptimizerState]bool{
		OptimizerConverged:    true,
		OptimizerStoppedEarly: true,
		OptimizerFailed:       true,
	}
	test.That(t, terminal[run.State()], test.ShouldBeTrue)

	for state, name := range map[OptimizerState]string{
		OptimizerIdle:         "idle",
		OptimizerRunning:      "running",
		OptimizerConverged:    "converged",
		OptimizerStoppedEarly: "stopped_early",
		OptimizerFailed:       "failed",
	} {
		test.That(t, state.String(), test.ShouldEqual, name)
	}
}

func TestOptimizerValidatesInputs(t *testing.T) {
	_, err := RunOptimizer(context.Background(), nil, nil, OptimizerConfig{}, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	req, _ := blockedRequest(t)
	_, err = RunOptimizer(context.Background(), req, []*spatialmath.Obstacle{nil}, OptimizerConfig{}, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
