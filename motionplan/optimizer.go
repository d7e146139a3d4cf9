package motionplan

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/pathplan/spatialmath"
	"go.viam.com/pathplan/utils"
)

// OptimizerState is the lifecycle of one optimization run.
type OptimizerState int32

// Optimizer lifecycle states. Idle is the state before the background run's
// first generation; Running re-enters once per generation; StoppedEarly
// follows explicit cancellation; Failed reports stagnation (no improvement
// within the configured window) or a run that exhausted its generation budget
// with error-severity issues still present, without discarding the best-known
// candidate. Converged asserts a violation-free result.
const (
	OptimizerIdle OptimizerState = iota
	OptimizerRunning
	OptimizerConverged
	OptimizerStoppedEarly
	OptimizerFailed
)

// String returns a human readable state name.
func (s OptimizerState) String() string {
	switch s {
	case OptimizerIdle:
		return "idle"
	case OptimizerRunning:
		return "running"
	case OptimizerConverged:
		return "converged"
	case OptimizerStoppedEarly:
		return "stopped_early"
	case OptimizerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fitness penalties. The error penalty dominates total time so the search
// strictly prefers violation-free paths over merely faster ones. Violation
// counts plateau while the footprint is anywhere inside an obstacle, so a
// depth term grades layouts with equal counts and gives the search a slope
// to descend out of a collision.
const (
	errorPenalty   = 1e4
	warningPenalty = 10.0
	depthPenalty   = 50.0
)

// OptimizerConfig tunes the genetic search. Zero values select defaults.
type OptimizerConfig struct {
	Iterations       int     `json:"iterations"`        // generations to run
	PopulationSize   int     `json:"population_size"`   // candidates per generation
	EliteFraction    float64 `json:"elite_fraction"`    // survivors kept unchanged
	MutationRate     float64 `json:"mutation_rate"`     // per-control-point probability
	MutationStrength float64 `json:"mutation_strength"` // Gaussian perturbation scale, inches
	StagnationLimit  int     `json:"stagnation_limit"`  // generations without improvement before Failed; <0 disables
	Seed             uint64  `json:"seed"`
}

func (c OptimizerConfig) withDefaults() OptimizerConfig {
	if c.Iterations <= 0 {
		c.Iterations = 100
	}
	if c.PopulationSize <= 1 {
		c.PopulationSize = 24
	}
	if c.EliteFraction <= 0 || c.EliteFraction >= 1 {
		c.EliteFraction = 0.25
	}
	if c.MutationRate <= 0 || c.MutationRate > 1 {
		c.MutationRate = 0.6
	}
	if c.MutationStrength <= 0 {
		c.MutationStrength = 6.0
	}
	if c.StagnationLimit == 0 {
		c.StagnationLimit = 20
	}
	return c
}

// genome is one full control-point layout, indexed by segment storage order.
type genome [][]r2.Point

func (g genome) copy() genome {
	dup := make(genome, len(g))
	for i, points := range g {
		dup[i] = make([]r2.Point, len(points))
		copy(dup[i], points)
	}
	return dup
}

// Candidate is one evaluated control-point layout plus its cached fitness
// breakdown. Lower fitness is better.
type Candidate struct {
	ControlPoints [][]r2.Point // per segment, in the request's storage order
	TotalTime     float64
	ErrorCount    int
	WarningCount  int
	Fitness       float64
}

func (c *Candidate) copy() *Candidate {
	dup := *c
	dup.ControlPoints = genome(c.ControlPoints).copy()
	return &dup
}

// OptimizerHandle tracks a background optimization run. State and best-result
// queries are safe from any goroutine; cancellation is cooperative and takes
// effect at the next generation boundary.
type OptimizerHandle struct {
	state      *atomic.Int32
	cancelled  *atomic.Bool
	generation *atomic.Int32
	done       chan struct{}

	mu   sync.Mutex
	best *Candidate
}

// State returns the run's current lifecycle state.
func (h *OptimizerHandle) State() OptimizerState {
	return OptimizerState(h.state.Load())
}

// Cancel requests a cooperative stop. The run finishes its in-flight
// generation first so best-candidate bookkeeping stays consistent.
func (h *OptimizerHandle) Cancel() {
	h.cancelled.Store(true)
}

// Done is closed when the run reaches a terminal state.
func (h *OptimizerHandle) Done() <-chan struct{} {
	return h.done
}

// Generation returns the number of completed generations.
func (h *OptimizerHandle) Generation() int {
	return int(h.generation.Load())
}

// BestResult returns a copy of the best candidate scored so far, or nil if no
// generation has completed. The best-ever candidate is retained even when a
// later generation regresses.
func (h *OptimizerHandle) BestResult() *Candidate {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.best == nil {
		return nil
	}
	return h.best.copy()
}

func (h *OptimizerHandle) setBest(c *Candidate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.best = c
}

// RunOptimizer starts a population-based search for control-point placements
// that minimize total time while eliminating violations. It snapshots the
// request, runs in a background goroutine, and never mutates the caller's
// path; the caller decides whether to apply BestResult. The seed in cfg makes
// generation-by-generation behavior reproducible.
func RunOptimizer(
	ctx context.Context,
	req *PlanRequest,
	obstacles []*spatialmath.Obstacle,
	cfg OptimizerConfig,
	logger golog.Logger,
) (*OptimizerHandle, error) {
	if err := validateInputs(req, obstacles); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = golog.NewLogger("optimizer")
	}
	cfg = cfg.withDefaults()
	snapshot := req.Copy()
	limits, _ := snapshot.Limits.withDefaults()
	field := snapshot.Field.withDefaults()

	h := &OptimizerHandle{
		state:      atomic.NewInt32(int32(OptimizerIdle)),
		cancelled:  atomic.NewBool(false),
		generation: atomic.NewInt32(0),
		done:       make(chan struct{}),
	}
	goutils.PanicCapturingGo(func() {
		h.run(ctx, snapshot, obstacles, limits, field, cfg, logger)
	})
	return h, nil
}

func (h *OptimizerHandle) run(
	ctx context.Context,
	snapshot *PlanRequest,
	obstacles []*spatialmath.Obstacle,
	limits KinematicLimits,
	field FieldBounds,
	cfg OptimizerConfig,
	logger golog.Logger,
) {
	defer close(h.done)
	h.state.Store(int32(OptimizerRunning))

	src := rand.NewSource(cfg.Seed)
	rng := rand.New(src)

	seed := make(genome, len(snapshot.Segments))
	for i, seg := range snapshot.Segments {
		seed[i] = make([]r2.Point, len(seg.ControlPoints))
		copy(seed[i], seg.ControlPoints)
	}

	population := make([]genome, cfg.PopulationSize)
	population[0] = seed.copy()
	for i := 1; i < cfg.PopulationSize; i++ {
		population[i] = mutateGenome(seed, 1, cfg.MutationStrength, field, rng, src)
	}

	var bestEver *Candidate
	stagnant := 0
	strength := cfg.MutationStrength
	results := make([]*Candidate, cfg.PopulationSize)

	for gen := 0; gen < cfg.Iterations; gen++ {
		// Cancellation is polled only at generation boundaries; a partial
		// generation is never abandoned mid-flight.
		if ctx.Err() != nil || h.cancelled.Load() {
			logger.Debugf("optimizer stopped early after %d generations", gen)
			h.state.Store(int32(OptimizerStoppedEarly))
			return
		}

		// Fitness evaluations are independent; results merge back by
		// candidate index so runs with the same seed are reproducible.
		//nolint:errcheck
		utils.GroupWorkParallel(ctx, cfg.PopulationSize,
			func(groupSize int) {},
			func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
				return func(memberNum, workNum int) {
					results[workNum] = evaluateGenome(snapshot, population[workNum], limits, field, obstacles)
				}, nil
			})

		order := make([]int, cfg.PopulationSize)
		for i := range order {
			order[i] = i
		}
		// Ties break by stable candidate index.
		sort.SliceStable(order, func(a, b int) bool {
			return results[order[a]].Fitness < results[order[b]].Fitness
		})

		genBest := results[order[0]]
		if bestEver == nil || genBest.Fitness < bestEver.Fitness {
			bestEver = genBest.copy()
			h.setBest(bestEver)
			stagnant = 0
			strength = cfg.MutationStrength
			logger.Debugf("generation %d improved fitness to %.3f (%.3fs, %d errors, %d warnings)",
				gen, genBest.Fitness, genBest.TotalTime, genBest.ErrorCount, genBest.WarningCount)
		} else {
			stagnant++
			// A stagnant neighborhood is exhausted; widen the search.
			if stagnant%5 == 0 {
				strength = math.Min(strength*1.5, field.Width/4)
			}
		}
		h.generation.Inc()

		if cfg.StagnationLimit > 0 && stagnant >= cfg.StagnationLimit {
			logger.Debugf("optimizer stagnant for %d generations, giving up", stagnant)
			h.state.Store(int32(OptimizerFailed))
			return
		}

		eliteCount := int(cfg.EliteFraction * float64(cfg.PopulationSize))
		if eliteCount < 1 {
			eliteCount = 1
		}
		next := make([]genome, cfg.PopulationSize)
		for i := 0; i < eliteCount; i++ {
			next[i] = population[order[i]]
		}
		for i := eliteCount; i < cfg.PopulationSize; i++ {
			parent := population[order[rng.Intn(eliteCount)]]
			next[i] = mutateGenome(parent, cfg.MutationRate, strength, field, rng, src)
		}
		population = next
	}

	if bestEver != nil && bestEver.ErrorCount > 0 {
		logger.Debugf("optimizer finished with %d errors outstanding", bestEver.ErrorCount)
		h.state.Store(int32(OptimizerFailed))
		return
	}
	h.state.Store(int32(OptimizerConverged))
}

// evaluateGenome scores one candidate layout by profiling and validating the
// snapshot with the candidate's control points applied.
func evaluateGenome(
	snapshot *PlanRequest,
	g genome,
	limits KinematicLimits,
	field FieldBounds,
	obstacles []*spatialmath.Obstacle,
) *Candidate {
	req := snapshot.Copy()
	for i := range req.Segments {
		if i < len(g) {
			req.Segments[i].ControlPoints = g[i]
		}
	}
	pred := computeTimeline(req, limits)
	issues := inspectPrediction(req, limits, field, pred, obstacles)
	depth := violationDepth(pred.Timeline, limits, field, obstacles)

	errs, warns := 0, 0
	for _, issue := range issues {
		count := func(i Issue) {
			if i.Severity == SeverityError {
				errs++
			} else {
				warns++
			}
		}
		if len(issue.Children) > 0 {
			for _, child := range issue.Children {
				count(child)
			}
		} else {
			count(issue)
		}
	}

	return &Candidate{
		ControlPoints: g.copy(),
		TotalTime:     pred.TotalTime,
		ErrorCount:    errs,
		WarningCount:  warns,
		Fitness: pred.TotalTime + errorPenalty*float64(errs) +
			warningPenalty*float64(warns) + depthPenalty*depth,
	}
}

// violationDepth sums a coarse penetration estimate over every violating
// timeline sample: bounding-circle overlap for obstacle collisions, distance
// of out-of-bounds corners past the field edge, and corner distance to the
// region center for keep-in escapes. It shrinks monotonically as a layout
// backs out of a violation, unlike the per-sample issue counts.
func violationDepth(
	timeline []TimelineSample,
	limits KinematicLimits,
	field FieldBounds,
	obstacles []*spatialmath.Obstacle,
) float64 {
	depth := 0.0
	for _, s := range timeline {
		footprint := footprintAt(s, limits)
		for _, corner := range footprint.Corners() {
			depth += math.Max(0, -corner.X) + math.Max(0, corner.X-field.Width)
			depth += math.Max(0, -corner.Y) + math.Max(0, corner.Y-field.Height)
		}
		for _, obstacle := range obstacles {
			polygon := obstacle.Polygon()
			if obstacle.KeepIn() {
				if footprint.ContainedBy(polygon) {
					continue
				}
				for _, corner := range footprint.Corners() {
					if !polygon.ContainsPoint(corner) {
						depth += corner.Sub(polygon.Center()).Norm()
					}
				}
				continue
			}
			if !footprint.IntersectsPolygon(polygon) {
				continue
			}
			overlap := footprint.BoundingRadius() + polygon.BoundingRadius() -
				footprint.Center().Sub(polygon.Center()).Norm()
			depth += math.Max(0, overlap)
		}
	}
	return depth
}

// mutateGenome copies the parent and perturbs each control point with the
// given probability by a Gaussian delta per axis (sigma = strength/2,
// unclamped so the tails can cross fitness plateaus), re-clamped to field
// bounds.
func mutateGenome(
	parent genome,
	rate, strength float64,
	field FieldBounds,
	rng *rand.Rand,
	src rand.Source,
) genome {
	noise := distuv.Normal{Mu: 0, Sigma: strength / 2, Src: src}
	child := parent.copy()
	for s := range child {
		for i := range child[s] {
			if rng.Float64() >= rate {
				continue
			}
			child[s][i] = r2.Point{
				X: utils.Clamp(child[s][i].X+noise.Rand(), 0, field.Width),
				Y: utils.Clamp(child[s][i].Y+noise.Rand(), 0, field.Height),
			}
		}
	}
	return child
}
