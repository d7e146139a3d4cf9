// Package main is a CLI previewer over the planning engine: it loads a
// project JSON file and reports timing, validation issues, or optimization
// results for the path it describes.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/pathplan/motionplan"
	"go.viam.com/pathplan/spatialmath"
)

var logger = golog.NewDevelopmentLogger("pathplan")

func main() {
	app := &cli.App{
		Name:  "pathplan",
		Usage: "plan, validate, and optimize 2D robot paths",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "project",
				Aliases:  []string{"p"},
				Usage:    "project JSON file describing the path, limits, and obstacles",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "time",
				Usage:  "compute the motion profile and print timing statistics",
				Action: timeAction,
			},
			{
				Name:   "inspect",
				Usage:  "validate the path and print categorized issues",
				Action: inspectAction,
			},
			{
				Name:  "optimize",
				Usage: "search for faster, violation-free control-point placements",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "iterations", Value: 100, Usage: "generations to run"},
					&cli.IntFlag{Name: "population", Value: 24, Usage: "candidates per generation"},
					&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed for reproducible runs"},
				},
				Action: optimizeAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func loadProject(c *cli.Context) (*motionplan.PlanRequest, []*spatialmath.Obstacle, error) {
	data, err := os.ReadFile(c.String("project"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading project file")
	}
	var config motionplan.ProjectConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, nil, errors.Wrap(err, "parsing project file")
	}
	return config.ParseConfig()
}

func timeAction(c *cli.Context) error {
	req, _, err := loadProject(c)
	if err != nil {
		return err
	}
	pred, err := motionplan.ComputeTimeline(req)
	if err != nil {
		return err
	}
	fmt.Printf("total time:     %.3f s\n", pred.TotalTime)
	fmt.Printf("total distance: %.1f in\n", pred.TotalDistance)
	fmt.Printf("peak velocity:  %.1f in/s\n", pred.MaxVelocity)
	fmt.Printf("energy proxy:   %.1f\n", pred.EnergyProxy)
	for i, t := range pred.SegmentTimes {
		fmt.Printf("  action %d: %.3f s\n", i, t)
	}
	return nil
}

func inspectAction(c *cli.Context) error {
	req, obstacles, err := loadProject(c)
	if err != nil {
		return err
	}
	issues, err := motionplan.Inspect(req, obstacles)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("no issues found")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("[%s] %s at t=%.3fs (%.1f, %.1f): %s",
			issue.Severity, issue.Kind, issue.Time, issue.Position.X, issue.Position.Y, issue.Message)
		if len(issue.Children) > 0 {
			fmt.Printf(" (%d samples)", len(issue.Children))
		}
		fmt.Println()
	}
	return nil
}

func optimizeAction(c *cli.Context) error {
	req, obstacles, err := loadProject(c)
	if err != nil {
		return err
	}
	cfg := motionplan.OptimizerConfig{
		Iterations:     c.Int("iterations"),
		PopulationSize: c.Int("population"),
		Seed:           c.Uint64("seed"),
	}
	handle, err := motionplan.RunOptimizer(c.Context, req, obstacles, cfg, logger)
	if err != nil {
		return err
	}
	<-handle.Done()

	fmt.Printf("state: %s after %d generations\n", handle.State(), handle.Generation())
	best := handle.BestResult()
	if best == nil {
		fmt.Println("no candidate scored")
		return nil
	}
	fmt.Printf("best: %.3f s, %d errors, %d warnings (fitness %.3f)\n",
		best.TotalTime, best.ErrorCount, best.WarningCount, best.Fitness)
	for s, points := range best.ControlPoints {
		for i, pt := range points {
			fmt.Printf("  segment %d control %d: (%.2f, %.2f)\n", s, i, pt.X, pt.Y)
		}
	}
	return nil
}
