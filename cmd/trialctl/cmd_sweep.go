package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aid2e/pipeline-core/pkg/logger"
	"github.com/aid2e/pipeline-core/pkg/utils"
)

var sweepFlags struct {
	set      []string
	sweep    []string
	parallel int
	out      string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate a brute-force grid of parameter sets",
	Long: `Sweep expands each swept parameter into evenly spaced points and
evaluates the full cartesian grid, one fresh trial per point. Results
are emitted as one JSON document per line; a failed point is recorded
with its error and does not stop the sweep.`,
	RunE: runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.StringArrayVar(&sweepFlags.set, "set", nil, "Fixed parameter assignment name=value (repeatable)")
	f.StringArrayVar(&sweepFlags.sweep, "sweep", nil, "Swept parameter name=min:max:steps (repeatable)")
	f.IntVar(&sweepFlags.parallel, "parallel", 1, "Number of trials evaluated concurrently")
	f.StringVar(&sweepFlags.out, "out", "", "Write results to this file instead of stdout")
}

// sweepResult is one grid point's outcome, emitted as a JSON line.
type sweepResult struct {
	Tag        string             `json:"tag"`
	Parameters map[string]float64 `json:"parameters"`
	Objectives map[string]float64 `json:"objectives,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func runSweep(cmd *cobra.Command, _ []string) error {
	if len(sweepFlags.sweep) == 0 {
		return fmt.Errorf("at least one --sweep axis is required")
	}
	fixed, err := parseAssignments(sweepFlags.set)
	if err != nil {
		return err
	}
	axes := make([]sweepAxis, 0, len(sweepFlags.sweep))
	for _, spec := range sweepFlags.sweep {
		axis, err := parseSweepAxis(spec)
		if err != nil {
			return err
		}
		axes = append(axes, axis)
	}

	m, _, err := buildManager()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sweepFlags.out != "" {
		f, err := os.Create(sweepFlags.out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	var encMu sync.Mutex

	parallel := sweepFlags.parallel
	if parallel < 1 {
		parallel = 1
	}

	grid := gridPoints(fixed, axes)
	logger.Info("sweep starting", "points", len(grid), "parallel", parallel)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(parallel)
	failed := 0
	var failedMu sync.Mutex

	for _, point := range grid {
		point := point
		g.Go(func() error {
			tag := utils.GenerateTrialTag()
			res := sweepResult{Tag: tag, Parameters: point}

			objectives, err := m.EvaluateTrial(ctx, tag, point)
			if err != nil {
				res.Error = err.Error()
				failedMu.Lock()
				failed++
				failedMu.Unlock()
			} else {
				res.Objectives = objectives
			}

			encMu.Lock()
			defer encMu.Unlock()
			return enc.Encode(res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("sweep: %d of %d points failed", failed, len(grid))
	}
	return nil
}
