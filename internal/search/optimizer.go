// Package search drives the trial pipeline as a black-box minimizer:
// a local search over bounded design parameters, where each candidate
// point costs one full pipeline evaluation.
package search

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aid2e/pipeline-core/pkg/logger"
)

// Evaluator runs one trial for a parameter vector and returns its
// objective values. Each call is expected to mint its own trial tag.
type Evaluator func(ctx context.Context, values map[string]float64) (map[string]float64, error)

// Step records one accepted iteration of the search.
type Step struct {
	Iteration  int                `json:"iteration"`
	Values     map[string]float64 `json:"values"`
	Objectives map[string]float64 `json:"objectives"`
	Score      float64            `json:"score"`
	Improved   bool               `json:"improved"`
}

// Result summarizes a finished search.
type Result struct {
	BestValues     map[string]float64 `json:"best_values"`
	BestObjectives map[string]float64 `json:"best_objectives"`
	BestScore      float64            `json:"best_score"`
	Iterations     int                `json:"iterations"`
	Trials         int                `json:"trials"`
	FailedTrials   int                `json:"failed_trials"`
	Converged      bool               `json:"converged"`
	StopReason     string             `json:"stop_reason"`
	History        []Step             `json:"history"`
}

// ProgressFunc is called after every accepted iteration.
type ProgressFunc func(step Step)

// Optimizer performs hill-climbing over the explorer's neighborhood:
// evaluate all neighbors of the incumbent, move to the best one if it
// improves the score, stop on convergence or iteration budget.
type Optimizer struct {
	evaluate    Evaluator
	scalarizer  Scalarizer
	explorer    Explorer
	convergence ConvergenceStrategy

	maxIterations int
	step          float64
	parallelism   int
	progress      ProgressFunc
}

// NewOptimizer creates an optimizer with default step size, convergence,
// and serial evaluation.
func NewOptimizer(evaluate Evaluator, scalarizer Scalarizer, explorer Explorer, maxIterations int) *Optimizer {
	return &Optimizer{
		evaluate:      evaluate,
		scalarizer:    scalarizer,
		explorer:      explorer,
		convergence:   NewCombinedStrategy(nil),
		maxIterations: maxIterations,
		step:          0.1,
		parallelism:   1,
	}
}

// WithStep sets the neighbor step as a fraction of each bounded range.
func (o *Optimizer) WithStep(step float64) *Optimizer {
	o.step = step
	return o
}

// WithParallelism sets how many neighbor trials run concurrently.
func (o *Optimizer) WithParallelism(n int) *Optimizer {
	if n > 0 {
		o.parallelism = n
	}
	return o
}

// WithConvergence replaces the convergence strategy.
func (o *Optimizer) WithConvergence(strategy ConvergenceStrategy) *Optimizer {
	o.convergence = strategy
	return o
}

// WithProgress registers a callback invoked after each iteration.
func (o *Optimizer) WithProgress(fn ProgressFunc) *Optimizer {
	o.progress = fn
	return o
}

type candidate struct {
	values     map[string]float64
	objectives map[string]float64
	score      float64
}

// Optimize runs the search from the given starting point. The starting
// point itself costs one trial; every iteration costs one trial per
// neighbor. A failed neighbor trial is skipped, not fatal; a failed
// starting trial is.
func (o *Optimizer) Optimize(ctx context.Context, initial map[string]float64) (*Result, error) {
	if o.maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", o.maxIterations)
	}
	if o.step <= 0 || o.step >= 1 {
		return nil, fmt.Errorf("step must be in (0, 1), got %g", o.step)
	}

	result := &Result{}

	best, err := o.evaluateCandidate(ctx, initial)
	result.Trials++
	if err != nil {
		return nil, fmt.Errorf("evaluating starting point: %w", err)
	}

	logger.Info("search started",
		"scalarizer", o.scalarizer.Name(),
		"explorer", o.explorer.Name(),
		"initial_score", best.score,
		"max_iterations", o.maxIterations)

	o.record(result, 0, best, true)

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			result.StopReason = "canceled"
			return result, err
		}

		neighbors := o.explorer.Neighbors(best.values, o.step)
		if len(neighbors) == 0 {
			result.StopReason = "no neighbors to explore"
			break
		}

		challenger, trials, failed := o.evaluateNeighbors(ctx, neighbors)
		result.Trials += trials
		result.FailedTrials += failed
		if err := ctx.Err(); err != nil {
			result.StopReason = "canceled"
			return result, err
		}

		improved := challenger != nil && challenger.score < best.score
		if improved {
			logger.Info("search improved",
				"iteration", iteration,
				"score", challenger.score,
				"previous", best.score)
			best = challenger
		} else {
			logger.Debug("search iteration without improvement", "iteration", iteration)
		}
		o.record(result, iteration, best, improved)

		if converged, reason := o.convergence.CheckConvergence(result.History); converged {
			result.Converged = true
			result.StopReason = reason
			break
		}
	}

	if result.StopReason == "" {
		result.StopReason = fmt.Sprintf("iteration budget exhausted (%d)", o.maxIterations)
	}
	result.BestValues = best.values
	result.BestObjectives = best.objectives
	result.BestScore = best.score

	logger.Info("search finished",
		"iterations", result.Iterations,
		"trials", result.Trials,
		"best_score", result.BestScore,
		"reason", result.StopReason)
	return result, nil
}

// evaluateNeighbors runs the neighbor trials, up to parallelism at a
// time, and returns the best-scoring survivor.
func (o *Optimizer) evaluateNeighbors(ctx context.Context, neighbors []map[string]float64) (*candidate, int, int) {
	var (
		mu     sync.Mutex
		best   *candidate
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for _, values := range neighbors {
		values := values
		g.Go(func() error {
			c, err := o.evaluateCandidate(gctx, values)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Warn("neighbor trial failed", "error", err)
				return nil
			}
			if best == nil || c.score < best.score {
				best = c
			}
			return nil
		})
	}
	_ = g.Wait()
	return best, len(neighbors), failed
}

func (o *Optimizer) evaluateCandidate(ctx context.Context, values map[string]float64) (*candidate, error) {
	objectives, err := o.evaluate(ctx, values)
	if err != nil {
		return nil, err
	}
	score, err := o.scalarizer.Score(objectives)
	if err != nil {
		return nil, err
	}
	return &candidate{values: values, objectives: objectives, score: score}, nil
}

func (o *Optimizer) record(result *Result, iteration int, best *candidate, improved bool) {
	step := Step{
		Iteration:  iteration,
		Values:     cloneValues(best.values),
		Objectives: best.objectives,
		Score:      best.score,
		Improved:   improved,
	}
	result.History = append(result.History, step)
	result.Iterations = iteration
	if o.progress != nil {
		o.progress(step)
	}
}
