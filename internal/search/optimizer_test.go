package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
)

// bowlEvaluator is a stand-in pipeline: a quadratic bowl with its
// minimum at (3, -1), plus a constant cost objective.
func bowlEvaluator(_ context.Context, values map[string]float64) (map[string]float64, error) {
	x, y := values["x"], values["y"]
	return map[string]float64{
		"res":  (x-3)*(x-3) + (y+1)*(y+1),
		"Cost": 1,
	}, nil
}

func bowlOptimizer(t *testing.T, evaluate Evaluator) *Optimizer {
	t.Helper()
	explorer, err := NewAxisExplorer(map[string]Bound{
		"x": {Lo: 0, Hi: 10},
		"y": {Lo: -5, Hi: 5},
	})
	if err != nil {
		t.Fatalf("NewAxisExplorer failed: %v", err)
	}
	return NewOptimizer(evaluate, &SingleObjective{Objective: "res"}, explorer, 50).
		WithStep(0.05)
}

func TestOptimizeFindsBowlMinimum(t *testing.T) {
	opt := bowlOptimizer(t, bowlEvaluator)

	result, err := opt.Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if math.Abs(result.BestValues["x"]-3) > 0.51 {
		t.Errorf("expected x near 3, got %g", result.BestValues["x"])
	}
	if math.Abs(result.BestValues["y"]+1) > 0.51 {
		t.Errorf("expected y near -1, got %g", result.BestValues["y"])
	}
	if !result.Converged {
		t.Errorf("expected convergence, stopped with: %s", result.StopReason)
	}
	if result.BestObjectives["Cost"] != 1 {
		t.Errorf("expected cost objective carried through, got %v", result.BestObjectives)
	}
	if result.Trials <= result.Iterations {
		t.Errorf("expected more trials (%d) than iterations (%d)", result.Trials, result.Iterations)
	}

	// The incumbent score never worsens.
	for i := 1; i < len(result.History); i++ {
		if result.History[i].Score > result.History[i-1].Score {
			t.Fatalf("score worsened at iteration %d: %g -> %g",
				i, result.History[i-1].Score, result.History[i].Score)
		}
	}
}

func TestOptimizeParallelMatchesSerial(t *testing.T) {
	serial, err := bowlOptimizer(t, bowlEvaluator).
		Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	if err != nil {
		t.Fatalf("serial Optimize failed: %v", err)
	}

	parallel, err := bowlOptimizer(t, bowlEvaluator).WithParallelism(4).
		Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	if err != nil {
		t.Fatalf("parallel Optimize failed: %v", err)
	}

	if serial.BestScore != parallel.BestScore {
		t.Errorf("parallel best score %g differs from serial %g",
			parallel.BestScore, serial.BestScore)
	}
}

func TestOptimizeToleratesFailedNeighbors(t *testing.T) {
	evaluate := func(ctx context.Context, values map[string]float64) (map[string]float64, error) {
		// The region left of the minimum is a dead zone.
		if values["x"] < 2 && values["x"] != 0 {
			return nil, fmt.Errorf("trial failed for x=%g", values["x"])
		}
		return bowlEvaluator(ctx, values)
	}

	result, err := bowlOptimizer(t, evaluate).
		Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.FailedTrials == 0 {
		t.Error("expected some failed trials to be recorded")
	}
	if math.Abs(result.BestValues["y"]+1) > 0.51 {
		t.Errorf("expected y still optimized, got %g", result.BestValues["y"])
	}
}

func TestOptimizeFailsOnBadStartingPoint(t *testing.T) {
	evaluate := func(context.Context, map[string]float64) (map[string]float64, error) {
		return nil, errors.New("pipeline down")
	}
	_, err := bowlOptimizer(t, evaluate).
		Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	if err == nil {
		t.Fatal("expected error from failed starting trial")
	}
}

func TestOptimizeFailsOnMissingObjective(t *testing.T) {
	evaluate := func(context.Context, map[string]float64) (map[string]float64, error) {
		return map[string]float64{"Cost": 1}, nil
	}
	_, err := bowlOptimizer(t, evaluate).
		Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	var missing *MissingObjectiveError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingObjectiveError, got %v", err)
	}
}

func TestOptimizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	evaluate := func(ctx context.Context, values map[string]float64) (map[string]float64, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return bowlEvaluator(ctx, values)
	}

	result, err := bowlOptimizer(t, evaluate).Optimize(ctx, map[string]float64{"x": 0, "y": 0})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.StopReason != "canceled" {
		t.Fatalf("expected partial result with canceled reason, got %+v", result)
	}
}

func TestOptimizeValidatesArguments(t *testing.T) {
	explorer, err := NewAxisExplorer(map[string]Bound{"x": {Lo: 0, Hi: 1}})
	if err != nil {
		t.Fatalf("NewAxisExplorer failed: %v", err)
	}

	opt := NewOptimizer(bowlEvaluator, &SingleObjective{Objective: "res"}, explorer, 0)
	if _, err := opt.Optimize(context.Background(), nil); err == nil {
		t.Error("expected error for zero iteration budget")
	}

	opt = NewOptimizer(bowlEvaluator, &SingleObjective{Objective: "res"}, explorer, 5).WithStep(1.5)
	if _, err := opt.Optimize(context.Background(), nil); err == nil {
		t.Error("expected error for out-of-range step")
	}
}

func TestOptimizeReportsProgress(t *testing.T) {
	var reported []Step
	opt := bowlOptimizer(t, bowlEvaluator).WithProgress(func(step Step) {
		reported = append(reported, step)
	})

	result, err := opt.Optimize(context.Background(), map[string]float64{"x": 0, "y": 0})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(reported) != len(result.History) {
		t.Fatalf("progress calls %d != history length %d", len(reported), len(result.History))
	}
	if reported[0].Iteration != 0 || !reported[0].Improved {
		t.Errorf("unexpected first progress step %+v", reported[0])
	}
}
