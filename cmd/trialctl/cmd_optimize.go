package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aid2e/pipeline-core/internal/search"
)

var optimizeFlags struct {
	set           []string
	bounds        []string
	minimize      string
	weights       []string
	maxIterations int
	step          float64
	parallel      int
	out           string
	jsonOut       bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search bounded design parameters for the best objective value",
	Long: `Optimize runs a local search over the bounded parameters: each candidate
point costs one full pipeline trial, and the search walks towards the
parameter vector minimizing the chosen objective (or a weighted sum).

Parameters given with --set but no --bound are held fixed. A bounded
parameter without a --set value starts at the middle of its range.`,
	Example: `  trialctl optimize --bound EcalBarrel_length=10:30 --minimize BECAL_energy_res
  trialctl optimize --bound EcalBarrel_length=10:30 --set enable_imaging=1 \
      --weight BECAL_energy_res=10 --weight Cost=0.5 --parallel 4`,
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.StringArrayVar(&optimizeFlags.set, "set", nil, "Fixed or starting parameter value (name=value, repeatable)")
	f.StringArrayVar(&optimizeFlags.bounds, "bound", nil, "Searched parameter range (name=min:max, repeatable)")
	f.StringVar(&optimizeFlags.minimize, "minimize", "", "Objective to minimize")
	f.StringArrayVar(&optimizeFlags.weights, "weight", nil, "Weighted-sum term (objective=weight, repeatable; overrides --minimize)")
	f.IntVar(&optimizeFlags.maxIterations, "max-iterations", 20, "Iteration budget")
	f.Float64Var(&optimizeFlags.step, "step", 0.1, "Neighbor step as a fraction of each bounded range")
	f.IntVar(&optimizeFlags.parallel, "parallel", 1, "Concurrent trials per iteration")
	f.StringVar(&optimizeFlags.out, "out", "", "Write the full search result as JSON to this file")
	f.BoolVar(&optimizeFlags.jsonOut, "json", false, "Emit the result as JSON on stdout")
	_ = optimizeCmd.MarkFlagRequired("bound")
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	scalarizer, err := buildScalarizer()
	if err != nil {
		return err
	}
	bounds, err := parseBounds(optimizeFlags.bounds)
	if err != nil {
		return err
	}
	explorer, err := search.NewAxisExplorer(bounds)
	if err != nil {
		return err
	}
	fixed, err := parseAssignments(optimizeFlags.set)
	if err != nil {
		return err
	}

	m, _, err := buildManager()
	if err != nil {
		return err
	}
	evaluate := func(ctx context.Context, values map[string]float64) (map[string]float64, error) {
		return m.EvaluateTrial(ctx, "", values)
	}

	opt := search.NewOptimizer(evaluate, scalarizer, explorer, optimizeFlags.maxIterations).
		WithStep(optimizeFlags.step).
		WithParallelism(optimizeFlags.parallel)
	if !optimizeFlags.jsonOut {
		opt = opt.WithProgress(func(step search.Step) {
			marker := " "
			if step.Improved {
				marker = "*"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s iteration %3d  score %g\n", marker, step.Iteration, step.Score)
		})
	}

	result, err := opt.Optimize(cmd.Context(), explorer.Start(fixed))
	if err != nil {
		return err
	}

	if optimizeFlags.out != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(optimizeFlags.out, append(data, '\n'), 0o644); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if optimizeFlags.jsonOut {
		return json.NewEncoder(w).Encode(result)
	}

	fmt.Fprintf(w, "Best score: %g (%s)\n", result.BestScore, scalarizer.Name())
	fmt.Fprintf(w, "Stopped after %d iterations, %d trials (%d failed): %s\n",
		result.Iterations, result.Trials, result.FailedTrials, result.StopReason)
	names := make([]string, 0, len(result.BestValues))
	for name := range result.BestValues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s = %g\n", name, result.BestValues[name])
	}
	return nil
}

// buildScalarizer picks the scalarization from the flags: explicit
// weights win over a single minimized objective.
func buildScalarizer() (search.Scalarizer, error) {
	if len(optimizeFlags.weights) > 0 {
		weights, err := parseAssignments(optimizeFlags.weights)
		if err != nil {
			return nil, err
		}
		return &search.WeightedSum{Weights: weights}, nil
	}
	if optimizeFlags.minimize == "" {
		return nil, fmt.Errorf("either --minimize or at least one --weight is required")
	}
	return &search.SingleObjective{Objective: optimizeFlags.minimize}, nil
}
