package search

import "fmt"

// ConvergenceConfig holds the thresholds for convergence detection.
type ConvergenceConfig struct {
	// NoImprovementIterations is the number of iterations without a new
	// best score before stopping.
	NoImprovementIterations int
	// ScoreTolerance is the absolute tolerance under which scores count
	// as equal when checking for a plateau.
	ScoreTolerance float64
	// MinIterations is the minimum number of iterations before
	// convergence can be declared.
	MinIterations int
	// PlateauIterations is the number of trailing iterations whose score
	// range must fall within ScoreTolerance to count as a plateau.
	PlateauIterations int
}

// DefaultConvergenceConfig returns the default convergence thresholds.
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		NoImprovementIterations: 3,
		ScoreTolerance:          1e-6,
		MinIterations:           2,
		PlateauIterations:       4,
	}
}

// ConvergenceStrategy decides when the search should stop early.
type ConvergenceStrategy interface {
	// CheckConvergence inspects the step history and reports whether the
	// search has converged, with a human-readable reason.
	CheckConvergence(history []Step) (bool, string)
	// Name returns the name of the strategy.
	Name() string
}

// NoImprovementStrategy stops when the best score has not improved for
// a configured number of iterations.
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(history []Step) (bool, string) {
	if len(history) < s.config.MinIterations {
		return false, ""
	}

	bestIteration := 0
	bestScore := history[0].Score
	for i, step := range history {
		if step.Score < bestScore-s.config.ScoreTolerance {
			bestScore = step.Score
			bestIteration = i
		}
	}

	stale := len(history) - 1 - bestIteration
	if stale >= s.config.NoImprovementIterations {
		return true, fmt.Sprintf("no improvement for %d iterations (best at iteration %d)", stale, bestIteration)
	}
	return false, ""
}

// PlateauStrategy stops when the trailing scores sit within the
// tolerance of each other.
type PlateauStrategy struct {
	config *ConvergenceConfig
}

func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(history []Step) (bool, string) {
	if len(history) < s.config.MinIterations || len(history) < s.config.PlateauIterations {
		return false, ""
	}

	recent := history[len(history)-s.config.PlateauIterations:]
	lo, hi := recent[0].Score, recent[0].Score
	for _, step := range recent {
		if step.Score < lo {
			lo = step.Score
		}
		if step.Score > hi {
			hi = step.Score
		}
	}

	if hi-lo <= s.config.ScoreTolerance {
		return true, fmt.Sprintf("score plateaued for %d iterations (range: %g)", s.config.PlateauIterations, hi-lo)
	}
	return false, ""
}

// CombinedStrategy converges as soon as any member strategy does.
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

func NewCombinedStrategy(config *ConvergenceConfig) *CombinedStrategy {
	return &CombinedStrategy{
		strategies: []ConvergenceStrategy{
			NewNoImprovementStrategy(config),
			NewPlateauStrategy(config),
		},
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(history []Step) (bool, string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.CheckConvergence(history); converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}
