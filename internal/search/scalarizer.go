package search

import (
	"fmt"
	"sort"
	"strings"
)

// Scalarizer folds the per-objective values of one trial into a single
// score. The optimizer always minimizes the score, so scalarizers for
// quantities that should grow must negate.
type Scalarizer interface {
	// Score computes the scalar score from a trial's objective values.
	Score(objectives map[string]float64) (float64, error)
	// Name returns the name of the scalarization.
	Name() string
}

// MissingObjectiveError reports a scalarization that references an
// objective the trial did not produce.
type MissingObjectiveError struct {
	Objective string
	Available []string
}

func (e *MissingObjectiveError) Error() string {
	return fmt.Sprintf("objective %q not present in trial results (have: %s)",
		e.Objective, strings.Join(e.Available, ", "))
}

// SingleObjective minimizes one named objective directly.
type SingleObjective struct {
	Objective string
}

func (s *SingleObjective) Name() string {
	return s.Objective
}

func (s *SingleObjective) Score(objectives map[string]float64) (float64, error) {
	value, ok := objectives[s.Objective]
	if !ok {
		return 0, &MissingObjectiveError{Objective: s.Objective, Available: objectiveNames(objectives)}
	}
	return value, nil
}

// WeightedSum minimizes a weighted sum of objectives. Every weighted
// objective must be present in the trial results; objectives without a
// weight are ignored.
type WeightedSum struct {
	Weights map[string]float64
}

func (s *WeightedSum) Name() string {
	names := make([]string, 0, len(s.Weights))
	for name := range s.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return "weighted(" + strings.Join(names, ",") + ")"
}

func (s *WeightedSum) Score(objectives map[string]float64) (float64, error) {
	score := 0.0
	for name, weight := range s.Weights {
		value, ok := objectives[name]
		if !ok {
			return 0, &MissingObjectiveError{Objective: name, Available: objectiveNames(objectives)}
		}
		score += weight * value
	}
	return score, nil
}

func objectiveNames(objectives map[string]float64) []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
