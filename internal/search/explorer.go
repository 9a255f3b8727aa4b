package search

import (
	"fmt"
	"sort"
)

// Bound is the inclusive range a design parameter may take during
// exploration.
type Bound struct {
	Lo float64
	Hi float64
}

// Valid reports whether the bound spans a non-empty interval.
func (b Bound) Valid() bool {
	return b.Hi > b.Lo
}

// Clamp restricts v to the bound.
func (b Bound) Clamp(v float64) float64 {
	if v < b.Lo {
		return b.Lo
	}
	if v > b.Hi {
		return b.Hi
	}
	return v
}

// Explorer generates candidate parameter vectors around a base point.
type Explorer interface {
	// Neighbors creates neighboring parameter vectors. The step is a
	// fraction of each parameter's bounded range.
	Neighbors(base map[string]float64, step float64) []map[string]float64
	// Name returns the name of the exploration strategy.
	Name() string
}

// AxisExplorer perturbs one bounded parameter at a time, up and down by
// step*(hi-lo), clamped to the bound. Parameters without a bound are
// held fixed.
type AxisExplorer struct {
	Bounds map[string]Bound
}

// NewAxisExplorer creates an axis explorer, rejecting empty or inverted
// bounds up front so a bad range fails before any trial runs.
func NewAxisExplorer(bounds map[string]Bound) (*AxisExplorer, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("axis explorer needs at least one bounded parameter")
	}
	for name, b := range bounds {
		if !b.Valid() {
			return nil, fmt.Errorf("bound for %s is empty: [%g, %g]", name, b.Lo, b.Hi)
		}
	}
	return &AxisExplorer{Bounds: bounds}, nil
}

func (e *AxisExplorer) Name() string {
	return "axis"
}

func (e *AxisExplorer) Neighbors(base map[string]float64, step float64) []map[string]float64 {
	names := make([]string, 0, len(e.Bounds))
	for name := range e.Bounds {
		names = append(names, name)
	}
	sort.Strings(names)

	neighbors := make([]map[string]float64, 0, 2*len(names))
	for _, name := range names {
		bound := e.Bounds[name]
		current := bound.Clamp(base[name])
		delta := step * (bound.Hi - bound.Lo)

		for _, candidate := range []float64{current + delta, current - delta} {
			candidate = bound.Clamp(candidate)
			if candidate == current {
				continue
			}
			neighbor := cloneValues(base)
			neighbor[name] = candidate
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// Start returns the base point with every bounded parameter clamped
// into its range, defaulting absent parameters to the range midpoint.
func (e *AxisExplorer) Start(base map[string]float64) map[string]float64 {
	start := cloneValues(base)
	for name, bound := range e.Bounds {
		if v, ok := start[name]; ok {
			start[name] = bound.Clamp(v)
			continue
		}
		start[name] = bound.Lo + (bound.Hi-bound.Lo)/2
	}
	return start
}

func cloneValues(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for name, v := range values {
		out[name] = v
	}
	return out
}
