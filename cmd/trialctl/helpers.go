package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aid2e/pipeline-core/internal/search"
	"github.com/aid2e/pipeline-core/internal/trial"
	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/logger"
)

// buildManager loads the three configuration files named by the root
// flags and wires a trial manager over them.
func buildManager() (*trial.Manager, *config.RunConfig, error) {
	logger.SetDefault(logger.NewText(rootFlags.logLevel, os.Stderr))

	runCfg, err := config.LoadRunConfig(rootFlags.runConfig)
	if err != nil {
		return nil, nil, err
	}
	paramCfg, err := config.LoadParamConfig(rootFlags.paramConfig)
	if err != nil {
		return nil, nil, err
	}
	objCfg, err := config.LoadObjectivesConfig(rootFlags.objConfig)
	if err != nil {
		return nil, nil, err
	}

	m, err := trial.NewManager(runCfg, paramCfg, objCfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return m, runCfg, nil
}

// parseAssignments parses repeated name=value flags into a value map.
func parseAssignments(assignments []string) (map[string]float64, error) {
	values := make(map[string]float64, len(assignments))
	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q (want name=value)", a)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q: %w", a, err)
		}
		values[name] = v
	}
	return values, nil
}

// sweepAxis is one swept parameter: steps evenly spaced points from min
// to max inclusive.
type sweepAxis struct {
	name   string
	points []float64
}

// parseSweepAxis parses a name=min:max:steps sweep specification.
func parseSweepAxis(spec string) (sweepAxis, error) {
	name, raw, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return sweepAxis{}, fmt.Errorf("invalid sweep %q (want name=min:max:steps)", spec)
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return sweepAxis{}, fmt.Errorf("invalid sweep %q (want name=min:max:steps)", spec)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return sweepAxis{}, fmt.Errorf("invalid sweep minimum in %q: %w", spec, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return sweepAxis{}, fmt.Errorf("invalid sweep maximum in %q: %w", spec, err)
	}
	steps, err := strconv.Atoi(parts[2])
	if err != nil || steps < 1 {
		return sweepAxis{}, fmt.Errorf("invalid sweep step count in %q", spec)
	}

	points := make([]float64, steps)
	if steps == 1 {
		points[0] = lo
	} else {
		width := (hi - lo) / float64(steps-1)
		for i := range points {
			points[i] = lo + width*float64(i)
		}
	}
	return sweepAxis{name: name, points: points}, nil
}

// parseBounds parses repeated name=min:max bound specifications.
func parseBounds(specs []string) (map[string]search.Bound, error) {
	bounds := make(map[string]search.Bound, len(specs))
	for _, spec := range specs {
		name, raw, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid bound %q (want name=min:max)", spec)
		}
		loRaw, hiRaw, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid bound %q (want name=min:max)", spec)
		}
		lo, err := strconv.ParseFloat(loRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bound minimum in %q: %w", spec, err)
		}
		hi, err := strconv.ParseFloat(hiRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bound maximum in %q: %w", spec, err)
		}
		bounds[name] = search.Bound{Lo: lo, Hi: hi}
	}
	return bounds, nil
}

// gridPoints expands sweep axes into the full cartesian grid, each point
// merged over the fixed assignments.
func gridPoints(fixed map[string]float64, axes []sweepAxis) []map[string]float64 {
	grid := []map[string]float64{copyValues(fixed)}
	for _, axis := range axes {
		next := make([]map[string]float64, 0, len(grid)*len(axis.points))
		for _, base := range grid {
			for _, v := range axis.points {
				point := copyValues(base)
				point[axis.name] = v
				next = append(next, point)
			}
		}
		grid = next
	}
	return grid
}

func copyValues(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
