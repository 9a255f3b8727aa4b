// Package trial drives one full pipeline evaluation: geometry
// materialization and edits, the external simulation and reconstruction
// stages, and objective extraction. The manager owns the trial state
// machine; everything it produces lives under the trial's tag.
package trial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aid2e/pipeline-core/internal/geometry"
	"github.com/aid2e/pipeline-core/internal/naming"
	"github.com/aid2e/pipeline-core/internal/objective"
	"github.com/aid2e/pipeline-core/internal/params"
	"github.com/aid2e/pipeline-core/internal/stage"
	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/logger"
	"github.com/aid2e/pipeline-core/pkg/models"
	"github.com/aid2e/pipeline-core/pkg/utils"
)

// SimulationFailedError reports a failed simulation stage for one input
// sample of a trial.
type SimulationFailedError struct {
	Tag   string
	Label string
	Err   error
}

func (e *SimulationFailedError) Error() string {
	return fmt.Sprintf("simulation failed for trial %s input %s: %v", e.Tag, e.Label, e.Err)
}

func (e *SimulationFailedError) Unwrap() error { return e.Err }

// ReconstructionFailedError reports a failed reconstruction stage for one
// input sample of a trial.
type ReconstructionFailedError struct {
	Tag   string
	Label string
	Err   error
}

func (e *ReconstructionFailedError) Error() string {
	return fmt.Sprintf("reconstruction failed for trial %s input %s: %v", e.Tag, e.Label, e.Err)
}

func (e *ReconstructionFailedError) Unwrap() error { return e.Err }

// resolvedValue pairs a resolved design parameter with its trial value.
type resolvedValue struct {
	param params.DesignParameter
	value float64
}

// Manager evaluates trials against one configuration set. A single
// manager may execute trials concurrently: all per-trial state lives in
// the Trial and in tag-qualified artifacts.
type Manager struct {
	run        *config.RunConfig
	objectives *config.ObjectivesConfig
	registry   *params.Registry
	mat        *geometry.Materializer
	runner     Runner
}

// NewManager wires a manager over the three configuration files. Every
// non-cost objective must carry analysis settings whose input label is
// declared in the run config; dangling references fail here, not
// mid-trial.
func NewManager(run *config.RunConfig, paramCfg *config.ParamConfig, objCfg *config.ObjectivesConfig, runner Runner) (*Manager, error) {
	for _, name := range objCfg.Objectives {
		if name == objective.CostName {
			continue
		}
		ana, ok := objCfg.Analyses[name]
		if !ok {
			return nil, fmt.Errorf("objective %s has no analysis settings", name)
		}
		if _, ok := run.Inputs[ana.Label]; !ok {
			return nil, fmt.Errorf("objective %s references unknown input label %s", name, ana.Label)
		}
	}
	if runner == nil {
		runner = &ShellRunner{ShellEntry: run.ShellEntry, LogDir: run.LogPath}
		if run.Retry.MaxRetries > 0 {
			runner = NewRetryRunner(runner, run.Retry)
		}
	}
	return &Manager{
		run:        run,
		objectives: objCfg,
		registry:   params.NewRegistry(paramCfg),
		mat:        geometry.NewMaterializer(run),
		runner:     runner,
	}, nil
}

// RunTrial evaluates one parameter set under a fresh trial record and
// returns the mapping from objective name to the sidecar path its value
// was extracted from. Parameter-only objectives carry no path.
func (m *Manager) RunTrial(ctx context.Context, tag string, values map[string]float64) (map[string]string, error) {
	t := models.NewTrial(tag, values)
	if err := m.Execute(ctx, t); err != nil {
		return nil, err
	}
	return t.ObjectivePaths, nil
}

// Execute drives the trial through the pipeline state machine, filling
// in objective paths and results. On failure the trial is moved to
// Failed with the cause recorded, and the error is returned.
func (m *Manager) Execute(ctx context.Context, t *models.Trial) error {
	t.StartedAt = time.Now().UTC()
	logger.Info("trial started", "tag", t.Tag, "parameters", len(t.Parameters))

	edits, recFlags, flagValues, err := m.resolveValues(t.Parameters)
	if err != nil {
		return m.fail(t, err)
	}

	labels := m.pipelineLabels()

	// Geometry. Materialization and edits only happen when a pipeline
	// stage will consume the geometry; the milestone is recorded either way.
	if len(labels) > 0 {
		if err := m.prepareGeometry(t.Tag, edits); err != nil {
			return m.fail(t, err)
		}
	}
	if err := t.Transition(models.TrialStatusGeometryReady); err != nil {
		return m.fail(t, err)
	}

	// Simulation, every needed input sample.
	simGen, err := stage.NewSimGenerator(m.run)
	if err != nil {
		return m.fail(t, err)
	}
	configName := m.mat.ConfigName(t.Tag)
	for _, label := range labels {
		input := m.run.Inputs[label]
		cmd, err := simGen.BuildCommand(t.Tag, label, input, nil)
		if err != nil {
			return m.fail(t, &SimulationFailedError{Tag: t.Tag, Label: label, Err: err})
		}
		script, err := simGen.BuildScript(t.Tag, label, input, configName, cmd)
		if err != nil {
			return m.fail(t, &SimulationFailedError{Tag: t.Tag, Label: label, Err: err})
		}
		if err := m.runStage(ctx, script, simGen.OutputPath(t.Tag, label, input)); err != nil {
			return m.fail(t, &SimulationFailedError{Tag: t.Tag, Label: label, Err: err})
		}
	}
	if err := t.Transition(models.TrialStatusSimulated); err != nil {
		return m.fail(t, err)
	}

	// Reconstruction. A fresh generator per trial keeps the accumulated
	// parameter flags out of any shared state.
	recGen, err := stage.NewRecGenerator(m.run)
	if err != nil {
		return m.fail(t, err)
	}
	for _, rv := range recFlags {
		recGen.AddParam(rv.param, rv.value)
	}
	for _, label := range labels {
		input := m.run.Inputs[label]
		cmd, err := recGen.BuildCommand(t.Tag, label, input)
		if err != nil {
			return m.fail(t, &ReconstructionFailedError{Tag: t.Tag, Label: label, Err: err})
		}
		script, err := recGen.BuildScript(t.Tag, label, input, configName, cmd)
		if err != nil {
			return m.fail(t, &ReconstructionFailedError{Tag: t.Tag, Label: label, Err: err})
		}
		if err := m.runStage(ctx, script, recGen.OutputPath(t.Tag, label, input)); err != nil {
			return m.fail(t, &ReconstructionFailedError{Tag: t.Tag, Label: label, Err: err})
		}
	}
	if err := t.Transition(models.TrialStatusReconstructed); err != nil {
		return m.fail(t, err)
	}

	// Objectives.
	if err := m.analyze(t, recGen, flagValues); err != nil {
		return m.fail(t, err)
	}
	if err := t.Transition(models.TrialStatusAnalyzed); err != nil {
		return m.fail(t, err)
	}
	if err := t.Transition(models.TrialStatusComplete); err != nil {
		return m.fail(t, err)
	}

	logger.Info("trial complete", "tag", t.Tag, "objectives", len(t.Objectives))
	return nil
}

// EvaluateTrial is the optimizer-facing callable: it evaluates one
// parameter set and returns the scalar value of every objective, read
// back through each objective's sidecar record. An empty tag mints a
// fresh one.
func (m *Manager) EvaluateTrial(ctx context.Context, tag string, values map[string]float64) (map[string]float64, error) {
	t, err := m.newTrial(tag, values)
	if err != nil {
		return nil, err
	}
	if err := m.Execute(ctx, t); err != nil {
		return nil, err
	}

	results := make(map[string]float64, len(t.Objectives))
	for name, res := range t.Objectives {
		if res.SidecarPath == "" {
			results[name] = res.Value
			continue
		}
		value, err := objective.ReadSidecar(res.SidecarPath)
		if err != nil {
			return nil, err
		}
		results[name] = value
	}
	return results, nil
}

func (m *Manager) newTrial(tag string, values map[string]float64) (*models.Trial, error) {
	if tag == "" {
		tag = utils.GenerateTrialTag()
	} else if !utils.ValidTag(tag) {
		return nil, fmt.Errorf("invalid trial tag %q", tag)
	}
	return models.NewTrial(tag, values), nil
}

// resolveValues resolves every named value against the parameter
// registry before any artifact is touched, splitting geometry edits from
// reconstruction flags. Flag-kind values are collected separately for
// the cost objective. Order is by name so identical parameter sets
// always produce identical edit and flag sequences.
func (m *Manager) resolveValues(values map[string]float64) (edits, recFlags []resolvedValue, flagValues map[string]float64, err error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	flagValues = make(map[string]float64)
	for _, name := range names {
		p, err := m.registry.Resolve(name)
		if err != nil {
			return nil, nil, nil, err
		}
		rv := resolvedValue{param: p, value: values[name]}
		if p.Compact != "" {
			edits = append(edits, rv)
		} else {
			recFlags = append(recFlags, rv)
		}
		if p.Kind == params.KindFlag {
			flagValues[name] = values[name]
		}
	}
	return edits, recFlags, flagValues, nil
}

// pipelineLabels lists the input samples the configured objectives need,
// sorted and deduplicated. Empty means no objective touches the pipeline.
func (m *Manager) pipelineLabels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, name := range m.objectives.Objectives {
		if name == objective.CostName {
			continue
		}
		label := m.objectives.Analyses[name].Label
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// prepareGeometry materializes the trial's detector config and applies
// every geometry-level edit to tag-qualified compact copies, repointing
// the config at each edited copy.
func (m *Manager) prepareGeometry(tag string, edits []resolvedValue) error {
	configPath, err := m.mat.MaterializeConfig(tag)
	if err != nil {
		return err
	}
	for _, rv := range edits {
		compactPath, err := m.mat.MaterializeCompact(rv.param.Compact, tag)
		if err != nil {
			return err
		}
		if err := geometry.EditParameter(compactPath, rv.param, rv.value); err != nil {
			return err
		}
		if err := geometry.RetargetCompactReference(configPath, rv.param.Compact, tag); err != nil {
			return err
		}
	}
	return nil
}

// runStage executes one stage script and verifies the expected artifact
// appeared. A clean exit with a missing artifact is still a failure.
func (m *Manager) runStage(ctx context.Context, script, artifact string) error {
	if err := m.runner.Run(ctx, script); err != nil {
		return err
	}
	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("expected artifact %s absent after %s", artifact, script)
	}
	return nil
}

// analyze extracts every configured objective. The cost objective is
// computed directly from the trial's flag values; resolution objectives
// read the reconstruction artifact of their input sample. An empty
// selection fails only the objective it belongs to; the trial fails only
// when no objective could be extracted at all.
func (m *Manager) analyze(t *models.Trial, recGen *stage.RecGenerator, flagValues map[string]float64) error {
	t.ObjectivePaths = make(map[string]string)
	t.Objectives = make(map[string]*models.ObjectiveResult)
	var failures []string

	for _, name := range m.objectives.Objectives {
		if name == objective.CostName {
			t.Objectives[name] = &models.ObjectiveResult{
				Name:  name,
				Value: objective.Cost(flagValues),
			}
			continue
		}

		ana := m.objectives.Analyses[name]
		input := m.run.Inputs[ana.Label]
		recPath := recGen.OutputPath(t.Tag, ana.Label, input)

		res, err := objective.ComputeResolution(recPath, objective.Selector{
			PDG:      ana.PDG,
			Quantity: objective.Quantity(ana.Quantity),
			Bins:     ana.Bins,
			Min:      ana.Min,
			Max:      ana.Max,
			Window:   ana.Window,
		})
		if err != nil {
			var noMatch *objective.NoMatchingParticlesError
			if errors.As(err, &noMatch) {
				logger.Warn("objective skipped", "tag", t.Tag, "objective", name, "cause", err)
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			return err
		}

		steer := naming.SteeringTag(input.Steering)
		anaName := naming.OutputName(t.Tag, ana.Label, steer, naming.StageAna, name)
		outDir := filepath.Join(m.run.OutPath, t.Tag)
		sidecarPath := filepath.Join(outDir, naming.SidecarName(anaName))
		fitPath := filepath.Join(outDir, naming.FitName(anaName))
		if err := res.Persist(fitPath, sidecarPath); err != nil {
			return err
		}

		t.ObjectivePaths[name] = sidecarPath
		t.Objectives[name] = &models.ObjectiveResult{
			Name:        name,
			Value:       res.Sigma,
			Uncertainty: res.SigmaError,
			Mean:        res.Mean,
			MeanError:   res.MeanError,
			SidecarPath: sidecarPath,
			FitPath:     fitPath,
		}
	}

	if len(failures) > 0 {
		t.Error = strings.Join(failures, "; ")
	}
	if len(t.Objectives) == 0 {
		return fmt.Errorf("trial %s: no objective could be extracted: %s", t.Tag, t.Error)
	}
	return nil
}

// fail records the cause on the trial and moves it to Failed.
func (m *Manager) fail(t *models.Trial, cause error) error {
	t.Error = cause.Error()
	if err := t.Transition(models.TrialStatusFailed); err != nil {
		logger.Error("failed to mark trial failed", "tag", t.Tag, "error", err)
	}
	logger.Error("trial failed", "tag", t.Tag, "error", cause)
	return cause
}
