package stage

import (
	"path/filepath"
	"strings"

	"github.com/aid2e/pipeline-core/internal/naming"
	"github.com/aid2e/pipeline-core/internal/params"
	"github.com/aid2e/pipeline-core/pkg/config"
)

// RecGenerator builds commands and scripts to run the reconstruction
// executable (eicrecon) for a trial. Reconstruction-level design
// parameters are accumulated as -P flags before building the command.
type RecGenerator struct {
	run   *config.RunConfig
	flags FlagSet
}

// NewRecGenerator creates a reconstruction generator. Required run-config
// keys fail fast here rather than mid-trial.
func NewRecGenerator(run *config.RunConfig) (*RecGenerator, error) {
	for _, r := range []struct{ key, value string }{
		{"rec_exec", run.RecExec},
		{"out_path", run.OutPath},
		{"run_path", run.RunPath},
		{"env_setup", run.EnvSetup},
	} {
		if r.value == "" {
			return nil, &config.MissingKeyError{File: "run config", Key: r.key}
		}
	}
	if len(run.RecCollections) == 0 {
		return nil, &config.MissingKeyError{File: "run config", Key: "rec_collections"}
	}
	return &RecGenerator{run: run}, nil
}

// AddParam accumulates a resolved design parameter as a -P flag.
func (g *RecGenerator) AddParam(p params.DesignParameter, value float64) {
	g.flags.AddParam(p, value)
}

// AddFlag accumulates a raw -P flag.
func (g *RecGenerator) AddFlag(path, unit string, value float64) {
	g.flags.Add(path, unit, value)
}

// ClearFlags drops all accumulated flags.
func (g *RecGenerator) ClearFlags() {
	g.flags.Clear()
}

// OutputPath returns where the reconstruction output for this trial lands.
func (g *RecGenerator) OutputPath(tag, label string, input config.InputSample) string {
	steer := naming.SteeringTag(input.Steering)
	return filepath.Join(g.run.OutPath, tag,
		naming.OutputName(tag, label, steer, naming.StageRec, ""))
}

// BuildCommand composes the reconstruction invocation: output file and
// retained collections first, then the accumulated parameter flags in
// insertion order, then the simulation output as input. Collections are
// comma-joined with no trailing separator.
func (g *RecGenerator) BuildCommand(tag, label string, input config.InputSample) (string, error) {
	outDir := filepath.Join(g.run.OutPath, tag)
	if err := ensureDir(outDir); err != nil {
		return "", err
	}

	steer := naming.SteeringTag(input.Steering)
	inFile := filepath.Join(outDir, naming.OutputName(tag, label, steer, naming.StageSim, ""))

	parts := []string{
		g.run.RecExec,
		"-Ppodio:output_file=" + g.OutputPath(tag, label, input),
		`-Ppodio:output_collections="` + strings.Join(g.run.RecCollections, ",") + `"`,
	}
	parts = append(parts, g.flags.Formatted()...)
	parts = append(parts, inFile)

	return strings.Join(parts, " "), nil
}

// BuildScript writes the runner script for the reconstruction stage into
// the trial's run directory and returns its path.
func (g *RecGenerator) BuildScript(tag, label string, input config.InputSample, configName, command string) (string, error) {
	steer := naming.SteeringTag(input.Steering)
	name := naming.ScriptName(tag, label, steer, naming.StageRec)
	return writeScript(filepath.Join(g.run.RunPath, tag), name, g.run.EnvSetup, configName, command)
}
