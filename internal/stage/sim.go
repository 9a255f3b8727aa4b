package stage

import (
	"path/filepath"
	"strings"

	"github.com/aid2e/pipeline-core/internal/naming"
	"github.com/aid2e/pipeline-core/pkg/config"
)

// SimGenerator builds commands and scripts to run the simulation
// executable (npsim, ddsim) for a trial.
type SimGenerator struct {
	run *config.RunConfig
}

// NewSimGenerator creates a simulation generator. Required run-config
// keys fail fast here rather than mid-trial.
func NewSimGenerator(run *config.RunConfig) (*SimGenerator, error) {
	for _, r := range []struct{ key, value string }{
		{"sim_exec", run.SimExec},
		{"out_path", run.OutPath},
		{"run_path", run.RunPath},
		{"env_setup", run.EnvSetup},
	} {
		if r.value == "" {
			return nil, &config.MissingKeyError{File: "run config", Key: r.key}
		}
	}
	return &SimGenerator{run: run}, nil
}

// OutputPath returns where the simulation output for this trial lands.
func (g *SimGenerator) OutputPath(tag, label string, input config.InputSample) string {
	steer := naming.SteeringTag(input.Steering)
	return filepath.Join(g.run.OutPath, tag,
		naming.OutputName(tag, label, steer, naming.StageSim, ""))
}

// BuildCommand composes the simulation invocation. The compact file is
// selected through the DETECTOR_CONFIG exported by the script, so the
// command itself is geometry-agnostic; gun-type inputs get the generator
// switch. Extra flags keep their caller-specified order.
func (g *SimGenerator) BuildCommand(tag, label string, input config.InputSample, flags *FlagSet) (string, error) {
	outDir := filepath.Join(g.run.OutPath, tag)
	if err := ensureDir(outDir); err != nil {
		return "", err
	}

	parts := []string{
		g.run.SimExec,
		"--compactFile $DETECTOR_PATH/$DETECTOR_CONFIG.xml",
		"--steeringFile " + filepath.Join(input.Location, input.Steering),
	}
	if input.Type == "gun" {
		parts = append(parts, "-G")
	}
	if flags != nil {
		parts = append(parts, flags.Formatted()...)
	}
	parts = append(parts, "--outputFile "+g.OutputPath(tag, label, input))

	return strings.Join(parts, " "), nil
}

// BuildScript writes the runner script for the simulation stage into the
// trial's run directory and returns its path.
func (g *SimGenerator) BuildScript(tag, label string, input config.InputSample, configName, command string) (string, error) {
	steer := naming.SteeringTag(input.Steering)
	name := naming.ScriptName(tag, label, steer, naming.StageSim)
	return writeScript(filepath.Join(g.run.RunPath, tag), name, g.run.EnvSetup, configName, command)
}
