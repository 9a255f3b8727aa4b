package config

import "fmt"

// RunConfig is the run/environment configuration for the trial pipeline.
// It names the external executables, the shared detector install, and the
// roots under which per-trial artifacts and scripts are written.
type RunConfig struct {
	// SimExec is the path to the simulation executable (npsim, ddsim).
	SimExec string `yaml:"sim_exec"`
	// RecExec is the path to the reconstruction executable (eicrecon).
	RecExec string `yaml:"rec_exec"`
	// DetPath is the detector install directory holding the base compact
	// geometry files and the top-level detector config.
	DetPath string `yaml:"det_path"`
	// DetConfig is the base detector config name (no directory, no extension).
	DetConfig string `yaml:"det_config"`
	// OutPath is the root under which stage outputs are written, one
	// subdirectory per trial tag.
	OutPath string `yaml:"out_path"`
	// RunPath is the root under which generated scripts are written.
	RunPath string `yaml:"run_path"`
	// LogPath is where per-trial logs land.
	LogPath string `yaml:"log_path"`
	// EnvSetup is the script sourced by generated stage scripts to
	// activate the runtime environment.
	EnvSetup string `yaml:"env_setup"`
	// ShellEntry is the external wrapper used to invoke trial scripts
	// (e.g. eic-shell). Empty means scripts are executed directly.
	ShellEntry string `yaml:"shell_entry"`
	// RecCollections lists the output collections reconstruction retains.
	RecCollections []string `yaml:"rec_collections"`
	// Inputs maps an input label (particle species and energy) to its
	// event sample.
	Inputs map[string]InputSample `yaml:"inputs"`
	// LogLevel controls daemon logging (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// Retry controls re-running failed stage scripts.
	Retry StageRetry `yaml:"retry"`
}

// StageRetry configures retries of failed stage executions. A zero
// MaxRetries disables retrying.
type StageRetry struct {
	MaxRetries int `yaml:"max_retries"`
	// Backoff is exponential (default), linear, or constant.
	Backoff string `yaml:"backoff"`
	// BaseMs is the base backoff delay in milliseconds.
	BaseMs int `yaml:"base_ms"`
}

// InputSample describes one input event sample.
type InputSample struct {
	// Location is the directory holding the steering file.
	Location string `yaml:"location"`
	// Steering is the steering file name.
	Steering string `yaml:"steering"`
	// Type is the input type (gun, hepmc).
	Type string `yaml:"type"`
}

// ParamConfig is the parameter configuration: the table of editable
// design parameters.
type ParamConfig struct {
	Parameters map[string]ParameterSpec `yaml:"parameters"`
}

// ParameterSpec locates one editable quantity in the geometry description.
type ParameterSpec struct {
	// Compact is the compact file (relative to DetPath) holding the element.
	Compact string `yaml:"compact"`
	// Path is the element path within the compact file, or the -P flag
	// path for reconstruction parameters.
	Path string `yaml:"path"`
	// Attribute is the attribute set on the located element.
	Attribute string `yaml:"attribute"`
	// Units is the physical unit appended to values; empty means
	// dimensionless (e.g. an enable flag).
	Units string `yaml:"units"`
	// Kind is "number" (default) or "flag".
	Kind string `yaml:"kind"`
	// Instances marks a templated family: the name's placeholder is
	// expanded into this many concrete parameters.
	Instances int `yaml:"instances"`
}

// ObjectivesConfig names the objectives computed per trial.
type ObjectivesConfig struct {
	Objectives []string `yaml:"objectives"`
	// Analyses carries per-objective extraction settings. The Cost
	// objective needs no entry: it is computed from parameters alone.
	Analyses map[string]AnalysisSpec `yaml:"analyses"`
}

// AnalysisSpec configures one resolution extraction.
type AnalysisSpec struct {
	// Label is the input sample the analysis reads.
	Label string `yaml:"label"`
	// PDG selects the truth-particle species.
	PDG int `yaml:"pdg"`
	// Quantity is the residual quantity: energy, theta, or phi.
	Quantity string `yaml:"quantity"`
	// Histogram binning; zero values take package defaults.
	Bins int     `yaml:"bins"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	// Window is the half-width of the symmetric fit window around zero.
	Window float64 `yaml:"window"`
}

// MissingKeyError reports a required configuration key that is absent.
// Missing keys fail fast: a silently-defaulted executable or path would
// corrupt a trial's provenance.
type MissingKeyError struct {
	File string
	Key  string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required config key %q in %s", e.Key, e.File)
}
