package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseRunConfig parses a RunConfig from YAML or JSON bytes and validates it.
// YAML 1.2 is a superset of JSON, so both config dialects decode the same way.
func ParseRunConfig(data []byte, file string) (*RunConfig, error) {
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}
	if err := validateRunConfig(&cfg, file); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseParamConfig parses a ParamConfig from YAML or JSON bytes and validates it.
func ParseParamConfig(data []byte, file string) (*ParamConfig, error) {
	var cfg ParamConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse parameter config: %w", err)
	}
	if err := validateParamConfig(&cfg, file); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseObjectivesConfig parses an ObjectivesConfig from YAML or JSON bytes
// and validates it.
func ParseObjectivesConfig(data []byte, file string) (*ObjectivesConfig, error) {
	var cfg ObjectivesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse objectives config: %w", err)
	}
	if err := validateObjectivesConfig(&cfg, file); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateRunConfig checks every required run-config key is present.
func validateRunConfig(cfg *RunConfig, file string) error {
	required := []struct {
		key   string
		value string
	}{
		{"sim_exec", cfg.SimExec},
		{"rec_exec", cfg.RecExec},
		{"det_path", cfg.DetPath},
		{"det_config", cfg.DetConfig},
		{"out_path", cfg.OutPath},
		{"run_path", cfg.RunPath},
		{"env_setup", cfg.EnvSetup},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingKeyError{File: file, Key: r.key}
		}
	}
	if len(cfg.RecCollections) == 0 {
		return &MissingKeyError{File: file, Key: "rec_collections"}
	}
	for _, coll := range cfg.RecCollections {
		if strings.TrimSpace(coll) == "" {
			return fmt.Errorf("run config %s: empty entry in rec_collections", file)
		}
	}
	if len(cfg.Inputs) == 0 {
		return &MissingKeyError{File: file, Key: "inputs"}
	}
	for label, in := range cfg.Inputs {
		if label == "" {
			return fmt.Errorf("run config %s: input label cannot be empty", file)
		}
		if in.Steering == "" {
			return fmt.Errorf("run config %s: input %s has no steering file", file, label)
		}
	}
	return nil
}

// validateParamConfig checks every parameter entry is locatable.
func validateParamConfig(cfg *ParamConfig, file string) error {
	if len(cfg.Parameters) == 0 {
		return &MissingKeyError{File: file, Key: "parameters"}
	}
	for name, spec := range cfg.Parameters {
		if name == "" {
			return fmt.Errorf("parameter config %s: parameter name cannot be empty", file)
		}
		if spec.Path == "" {
			return fmt.Errorf("parameter config %s: parameter %s has no path", file, name)
		}
		if spec.Attribute == "" {
			return fmt.Errorf("parameter config %s: parameter %s has no attribute", file, name)
		}
		if spec.Instances < 0 {
			return fmt.Errorf("parameter config %s: parameter %s has negative instances", file, name)
		}
		switch spec.Kind {
		case "", "number", "flag":
		default:
			return fmt.Errorf("parameter config %s: parameter %s has invalid kind %q (must be number or flag)", file, name, spec.Kind)
		}
	}
	return nil
}

// validateObjectivesConfig checks the objective list and analysis settings.
func validateObjectivesConfig(cfg *ObjectivesConfig, file string) error {
	if len(cfg.Objectives) == 0 {
		return &MissingKeyError{File: file, Key: "objectives"}
	}
	seen := make(map[string]bool, len(cfg.Objectives))
	for _, name := range cfg.Objectives {
		if name == "" {
			return fmt.Errorf("objectives config %s: objective name cannot be empty", file)
		}
		if seen[name] {
			return fmt.Errorf("objectives config %s: duplicate objective %s", file, name)
		}
		seen[name] = true
	}
	for name, ana := range cfg.Analyses {
		if !seen[name] {
			return fmt.Errorf("objectives config %s: analysis %s has no matching objective", file, name)
		}
		if ana.Label == "" {
			return fmt.Errorf("objectives config %s: analysis %s has no input label", file, name)
		}
		if ana.PDG == 0 {
			return fmt.Errorf("objectives config %s: analysis %s has no pdg selector", file, name)
		}
		switch ana.Quantity {
		case "", "energy", "theta", "phi":
		default:
			return fmt.Errorf("objectives config %s: analysis %s has invalid quantity %q", file, name, ana.Quantity)
		}
		if ana.Bins < 0 || ana.Window < 0 {
			return fmt.Errorf("objectives config %s: analysis %s has negative binning", file, name)
		}
		if ana.Min != 0 || ana.Max != 0 {
			if ana.Min >= ana.Max {
				return fmt.Errorf("objectives config %s: analysis %s has min >= max", file, name)
			}
		}
	}
	return nil
}
