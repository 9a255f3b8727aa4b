package config

import (
	"fmt"
	"os"
)

// LoadRunConfig loads and parses the run/environment configuration file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config %s: %w", path, err)
	}
	cfg, err := ParseRunConfig(data, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadParamConfig loads and parses the parameter configuration file.
func LoadParamConfig(path string) (*ParamConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter config %s: %w", path, err)
	}
	cfg, err := ParseParamConfig(data, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse parameter config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadObjectivesConfig loads and parses the objectives configuration file.
func LoadObjectivesConfig(path string) (*ObjectivesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read objectives config %s: %w", path, err)
	}
	cfg, err := ParseObjectivesConfig(data, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse objectives config %s: %w", path, err)
	}
	return cfg, nil
}
