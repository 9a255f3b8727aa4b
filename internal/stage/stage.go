// Package stage builds the invocation commands and runner scripts for the
// external simulation and reconstruction executables. Input and output
// paths always come from the naming grammar; parameter flags keep their
// insertion order so identical inputs always produce identical commands.
package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aid2e/pipeline-core/internal/params"
)

// Flag is one -P parameter handed to an external executable.
type Flag struct {
	Path  string
	Unit  string
	Value float64
}

// Format renders the flag as -P<path>="<value>*<unit>", dropping the
// unit for dimensionless parameters.
func (f Flag) Format() string {
	v := strconv.FormatFloat(f.Value, 'g', -1, 64)
	if f.Unit != "" {
		return fmt.Sprintf("-P%s=%q", f.Path, v+"*"+f.Unit)
	}
	return fmt.Sprintf("-P%s=%q", f.Path, v)
}

// FlagSet accumulates flags in insertion order. Order matters: command
// strings must be reproducible for identical inputs.
type FlagSet struct {
	flags []Flag
}

// Add appends a raw flag.
func (s *FlagSet) Add(path, unit string, value float64) {
	s.flags = append(s.flags, Flag{Path: path, Unit: unit, Value: value})
}

// AddParam appends a flag derived from a resolved design parameter.
func (s *FlagSet) AddParam(p params.DesignParameter, value float64) {
	s.Add(p.Path, p.Unit, value)
}

// Clear drops all accumulated flags.
func (s *FlagSet) Clear() {
	s.flags = s.flags[:0]
}

// Formatted renders every flag in insertion order.
func (s *FlagSet) Formatted() []string {
	out := make([]string, len(s.flags))
	for i, f := range s.flags {
		out[i] = f.Format()
	}
	return out
}

// Len returns the number of accumulated flags.
func (s *FlagSet) Len() int {
	return len(s.flags)
}

// ensureDir creates an output or run directory if missing. Existing
// directories and their contents are never touched.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// writeScript writes a stage runner script: environment activation, the
// detector-config selector export, then the stage command. The selector
// is passed in explicitly rather than read from any ambient state, so
// each script pins its own trial's geometry.
func writeScript(dir, name, envSetup, configName, command string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	content := "#!/bin/bash\n\n" +
		"source " + envSetup + "\n" +
		"export DETECTOR_CONFIG=" + configName + "\n\n" +
		command + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return "", fmt.Errorf("failed to write script %s: %w", path, err)
	}
	return path, nil
}
