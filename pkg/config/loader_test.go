package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadRunConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.config", validRunYAML)

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SimExec != "/usr/local/bin/npsim" {
		t.Errorf("expected sim_exec /usr/local/bin/npsim, got %s", cfg.SimExec)
	}
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.config")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadParamConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "parameters.config", "parameters: [not: a: map")

	if _, err := LoadParamConfig(path); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}

func TestLoadObjectivesConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "objectives.config", `{"objectives": ["Cost"]}`)

	cfg, err := LoadObjectivesConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Objectives) != 1 || cfg.Objectives[0] != "Cost" {
		t.Errorf("expected single Cost objective, got %v", cfg.Objectives)
	}
}
