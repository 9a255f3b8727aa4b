package triald

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aid2e/pipeline-core/internal/trial"
	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/models"
)

// newCostManager builds a manager whose only objective is the
// parameter-derived cost, so no external stage ever runs.
func newCostManager(t *testing.T, runner trial.Runner) *trial.Manager {
	t.Helper()
	root := t.TempDir()
	run := &config.RunConfig{
		SimExec:        "npsim",
		RecExec:        "eicrecon",
		DetPath:        root,
		DetConfig:      "epic",
		OutPath:        filepath.Join(root, "out"),
		RunPath:        filepath.Join(root, "run"),
		EnvSetup:       "/opt/detector/setup.sh",
		RecCollections: []string{"EcalBarrelClusters"},
		Inputs: map[string]config.InputSample{
			"single_electron": {Steering: "central.e5ele.py", Type: "gun"},
		},
	}
	paramCfg := &config.ParamConfig{Parameters: map[string]config.ParameterSpec{
		"enable_imaging": {Path: "BEMC:imaging", Attribute: "value", Kind: "flag"},
		"enable_tof":     {Path: "BEMC:tof", Attribute: "value", Kind: "flag"},
	}}
	objCfg := &config.ObjectivesConfig{Objectives: []string{"Cost"}}

	m, err := trial.NewManager(run, paramCfg, objCfg, runner)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// newPipelineManager builds a manager with a resolution objective so the
// given runner is actually invoked for the simulation stage.
func newPipelineManager(t *testing.T, runner trial.Runner) *trial.Manager {
	t.Helper()
	root := t.TempDir()
	detPath := filepath.Join(root, "detector")
	if err := os.MkdirAll(filepath.Join(detPath, "compact"), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	compact := "<lccdd>\n  <detector name=\"EcalBarrel\">\n    <dimensions z=\"10*cm\"/>\n  </detector>\n</lccdd>\n"
	if err := os.WriteFile(filepath.Join(detPath, "compact", "ecal_barrel.xml"), []byte(compact), 0o644); err != nil {
		t.Fatalf("write compact failed: %v", err)
	}
	cfg := "<lccdd>\n  <include ref=\"compact/ecal_barrel.xml\"/>\n</lccdd>\n"
	if err := os.WriteFile(filepath.Join(detPath, "epic.xml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	run := &config.RunConfig{
		SimExec:        "npsim",
		RecExec:        "eicrecon",
		DetPath:        detPath,
		DetConfig:      "epic",
		OutPath:        filepath.Join(root, "out"),
		RunPath:        filepath.Join(root, "run"),
		EnvSetup:       "/opt/detector/setup.sh",
		RecCollections: []string{"EcalBarrelClusters"},
		Inputs: map[string]config.InputSample{
			"single_electron": {Steering: "central.e5ele.py", Type: "gun"},
		},
	}
	paramCfg := &config.ParamConfig{Parameters: map[string]config.ParameterSpec{
		"EcalBarrel_length": {
			Compact:   "compact/ecal_barrel.xml",
			Path:      "//detector[@name='EcalBarrel']",
			Attribute: "z",
			Units:     "cm",
		},
	}}
	objCfg := &config.ObjectivesConfig{
		Objectives: []string{"BECAL_energy_res"},
		Analyses: map[string]config.AnalysisSpec{
			"BECAL_energy_res": {Label: "single_electron", PDG: 11},
		},
	}

	m, err := trial.NewManager(run, paramCfg, objCfg, runner)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// blockingRunner parks until its context is cancelled.
type blockingRunner struct {
	startedOnce sync.Once
	started     chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context, script string) error {
	r.startedOnce.Do(func() { close(r.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestExecutorEvaluateCostOnly(t *testing.T) {
	store := NewTrialStore()
	exec := NewTrialExecutor(store, newCostManager(t, nil))

	trial, results, err := exec.Evaluate(context.Background(), "", map[string]float64{
		"enable_imaging": 1,
		"enable_tof":     1,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if trial.Status != models.TrialStatusComplete {
		t.Errorf("expected complete trial, got %s", trial.Status)
	}
	if results["Cost"] != 2 {
		t.Errorf("expected Cost 2, got %v", results["Cost"])
	}

	// The evaluated trial is visible in the store.
	if _, ok := store.Get(trial.Tag); !ok {
		t.Error("evaluated trial missing from store")
	}
}

func TestExecutorEvaluateUnknownParameter(t *testing.T) {
	store := NewTrialStore()
	exec := NewTrialExecutor(store, newCostManager(t, nil))

	trial, _, err := exec.Evaluate(context.Background(), "", map[string]float64{
		"no_such_parameter": 1,
	})
	if err == nil {
		t.Fatal("expected evaluation to fail")
	}
	if trial == nil || trial.Status != models.TrialStatusFailed {
		t.Errorf("expected failed trial, got %+v", trial)
	}
}

func TestExecutorStartRequiresKnownTrial(t *testing.T) {
	exec := NewTrialExecutor(NewTrialStore(), newCostManager(t, nil))

	if _, err := exec.Start(""); err != ErrTagMissing {
		t.Errorf("expected ErrTagMissing, got %v", err)
	}
	if _, err := exec.Start("missing"); err == nil {
		t.Error("expected unknown trial to be rejected")
	}
}

func TestExecutorStartAndWait(t *testing.T) {
	store := NewTrialStore()
	exec := NewTrialExecutor(store, newCostManager(t, nil))

	if _, err := store.Create("T1", map[string]float64{"enable_imaging": 1}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := exec.Start("T1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	exec.Wait()

	trial, ok := store.Get("T1")
	if !ok {
		t.Fatal("trial missing from store")
	}
	if trial.Status != models.TrialStatusComplete {
		t.Errorf("expected complete trial, got %s", trial.Status)
	}
	if trial.Objectives["Cost"] == nil || trial.Objectives["Cost"].Value != 1 {
		t.Errorf("unexpected cost result: %+v", trial.Objectives["Cost"])
	}

	// A terminal trial cannot be restarted.
	if _, err := exec.Start("T1"); err == nil {
		t.Error("expected restart of terminal trial to be rejected")
	}
}

func TestExecutorCancelRunningTrial(t *testing.T) {
	runner := newBlockingRunner()
	store := NewTrialStore()
	exec := NewTrialExecutor(store, newPipelineManager(t, runner))

	if _, err := store.Create("T2", map[string]float64{"EcalBarrel_length": 20}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := exec.Start("T2"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation stage never started")
	}

	if _, err := exec.Cancel("T2"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	exec.Wait()

	trial, ok := store.Get("T2")
	if !ok {
		t.Fatal("trial missing from store")
	}
	if trial.Status != models.TrialStatusFailed {
		t.Errorf("expected failed trial after cancellation, got %s", trial.Status)
	}
	if trial.Error == "" {
		t.Error("expected cancellation cause on the trial")
	}
}

func TestExecutorCancelUnknownTrial(t *testing.T) {
	exec := NewTrialExecutor(NewTrialStore(), newCostManager(t, nil))
	if _, err := exec.Cancel("missing"); err == nil {
		t.Error("expected unknown trial to be rejected")
	}
}
