package models

import "testing"

func TestTrialTransitionOrder(t *testing.T) {
	trial := NewTrial("T1", map[string]float64{"enable_staves_2": 1})

	order := []TrialStatus{
		TrialStatusGeometryReady,
		TrialStatusSimulated,
		TrialStatusReconstructed,
		TrialStatusAnalyzed,
		TrialStatusComplete,
	}
	for _, next := range order {
		if err := trial.Transition(next); err != nil {
			t.Fatalf("unexpected error transitioning to %s: %v", next, err)
		}
		if trial.Status != next {
			t.Fatalf("expected status %s, got %s", next, trial.Status)
		}
	}
	if trial.FinishedAt.IsZero() {
		t.Errorf("expected finished timestamp on completion")
	}
}

func TestTrialTransitionSkipRejected(t *testing.T) {
	trial := NewTrial("T1", nil)
	if err := trial.Transition(TrialStatusSimulated); err == nil {
		t.Fatalf("expected error skipping geometry_ready")
	}
}

func TestTrialFailedFromAnyNonTerminal(t *testing.T) {
	for _, from := range []TrialStatus{
		TrialStatusCreated,
		TrialStatusGeometryReady,
		TrialStatusSimulated,
		TrialStatusReconstructed,
		TrialStatusAnalyzed,
	} {
		trial := NewTrial("T1", nil)
		trial.Status = from
		if err := trial.Transition(TrialStatusFailed); err != nil {
			t.Fatalf("unexpected error failing from %s: %v", from, err)
		}
	}
}

func TestTrialTerminalRejectsTransitions(t *testing.T) {
	trial := NewTrial("T1", nil)
	trial.Status = TrialStatusFailed
	if err := trial.Transition(TrialStatusGeometryReady); err == nil {
		t.Fatalf("expected error transitioning out of failed")
	}
	var invalid *InvalidTransitionError
	err := trial.Transition(TrialStatusComplete)
	if !asInvalid(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func asInvalid(err error, target **InvalidTransitionError) bool {
	e, ok := err.(*InvalidTransitionError)
	if ok {
		*target = e
	}
	return ok
}

func TestTrialCloneIsIndependent(t *testing.T) {
	trial := NewTrial("T1", map[string]float64{"snout_length": 23.0})
	trial.ObjectivePaths = map[string]string{"res": "/out/T1/res.txt"}
	trial.Objectives = map[string]*ObjectiveResult{
		"res": {Name: "res", Value: 0.05},
	}

	clone := trial.Clone()
	clone.Status = TrialStatusFailed
	clone.Parameters["snout_length"] = 42.0
	clone.ObjectivePaths["res"] = "/elsewhere"
	clone.Objectives["res"].Value = 9

	if trial.Status != TrialStatusCreated {
		t.Errorf("status leaked through clone: %s", trial.Status)
	}
	if trial.Parameters["snout_length"] != 23.0 {
		t.Errorf("parameters leaked through clone: %v", trial.Parameters)
	}
	if trial.ObjectivePaths["res"] != "/out/T1/res.txt" {
		t.Errorf("objective paths leaked through clone: %v", trial.ObjectivePaths)
	}
	if trial.Objectives["res"].Value != 0.05 {
		t.Errorf("objective results leaked through clone: %v", trial.Objectives["res"])
	}
}

func TestNewTrialCopiesParameters(t *testing.T) {
	src := map[string]float64{"snout_length": 23.0}
	trial := NewTrial("T1", src)
	src["snout_length"] = 42.0
	if trial.Parameters["snout_length"] != 23.0 {
		t.Errorf("expected trial parameters to be copied, got %v", trial.Parameters["snout_length"])
	}
}
