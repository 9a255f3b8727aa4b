package search

import (
	"errors"
	"testing"
)

func TestSingleObjectiveScore(t *testing.T) {
	s := &SingleObjective{Objective: "BECAL_energy_res"}
	if s.Name() != "BECAL_energy_res" {
		t.Fatalf("unexpected name %q", s.Name())
	}

	score, err := s.Score(map[string]float64{"BECAL_energy_res": 0.05, "Cost": 3})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 0.05 {
		t.Fatalf("expected score 0.05, got %g", score)
	}

	_, err = s.Score(map[string]float64{"Cost": 3})
	var missing *MissingObjectiveError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingObjectiveError, got %v", err)
	}
	if missing.Objective != "BECAL_energy_res" {
		t.Fatalf("unexpected missing objective %q", missing.Objective)
	}
}

func TestWeightedSumScore(t *testing.T) {
	s := &WeightedSum{Weights: map[string]float64{
		"BECAL_energy_res": 10,
		"Cost":             0.5,
	}}

	score, err := s.Score(map[string]float64{"BECAL_energy_res": 0.05, "Cost": 3})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 10*0.05+0.5*3 {
		t.Fatalf("unexpected score %g", score)
	}

	if _, err := s.Score(map[string]float64{"Cost": 3}); err == nil {
		t.Fatal("expected error when a weighted objective is absent")
	}
}

func TestWeightedSumIgnoresUnweightedObjectives(t *testing.T) {
	s := &WeightedSum{Weights: map[string]float64{"Cost": 1}}
	score, err := s.Score(map[string]float64{"Cost": 2, "BECAL_energy_res": 0.07})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 2 {
		t.Fatalf("expected score 2, got %g", score)
	}
}
