package search

import "testing"

func TestNewAxisExplorerValidatesBounds(t *testing.T) {
	if _, err := NewAxisExplorer(nil); err == nil {
		t.Fatal("expected error for empty bounds")
	}
	if _, err := NewAxisExplorer(map[string]Bound{"x": {Lo: 5, Hi: 5}}); err == nil {
		t.Fatal("expected error for empty interval")
	}
	if _, err := NewAxisExplorer(map[string]Bound{"x": {Lo: 10, Hi: 5}}); err == nil {
		t.Fatal("expected error for inverted bound")
	}
}

func TestAxisExplorerNeighbors(t *testing.T) {
	e, err := NewAxisExplorer(map[string]Bound{
		"EcalBarrel_length": {Lo: 10, Hi: 30},
		"sampling_fraction": {Lo: 0, Hi: 1},
	})
	if err != nil {
		t.Fatalf("NewAxisExplorer failed: %v", err)
	}

	base := map[string]float64{
		"EcalBarrel_length": 20,
		"sampling_fraction": 0.5,
		"enable_imaging":    1, // unbounded, held fixed
	}
	neighbors := e.Neighbors(base, 0.1)
	if len(neighbors) != 4 {
		t.Fatalf("expected 4 neighbors, got %d", len(neighbors))
	}

	seen := map[float64]bool{}
	for _, n := range neighbors {
		if n["enable_imaging"] != 1 {
			t.Errorf("unbounded parameter changed in neighbor %v", n)
		}
		if n["EcalBarrel_length"] != 20 {
			seen[n["EcalBarrel_length"]] = true
		}
	}
	if !seen[22] || !seen[18] {
		t.Errorf("expected length neighbors at 22 and 18, saw %v", seen)
	}
}

func TestAxisExplorerClampsAtBounds(t *testing.T) {
	e, err := NewAxisExplorer(map[string]Bound{"x": {Lo: 0, Hi: 10}})
	if err != nil {
		t.Fatalf("NewAxisExplorer failed: %v", err)
	}

	// At the upper edge only the downward neighbor survives.
	neighbors := e.Neighbors(map[string]float64{"x": 10}, 0.2)
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor at upper bound, got %d", len(neighbors))
	}
	if neighbors[0]["x"] != 8 {
		t.Fatalf("expected neighbor at 8, got %g", neighbors[0]["x"])
	}
}

func TestAxisExplorerStart(t *testing.T) {
	e, err := NewAxisExplorer(map[string]Bound{
		"x": {Lo: 0, Hi: 10},
		"y": {Lo: -1, Hi: 1},
	})
	if err != nil {
		t.Fatalf("NewAxisExplorer failed: %v", err)
	}

	start := e.Start(map[string]float64{"x": 25})
	if start["x"] != 10 {
		t.Errorf("expected x clamped to 10, got %g", start["x"])
	}
	if start["y"] != 0 {
		t.Errorf("expected y defaulted to midpoint 0, got %g", start["y"])
	}
}
