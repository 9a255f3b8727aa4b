package utils

import (
	"sync"
	"testing"
)

func TestGenerateTrialTagUnique(t *testing.T) {
	const n = 1000
	var mu sync.Mutex
	seen := make(map[string]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag := GenerateTrialTag()
			mu.Lock()
			defer mu.Unlock()
			if seen[tag] {
				t.Errorf("duplicate tag generated: %s", tag)
			}
			seen[tag] = true
		}()
	}
	wg.Wait()
}

func TestGenerateTrialTagFilesystemSafe(t *testing.T) {
	tag := GenerateTrialTag()
	if !ValidTag(tag) {
		t.Errorf("generated tag is not filesystem-safe: %s", tag)
	}
}

func TestValidTag(t *testing.T) {
	tests := []struct {
		tag   string
		valid bool
	}{
		{"T1", true},
		{"BrutTrial0", true},
		{"trial-20250902-101530-1-a1b2c3d4", true},
		{"", false},
		{"has space", false},
		{"has/slash", false},
		{".hidden", false},
		{"tab\there", false},
	}
	for _, tt := range tests {
		if got := ValidTag(tt.tag); got != tt.valid {
			t.Errorf("ValidTag(%q) = %v, want %v", tt.tag, got, tt.valid)
		}
	}
}
