package triald

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aid2e/pipeline-core/pkg/models"
)

func TestTrialStoreCreateMintsTag(t *testing.T) {
	store := NewTrialStore()

	trial, err := store.Create("", map[string]float64{"x": 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if trial.Tag == "" {
		t.Fatal("expected a minted tag")
	}
	if !strings.HasPrefix(trial.Tag, "trial-") {
		t.Errorf("minted tag %q missing prefix", trial.Tag)
	}

	got, ok := store.Get(trial.Tag)
	if !ok {
		t.Fatal("created trial not found")
	}
	if got.Parameters["x"] != 1 {
		t.Errorf("parameters not stored: %v", got.Parameters)
	}
}

func TestTrialStoreRejectsDuplicateTag(t *testing.T) {
	store := NewTrialStore()

	if _, err := store.Create("T1", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create("T1", nil)
	if !errors.Is(err, ErrTrialExists) {
		t.Fatalf("expected ErrTrialExists, got %v", err)
	}
}

func TestTrialStoreRejectsUnsafeTag(t *testing.T) {
	store := NewTrialStore()

	for _, tag := range []string{"a/b", "a b", "../x", "-leading"} {
		if _, err := store.Create(tag, nil); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("expected ErrInvalidTag for %q, got %v", tag, err)
		}
	}
}

func TestTrialStoreHandsOutCopies(t *testing.T) {
	store := NewTrialStore()

	created, err := store.Create("T1", map[string]float64{"x": 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Mutating a handed-out record never leaks into the registry.
	created.Status = models.TrialStatusFailed
	created.Parameters["x"] = 99

	got, ok := store.Get("T1")
	if !ok {
		t.Fatal("trial missing from store")
	}
	if got.Status != models.TrialStatusCreated {
		t.Errorf("stored status changed through a copy: %s", got.Status)
	}
	if got.Parameters["x"] != 1 {
		t.Errorf("stored parameters changed through a copy: %v", got.Parameters)
	}
	if listed := store.List(0); listed[0] == got {
		t.Error("List and Get share a record")
	}
}

func TestTrialStoreSyncPublishesExecutedState(t *testing.T) {
	store := NewTrialStore()

	work, err := store.Create("T1", map[string]float64{"x": 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	work.Status = models.TrialStatusComplete
	work.Objectives = map[string]*models.ObjectiveResult{
		"Cost": {Name: "Cost", Value: 1},
	}
	store.Sync(work)

	got, _ := store.Get("T1")
	if got.Status != models.TrialStatusComplete {
		t.Errorf("expected synced status, got %s", got.Status)
	}
	if got.Objectives["Cost"] == nil || got.Objectives["Cost"].Value != 1 {
		t.Errorf("expected synced objectives, got %+v", got.Objectives)
	}

	// Syncing a never-registered trial is a no-op.
	store.Sync(models.NewTrial("ghost", nil))
	if _, ok := store.Get("ghost"); ok {
		t.Error("sync registered an unknown trial")
	}
}

func TestTrialStoreFail(t *testing.T) {
	store := NewTrialStore()

	if _, err := store.Create("T1", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.Fail("T1", errors.New("executor refused"))

	got, _ := store.Get("T1")
	if got.Status != models.TrialStatusFailed {
		t.Errorf("expected failed trial, got %s", got.Status)
	}
	if got.Error != "executor refused" {
		t.Errorf("expected cause recorded, got %q", got.Error)
	}

	// A terminal trial keeps its original cause.
	store.Fail("T1", errors.New("second cause"))
	got, _ = store.Get("T1")
	if got.Error != "executor refused" {
		t.Errorf("terminal trial overwritten: %q", got.Error)
	}
}

func TestTrialStoreListNewestFirst(t *testing.T) {
	store := NewTrialStore()

	for _, tag := range []string{"T1", "T2", "T3"} {
		if _, err := store.Create(tag, nil); err != nil {
			t.Fatalf("Create %s failed: %v", tag, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	trials := store.List(0)
	if len(trials) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(trials))
	}
	if trials[0].Tag != "T3" || trials[2].Tag != "T1" {
		t.Errorf("unexpected order: %s, %s, %s", trials[0].Tag, trials[1].Tag, trials[2].Tag)
	}

	limited := store.List(2)
	if len(limited) != 2 {
		t.Errorf("expected limit to apply, got %d trials", len(limited))
	}
	if store.Len() != 3 {
		t.Errorf("expected Len 3, got %d", store.Len())
	}
}
