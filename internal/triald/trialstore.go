// Package triald is the trial pipeline daemon: an in-memory trial
// registry, an executor that runs trials asynchronously with per-trial
// cancellation, and the HTTP surface the optimizer wrapper talks to.
package triald

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aid2e/pipeline-core/pkg/logger"
	"github.com/aid2e/pipeline-core/pkg/models"
	"github.com/aid2e/pipeline-core/pkg/utils"
)

var (
	ErrTrialExists = errors.New("trial already exists")
	ErrInvalidTag  = errors.New("invalid trial tag")
)

// TrialStore is the in-memory registry of trials known to the daemon.
// The stored records are owned by the store and only touched under the
// lock; every record handed out is a deep copy, so readers never share
// memory with an executing goroutine.
type TrialStore struct {
	mu     sync.RWMutex
	trials map[string]*models.Trial
}

func NewTrialStore() *TrialStore {
	return &TrialStore{
		trials: make(map[string]*models.Trial),
	}
}

// Create registers a new trial and returns a private copy of the
// record. An empty tag mints a fresh one; a tag collision is rejected,
// never reused.
func (s *TrialStore) Create(tag string, parameters map[string]float64) (*models.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag == "" {
		tag = utils.GenerateTrialTag()
	} else if !utils.ValidTag(tag) {
		return nil, fmt.Errorf("%w %q: tags cannot contain separators or whitespace", ErrInvalidTag, tag)
	}
	if _, exists := s.trials[tag]; exists {
		return nil, fmt.Errorf("%w: %s", ErrTrialExists, tag)
	}

	t := models.NewTrial(tag, parameters)
	s.trials[tag] = t
	return t.Clone(), nil
}

// Get returns a copy of the trial record.
func (s *TrialStore) Get(tag string) (*models.Trial, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trials[tag]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Sync publishes the state of an executed trial copy back into the
// registry. Unknown tags are ignored: a trial can only be published
// after Create registered it.
func (s *TrialStore) Sync(t *models.Trial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trials[t.Tag]; !ok {
		return
	}
	s.trials[t.Tag] = t.Clone()
}

// Fail marks a registered trial failed with the given cause. Terminal
// trials are left untouched.
func (s *TrialStore) Fail(tag string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trials[tag]
	if !ok || t.Status.Terminal() {
		return
	}
	t.Error = cause.Error()
	if err := t.Transition(models.TrialStatusFailed); err != nil {
		logger.Error("failed to mark trial failed", "tag", tag, "error", err)
	}
}

// List returns up to limit trial copies, newest first.
func (s *TrialStore) List(limit int) []*models.Trial {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*models.Trial, 0, len(s.trials))
	for _, t := range s.trials {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Tag < out[j].Tag
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *TrialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trials)
}
