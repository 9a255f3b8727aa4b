package triald

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aid2e/pipeline-core/internal/objective"
	"github.com/aid2e/pipeline-core/internal/trial"
	"github.com/aid2e/pipeline-core/pkg/logger"
	"github.com/aid2e/pipeline-core/pkg/models"
)

var (
	ErrTrialNotFound = errors.New("trial not found")
	ErrTrialTerminal = errors.New("trial is terminal")
	ErrTagMissing    = errors.New("trial tag is required")
)

// TrialExecutor runs trials asynchronously through the trial manager and
// tracks per-trial cancellation.
type TrialExecutor struct {
	store   *TrialStore
	manager *trial.Manager

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    sync.WaitGroup
}

func NewTrialExecutor(store *TrialStore, manager *trial.Manager) *TrialExecutor {
	return &TrialExecutor{
		store:   store,
		manager: manager,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start begins executing a trial asynchronously. Starting an already
// running trial is a no-op; a terminal trial cannot be restarted because
// its tag already namespaces artifacts on disk.
func (e *TrialExecutor) Start(tag string) (*models.Trial, error) {
	if tag == "" {
		return nil, ErrTagMissing
	}
	t, ok := e.store.Get(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrialNotFound, tag)
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrTrialTerminal, tag)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if _, running := e.cancels[tag]; running {
		e.mu.Unlock()
		cancel()
		return t, nil
	}
	e.cancels[tag] = cancel
	e.mu.Unlock()

	// The goroutine mutates its own copy of the record and publishes
	// the outcome through the store; the caller's copy stays untouched.
	work := t.Clone()
	e.done.Add(1)
	go func() {
		defer e.done.Done()
		defer e.cleanup(tag)
		if err := e.manager.Execute(ctx, work); err != nil {
			logger.Warn("trial execution failed", "tag", tag, "error", err)
		}
		e.store.Sync(work)
	}()
	return t, nil
}

// Cancel requests cancellation of a running trial. The trial lands in
// the failed state with the cancellation recorded.
func (e *TrialExecutor) Cancel(tag string) (*models.Trial, error) {
	if tag == "" {
		return nil, ErrTagMissing
	}
	t, ok := e.store.Get(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrialNotFound, tag)
	}

	e.mu.Lock()
	cancel, running := e.cancels[tag]
	e.mu.Unlock()
	if running {
		cancel()
		logger.Info("trial cancellation requested", "tag", tag)
	}
	return t, nil
}

// Evaluate runs one trial synchronously and returns the scalar value of
// every extracted objective, read back through the sidecar records.
func (e *TrialExecutor) Evaluate(ctx context.Context, tag string, parameters map[string]float64) (*models.Trial, map[string]float64, error) {
	t, err := e.store.Create(tag, parameters)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels[t.Tag] = cancel
	e.mu.Unlock()
	defer e.cleanup(t.Tag)

	execErr := e.manager.Execute(ctx, t)
	e.store.Sync(t)
	if execErr != nil {
		return t, nil, execErr
	}

	results := make(map[string]float64, len(t.Objectives))
	for name, res := range t.Objectives {
		if res.SidecarPath == "" {
			results[name] = res.Value
			continue
		}
		value, err := objective.ReadSidecar(res.SidecarPath)
		if err != nil {
			return t, nil, err
		}
		results[name] = value
	}
	return t, results, nil
}

// Wait blocks until every started trial has finished.
func (e *TrialExecutor) Wait() {
	e.done.Wait()
}

func (e *TrialExecutor) cleanup(tag string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[tag]; ok {
		cancel()
		delete(e.cancels, tag)
	}
	e.mu.Unlock()
}
