package models

import (
	"fmt"
	"time"
)

// TrialStatus represents the lifecycle state of a trial. A trial moves
// strictly forward through the pipeline states; Failed is reachable from
// any non-terminal state.
type TrialStatus string

const (
	TrialStatusCreated       TrialStatus = "created"
	TrialStatusGeometryReady TrialStatus = "geometry_ready"
	TrialStatusSimulated     TrialStatus = "simulated"
	TrialStatusReconstructed TrialStatus = "reconstructed"
	TrialStatusAnalyzed      TrialStatus = "analyzed"
	TrialStatusComplete      TrialStatus = "complete"
	TrialStatusFailed        TrialStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s TrialStatus) Terminal() bool {
	return s == TrialStatusComplete || s == TrialStatusFailed
}

// Trial is one pipeline evaluation for a specific parameter vector. The
// tag uniquely identifies the trial and namespaces every derived artifact;
// it is minted fresh per evaluation and never reused.
type Trial struct {
	Tag        string             `json:"tag"`
	Status     TrialStatus        `json:"status"`
	Parameters map[string]float64 `json:"parameters"`
	// ObjectivePaths maps objective name to the artifact path its value
	// is extracted from.
	ObjectivePaths map[string]string `json:"objective_paths,omitempty"`
	// Objectives holds the extracted scalar results once analyzed.
	Objectives map[string]*ObjectiveResult `json:"objectives,omitempty"`
	Error      string                      `json:"error,omitempty"`
	CreatedAt  time.Time                   `json:"created_at"`
	StartedAt  time.Time                   `json:"started_at,omitempty"`
	FinishedAt time.Time                   `json:"finished_at,omitempty"`
}

// ObjectiveResult is a named scalar plus its estimated uncertainty,
// derived from a stage artifact. The sidecar is the plain-text record
// whose first line carries the central value.
type ObjectiveResult struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
	// Mean and MeanError carry the fitted bias metric when the objective
	// comes from a residual fit; both are zero for parameter-only
	// objectives such as Cost.
	Mean      float64 `json:"mean,omitempty"`
	MeanError float64 `json:"mean_error,omitempty"`
	// SidecarPath and FitPath locate the persisted records; empty for
	// objectives that never touch the pipeline.
	SidecarPath string `json:"sidecar_path,omitempty"`
	FitPath     string `json:"fit_path,omitempty"`
}

// InvalidTransitionError reports a trial status change that violates the
// pipeline order.
type InvalidTransitionError struct {
	Tag  string
	From TrialStatus
	To   TrialStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("trial %s: invalid transition %s -> %s", e.Tag, e.From, e.To)
}

// transitionRank orders the forward pipeline states.
var transitionRank = map[TrialStatus]int{
	TrialStatusCreated:       0,
	TrialStatusGeometryReady: 1,
	TrialStatusSimulated:     2,
	TrialStatusReconstructed: 3,
	TrialStatusAnalyzed:      4,
	TrialStatusComplete:      5,
}

// Transition advances the trial to the given status, enforcing forward
// pipeline order. Failed is accepted from any non-terminal state.
func (t *Trial) Transition(to TrialStatus) error {
	if t.Status.Terminal() {
		return &InvalidTransitionError{Tag: t.Tag, From: t.Status, To: to}
	}
	if to == TrialStatusFailed {
		t.Status = TrialStatusFailed
		t.FinishedAt = time.Now().UTC()
		return nil
	}
	fromRank, ok := transitionRank[t.Status]
	toRank, ok2 := transitionRank[to]
	if !ok || !ok2 || toRank != fromRank+1 {
		return &InvalidTransitionError{Tag: t.Tag, From: t.Status, To: to}
	}
	t.Status = to
	if to == TrialStatusComplete {
		t.FinishedAt = time.Now().UTC()
	}
	return nil
}

// Clone returns a deep copy of the trial. Stores hand out clones so a
// record being mutated by an executing goroutine is never shared with
// readers.
func (t *Trial) Clone() *Trial {
	c := *t
	if t.Parameters != nil {
		c.Parameters = make(map[string]float64, len(t.Parameters))
		for name, v := range t.Parameters {
			c.Parameters[name] = v
		}
	}
	if t.ObjectivePaths != nil {
		c.ObjectivePaths = make(map[string]string, len(t.ObjectivePaths))
		for name, p := range t.ObjectivePaths {
			c.ObjectivePaths[name] = p
		}
	}
	if t.Objectives != nil {
		c.Objectives = make(map[string]*ObjectiveResult, len(t.Objectives))
		for name, res := range t.Objectives {
			r := *res
			c.Objectives[name] = &r
		}
	}
	return &c
}

// NewTrial creates a trial in the Created state.
func NewTrial(tag string, parameters map[string]float64) *Trial {
	params := make(map[string]float64, len(parameters))
	for name, value := range parameters {
		params[name] = value
	}
	return &Trial{
		Tag:        tag,
		Status:     TrialStatusCreated,
		Parameters: params,
		CreatedAt:  time.Now().UTC(),
	}
}
