package services

import (
	"fmt"

	"github.com/google/uuid"
)

// SyncState is the state of one phase of a sync run
type SyncState string

const (
	StateIdle         SyncState = "idle"
	StateFetchingPage SyncState = "fetching_page"
	StateReconciling  SyncState = "reconciling"
	StateCompleted    SyncState = "completed"
	StateFailed       SyncState = "failed"
)

var syncTransitions = map[SyncState][]SyncState{
	StateIdle:         {StateFetchingPage, StateFailed},
	StateFetchingPage: {StateReconciling, StateCompleted, StateFailed},
	StateReconciling:  {StateFetchingPage, StateCompleted, StateFailed},
}

// CanTransition reports whether from may move to to
func (s SyncState) CanTransition(to SyncState) bool {
	for _, allowed := range syncTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// phaseRun carries the cursor of a running phase: the last fully
// reconciled page and the number of entities reconciled so far.
type phaseRun struct {
	runID     uuid.UUID
	state     SyncState
	page      int
	processed int
}

func newPhaseRun(runID uuid.UUID) *phaseRun {
	return &phaseRun{runID: runID, state: StateIdle}
}

func (r *phaseRun) transition(to SyncState) error {
	if !r.state.CanTransition(to) {
		return fmt.Errorf("invalid sync state transition from %s to %s", r.state, to)
	}
	r.state = to
	return nil
}

func (r *phaseRun) complete() error {
	return r.transition(StateCompleted)
}

func (r *phaseRun) fail() {
	if r.state.CanTransition(StateFailed) {
		r.state = StateFailed
	}
}
