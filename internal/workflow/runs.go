package workflow

import (
	"sync"
	"time"
)

// Status is the lifecycle state of one workflow run.
type Status string

const (
	StatusRunning            Status = "RUNNING"
	StatusSucceeded          Status = "SUCCEEDED"
	StatusFailed             Status = "FAILED"
	StatusTournamentNotFound Status = "TOURNAMENT_NOT_FOUND"
)

// Run is the ephemeral record of one orchestration execution. Completion is
// observable here or through the notification stream, never through the
// trigger response.
type Run struct {
	ExecutionID   string     `json:"executionId"`
	TournamentID  string     `json:"tournamentId"`
	CausedBy      string     `json:"causedBy"`
	Status        Status     `json:"status"`
	AssignedCount int        `json:"assignedCount"`
	TeamID        string     `json:"teamId,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// RunRegistry tracks in-flight and recently finished runs in memory.
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]*Run)}
}

func (r *RunRegistry) put(run *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ExecutionID] = run
}

func (r *RunRegistry) update(executionID string, mutate func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[executionID]; ok {
		mutate(run)
	}
}

// Get returns a copy of the run, so readers never race the executor.
func (r *RunRegistry) Get(executionID string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[executionID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}
