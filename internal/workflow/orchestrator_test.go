package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/broadcast"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/models"
	"github.com/nikhil/clashforge/internal/storage"
)

type fakeWorkflowStore struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
	regs        map[string]*models.Registration
	teams       map[string]*models.Team
	listErr     error
}

func newFakeWorkflowStore() *fakeWorkflowStore {
	return &fakeWorkflowStore{
		tournaments: make(map[string]*models.Tournament),
		regs:        make(map[string]*models.Registration),
		teams:       make(map[string]*models.Team),
	}
}

func (s *fakeWorkflowStore) GetTournament(_ context.Context, id string) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (s *fakeWorkflowStore) ListRegistrations(_ context.Context, tournamentID string) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.Registration
	for _, reg := range s.regs {
		if reg.TournamentID == tournamentID {
			copied := *reg
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeWorkflowStore) PutRegistration(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *reg
	s.regs[reg.TournamentID+"|"+reg.PlayerID] = &copied
	return nil
}

func (s *fakeWorkflowStore) GetTeam(_ context.Context, tournamentID, teamID string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[tournamentID+"|"+teamID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *team
	return &copied, nil
}

func (s *fakeWorkflowStore) CreateTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *team
	s.teams[team.TournamentID+"|"+team.TeamID] = &copied
	return nil
}

func (s *fakeWorkflowStore) SaveTeam(_ context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := team.TournamentID + "|" + team.TeamID
	current, ok := s.teams[key]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Version != team.Version {
		return storage.ErrVersionConflict
	}
	copied := *team
	copied.Version++
	s.teams[key] = &copied
	return nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (n *captureNotifier) Broadcast(_ context.Context, event broadcast.Event) broadcast.Summary {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return broadcast.Summary{EventType: event.Type}
}

func (n *captureNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestOrchestrator(store *fakeWorkflowStore, notifier *captureNotifier) *Orchestrator {
	return NewOrchestrator(store, notifier, NewRunRegistry(), logger.NewLogger("workflow-test"))
}

// waitForRun blocks until the run leaves RUNNING or the deadline passes.
func waitForRun(t *testing.T, o *Orchestrator, executionID string) Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, ok := o.Runs().Get(executionID)
		if ok && run.FinishedAt != nil {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish in time", executionID)
	return Run{}
}

func TestStartRequiresTournamentID(t *testing.T) {
	o := newTestOrchestrator(newFakeWorkflowStore(), &captureNotifier{})
	_, err := o.Start(context.Background(), "", "u-1")
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestWorkflowTournamentNotFound(t *testing.T) {
	store := newFakeWorkflowStore()
	notifier := &captureNotifier{}
	o := newTestOrchestrator(store, notifier)

	run, err := o.Start(context.Background(), "t-missing", "u-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.Status != StatusRunning {
		t.Errorf("trigger response status = %q, want RUNNING", run.Status)
	}

	finished := waitForRun(t, o, run.ExecutionID)
	if finished.Status != StatusTournamentNotFound {
		t.Errorf("status = %q, want TOURNAMENT_NOT_FOUND", finished.Status)
	}

	types := notifier.types()
	if len(types) != 2 || types[0] != models.EventWorkflowStarted || types[1] != models.EventTournamentNotFound {
		t.Errorf("event types = %v", types)
	}
	if len(store.teams) != 0 {
		t.Error("assign stage ran for a missing tournament")
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	store := newFakeWorkflowStore()
	store.tournaments["t-1"] = &models.Tournament{TournamentID: "t-1", StartTime: "2026-09-01T18:00:00Z"}
	store.regs["t-1|p-1"] = &models.Registration{TournamentID: "t-1", PlayerID: "p-1", Status: models.RegistrationPending}
	store.regs["t-1|p-2"] = &models.Registration{TournamentID: "t-1", PlayerID: "p-2", Status: models.RegistrationPending}
	store.regs["t-1|p-3"] = &models.Registration{TournamentID: "t-1", PlayerID: "p-3", Status: models.RegistrationAssigned, TeamID: "team-t-1"}
	notifier := &captureNotifier{}
	o := newTestOrchestrator(store, notifier)

	run, err := o.Start(context.Background(), "t-1", "u-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	finished := waitForRun(t, o, run.ExecutionID)
	if finished.Status != StatusSucceeded {
		t.Fatalf("status = %q (%s), want SUCCEEDED", finished.Status, finished.Error)
	}
	if finished.AssignedCount != 2 {
		t.Errorf("assignedCount = %d, want 2", finished.AssignedCount)
	}
	if finished.TeamID != "team-t-1" {
		t.Errorf("teamId = %q, want team-t-1", finished.TeamID)
	}

	types := notifier.types()
	want := []string{models.EventWorkflowStarted, models.EventPlayersAssigned, models.EventTeamsLocked}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}

	for _, playerID := range []string{"p-1", "p-2"} {
		reg := store.regs["t-1|"+playerID]
		if reg.Status != models.RegistrationAssigned || reg.TeamID != "team-t-1" {
			t.Errorf("registration %s = %+v", playerID, reg)
		}
	}

	team := store.teams["t-1|team-t-1"]
	if team == nil {
		t.Fatal("tournament team not created")
	}
	if team.Status != models.TeamLocked {
		t.Errorf("team status = %q, want locked", team.Status)
	}
}

func TestWorkflowAssignFailure(t *testing.T) {
	store := newFakeWorkflowStore()
	store.tournaments["t-1"] = &models.Tournament{TournamentID: "t-1", StartTime: "2026-09-01T18:00:00Z"}
	store.listErr = errors.New("store down")
	notifier := &captureNotifier{}
	o := newTestOrchestrator(store, notifier)

	run, err := o.Start(context.Background(), "t-1", "u-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	finished := waitForRun(t, o, run.ExecutionID)
	if finished.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED", finished.Status)
	}
	if finished.Error == "" {
		t.Error("failed run carries no error message")
	}

	for _, eventType := range notifier.types() {
		if eventType == models.EventPlayersAssigned || eventType == models.EventTeamsLocked {
			t.Errorf("stage event %q emitted after failure", eventType)
		}
	}
}

func TestWorkflowReopensLockedTeamBeforeAssign(t *testing.T) {
	store := newFakeWorkflowStore()
	store.tournaments["t-1"] = &models.Tournament{TournamentID: "t-1", StartTime: "2026-09-01T18:00:00Z"}
	store.teams["t-1|team-t-1"] = &models.Team{
		TeamID:       "team-t-1",
		TournamentID: "t-1",
		Status:       models.TeamLocked,
		Members:      models.OpenMembers(),
	}
	notifier := &captureNotifier{}
	o := newTestOrchestrator(store, notifier)

	run, err := o.Start(context.Background(), "t-1", "u-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	finished := waitForRun(t, o, run.ExecutionID)
	if finished.Status != StatusSucceeded {
		t.Fatalf("status = %q, want SUCCEEDED", finished.Status)
	}
	// the run ends with the team locked again
	if team := store.teams["t-1|team-t-1"]; team.Status != models.TeamLocked {
		t.Errorf("team status = %q, want locked", team.Status)
	}
}

func TestGetRunUnknownExecution(t *testing.T) {
	o := newTestOrchestrator(newFakeWorkflowStore(), &captureNotifier{})
	if _, ok := o.Runs().Get("nope"); ok {
		t.Error("unknown execution reported as found")
	}
}
