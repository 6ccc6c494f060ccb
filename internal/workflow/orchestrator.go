package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/broadcast"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/models"
	"github.com/nikhil/clashforge/internal/storage"
)

// Store is the persistence surface the pipeline stages read and write.
type Store interface {
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListRegistrations(ctx context.Context, tournamentID string) ([]*models.Registration, error)
	PutRegistration(ctx context.Context, reg *models.Registration) error
	GetTeam(ctx context.Context, tournamentID, teamID string) (*models.Team, error)
	CreateTeam(ctx context.Context, team *models.Team) error
	SaveTeam(ctx context.Context, team *models.Team) error
}

// Notifier is the fan-out edge each stage boundary reports through.
type Notifier interface {
	Broadcast(ctx context.Context, event broadcast.Event) broadcast.Summary
}

// Orchestrator runs the load -> assign -> lock pipeline per tournament.
// Only the load stage has a compensating branch ("tournament not found" is
// an expected outcome); assign and lock failures mark the run failed with no
// rollback of earlier stages.
type Orchestrator struct {
	store    Store
	notifier Notifier
	runs     *RunRegistry
	log      *logger.Logger
}

func NewOrchestrator(store Store, notifier Notifier, runs *RunRegistry, log *logger.Logger) *Orchestrator {
	return &Orchestrator{store: store, notifier: notifier, runs: runs, log: log}
}

// Runs exposes the run registry for status queries.
func (o *Orchestrator) Runs() *RunRegistry {
	return o.runs
}

// Start registers a run, announces it and hands execution off to a
// goroutine. The returned run is a snapshot; the caller gets a handle, not
// an outcome.
func (o *Orchestrator) Start(ctx context.Context, tournamentID, causedBy string) (Run, error) {
	if tournamentID == "" {
		return Run{}, apperrors.Validation("tournamentId required")
	}

	run := &Run{
		ExecutionID:  uuid.NewString(),
		TournamentID: tournamentID,
		CausedBy:     causedBy,
		Status:       StatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	o.runs.put(run)

	o.notifier.Broadcast(ctx, broadcast.Event{
		Type: models.EventWorkflowStarted,
		Data: map[string]string{
			"tournamentId": tournamentID,
			"executionId":  run.ExecutionID,
		},
		TournamentID: tournamentID,
		CausedBy:     causedBy,
	})
	o.log.Info("workflow started",
		"tournamentId", tournamentID, "executionId", run.ExecutionID, "causedBy", causedBy)

	snapshot := *run
	// the request context ends with the response; the run outlives it
	go o.execute(context.Background(), run.ExecutionID, tournamentID, causedBy)
	return snapshot, nil
}

func (o *Orchestrator) execute(ctx context.Context, executionID, tournamentID, causedBy string) {
	// stage 1: load
	if _, err := o.store.GetTournament(ctx, tournamentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			o.notifier.Broadcast(ctx, broadcast.Event{
				Type:         models.EventTournamentNotFound,
				Data:         map[string]string{"tournamentId": tournamentID},
				TournamentID: tournamentID,
				CausedBy:     causedBy,
			})
			o.finish(executionID, StatusTournamentNotFound, "")
			o.log.Info("workflow halted, tournament not found",
				"tournamentId", tournamentID, "executionId", executionID)
			return
		}
		o.fail(executionID, "load", err)
		return
	}

	// stage 2: assign
	teamID, assignedCount, err := o.assign(ctx, tournamentID)
	if err != nil {
		o.fail(executionID, "assign", err)
		return
	}
	o.runs.update(executionID, func(run *Run) {
		run.TeamID = teamID
		run.AssignedCount = assignedCount
	})
	o.notifier.Broadcast(ctx, broadcast.Event{
		Type: models.EventPlayersAssigned,
		Data: map[string]any{
			"tournamentId":  tournamentID,
			"teamId":        teamID,
			"assignedCount": assignedCount,
		},
		TournamentID: tournamentID,
		CausedBy:     causedBy,
	})

	// stage 3: lock
	if err := o.lock(ctx, tournamentID, teamID); err != nil {
		o.fail(executionID, "lock", err)
		return
	}
	o.notifier.Broadcast(ctx, broadcast.Event{
		Type: models.EventTeamsLocked,
		Data: map[string]any{
			"tournamentId": tournamentID,
			"teamId":       teamID,
			"status":       models.TeamLocked,
		},
		TournamentID: tournamentID,
		CausedBy:     causedBy,
	})

	o.finish(executionID, StatusSucceeded, "")
	o.log.Info("workflow completed",
		"tournamentId", tournamentID, "executionId", executionID,
		"teamId", teamID, "assignedCount", assignedCount)
}

// assign flips every pending registration to assigned, binds it to the
// synthesized tournament team and makes sure that team exists and is open.
func (o *Orchestrator) assign(ctx context.Context, tournamentID string) (string, int, error) {
	teamID := "team-" + tournamentID

	regs, err := o.store.ListRegistrations(ctx, tournamentID)
	if err != nil {
		return "", 0, fmt.Errorf("list registrations: %w", err)
	}

	assigned := 0
	for _, reg := range regs {
		if reg.Status != models.RegistrationPending {
			continue
		}
		reg.Status = models.RegistrationAssigned
		reg.TeamID = teamID
		if err := o.store.PutRegistration(ctx, reg); err != nil {
			return "", 0, fmt.Errorf("assign registration %s: %w", reg.PlayerID, err)
		}
		assigned++
	}

	if err := o.ensureTeamOpen(ctx, tournamentID, teamID); err != nil {
		return "", 0, err
	}
	return teamID, assigned, nil
}

func (o *Orchestrator) ensureTeamOpen(ctx context.Context, tournamentID, teamID string) error {
	for attempt := 0; attempt < 3; attempt++ {
		team, err := o.store.GetTeam(ctx, tournamentID, teamID)
		if errors.Is(err, storage.ErrNotFound) {
			team = &models.Team{
				TeamID:         teamID,
				TournamentID:   tournamentID,
				DisplayName:    "Team " + tournamentID,
				CreatedAt:      time.Now().UTC(),
				Status:         models.TeamOpen,
				Members:        models.OpenMembers(),
				MemberStatuses: map[models.Role]models.Commitment{},
			}
			if err := o.store.CreateTeam(ctx, team); err != nil {
				return fmt.Errorf("create team %s: %w", teamID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("load team %s: %w", teamID, err)
		}
		if team.Status == models.TeamOpen {
			return nil
		}
		team.Status = models.TeamOpen
		err = o.store.SaveTeam(ctx, team)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("open team %s: %w", teamID, err)
		}
		return nil
	}
	return fmt.Errorf("open team %s: too many concurrent updates", teamID)
}

func (o *Orchestrator) lock(ctx context.Context, tournamentID, teamID string) error {
	for attempt := 0; attempt < 3; attempt++ {
		team, err := o.store.GetTeam(ctx, tournamentID, teamID)
		if err != nil {
			return fmt.Errorf("load team %s: %w", teamID, err)
		}
		if team.Status == models.TeamLocked {
			return nil
		}
		team.Status = models.TeamLocked
		err = o.store.SaveTeam(ctx, team)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("lock team %s: %w", teamID, err)
		}
		return nil
	}
	return fmt.Errorf("lock team %s: too many concurrent updates", teamID)
}

func (o *Orchestrator) finish(executionID string, status Status, message string) {
	now := time.Now().UTC()
	o.runs.update(executionID, func(run *Run) {
		run.Status = status
		run.FinishedAt = &now
		run.Error = message
	})
}

func (o *Orchestrator) fail(executionID, stage string, err error) {
	o.log.Error("workflow stage failed", "executionId", executionID, "stage", stage, "error", err)
	o.finish(executionID, StatusFailed, fmt.Sprintf("%s stage failed: %v", stage, err))
}
