package roster

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/directory"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/models"
	"github.com/nikhil/clashforge/internal/storage"
)

// Store is the persistence surface the engine mutates. GetMembership returns
// (nil, nil) when the user is not rostered in the tournament; GetTeam returns
// storage.ErrNotFound for missing teams; SaveTeam returns
// storage.ErrVersionConflict when the record moved underneath the caller.
type Store interface {
	GetTeam(ctx context.Context, tournamentID, teamID string) (*models.Team, error)
	CreateTeam(ctx context.Context, team *models.Team) error
	SaveTeam(ctx context.Context, team *models.Team) error
	DeleteTeam(ctx context.Context, tournamentID, teamID string) error
	ListTeams(ctx context.Context, tournamentID string) ([]*models.Team, error)
	GetMembership(ctx context.Context, userID, tournamentID string) (*models.MembershipRow, error)
	PutMembership(ctx context.Context, row *models.MembershipRow) error
	DeleteMembership(ctx context.Context, userID, tournamentID string) error
}

// Engine mediates every role-slot mutation. Team writes go through a bounded
// read-validate-write loop on top of the store's compare-and-set, so a lost
// race re-validates against fresh state instead of clobbering it.
type Engine struct {
	store Store
	dir   directory.Directory
	log   *logger.Logger
}

const maxSaveAttempts = 3

func NewEngine(store Store, dir directory.Directory, log *logger.Logger) *Engine {
	return &Engine{store: store, dir: dir, log: log}
}

// EnrichedTeam is the client-facing view of a team. Occupants are rendered
// as display labels (profile name or masked pseudonym), never raw ids.
type EnrichedTeam struct {
	TeamID             string                            `json:"teamId"`
	TournamentID       string                            `json:"tournamentId"`
	DisplayName        string                            `json:"displayName"`
	Status             models.TeamStatus                 `json:"status"`
	CaptainDisplayName string                            `json:"captainDisplayName"`
	Members            map[models.Role]string            `json:"members"`
	MemberStatuses     map[models.Role]models.Commitment `json:"memberStatuses"`
	CreatedAt          time.Time                         `json:"createdAt"`
}

// ClaimResult reports the outcome of a claim or swap.
type ClaimResult struct {
	Role              models.Role       `json:"role"`
	PlayerID          string            `json:"playerId"`
	PlayerDisplayName string            `json:"playerDisplayName"`
	Status            models.Commitment `json:"status"`
}

// RemoveResult reports the outcome of clearing a role slot.
type RemoveResult struct {
	Role               models.Role `json:"role"`
	Removed            string      `json:"removed"`
	RemovedDisplayName string      `json:"removedDisplayName"`
	Status             string      `json:"status"`
}

// CreateTeam creates a team with the caller as captain occupying the
// requested role. The caller must not already hold a role anywhere in the
// tournament.
func (e *Engine) CreateTeam(ctx context.Context, tournamentID, callerID, displayName, roleInput string) (*EnrichedTeam, error) {
	if roleInput == "" {
		return nil, apperrors.Validation("role is required")
	}
	role, ok := models.ParseRole(roleInput)
	if !ok {
		return nil, apperrors.Validation("invalid role")
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, apperrors.Validation("displayName is required")
	}
	if n := utf8.RuneCountInString(name); n < 3 || n > 32 {
		return nil, apperrors.Validation("displayName must be 3-32 characters")
	}

	existing, err := e.store.GetMembership(ctx, callerID, tournamentID)
	if err != nil {
		return nil, apperrors.Upstream("failed to check membership", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("user already belongs to a team in this tournament")
	}

	now := time.Now().UTC()
	team := &models.Team{
		TeamID:         uuid.NewString(),
		TournamentID:   tournamentID,
		DisplayName:    name,
		CaptainID:      callerID,
		CreatedBy:      callerID,
		CreatedAt:      now,
		Status:         models.TeamOpen,
		Members:        models.OpenMembers(),
		MemberStatuses: map[models.Role]models.Commitment{role: models.CommitmentAllIn},
	}
	team.Members[role] = callerID

	if err := e.store.CreateTeam(ctx, team); err != nil {
		return nil, apperrors.Upstream("failed to create team", err)
	}
	row := &models.MembershipRow{
		UserID:       callerID,
		TournamentID: tournamentID,
		TeamID:       team.TeamID,
		Role:         role,
		IsCaptain:    true,
		UpdatedAt:    now,
	}
	if err := e.store.PutMembership(ctx, row); err != nil {
		return nil, apperrors.Upstream("failed to index membership", err)
	}

	e.log.Info("team created",
		"tournamentId", tournamentID, "teamId", team.TeamID, "captain", callerID, "role", role)
	return e.enrichTeam(ctx, team), nil
}

// ClaimRole claims an open slot, re-claims the caller's own slot
// (idempotent, optionally updating commitment) or swaps the caller's role on
// the same team in one write. Holding a role on another team in the
// tournament is a conflict.
func (e *Engine) ClaimRole(ctx context.Context, tournamentID, teamID, roleInput, callerID, commitmentInput string) (*ClaimResult, error) {
	role, ok := models.ParseRole(roleInput)
	if !ok {
		return nil, apperrors.Validation("invalid role")
	}
	commitment, ok := models.ParseCommitment(commitmentInput)
	if !ok {
		return nil, apperrors.Validation("invalid commitment level")
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		team, err := e.getTeam(ctx, tournamentID, teamID)
		if err != nil {
			return nil, err
		}
		if team.Status == models.TeamLocked {
			return nil, apperrors.Conflict("team is locked")
		}

		membership, err := e.store.GetMembership(ctx, callerID, tournamentID)
		if err != nil {
			return nil, apperrors.Upstream("failed to check membership", err)
		}
		if membership != nil && membership.TeamID != teamID {
			return nil, apperrors.Conflict("user already belongs to another team in this tournament")
		}

		occupant := team.Occupant(role)
		if occupant != "" && occupant != callerID {
			return nil, apperrors.AlreadyFilled("role is already filled")
		}

		if occupant == callerID {
			// idempotent re-claim; only a commitment change writes
			if commitment == "" || commitment == team.MemberStatuses[role] {
				return e.claimResult(ctx, callerID, role, team.MemberStatuses[role]), nil
			}
			team.MemberStatuses[role] = commitment
		} else {
			if prev, held := team.RoleOf(callerID); held && prev != role {
				// swap within the team: vacate the old slot in the same write
				team.Members[prev] = models.OpenSlot
				delete(team.MemberStatuses, prev)
			}
			if commitment == "" {
				commitment = models.CommitmentAllIn
			}
			team.Members[role] = callerID
			team.MemberStatuses[role] = commitment
		}

		if err := e.store.SaveTeam(ctx, team); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperrors.NotFound("team not found")
			}
			return nil, apperrors.Upstream("failed to save team", err)
		}

		row := &models.MembershipRow{
			UserID:       callerID,
			TournamentID: tournamentID,
			TeamID:       teamID,
			Role:         role,
			IsCaptain:    team.IsCaptain(callerID),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := e.store.PutMembership(ctx, row); err != nil {
			return nil, apperrors.Upstream("failed to index membership", err)
		}

		e.log.Info("role claimed",
			"tournamentId", tournamentID, "teamId", teamID, "role", role, "playerId", callerID)
		return e.claimResult(ctx, callerID, role, team.MemberStatuses[role]), nil
	}
	return nil, apperrors.Upstream("team is being updated concurrently, please retry", nil)
}

// RemoveRole clears a slot. Self-removal is always allowed, captain
// included; removing another occupant takes captain authority. Leaving a
// role does not dissolve captaincy.
func (e *Engine) RemoveRole(ctx context.Context, tournamentID, teamID, roleInput, callerID string) (*RemoveResult, error) {
	role, ok := models.ParseRole(roleInput)
	if !ok {
		return nil, apperrors.Validation("invalid role")
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		team, err := e.getTeam(ctx, tournamentID, teamID)
		if err != nil {
			return nil, err
		}
		if team.Status == models.TeamLocked {
			return nil, apperrors.Conflict("team is locked")
		}

		occupant := team.Occupant(role)
		if occupant == "" {
			return nil, apperrors.NotFound("role is already open")
		}
		if occupant != callerID && !team.IsCaptain(callerID) {
			return nil, apperrors.Forbidden("only the team captain can remove another player")
		}

		team.Members[role] = models.OpenSlot
		delete(team.MemberStatuses, role)

		if err := e.store.SaveTeam(ctx, team); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperrors.NotFound("team not found")
			}
			return nil, apperrors.Upstream("failed to save team", err)
		}
		if err := e.store.DeleteMembership(ctx, occupant, tournamentID); err != nil {
			return nil, apperrors.Upstream("failed to remove membership", err)
		}

		e.log.Info("role removed",
			"tournamentId", tournamentID, "teamId", teamID, "role", role, "removed", occupant, "by", callerID)
		return &RemoveResult{
			Role:               role,
			Removed:            occupant,
			RemovedDisplayName: e.labelFor(ctx, occupant),
			Status:             models.OpenSlot,
		}, nil
	}
	return nil, apperrors.Upstream("team is being updated concurrently, please retry", nil)
}

// DeleteTeam removes the team and every membership index row it implies.
// Captain only.
func (e *Engine) DeleteTeam(ctx context.Context, tournamentID, teamID, callerID string) error {
	team, err := e.getTeam(ctx, tournamentID, teamID)
	if err != nil {
		return err
	}
	if !team.IsCaptain(callerID) {
		return apperrors.Forbidden("only the team captain can delete the team")
	}

	for _, userID := range team.OccupantIDs() {
		if err := e.store.DeleteMembership(ctx, userID, tournamentID); err != nil {
			return apperrors.Upstream("failed to remove membership", err)
		}
	}
	if err := e.store.DeleteTeam(ctx, tournamentID, teamID); err != nil {
		return apperrors.Upstream("failed to delete team", err)
	}

	e.log.Info("team deleted", "tournamentId", tournamentID, "teamId", teamID, "by", callerID)
	return nil
}

// ListTeams returns every team of the tournament with occupants resolved to
// display labels. An empty tournament is an empty list, not an error.
func (e *Engine) ListTeams(ctx context.Context, tournamentID string) ([]*EnrichedTeam, error) {
	teams, err := e.store.ListTeams(ctx, tournamentID)
	if err != nil {
		return nil, apperrors.Upstream("failed to list teams", err)
	}
	enriched := make([]*EnrichedTeam, 0, len(teams))
	ids := make([]string, 0, len(teams)*6)
	for _, team := range teams {
		ids = append(ids, team.OccupantIDs()...)
		if team.CaptainID != "" {
			ids = append(ids, team.CaptainID)
		}
	}
	names := e.resolveNames(ctx, ids)
	for _, team := range teams {
		enriched = append(enriched, enrichWithNames(team, names))
	}
	return enriched, nil
}

func (e *Engine) getTeam(ctx context.Context, tournamentID, teamID string) (*models.Team, error) {
	team, err := e.store.GetTeam(ctx, tournamentID, teamID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("team not found")
	}
	if err != nil {
		return nil, apperrors.Upstream("failed to load team", err)
	}
	return team, nil
}

// resolveNames asks the profile directory for display names. The directory
// is allowed to be absent or failing; occupants then fall back to masks.
func (e *Engine) resolveNames(ctx context.Context, userIDs []string) map[string]string {
	if e.dir == nil || len(userIDs) == 0 {
		return nil
	}
	names, err := e.dir.DisplayNames(ctx, userIDs)
	if err != nil {
		e.log.Warn("display name lookup failed, masking identifiers", "error", err)
		return nil
	}
	return names
}

func (e *Engine) labelFor(ctx context.Context, userID string) string {
	return directory.Label(e.resolveNames(ctx, []string{userID}), userID)
}

func (e *Engine) claimResult(ctx context.Context, userID string, role models.Role, status models.Commitment) *ClaimResult {
	return &ClaimResult{
		Role:              role,
		PlayerID:          userID,
		PlayerDisplayName: e.labelFor(ctx, userID),
		Status:            status,
	}
}

func (e *Engine) enrichTeam(ctx context.Context, team *models.Team) *EnrichedTeam {
	ids := append(team.OccupantIDs(), team.CaptainID)
	return enrichWithNames(team, e.resolveNames(ctx, ids))
}

func enrichWithNames(team *models.Team, names map[string]string) *EnrichedTeam {
	members := make(map[models.Role]string, len(team.Members))
	statuses := make(map[models.Role]models.Commitment, len(team.MemberStatuses))
	for _, role := range models.AllRoles() {
		if user := team.Occupant(role); user != "" {
			members[role] = directory.Label(names, user)
			if status, ok := team.MemberStatuses[role]; ok {
				statuses[role] = status
			}
		} else {
			members[role] = models.OpenSlot
		}
	}
	return &EnrichedTeam{
		TeamID:             team.TeamID,
		TournamentID:       team.TournamentID,
		DisplayName:        team.DisplayName,
		Status:             team.Status,
		CaptainDisplayName: directory.Label(names, team.CaptainID),
		Members:            members,
		MemberStatuses:     statuses,
		CreatedAt:          team.CreatedAt,
	}
}
