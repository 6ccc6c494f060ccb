package roster

import (
	"context"
	"errors"
	"time"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/models"
	"github.com/nikhil/clashforge/internal/storage"
)

// GetDraft returns the team's draft proposal. Team members only.
func (e *Engine) GetDraft(ctx context.Context, tournamentID, teamID, callerID string) (*models.DraftProposal, error) {
	team, err := e.getTeam(ctx, tournamentID, teamID)
	if err != nil {
		return nil, err
	}
	if !isTeamMember(team, callerID) {
		return nil, apperrors.Forbidden("forbidden: team members only")
	}
	if team.DraftProposal == nil {
		return nil, apperrors.NotFound("draft not found")
	}
	return team.DraftProposal, nil
}

// SaveDraft normalizes and stores the team's draft proposal. Team members
// only. Empty notes keep whatever was there before.
func (e *Engine) SaveDraft(ctx context.Context, tournamentID, teamID, callerID string, incoming *models.DraftProposal) (*models.DraftProposal, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		team, err := e.getTeam(ctx, tournamentID, teamID)
		if err != nil {
			return nil, err
		}
		if !isTeamMember(team, callerID) {
			return nil, apperrors.Forbidden("forbidden: team members only")
		}

		notes := incoming.Notes
		if notes == "" && team.DraftProposal != nil {
			notes = team.DraftProposal.Notes
		}
		draft := &models.DraftProposal{
			TournamentID: tournamentID,
			TeamID:       teamID,
			OurSide:      models.NormalizeDraftSide(incoming.OurSide),
			EnemySide:    models.NormalizeDraftSide(incoming.EnemySide),
			Notes:        notes,
			UpdatedBy:    callerID,
			UpdatedAt:    time.Now().UTC(),
		}
		team.DraftProposal = draft

		if err := e.store.SaveTeam(ctx, team); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, storage.ErrNotFound) {
				return nil, apperrors.NotFound("team not found")
			}
			return nil, apperrors.Upstream("failed to save draft", err)
		}

		e.log.Info("draft saved", "tournamentId", tournamentID, "teamId", teamID, "by", callerID)
		return draft, nil
	}
	return nil, apperrors.Upstream("team is being updated concurrently, please retry", nil)
}

func isTeamMember(team *models.Team, userID string) bool {
	if team.IsCaptain(userID) {
		return true
	}
	_, held := team.RoleOf(userID)
	return held
}
