package rosterService

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/broadcast"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/middleware"
	"github.com/nikhil/clashforge/internal/models"
	"github.com/nikhil/clashforge/internal/roster"
)

// Engine is the roster core the handlers drive.
type Engine interface {
	CreateTeam(ctx context.Context, tournamentID, callerID, displayName, role string) (*roster.EnrichedTeam, error)
	ClaimRole(ctx context.Context, tournamentID, teamID, role, callerID, commitment string) (*roster.ClaimResult, error)
	RemoveRole(ctx context.Context, tournamentID, teamID, role, callerID string) (*roster.RemoveResult, error)
	DeleteTeam(ctx context.Context, tournamentID, teamID, callerID string) error
	ListTeams(ctx context.Context, tournamentID string) ([]*roster.EnrichedTeam, error)
	GetDraft(ctx context.Context, tournamentID, teamID, callerID string) (*models.DraftProposal, error)
	SaveDraft(ctx context.Context, tournamentID, teamID, callerID string, incoming *models.DraftProposal) (*models.DraftProposal, error)
}

// Notifier fans roster changes out to connected clients, best-effort.
type Notifier interface {
	Broadcast(ctx context.Context, event broadcast.Event) broadcast.Summary
}

// RosterService handles team and role-slot endpoints
type RosterService struct {
	Engine   Engine
	Notifier Notifier
	Log      *logger.Logger
}

// NewRosterService initializes a new roster service
func NewRosterService(engine Engine, notifier Notifier) *RosterService {
	return &RosterService{
		Engine:   engine,
		Notifier: notifier,
		Log:      logger.NewLogger("roster-service"),
	}
}

// CreateTeamRequest represents the request body for team creation
type CreateTeamRequest struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// ClaimRoleRequest carries the optional commitment level for a claim
type ClaimRoleRequest struct {
	Commitment string `json:"commitment"`
}

// ListTeams returns every team of a tournament, enriched with display names
func (rs *RosterService) ListTeams(w http.ResponseWriter, r *http.Request) {
	tournamentID := mux.Vars(r)["id"]
	if tournamentID == "" {
		respondWithError(w, http.StatusBadRequest, "tournamentId required")
		return
	}

	items, err := rs.Engine.ListTeams(r.Context(), tournamentID)
	if err != nil {
		rs.Log.Error("failed to list teams", "tournamentId", tournamentID, "error", err)
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}

	rs.Log.Info("teams listed", "tournamentId", tournamentID, "count", len(items))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// CreateTeam creates a team with the caller as captain on the requested role
func (rs *RosterService) CreateTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tournamentID := mux.Vars(r)["id"]

	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	team, err := rs.Engine.CreateTeam(ctx, tournamentID, caller, req.DisplayName, req.Role)
	if err != nil {
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}

	rs.Notifier.Broadcast(ctx, broadcast.Event{
		Type:         models.EventTeamCreated,
		Data:         team,
		TournamentID: tournamentID,
		CausedBy:     caller,
	})
	respondWithJSON(w, http.StatusCreated, team)
}

// ClaimRole claims an open slot or swaps the caller's role on the same team
func (rs *RosterService) ClaimRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	// body is optional; a bare claim defaults the commitment, but a
	// malformed body is still a client error
	var req ClaimRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := rs.Engine.ClaimRole(ctx, vars["id"], vars["teamId"], vars["role"], caller, req.Commitment)
	if err != nil {
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}

	rs.Notifier.Broadcast(ctx, broadcast.Event{
		Type:         models.EventRoleClaimed,
		Data:         result,
		TournamentID: vars["id"],
		CausedBy:     caller,
	})
	respondWithJSON(w, http.StatusOK, result)
}

// RemoveRole clears a slot: self-leave, or a captain removing someone else
func (rs *RosterService) RemoveRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	result, err := rs.Engine.RemoveRole(ctx, vars["id"], vars["teamId"], vars["role"], caller)
	if err != nil {
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}

	rs.Notifier.Broadcast(ctx, broadcast.Event{
		Type:         models.EventRoleRemoved,
		Data:         result,
		TournamentID: vars["id"],
		CausedBy:     caller,
	})
	respondWithJSON(w, http.StatusOK, result)
}

// DeleteTeam removes a team and all of its membership rows; captain only
func (rs *RosterService) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	if err := rs.Engine.DeleteTeam(ctx, vars["id"], vars["teamId"], caller); err != nil {
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}

	rs.Notifier.Broadcast(ctx, broadcast.Event{
		Type:         models.EventTeamDeleted,
		Data:         map[string]string{"teamId": vars["teamId"]},
		TournamentID: vars["id"],
		CausedBy:     caller,
	})
	respondWithJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GetDraft returns the team's draft proposal; team members only
func (rs *RosterService) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	draft, err := rs.Engine.GetDraft(ctx, vars["id"], vars["teamId"], caller)
	if err != nil {
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

// SaveDraft stores the team's draft proposal; team members only
func (rs *RosterService) SaveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vars := mux.Vars(r)

	var incoming models.DraftProposal
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := rs.Engine.SaveDraft(ctx, vars["id"], vars["teamId"], caller, &incoming)
	if err != nil {
		respondWithError(w, apperrors.HTTPStatus(err), apperrors.ClientMessage(err))
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

// Helper functions for HTTP responses
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
