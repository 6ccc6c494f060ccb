package tournamentService

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/middleware"
	"github.com/nikhil/clashforge/internal/models"
)

// Store is the persistence surface for catalog and registration writes.
type Store interface {
	PutTournament(ctx context.Context, t *models.Tournament) error
	PutRegistration(ctx context.Context, reg *models.Registration) error
}

// TournamentService handles the tournament catalog and registrations
type TournamentService struct {
	Store Store
	Log   *logger.Logger
}

// NewTournamentService initializes a new tournament service
func NewTournamentService(store Store) *TournamentService {
	return &TournamentService{
		Store: store,
		Log:   logger.NewLogger("tournament-service"),
	}
}

// CreateTournamentRequest represents the request body for catalog upserts
type CreateTournamentRequest struct {
	TournamentID string `json:"tournamentId"`
	Name         string `json:"name"`
	StartTime    string `json:"startTime"`
	Region       string `json:"region"`
	Bracket      string `json:"bracket"`
}

// CreateRegistrationRequest represents a player signing up for a tournament
type CreateRegistrationRequest struct {
	PlayerID       string   `json:"playerId"`
	PreferredRoles []string `json:"preferredRoles"`
	Availability   string   `json:"availability"`
}

// CreateTournament upserts a tournament catalog record
func (ts *TournamentService) CreateTournament(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.TournamentID = strings.TrimSpace(req.TournamentID)
	if req.TournamentID == "" || req.StartTime == "" {
		respondWithError(w, http.StatusBadRequest, "tournamentId and startTime are required")
		return
	}

	t := &models.Tournament{
		TournamentID: req.TournamentID,
		Name:         req.Name,
		StartTime:    req.StartTime,
		Region:       req.Region,
		Status:       models.TournamentUpcoming,
		Bracket:      req.Bracket,
	}
	if err := ts.Store.PutTournament(ctx, t); err != nil {
		ts.Log.Error("failed to store tournament", "tournamentId", t.TournamentID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to store tournament")
		return
	}

	ts.Log.Info("tournament created", "tournamentId", t.TournamentID, "causedBy", caller)
	respondWithJSON(w, http.StatusCreated, t)
}

// CreateRegistration records a player's intent to play a tournament. The
// registration stays pending until the assignment workflow picks it up.
func (ts *TournamentService) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tournamentID := mux.Vars(r)["id"]

	var req CreateRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondWithError(w, http.StatusBadRequest, "playerId required")
		return
	}

	reg := &models.Registration{
		TournamentID:   tournamentID,
		PlayerID:       req.PlayerID,
		PreferredRoles: req.PreferredRoles,
		Availability:   req.Availability,
		Status:         models.RegistrationPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := ts.Store.PutRegistration(ctx, reg); err != nil {
		ts.Log.Error("failed to store registration",
			"tournamentId", tournamentID, "playerId", req.PlayerID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to store registration")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"tournamentId": tournamentID,
		"playerId":     reg.PlayerID,
		"status":       string(reg.Status),
	})
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
