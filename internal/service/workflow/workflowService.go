package workflowService

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/middleware"
	"github.com/nikhil/clashforge/internal/workflow"
)

// Orchestrator is the pipeline trigger the handlers call into.
type Orchestrator interface {
	Start(ctx context.Context, tournamentID, causedBy string) (workflow.Run, error)
	Runs() *workflow.RunRegistry
}

// WorkflowService handles assignment workflow endpoints
type WorkflowService struct {
	Orchestrator Orchestrator
	Log          *logger.Logger
}

// NewWorkflowService initializes a new workflow service
func NewWorkflowService(orchestrator Orchestrator) *WorkflowService {
	return &WorkflowService{
		Orchestrator: orchestrator,
		Log:          logger.NewLogger("workflow-service"),
	}
}

// StartAssignment triggers the assignment pipeline for a tournament. The
// pipeline runs in the background; the response is only an acceptance
// handle, never the outcome.
func (ws *WorkflowService) StartAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.CallerID(ctx)
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tournamentID := mux.Vars(r)["id"]
	run, err := ws.Orchestrator.Start(ctx, tournamentID, caller)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindValidation) {
			respondWithError(w, http.StatusBadRequest, apperrors.ClientMessage(err))
			return
		}
		ws.Log.Error("failed to start workflow", "tournamentId", tournamentID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to start workflow")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"executionId":  run.ExecutionID,
		"tournamentId": run.TournamentID,
	})
}

// GetRun returns the current status of one workflow execution
func (ws *WorkflowService) GetRun(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerID(r.Context())
	if caller == "" {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	executionID := mux.Vars(r)["executionId"]
	run, ok := ws.Orchestrator.Runs().Get(executionID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "execution not found")
		return
	}
	respondWithJSON(w, http.StatusOK, run)
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
