package workflowroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/middleware"
	workflowService "github.com/nikhil/clashforge/internal/service/workflow"
)

// WorkflowRoutes wires the assignment trigger and run-status endpoints.
func WorkflowRoutes(router *mux.Router, svc *workflowService.WorkflowService, jwtSecret string) {

	triggerRouter := router.PathPrefix("/tournaments").Subrouter()
	triggerRouter.Use(middleware.ResponseWrapper, middleware.Auth(jwtSecret))
	triggerRouter.HandleFunc("/{id}/assignment", svc.StartAssignment).Methods(http.MethodPost, http.MethodOptions)

	runRouter := router.PathPrefix("/workflows").Subrouter()
	runRouter.Use(middleware.ResponseWrapper, middleware.Auth(jwtSecret))
	runRouter.HandleFunc("/{executionId}", svc.GetRun).Methods(http.MethodGet, http.MethodOptions)
}
