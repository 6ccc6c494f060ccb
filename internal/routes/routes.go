package routes

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikhil/clashforge/internal/middleware"
	rosterroutes "github.com/nikhil/clashforge/internal/routes/RosterRoutes"
	tournamentroutes "github.com/nikhil/clashforge/internal/routes/TournamentRoutes"
	workflowroutes "github.com/nikhil/clashforge/internal/routes/WorkflowRoutes"
	rosterService "github.com/nikhil/clashforge/internal/service/roster"
	tournamentService "github.com/nikhil/clashforge/internal/service/tournament"
	workflowService "github.com/nikhil/clashforge/internal/service/workflow"
	"github.com/nikhil/clashforge/internal/transport"
)

// Dependencies holds everything the route modules need injected.
type Dependencies struct {
	JWTSecret  string
	Roster     *rosterService.RosterService
	Tournament *tournamentService.TournamentService
	Workflow   *workflowService.WorkflowService
	Gateway    *transport.Gateway
}

// Register all routes dynamically
func RegisterAllRoutes(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Metrics)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	tournamentroutes.TournamentRoutes(router, deps.Tournament, deps.JWTSecret)
	rosterroutes.RosterRoutes(router, deps.Roster, deps.JWTSecret)
	workflowroutes.WorkflowRoutes(router, deps.Workflow, deps.JWTSecret)
	RegisterWebSocketRoutes(router, deps.Gateway, deps.JWTSecret)

	return router
}
