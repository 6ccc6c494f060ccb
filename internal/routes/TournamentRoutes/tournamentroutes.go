package tournamentroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/middleware"
	tournamentService "github.com/nikhil/clashforge/internal/service/tournament"
)

// TournamentRoutes wires the catalog and registration endpoints.
func TournamentRoutes(router *mux.Router, svc *tournamentService.TournamentService, jwtSecret string) {

	protectedRouter := router.PathPrefix("/tournaments").Subrouter()
	protectedRouter.Use(middleware.ResponseWrapper, middleware.Auth(jwtSecret))
	protectedRouter.HandleFunc("", svc.CreateTournament).Methods(http.MethodPost, http.MethodOptions)
	protectedRouter.HandleFunc("/{id}/registrations", svc.CreateRegistration).Methods(http.MethodPost, http.MethodOptions)
}
