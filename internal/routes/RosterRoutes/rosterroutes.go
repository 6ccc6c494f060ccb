package rosterroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/middleware"
	rosterService "github.com/nikhil/clashforge/internal/service/roster"
)

// RosterRoutes wires the team, role-slot and draft endpoints. Listing is
// public; everything that mutates goes through auth.
func RosterRoutes(router *mux.Router, svc *rosterService.RosterService, jwtSecret string) {

	publicRouter := router.PathPrefix("/tournaments").Subrouter()
	publicRouter.Use(middleware.ResponseWrapper)
	publicRouter.HandleFunc("/{id}/teams", svc.ListTeams).Methods(http.MethodGet, http.MethodOptions)

	protectedRouter := router.PathPrefix("/tournaments").Subrouter()
	protectedRouter.Use(middleware.ResponseWrapper, middleware.Auth(jwtSecret))
	protectedRouter.HandleFunc("/{id}/teams", svc.CreateTeam).Methods(http.MethodPost, http.MethodOptions)
	protectedRouter.HandleFunc("/{id}/teams/{teamId}", svc.DeleteTeam).Methods(http.MethodDelete, http.MethodOptions)
	protectedRouter.HandleFunc("/{id}/teams/{teamId}/roles/{role}", svc.ClaimRole).Methods(http.MethodPut, http.MethodOptions)
	protectedRouter.HandleFunc("/{id}/teams/{teamId}/roles/{role}", svc.RemoveRole).Methods(http.MethodDelete, http.MethodOptions)
	protectedRouter.HandleFunc("/{id}/teams/{teamId}/draft", svc.GetDraft).Methods(http.MethodGet, http.MethodOptions)
	protectedRouter.HandleFunc("/{id}/teams/{teamId}/draft", svc.SaveDraft).Methods(http.MethodPut, http.MethodOptions)
}
