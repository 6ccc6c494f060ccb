package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/clashforge/internal/middleware"
	"github.com/nikhil/clashforge/internal/transport"
)

// RegisterWebSocketRoutes registers all WebSocket related routes
func RegisterWebSocketRoutes(router *mux.Router, gateway *transport.Gateway, jwtSecret string) {
	// WebSocket endpoint with authentication via query parameter
	router.Handle("/ws", middleware.WebSocketAuth(jwtSecret)(http.HandlerFunc(gateway.HandleWebSocket))).Methods("GET")
}
