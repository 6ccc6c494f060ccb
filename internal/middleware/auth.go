package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

type ContextKey string

// UserContextKey holds the verified caller identity (the token subject).
const UserContextKey ContextKey = "currentUser"

// Auth validates the bearer token and stores the caller identity on the
// request context. Token issuance happens elsewhere; this side only trusts
// the subject of a token signed with the shared secret.
func Auth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Missing auth token")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			principal, err := parsePrincipal(tokenStr, secret)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WebSocketAuth authenticates upgrade requests via a token query parameter,
// since browsers cannot set headers on WebSocket handshakes.
func WebSocketAuth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := r.URL.Query().Get("token")
			if tokenStr == "" {
				unauthorized(w, "Missing auth token")
				return
			}
			principal, err := parsePrincipal(tokenStr, secret)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parsePrincipal(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token missing subject")
	}
	return sub, nil
}

// CallerID returns the verified identity stored by the auth middleware, or
// "" when the request was not authenticated.
func CallerID(ctx context.Context) string {
	principal, _ := ctx.Value(UserContextKey).(string)
	return principal
}

// WithCaller attaches an identity to a context directly; used by tests and
// internal callers that bypass the HTTP middleware.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
