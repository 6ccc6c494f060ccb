package routes

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nikhil/clashforge/internal/logger"
	"github.com/nikhil/clashforge/internal/middleware"
	"github.com/nikhil/clashforge/internal/models"
	"github.com/nikhil/clashforge/internal/transport"
)

type stubRegistry struct {
	mu   sync.Mutex
	rows int
}

func (s *stubRegistry) PutConnection(context.Context, *models.Connection, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows++
	return nil
}

func (s *stubRegistry) DeleteConnection(context.Context, string) error {
	return nil
}

func (s *stubRegistry) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// The WebSocket endpoint is served through the metrics middleware like every
// other route; the upgrade (which hijacks the connection) must still work.
func TestWebSocketUpgradeBehindMetricsMiddleware(t *testing.T) {
	const secret = "test-secret"
	registry := &stubRegistry{}
	gateway := transport.NewGateway(registry, time.Hour, logger.NewLogger("routes-test"))

	router := mux.NewRouter()
	router.Use(middleware.Metrics)
	RegisterWebSocketRoutes(router, gateway, secret)

	srv := httptest.NewServer(router)
	defer srv.Close()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}).
		SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed (status %d): %v", status, err)
	}
	defer conn.Close()

	// round-trip through the pumps proves the connection is live
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), "pong") {
		t.Errorf("reply = %s, want a pong", msg)
	}

	if registry.count() != 1 {
		t.Errorf("registry rows = %d, want 1", registry.count())
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	registry := &stubRegistry{}
	gateway := transport.NewGateway(registry, time.Hour, logger.NewLogger("routes-test"))

	router := mux.NewRouter()
	router.Use(middleware.Metrics)
	RegisterWebSocketRoutes(router, gateway, "test-secret")

	srv := httptest.NewServer(router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err == nil {
		t.Fatal("dial succeeded without a token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("resp = %+v, want 401", resp)
	}
	if registry.count() != 0 {
		t.Errorf("registry rows = %d, want 0", registry.count())
	}
}
