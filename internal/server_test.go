package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitekeeper-api/internal/auth"
	"sitekeeper-api/internal/config"

	"github.com/go-chi/chi/v5"
)

func newBareServer() *Server {
	return &Server{
		Router:     chi.NewRouter(),
		JWTManager: auth.NewJWTManager("test-secret-at-least-32-characters!!", "sitekeeper-api", "sitekeeper-api", time.Hour),
		Metrics:    NewMetrics(),
		Config: &config.Config{
			BaseURL:  "http://localhost:8080",
			MediaDir: "media",
		},
	}
}

func TestMountRoutesWithMetricsEnabled(t *testing.T) {
	// Mounting must not panic: chi only accepts middleware before the
	// first route, so the metrics flag has to be applied up front.
	s := newBareServer()
	s.mountRoutes(true)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for /healthz, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("Expected /metrics to expose http_requests_total")
	}
	if !strings.Contains(w.Body.String(), `path="/healthz"`) {
		t.Error("Expected the /healthz request to be counted")
	}
}

func TestMountRoutesWithMetricsDisabled(t *testing.T) {
	s := newBareServer()
	s.mountRoutes(false)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for /metrics when disabled, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/healthz", nil)
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for /healthz, got %d", w.Code)
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	s := newBareServer()
	s.mountRoutes(false)

	req := httptest.NewRequest("GET", "/sites", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for /sites without a token, got %d", w.Code)
	}
}
