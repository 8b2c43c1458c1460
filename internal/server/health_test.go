package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec, resp
}

func healthy(context.Context) HealthCheck   { return HealthCheck{Status: HealthStatusHealthy} }
func degraded(context.Context) HealthCheck  { return HealthCheck{Status: HealthStatusDegraded} }
func unhealthy(context.Context) HealthCheck { return HealthCheck{Status: HealthStatusUnhealthy} }

func TestHealthServer_Health(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthChecker
		status HealthStatus
		code   int
	}{
		{"no checks", nil, HealthStatusHealthy, http.StatusOK},
		{"healthy", map[string]HealthChecker{"a": healthy}, HealthStatusHealthy, http.StatusOK},
		{"degraded", map[string]HealthChecker{"a": healthy, "b": degraded}, HealthStatusDegraded, http.StatusOK},
		{"unhealthy wins", map[string]HealthChecker{"a": degraded, "b": unhealthy}, HealthStatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHealthServer("1.0.0")
			for name, c := range tt.checks {
				s.RegisterCheck(name, c)
			}
			for _, path := range []string{"/health", "/healthz"} {
				rec, resp := get(t, s.Handler(), path)
				if rec.Code != tt.code {
					t.Errorf("%s: expected %d, got %d", path, tt.code, rec.Code)
				}
				if resp.Status != tt.status {
					t.Errorf("%s: expected %s, got %s", path, tt.status, resp.Status)
				}
				if resp.Version != "1.0.0" {
					t.Errorf("expected version 1.0.0, got %s", resp.Version)
				}
				if rec.Header().Get("Content-Type") != "application/json" {
					t.Errorf("expected JSON content type")
				}
			}
		})
	}
}

func TestHealthServer_CheckOrder(t *testing.T) {
	s := NewHealthServer("")
	s.RegisterCheck("temporal", healthy)
	s.RegisterCheck("graph", healthy)

	resp := s.Check(context.Background())
	if len(resp.Checks) != 2 || resp.Checks[0].Name != "graph" || resp.Checks[1].Name != "temporal" {
		t.Fatalf("expected checks sorted by name, got %+v", resp.Checks)
	}
}

func TestHealthServer_ReadyLive(t *testing.T) {
	s := NewHealthServer("")

	if rec, _ := get(t, s.Handler(), "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected not ready initially, got %d", rec.Code)
	}
	s.SetReady(true)
	if rec, _ := get(t, s.Handler(), "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("expected ready, got %d", rec.Code)
	}

	if rec, _ := get(t, s.Handler(), "/live"); rec.Code != http.StatusOK {
		t.Errorf("expected live initially, got %d", rec.Code)
	}
	s.SetLive(false)
	if rec, _ := get(t, s.Handler(), "/livez"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected not live, got %d", rec.Code)
	}
}

func TestGraphStoreHealthChecker(t *testing.T) {
	ok := GraphStoreHealthChecker("memory", func(context.Context) error { return nil })(context.Background())
	if ok.Status != HealthStatusHealthy || ok.Details["backend"] != "memory" {
		t.Errorf("unexpected check %+v", ok)
	}

	down := GraphStoreHealthChecker("neo4j", func(context.Context) error {
		return errors.New("connection refused")
	})(context.Background())
	if down.Status != HealthStatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", down.Status)
	}
}

func TestTemporalHealthChecker(t *testing.T) {
	if c := TemporalHealthChecker(func(context.Context) error { return nil })(context.Background()); c.Status != HealthStatusHealthy {
		t.Errorf("expected healthy, got %s", c.Status)
	}
	if c := TemporalHealthChecker(func(context.Context) error { return errors.New("x") })(context.Background()); c.Status != HealthStatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", c.Status)
	}
}

func TestReportAgeHealthChecker(t *testing.T) {
	never := ReportAgeHealthChecker(func() (time.Time, bool) { return time.Time{}, false }, time.Minute)
	if c := never(context.Background()); c.Status != HealthStatusDegraded {
		t.Errorf("expected degraded before first report, got %s", c.Status)
	}

	fresh := ReportAgeHealthChecker(func() (time.Time, bool) { return time.Now(), true }, time.Minute)
	if c := fresh(context.Background()); c.Status != HealthStatusHealthy {
		t.Errorf("expected healthy, got %s", c.Status)
	}

	stale := ReportAgeHealthChecker(func() (time.Time, bool) { return time.Now().Add(-time.Hour), true }, time.Minute)
	if c := stale(context.Background()); c.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", c.Status)
	}
}
