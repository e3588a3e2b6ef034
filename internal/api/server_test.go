package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/health"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/scheduler"
)

type staticStatus struct{ st *scheduler.Status }

func (s staticStatus) Status() *scheduler.Status { return s.st }

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func sampleStatus() *scheduler.Status {
	return &scheduler.Status{
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Classes: []scheduler.ClassStatus{
			{Class: device.ClassSensor, Devices: 1},
		},
		Rooms: []scheduler.RoomStatus{
			{RoomID: "0.1", Name: "woonkamer", Class: device.ClassSensor, Score: 0, State: health.StateCritical},
			{RoomID: "airco0", Name: "airco", Class: device.ClassAppliance},
		},
		Queued: map[string]int{"data": 2},
	}
}

func testServer(t *testing.T, st *scheduler.Status, checks map[string]HealthChecker) *Server {
	t.Helper()

	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger: log,
		Status: staticStatus{st: st},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "climate_room_health{room=\"0.1\"} 0\n") //nolint:errcheck // Test handler
		}),
		Checks:  checks,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

// ─── Construction ─────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Status: staticStatus{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without status source should fail")
	}
}

// ─── Health ───────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{
			"all healthy",
			map[string]HealthChecker{"database": checkFunc(func(context.Context) error { return nil })},
			http.StatusOK, "ok",
		},
		{
			"mqtt down",
			map[string]HealthChecker{
				"database": checkFunc(func(context.Context) error { return nil }),
				"mqtt":     checkFunc(func(context.Context) error { return errors.New("mqtt: client not connected") }),
			},
			http.StatusServiceUnavailable, "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, testServer(t, sampleStatus(), tt.checks), "/api/v1/health")

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Version != "test" {
				t.Errorf("resp = %+v", resp)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v, want %d entries", resp.Checks, len(tt.checks))
			}
		})
	}
}

// ─── Status and rooms ─────────────────────────────────────────────

func TestStatus(t *testing.T) {
	w := get(t, testServer(t, sampleStatus(), nil), "/api/v1/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d; body: %s", w.Code, w.Body.String())
	}

	var st scheduler.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(st.Rooms) != 2 || st.Queued["data"] != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestStatus_BeforeFirstTick(t *testing.T) {
	srv := testServer(t, nil, nil)
	for _, path := range []string{"/api/v1/status", "/api/v1/rooms", "/api/v1/rooms/0.1"} {
		if w := get(t, srv, path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, w.Code)
		}
	}
}

func TestListRooms(t *testing.T) {
	w := get(t, testServer(t, sampleStatus(), nil), "/api/v1/rooms")
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}

	var resp struct {
		Rooms []map[string]any `json:"rooms"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
	// A score of zero must still be serialised.
	if score, ok := resp.Rooms[0]["health"]; !ok || score.(float64) != 0 {
		t.Errorf("rooms[0].health = %v (present %v), want 0", score, ok)
	}
}

func TestGetRoom(t *testing.T) {
	srv := testServer(t, sampleStatus(), nil)

	w := get(t, srv, "/api/v1/rooms/0.1")
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	var room scheduler.RoomStatus
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if room.Name != "woonkamer" || room.State != health.StateCritical {
		t.Errorf("room = %+v", room)
	}

	if w := get(t, srv, "/api/v1/rooms/9.9"); w.Code != http.StatusNotFound {
		t.Errorf("unknown room = %d, want 404", w.Code)
	}
}

// ─── Routing and middleware ───────────────────────────────────────

func TestMetricsRoute(t *testing.T) {
	w := get(t, testServer(t, sampleStatus(), nil), "/metrics")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Errorf("GET /metrics = %d %q", w.Code, w.Body.String())
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	srv := testServer(t, sampleStatus(), nil)

	if w := get(t, srv, "/api/v1/nonexistent"); w.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d, want 404", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/v1/status = %d, want 405", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	srv := testServer(t, sampleStatus(), nil)

	if id := get(t, srv, "/api/v1/health").Header().Get("X-Request-ID"); id == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestStartAndClose(t *testing.T) {
	srv := testServer(t, sampleStatus(), nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
