package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds all dependency checks of one health request.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body of /api/v1/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// handleHealth reports "ok" when every dependency check passes and
// "degraded" with 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.status.Status()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler has not completed a tick yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	st := s.status.Status()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler has not completed a tick yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": st.Rooms,
		"count": len(st.Rooms),
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st := s.status.Status()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "scheduler has not completed a tick yet")
		return
	}
	for _, room := range st.Rooms {
		if room.RoomID == id {
			writeJSON(w, http.StatusOK, room)
			return
		}
	}
	writeNotFound(w, "room not found")
}
