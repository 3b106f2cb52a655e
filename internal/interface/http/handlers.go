package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codeclub/leetboard/internal/application/query"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/internal/infrastructure/scheduler"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "leetboard",
		"status":  "running",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// handleHealth reports the state of every dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady is the readiness probe: ready when dependencies are healthy.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil && !s.deps.HealthChecker.Check(r.Context()).Healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleLeaderboard serves GET /api/v1/groups/{groupID}/leaderboard.
// Query params: limit, offset, date (YYYY-MM-DD, reads the stored snapshot).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "leaderboard is not configured")
		return
	}

	q := query.GetLeaderboardQuery{
		GroupID: shared.GroupID(chi.URLParam(r, "groupID")),
	}

	var err error
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	if q.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := timeutil.ParseDate(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "INVALID_PARAMETER", "date must be YYYY-MM-DD")
			return
		}
		q.Date = &day
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGainers serves GET /api/v1/groups/{groupID}/gainers.
// Query params: view (active|all), days (window length).
func (s *Server) handleGainers(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetGainersHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "gainers are not configured")
		return
	}

	days, err := queryInt(r, "days", 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}

	result, err := s.deps.GetGainersHandler.Handle(r.Context(), query.GetGainersQuery{
		GroupID:    shared.GroupID(chi.URLParam(r, "groupID")),
		View:       leaderboard.ParseView(r.URL.Query().Get("view")),
		WindowDays: days,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.deps.Jobs.ListJobs()})
}

// handleRunJob triggers a job in the background and replies 202.
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var found *scheduler.JobInfo
	for _, info := range s.deps.Jobs.ListJobs() {
		if info.Name == name {
			found = &info
			break
		}
	}
	if found == nil {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	if found.Running {
		writeJSONError(w, http.StatusConflict, "JOB_RUNNING", "job is already running")
		return
	}

	log := logger.FromContext(r.Context())
	s.jobsWG.Add(1)
	go func(ctx context.Context) {
		defer s.jobsWG.Done()
		if _, err := s.deps.Jobs.RunNow(ctx, name); err != nil {
			log.Warn("manual job run failed", "job", name, logger.Err(err))
		}
	}(s.jobsCtx)

	writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "started"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain error kinds onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", shared.UserMessage(err))
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", shared.UserMessage(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusServiceUnavailable, "TIMEOUT", "request was canceled")
	case shared.IsTransient(err):
		logger.FromContext(r.Context()).Warn("transient error", logger.Err(err))
		writeJSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", shared.UserMessage(err))
	default:
		logger.FromContext(r.Context()).Error("request failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// queryInt reads an optional integer parameter; range checks belong to the query.
func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}
