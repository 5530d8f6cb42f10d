package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/history"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/obs"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
)

// handleListCourts returns the live status of every configured court.
func (s *Server) handleListCourts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"courts": s.controller.Statuses(),
	})
}

// handleGetCourt returns the live status of a single court.
func (s *Server) handleGetCourt(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, err := s.controller.Status(name)
	if err != nil {
		s.writeCourtError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStartCourt(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "start", s.controller.StartCourt)
}

func (s *Server) handleStopCourt(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "stop", s.controller.StopCourt)
}

func (s *Server) handleRestartCourt(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "restart", s.controller.RestartCourt)
}

func (s *Server) handleStartStream(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "stream_start", s.controller.StartStream)
}

func (s *Server) handleStopStream(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "stream_stop", s.controller.StopStream)
}

func (s *Server) handleStartRecord(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "record_start", s.controller.StartRecord)
}

func (s *Server) handleStopRecord(w http.ResponseWriter, r *http.Request) {
	s.runCourtAction(w, r, "record_stop", s.controller.StopRecord)
}

// runCourtAction executes a control action and returns the court's
// refreshed status so callers see the immediate effect.
func (s *Server) runCourtAction(w http.ResponseWriter, r *http.Request, action string, fn func(string) error) {
	name := chi.URLParam(r, "name")

	if err := fn(name); err != nil {
		s.logger.Warn("court action failed", "court", name, "action", action, "error", err)
		s.writeCourtError(w, name, err)
		return
	}

	status, err := s.controller.Status(name)
	if err != nil {
		s.writeCourtError(w, name, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"action": action,
		"court":  status,
	})
}

// writeCourtError maps controller errors onto HTTP status codes.
func (s *Server) writeCourtError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, supervisor.ErrUnknownCourt):
		writeNotFound(w, "unknown court: "+name)
	case errors.Is(err, obs.ErrRequestFailed):
		writeConflict(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

// handleListEvents returns the persisted event history, filtered by
// the court, type, limit and offset query parameters.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter := history.Filter{
		Court: r.URL.Query().Get("court"),
		Type:  r.URL.Query().Get("type"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("event history query failed", "error", err)
		writeInternalError(w, "failed to query event history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
