package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the chi router with the middleware chain and
// all versioned routes.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoveryMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/courts", func(r chi.Router) {
			r.Get("/", s.handleListCourts)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetCourt)
				r.Post("/start", s.handleStartCourt)
				r.Post("/stop", s.handleStopCourt)
				r.Post("/restart", s.handleRestartCourt)
				r.Post("/stream/start", s.handleStartStream)
				r.Post("/stream/stop", s.handleStopStream)
				r.Post("/record/start", s.handleStartRecord)
				r.Post("/record/stop", s.handleStopRecord)
			})
		})

		r.Get("/events", s.handleListEvents)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports liveness plus a summary of court state, so a
// single probe shows both that the API is up and what it supervises.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := s.controller.Statuses()

	running := 0
	connected := 0
	for _, st := range statuses {
		if st.ProcessRunning {
			running++
		}
		if st.Connected {
			connected++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"courts":    len(statuses),
		"running":   running,
		"connected": connected,
	})
}
