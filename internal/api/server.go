package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/history"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/config"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/supervisor"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight
// requests to drain before forcing the listener closed.
const gracefulShutdownTimeout = 10 * time.Second

// Logger is the minimal logging interface the server depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// CourtController is the slice of the supervisor the HTTP layer drives.
type CourtController interface {
	Courts() []string
	Status(name string) (supervisor.CourtStatus, error)
	Statuses() []supervisor.CourtStatus
	StartCourt(name string) error
	StopCourt(name string) error
	RestartCourt(name string) error
	StartStream(name string) error
	StopStream(name string) error
	StartRecord(name string) error
	StopRecord(name string) error
}

// Deps carries the server's dependencies. All fields except Version
// are required.
type Deps struct {
	Config     *config.Config
	Logger     Logger
	Controller CourtController
	History    history.Repository
	Version    string
}

// Server is the HTTP API front end. It owns the listener, the router
// and the WebSocket hub.
type Server struct {
	cfg        config.APIConfig
	logger     Logger
	controller CourtController
	history    history.Repository
	version    string

	httpServer *http.Server
	hub        *Hub

	cancel context.CancelFunc
}

// New validates deps and builds a Server. It does not start listening;
// call Start for that.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("api: config is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Controller == nil {
		return nil, errors.New("api: controller is required")
	}
	if deps.History == nil {
		return nil, errors.New("api: history repository is required")
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	return &Server{
		cfg:        deps.Config.API,
		logger:     deps.Logger,
		controller: deps.Controller,
		history:    deps.History,
		version:    version,
	}, nil
}

// Hub returns the WebSocket hub. It is non-nil only after Start.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start builds the router and begins serving in the background.
// Listener errors after startup are logged, not returned.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.hub = NewHub(s.logger)
	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("api server starting", "addr", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped unexpectedly", "error", err)
		}
	}()

	return nil
}

// Close drains in-flight requests and shuts the server down.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// HealthCheck reports whether the server is in a serving state.
func (s *Server) HealthCheck(_ context.Context) error {
	if s.httpServer == nil {
		return errors.New("api: server not started")
	}
	return nil
}
