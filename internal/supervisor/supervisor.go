package supervisor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/infrastructure/config"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/launcher"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/obs"
	"github.com/Marthi0/OBS-Multi-Instance-Controller/internal/watchdog"
)

// Sentinel errors for supervisor operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownCourt is returned when a command names a court that is
	// not in the configuration.
	ErrUnknownCourt = errors.New("supervisor: unknown court")
)

// stopTimeout is the graceful shutdown window for manual stops.
const stopTimeout = 10 * time.Second

// EventType classifies court lifecycle events.
type EventType string

// Court lifecycle event types.
const (
	EventLaunched      EventType = "launched"
	EventStopped       EventType = "stopped"
	EventConnected     EventType = "connected"
	EventDisconnected  EventType = "disconnected"
	EventStreamStarted EventType = "stream_started"
	EventStreamStopped EventType = "stream_stopped"
	EventRecordStarted EventType = "record_started"
	EventRecordStopped EventType = "record_stopped"
)

// Event is a court lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Court     string    `json:"court"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// CourtStatus is a live snapshot of one court: process, connection, and
// output state. Connection and output fields come from round trips to the
// instance, never from a cache.
type CourtStatus struct {
	Name            string `json:"name"`
	Profile         string `json:"profile"`
	WebSocketPort   int    `json:"websocket_port"`
	ProcessRunning  bool   `json:"process_running"`
	PID             int    `json:"pid,omitempty"`
	Connected       bool   `json:"connected"`
	Streaming       bool   `json:"streaming"`
	Recording       bool   `json:"recording"`
	WatchdogRunning bool   `json:"watchdog_running"`
	ManuallyStopped bool   `json:"manually_stopped"`
}

// ProcessLauncher manages the OBS process for one court.
type ProcessLauncher interface {
	Launch() error
	Stop(timeout time.Duration) error
	Restart() error
	IsRunning() bool
	PID() int
}

// healthMonitor is the watchdog surface the supervisor drives.
type healthMonitor interface {
	Start()
	Stop()
	MarkManuallyStopped()
	State() watchdog.State
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// court bundles the three actors managing one OBS instance.
type court struct {
	config   config.CourtConfig
	client   obs.Client
	launcher ProcessLauncher
	watchdog healthMonitor
}

// Supervisor owns one launcher/client/watchdog triple per configured
// court. Courts are fully independent: an action or failure on one never
// touches another.
//
// Thread Safety: all methods are safe for concurrent use. Event handlers
// are invoked off the caller's goroutine, one event at a time.
type Supervisor struct {
	logger Logger

	order  []string
	courts map[string]*court

	mu       sync.Mutex
	handlers []func(Event)
	eventCh  chan Event
	done     chan struct{}
	closed   bool
}

// New builds a supervisor from configuration, creating a launcher, an OBS
// WebSocket client, and a watchdog for every configured court.
func New(cfg *config.Config, logger Logger) *Supervisor {
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Supervisor{
		logger:  logger,
		courts:  make(map[string]*court),
		eventCh: make(chan Event, 64),
		done:    make(chan struct{}),
	}

	for _, cc := range cfg.Courts {
		name := cc.Name

		l := launcher.New(launcher.Config{
			CourtName:         name,
			ExecutablePath:    cfg.OBS.ExecutablePath,
			ProfileName:       cc.ProfileName,
			WebSocketPort:     cc.WebSocketPort,
			WebSocketPassword: cc.WebSocketPassword,
		})

		client := obs.NewWebSocketClient("localhost", cc.WebSocketPort, cc.WebSocketPassword)

		w := watchdog.New(watchdog.Config{
			CourtName:     name,
			CheckInterval: cfg.CheckInterval(),
			RestartDelay:  cfg.RestartDelay(),
			OnDisconnect: func() {
				s.emit(name, EventDisconnected, "")
			},
			OnReconnect: func() {
				s.emit(name, EventConnected, "")
			},
		}, client, l)

		l.SetLogger(logger)
		client.SetLogger(logger)
		w.SetLogger(logger)

		s.order = append(s.order, name)
		s.courts[name] = &court{
			config:   cc,
			client:   client,
			launcher: l,
			watchdog: w,
		}
	}

	go s.dispatch()
	return s
}

// Subscribe registers a handler for lifecycle events. Handlers run
// sequentially on the supervisor's dispatch goroutine and must not block
// for long.
func (s *Supervisor) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// emit queues a lifecycle event for dispatch. Events are dropped, with a
// log line, if the queue is full.
func (s *Supervisor) emit(court string, typ EventType, detail string) {
	ev := Event{
		ID:        uuid.New().String(),
		Court:     court,
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	}
	select {
	case s.eventCh <- ev:
	default:
		s.logger.Warn("event queue full, dropping event",
			"court", court,
			"type", string(typ),
		)
	}
}

// dispatch delivers queued events to all subscribers in order.
func (s *Supervisor) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.eventCh:
			s.mu.Lock()
			handlers := make([]func(Event), len(s.handlers))
			copy(handlers, s.handlers)
			s.mu.Unlock()

			for _, fn := range handlers {
				fn(ev)
			}
		}
	}
}

// lookup finds a court by name.
func (s *Supervisor) lookup(name string) (*court, error) {
	c, ok := s.courts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCourt, name)
	}
	return c, nil
}

// Courts returns the configured court names in configuration order.
func (s *Supervisor) Courts() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// StartAll launches every court's OBS instance and activates its
// watchdog. A court that fails to launch is logged and skipped; its
// watchdog still starts so recovery can pick it up later.
func (s *Supervisor) StartAll() {
	for _, name := range s.order {
		c := s.courts[name]

		if err := c.launcher.Launch(); err != nil {
			s.logger.Error("failed to launch court",
				"court", name,
				"error", err,
			)
		} else {
			s.emit(name, EventLaunched, "")
		}

		c.watchdog.Start()
	}
	s.logger.Info("supervisor started", "courts", len(s.order))
}

// StopAll shuts every court down: watchdog first so the stops are not
// treated as failures, then the control connection, then the process.
// The event dispatcher is closed last.
func (s *Supervisor) StopAll() {
	for _, name := range s.order {
		c := s.courts[name]

		c.watchdog.Stop()
		c.client.Disconnect()

		if err := c.launcher.Stop(stopTimeout); err != nil {
			s.logger.Warn("error stopping court",
				"court", name,
				"error", err,
			)
		}
		s.emit(name, EventStopped, "shutdown")
	}

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()

	s.logger.Info("supervisor stopped")
}

// StartCourt launches one court's OBS instance on operator request and
// makes sure its watchdog is active. Launching an already-running court
// is a no-op success.
func (s *Supervisor) StartCourt(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}

	if err := c.launcher.Launch(); err != nil {
		return err
	}

	c.watchdog.Start()
	s.emit(name, EventLaunched, "manual start")
	return nil
}

// StopCourt stops one court's OBS instance on operator request. The
// watchdog is told about the intent first so the resulting disconnect is
// not treated as a failure; the watchdog itself keeps running and will
// resume recovery once the instance is seen online again.
func (s *Supervisor) StopCourt(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}

	// Intent before action: the flag must be set before the connection
	// drops, or the next health check races the stop.
	c.watchdog.MarkManuallyStopped()
	c.client.Disconnect()

	if err := c.launcher.Stop(stopTimeout); err != nil {
		return err
	}

	s.emit(name, EventStopped, "manual stop")
	return nil
}

// RestartCourt restarts one court's OBS process on operator request.
func (s *Supervisor) RestartCourt(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}

	if err := c.launcher.Restart(); err != nil {
		return err
	}

	s.emit(name, EventLaunched, "manual restart")
	return nil
}

// ensureConnected gives a manual command a working connection, dialing
// on demand if the client is not currently connected.
func (s *Supervisor) ensureConnected(c *court) error {
	if c.client.IsConnected() {
		return nil
	}
	return c.client.Connect()
}

// StartStream starts the streaming output on one court.
func (s *Supervisor) StartStream(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(c); err != nil {
		return err
	}
	if err := c.client.StartStreaming(); err != nil {
		return err
	}
	s.emit(name, EventStreamStarted, "")
	return nil
}

// StopStream stops the streaming output on one court.
func (s *Supervisor) StopStream(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(c); err != nil {
		return err
	}
	if err := c.client.StopStreaming(); err != nil {
		return err
	}
	s.emit(name, EventStreamStopped, "")
	return nil
}

// StartRecord starts the recording output on one court.
func (s *Supervisor) StartRecord(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(c); err != nil {
		return err
	}
	if err := c.client.StartRecording(); err != nil {
		return err
	}
	s.emit(name, EventRecordStarted, "")
	return nil
}

// StopRecord stops the recording output on one court.
func (s *Supervisor) StopRecord(name string) error {
	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	if err := s.ensureConnected(c); err != nil {
		return err
	}
	if err := c.client.StopRecording(); err != nil {
		return err
	}
	s.emit(name, EventRecordStopped, "")
	return nil
}

// Status returns a live snapshot of one court.
func (s *Supervisor) Status(name string) (CourtStatus, error) {
	c, err := s.lookup(name)
	if err != nil {
		return CourtStatus{}, err
	}
	return s.statusOf(c), nil
}

// Statuses returns live snapshots of all courts in configuration order.
func (s *Supervisor) Statuses() []CourtStatus {
	out := make([]CourtStatus, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.statusOf(s.courts[name]))
	}
	return out
}

func (s *Supervisor) statusOf(c *court) CourtStatus {
	obsStatus := c.client.Status()
	wdState := c.watchdog.State()

	return CourtStatus{
		Name:            c.config.Name,
		Profile:         c.config.ProfileName,
		WebSocketPort:   c.config.WebSocketPort,
		ProcessRunning:  c.launcher.IsRunning(),
		PID:             c.launcher.PID(),
		Connected:       obsStatus.Connected,
		Streaming:       obsStatus.Streaming,
		Recording:       obsStatus.Recording,
		WatchdogRunning: wdState.Running,
		ManuallyStopped: wdState.ManuallyStopped,
	}
}
