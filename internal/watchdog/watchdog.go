package watchdog

import (
	"sync"
	"time"
)

// Default timing for the health-check loop.
const (
	// defaultCheckInterval is the time between connectivity probes, and
	// also the initial delay before the first probe.
	defaultCheckInterval = 5 * time.Second

	// defaultRestartDelay debounces recovery so a transient blip does
	// not trigger a restart.
	defaultRestartDelay = 3 * time.Second

	// defaultReconnectGrace is how long to wait after a restart for the
	// instance to bring its WebSocket server back up.
	defaultReconnectGrace = 5 * time.Second

	// stopJoinTimeout bounds how long Stop waits for an in-flight check
	// cycle to finish.
	stopJoinTimeout = 5 * time.Second
)

// ControlClient is the slice of the OBS control capability the watchdog
// consumes: a live connectivity probe and a reconnect attempt.
type ControlClient interface {
	Connect() error
	IsConnected() bool
}

// Launcher restarts the supervised OBS process during recovery.
type Launcher interface {
	Restart() error
}

// Logger defines the logging interface for the watchdog.
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

// Config holds configuration for one court's watchdog.
type Config struct {
	// CourtName identifies the supervised instance in logs and events.
	CourtName string

	// CheckInterval is the time between connectivity probes. Zero means
	// the default (5s).
	CheckInterval time.Duration

	// RestartDelay is the debounce before recovery reacts to a
	// disconnect. Zero means the default (3s).
	RestartDelay time.Duration

	// ReconnectGrace is the wait after a process restart before the
	// final reconnect attempt. Zero means the default (5s).
	ReconnectGrace time.Duration

	// OnDisconnect is invoked once per disconnect edge. Optional,
	// informational only.
	OnDisconnect func()

	// OnReconnect is invoked once per reconnect edge. Optional,
	// informational only.
	OnReconnect func()
}

// Watchdog supervises one OBS instance: it polls connectivity, detects
// disconnect/reconnect edges, and drives reconnect-or-relaunch recovery.
//
// Recovery is a transition action, not a state: it runs only on an
// unsuppressed connected-to-disconnected edge. While the instance stays
// down no new edge fires, so a failed recovery is not retried until the
// connection has been observed up again (see attemptRecovery).
//
// Thread Safety: Start, Stop, MarkManuallyStopped and State are safe for
// concurrent use. The check loop itself is sequential: one probe/recovery
// sequence at a time.
type Watchdog struct {
	config   Config
	client   ControlClient
	launcher Launcher
	logger   Logger

	mu              sync.Mutex
	running         bool
	wasConnected    bool
	manuallyStopped bool
	stopCh          chan struct{}
	done            chan struct{}
}

// New creates a watchdog for one court. The loop does not run until
// Start is called.
func New(cfg Config, client ControlClient, launcher Launcher) *Watchdog {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = defaultRestartDelay
	}
	if cfg.ReconnectGrace == 0 {
		cfg.ReconnectGrace = defaultReconnectGrace
	}

	return &Watchdog{
		config:   cfg,
		client:   client,
		launcher: launcher,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the watchdog.
func (w *Watchdog) SetLogger(logger Logger) {
	w.logger = logger
}

// Start activates the health-check loop. It is a no-op if the loop is
// already running.
//
// The connectivity state is initialized from a fresh probe so a watchdog
// started against an already-connected instance does not fire a spurious
// disconnect event on its first cycle.
func (w *Watchdog) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Warn("watchdog already running", "court", w.config.CourtName)
		return
	}
	w.mu.Unlock()

	// Probe outside the lock: the client call is short-blocking but must
	// not stall MarkManuallyStopped or State.
	connected := w.client.IsConnected()

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.wasConnected = connected
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	stopCh, done := w.stopCh, w.done
	w.mu.Unlock()

	go w.run(stopCh, done)
	w.logger.Info("watchdog started",
		"court", w.config.CourtName,
		"connected", connected,
	)
}

// Stop deactivates the loop and waits, bounded, for any in-flight check
// cycle to finish. Safe to call when never started or already stopped.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, done := w.stopCh, w.done
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		w.logger.Warn("watchdog stop timed out waiting for check cycle",
			"court", w.config.CourtName,
		)
	}
	w.logger.Info("watchdog stopped", "court", w.config.CourtName)
}

// MarkManuallyStopped records that the user intends this instance to be
// down. The next disconnect edge skips recovery; the flag is cleared by
// any observed reconnection.
//
// Callers issuing a manual stop must set this before stopping the
// process. A disconnect edge detected between the user's decision and
// this call still triggers recovery; that window is inherent to the
// flag-based protocol.
func (w *Watchdog) MarkManuallyStopped() {
	w.mu.Lock()
	w.manuallyStopped = true
	w.mu.Unlock()
	w.logger.Info("instance marked as manually stopped", "court", w.config.CourtName)
}

// State is a snapshot of the watchdog state machine.
type State struct {
	Running         bool `json:"running"`
	WasConnected    bool `json:"was_connected"`
	ManuallyStopped bool `json:"manually_stopped"`
}

// State returns a snapshot of the watchdog state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Running:         w.running,
		WasConnected:    w.wasConnected,
		ManuallyStopped: w.manuallyStopped,
	}
}

// run is the health-check loop. It exits only when stopCh closes.
func (w *Watchdog) run(stopCh, done chan struct{}) {
	defer close(done)

	// Initial delay: give a freshly launched instance time to bring up
	// its control endpoint before the first probe.
	if !w.sleep(w.config.CheckInterval, stopCh) {
		return
	}

	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	for {
		w.check(stopCh)

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// sleep waits d or until stopCh closes. Returns false when stopping.
func (w *Watchdog) sleep(d time.Duration, stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

// check runs one probe cycle. Nothing escapes it: errors and panics from
// the probe or recovery are logged and the loop carries on.
func (w *Watchdog) check(stopCh chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("health check panic recovered",
				"court", w.config.CourtName,
				"panic", r,
			)
		}
	}()

	isConnected := w.client.IsConnected()

	w.mu.Lock()
	if isConnected == w.wasConnected {
		// No edge, no action.
		w.mu.Unlock()
		return
	}
	w.wasConnected = isConnected

	if isConnected {
		// Reconnect edge: any observed reconnection cancels a prior
		// manual-stop intent.
		w.manuallyStopped = false
		w.mu.Unlock()

		w.logger.Info("OBS reconnected", "court", w.config.CourtName)
		if w.config.OnReconnect != nil {
			w.config.OnReconnect()
		}
		return
	}

	suppressed := w.manuallyStopped
	w.mu.Unlock()

	w.logger.Warn("OBS disconnected", "court", w.config.CourtName)
	if w.config.OnDisconnect != nil {
		w.config.OnDisconnect()
	}

	if suppressed {
		// The flag survives the edge; only a reconnection clears it.
		w.logger.Info("instance was manually stopped, skipping recovery",
			"court", w.config.CourtName,
		)
		return
	}

	w.attemptRecovery(stopCh)
}

// attemptRecovery runs the disconnect recovery procedure: debounce, try a
// direct reconnect, then relaunch the process and reconnect once more.
//
// On failure the court stays down: wasConnected is already false, so no
// further edge fires and recovery is not retried until the connection is
// observed up again. Every outcome is logged; nothing propagates.
func (w *Watchdog) attemptRecovery(stopCh chan struct{}) {
	w.logger.Info("attempting recovery", "court", w.config.CourtName)

	// Debounce: transient endpoint blips resolve themselves within the
	// restart delay.
	if !w.sleep(w.config.RestartDelay, stopCh) {
		return
	}

	// An endpoint hiccup without process death only needs a reconnect.
	if err := w.client.Connect(); err == nil {
		w.logger.Info("reconnected to existing instance", "court", w.config.CourtName)
		return
	}

	w.logger.Info("reconnect failed, restarting OBS", "court", w.config.CourtName)
	if err := w.launcher.Restart(); err != nil {
		w.logger.Error("recovery failed: could not restart OBS",
			"court", w.config.CourtName,
			"error", err,
		)
		return
	}

	// The WebSocket server comes up noticeably later than the process.
	if !w.sleep(w.config.ReconnectGrace, stopCh) {
		return
	}

	if err := w.client.Connect(); err != nil {
		w.logger.Error("recovery failed: restarted but cannot connect",
			"court", w.config.CourtName,
			"error", err,
		)
		return
	}

	w.logger.Info("recovery succeeded", "court", w.config.CourtName)
}
