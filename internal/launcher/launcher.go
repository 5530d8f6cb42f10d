package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Sentinel errors for launcher operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrExecutableNotFound is returned when the OBS binary does not exist.
	// This is not retried automatically; the operator must fix the path.
	ErrExecutableNotFound = errors.New("launcher: executable not found")

	// ErrLaunchFailed is returned when the process is not alive after the
	// launch grace period.
	ErrLaunchFailed = errors.New("launcher: process failed to start")
)

// Default timing for launch and stop sequences.
const (
	// defaultLaunchGrace is how long to wait after spawning before
	// re-checking liveness.
	defaultLaunchGrace = 2 * time.Second

	// defaultStopTimeout is how long Stop waits for graceful exit before
	// sending SIGKILL.
	defaultStopTimeout = 10 * time.Second

	// restartPause is the pause between Stop and Launch during Restart,
	// giving the old instance time to release its WebSocket port.
	restartPause = 1 * time.Second
)

// Config holds configuration for one court's OBS process.
type Config struct {
	// CourtName is a human-readable identifier for logging.
	CourtName string

	// ExecutablePath is the path to the OBS Studio binary.
	ExecutablePath string

	// ProfileName selects the OBS profile via --profile.
	ProfileName string

	// WebSocketPort is passed via --websocket_port.
	WebSocketPort int

	// WebSocketPassword is passed via --websocket_password.
	WebSocketPassword string

	// LaunchGrace overrides the post-spawn liveness grace period.
	// Zero means the default (2s).
	LaunchGrace time.Duration

	// StopTimeout overrides the graceful shutdown window.
	// Zero means the default (10s).
	StopTimeout time.Duration
}

// Logger defines the logging interface for the launcher.
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

// Launcher starts, stops, and restarts one court's OBS process.
//
// The launcher owns at most one live process handle at a time. The process
// is spawned in its own process group, detached from the launcher's
// lifetime: exiting the controller does not kill a running OBS instance.
//
// Thread Safety: all methods are safe for concurrent use; Launch, Stop and
// Restart serialize on an internal mutex.
type Launcher struct {
	config Config
	logger Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{} // closed by the reaper when the process exits
}

// New creates a launcher for one court.
func New(cfg Config) *Launcher {
	if cfg.LaunchGrace == 0 {
		cfg.LaunchGrace = defaultLaunchGrace
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = defaultStopTimeout
	}

	return &Launcher{
		config: cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the launcher.
func (l *Launcher) SetLogger(logger Logger) {
	l.logger = logger
}

// buildArgs builds the OBS command line. The instance is configured purely
// via arguments: profile selection plus WebSocket server settings
// (supported since OBS 28 via the bundled obs-websocket plugin).
func (l *Launcher) buildArgs() []string {
	return []string{
		"--profile", l.config.ProfileName,
		"--websocket_port", strconv.Itoa(l.config.WebSocketPort),
		"--websocket_password", l.config.WebSocketPassword,
	}
}

// Launch starts the OBS process for this court.
//
// Launch is idempotent: if the process is already confirmed running it
// returns nil without spawning a second instance. After spawning it waits
// a fixed grace period and re-checks liveness; a process that died during
// the grace period yields ErrLaunchFailed.
func (l *Launcher) Launch() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isRunningLocked() {
		l.logger.Warn("OBS already running, launch ignored",
			"court", l.config.CourtName,
			"pid", l.cmd.Process.Pid,
		)
		return nil
	}

	if _, err := os.Stat(l.config.ExecutablePath); err != nil {
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, l.config.ExecutablePath)
	}

	args := l.buildArgs()
	l.logger.Info("launching OBS",
		"court", l.config.CourtName,
		"binary", l.config.ExecutablePath,
		"profile", l.config.ProfileName,
		"websocket_port", l.config.WebSocketPort,
	)

	cmd := exec.Command(l.config.ExecutablePath, args...) //nolint:gosec // Binary path validated by config at startup

	// Own process group so the instance survives controller exit and so
	// Stop can signal the whole group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Launch from the OBS directory so the instance finds its resources.
	cmd.Dir = filepath.Dir(l.config.ExecutablePath)

	// OBS output is not captured; each instance keeps its own log files.
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	exited := make(chan struct{})
	l.cmd = cmd
	l.exited = exited

	// Reaper: observe process exit so IsRunning stays non-blocking and
	// the zombie is collected.
	go func() {
		err := cmd.Wait()
		if err != nil {
			l.logger.Debug("OBS process exited",
				"court", l.config.CourtName,
				"error", err,
			)
		}
		close(exited)
	}()

	// Give the instance time to start before confirming liveness.
	l.mu.Unlock()
	time.Sleep(l.config.LaunchGrace)
	l.mu.Lock()

	if !l.isRunningLocked() {
		l.clearLocked()
		l.logger.Error("OBS process died during launch grace period",
			"court", l.config.CourtName,
		)
		return fmt.Errorf("%w: exited within %v of spawn", ErrLaunchFailed, l.config.LaunchGrace)
	}

	l.logger.Info("OBS launched",
		"court", l.config.CourtName,
		"pid", cmd.Process.Pid,
	)
	return nil
}

// IsRunning reports whether the held process handle is alive.
//
// The check is non-blocking: exit is observed by the reaper goroutine, not
// by polling the OS here. Returns false if no process was launched or the
// process has exited.
func (l *Launcher) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isRunningLocked()
}

// isRunningLocked is IsRunning without locking. Callers hold l.mu.
func (l *Launcher) isRunningLocked() bool {
	if l.cmd == nil {
		return false
	}
	select {
	case <-l.exited:
		return false
	default:
		return true
	}
}

// clearLocked drops the process handle. Callers hold l.mu.
func (l *Launcher) clearLocked() {
	l.cmd = nil
	l.exited = nil
}

// PID returns the process ID, or 0 if not running.
func (l *Launcher) PID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isRunningLocked() {
		return 0
	}
	return l.cmd.Process.Pid
}

// Stop terminates the OBS process for this court.
//
// It sends SIGTERM to the process group and waits up to timeout for a
// graceful exit; on timeout it sends SIGKILL and waits unconditionally.
// Stop is a no-op success if nothing is running, and always leaves the
// process handle cleared: once the process is confirmed gone it never
// reports failure.
func (l *Launcher) Stop(timeout time.Duration) error {
	l.mu.Lock()

	if !l.isRunningLocked() {
		l.clearLocked()
		l.mu.Unlock()
		return nil
	}

	pid := l.cmd.Process.Pid
	exited := l.exited
	l.mu.Unlock()

	l.logger.Info("stopping OBS", "court", l.config.CourtName, "pid", pid)

	// SIGTERM the whole group; negative PID addresses the group created
	// via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			l.logger.Warn("failed to send SIGTERM",
				"court", l.config.CourtName,
				"error", err,
			)
		}
	}

	select {
	case <-exited:
		l.logger.Info("OBS stopped gracefully", "court", l.config.CourtName)
	case <-time.After(timeout):
		l.logger.Warn("OBS ignored SIGTERM, killing",
			"court", l.config.CourtName,
			"timeout", timeout,
		)
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			if !errors.Is(err, syscall.ESRCH) {
				l.logger.Warn("failed to send SIGKILL",
					"court", l.config.CourtName,
					"error", err,
				)
			}
		}
		// SIGKILL cannot be ignored; wait for the reaper.
		<-exited
		l.logger.Info("OBS killed", "court", l.config.CourtName)
	}

	l.mu.Lock()
	l.clearLocked()
	l.mu.Unlock()

	return nil
}

// Restart stops the process, pauses briefly, and launches it again.
//
// Restart is not atomic: a controller crash between Stop and Launch leaves
// the court down until the next health check catches it.
func (l *Launcher) Restart() error {
	l.logger.Info("restarting OBS", "court", l.config.CourtName)

	if err := l.Stop(l.config.StopTimeout); err != nil {
		l.logger.Warn("error stopping OBS during restart",
			"court", l.config.CourtName,
			"error", err,
		)
	}

	time.Sleep(restartPause)

	return l.Launch()
}

// Stats holds a snapshot of the launcher state for status reporting.
type Stats struct {
	CourtName string `json:"court_name"`
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Profile   string `json:"profile"`
}

// Stats returns a snapshot of the launcher state.
func (l *Launcher) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{
		CourtName: l.config.CourtName,
		Running:   l.isRunningLocked(),
		Profile:   l.config.ProfileName,
	}
	if stats.Running {
		stats.PID = l.cmd.Process.Pid
	}
	return stats
}
