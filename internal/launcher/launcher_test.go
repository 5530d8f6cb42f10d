package launcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeScript drops an executable shell script into dir and returns its
// path. Tests use scripts as stand-ins for the OBS binary.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing test script: %v", err)
	}
	return path
}

func testConfig(exe string) Config {
	return Config{
		CourtName:         "court-1",
		ExecutablePath:    exe,
		ProfileName:       "Court1",
		WebSocketPort:     4455,
		WebSocketPassword: "secret",
		LaunchGrace:       100 * time.Millisecond,
		StopTimeout:       2 * time.Second,
	}
}

// waitFor polls cond until it returns true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestLaunchExecutableNotFound(t *testing.T) {
	l := New(testConfig("/nonexistent/obs"))

	err := l.Launch()
	if !errors.Is(err, ErrExecutableNotFound) {
		t.Errorf("Launch() error = %v, want ErrExecutableNotFound", err)
	}
	if l.IsRunning() {
		t.Error("IsRunning() = true after failed launch")
	}
}

func TestLaunchAndStop(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs", "sleep 30")
	l := New(testConfig(exe))

	if err := l.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if !l.IsRunning() {
		t.Fatal("IsRunning() = false after launch")
	}
	if l.PID() == 0 {
		t.Error("PID() = 0 for running process")
	}

	if err := l.Stop(2 * time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if l.IsRunning() {
		t.Error("IsRunning() = true after stop")
	}
	if got := l.PID(); got != 0 {
		t.Errorf("PID() = %d after stop, want 0", got)
	}
}

func TestLaunchIdempotent(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs", "sleep 30")
	l := New(testConfig(exe))
	defer l.Stop(time.Second)

	if err := l.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	pid := l.PID()

	if err := l.Launch(); err != nil {
		t.Errorf("second Launch() error = %v, want nil", err)
	}
	if got := l.PID(); got != pid {
		t.Errorf("PID after second Launch = %d, want %d (no respawn)", got, pid)
	}
}

func TestLaunchDetectsEarlyDeath(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs", "exit 1")
	l := New(testConfig(exe))

	err := l.Launch()
	if !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("Launch() error = %v, want ErrLaunchFailed", err)
	}
	if l.IsRunning() {
		t.Error("IsRunning() = true after process died in grace period")
	}
}

func TestIsRunningAfterNaturalExit(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs", "sleep 0.3")
	cfg := testConfig(exe)
	cfg.LaunchGrace = 50 * time.Millisecond
	l := New(cfg)

	if err := l.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return !l.IsRunning() }) {
		t.Error("IsRunning() still true after process exited on its own")
	}
}

func TestStopForceKillsStubbornProcess(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs",
		"trap '' TERM\nwhile true; do sleep 1; done")
	l := New(testConfig(exe))

	if err := l.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	start := time.Now()
	if err := l.Stop(200 * time.Millisecond); err != nil {
		t.Errorf("Stop() error = %v, want nil even when SIGKILL was needed", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Stop took %v, want prompt SIGKILL escalation", elapsed)
	}
	if l.IsRunning() {
		t.Error("IsRunning() = true after force kill")
	}
}

func TestStopNothingRunning(t *testing.T) {
	l := New(testConfig("/nonexistent/obs"))
	if err := l.Stop(time.Second); err != nil {
		t.Errorf("Stop() with nothing running = %v, want nil", err)
	}
}

func TestRestartSpawnsNewProcess(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs", "sleep 30")
	l := New(testConfig(exe))
	defer l.Stop(time.Second)

	if err := l.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	oldPID := l.PID()

	if err := l.Restart(); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if !l.IsRunning() {
		t.Fatal("IsRunning() = false after restart")
	}
	if got := l.PID(); got == oldPID {
		t.Errorf("PID after restart = %d, want a new process", got)
	}
}

func TestBuildArgs(t *testing.T) {
	l := New(testConfig("/usr/bin/obs"))

	got := l.buildArgs()
	want := []string{
		"--profile", "Court1",
		"--websocket_port", "4455",
		"--websocket_password", "secret",
	}
	if len(got) != len(want) {
		t.Fatalf("buildArgs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("buildArgs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStats(t *testing.T) {
	exe := writeScript(t, t.TempDir(), "obs", "sleep 30")
	l := New(testConfig(exe))

	stats := l.Stats()
	if stats.Running {
		t.Error("Stats().Running = true before launch")
	}
	if stats.CourtName != "court-1" || stats.Profile != "Court1" {
		t.Errorf("Stats() identity = %+v", stats)
	}

	if err := l.Launch(); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer l.Stop(time.Second)

	stats = l.Stats()
	if !stats.Running || stats.PID == 0 {
		t.Errorf("Stats() after launch = %+v, want running with pid", stats)
	}
}
