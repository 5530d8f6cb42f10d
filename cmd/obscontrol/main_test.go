package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig writes a minimal valid config pointing at tmpDir for
// all filesystem paths and returns the config file path.
func writeTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	dbPath := filepath.Join(tmpDir, "test.db")
	execPath := filepath.Join(tmpDir, "fake-obs")
	script := "#!/bin/sh\nsleep 30\n"
	if err := os.WriteFile(execPath, []byte(script), 0755); err != nil { //nolint:gosec // test script must be executable
		t.Fatalf("failed to write fake obs script: %v", err)
	}

	configContent := `
obs:
  executable_path: "` + execPath + `"

courts:
  - name: court-1
    websocket_port: 24455
    websocket_password: "secret"
    profile_name: "Court1"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18090
  timeouts:
    read: 30
    write: 30
    idle: 60
`
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("OBSCONTROL_CONFIG")
	defer os.Setenv("OBSCONTROL_CONFIG", originalEnv)

	os.Setenv("OBSCONTROL_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingCourts verifies run fails when no courts are configured.
func TestRun_MissingCourts(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
obs:
  executable_path: "/usr/bin/obs"

database:
  path: ""

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("OBSCONTROL_CONFIG")
	defer os.Setenv("OBSCONTROL_CONFIG", originalEnv)
	os.Setenv("OBSCONTROL_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with no courts configured")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("OBSCONTROL_CONFIG")
	defer os.Setenv("OBSCONTROL_CONFIG", originalEnv)

	os.Unsetenv("OBSCONTROL_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("OBSCONTROL_CONFIG")
	defer os.Setenv("OBSCONTROL_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("OBSCONTROL_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown exercises a full startup with MQTT and
// InfluxDB disabled, then a clean shutdown on context timeout.
func TestRun_StartupAndShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping startup test in short mode")
	}

	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)

	originalEnv := os.Getenv("OBSCONTROL_CONFIG")
	defer os.Setenv("OBSCONTROL_CONFIG", originalEnv)
	os.Setenv("OBSCONTROL_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v, want clean shutdown", err)
	}

	// The database must exist after a full startup cycle.
	if _, err := os.Stat(filepath.Join(tmpDir, "test.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
}
