package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hausbridge/fleet-connector/internal/infrastructure/logging"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("CONNECTOR_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidPort verifies run fails when config validation rejects the
// broker port.
func TestRun_InvalidPort(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 0
    client_id: "test-client"
  qos: 1

history:
  enabled: false

metrics:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("CONNECTOR_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with port 0")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("CONNECTOR_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("CONNECTOR_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup with a running
// broker. Requires MQTT broker at 127.0.0.1:1883.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")
	seedPath := filepath.Join(tmpDir, "fleet.json")

	configContent := `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-connector-startup"
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

fleet:
  seed_file: "` + seedPath + `"

history:
  enabled: true
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

metrics:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	seedContent := `{"support":[],"devices":[{"class":"Virtual","id":"test-virtual","subscribe":{}}]}`
	if err := os.WriteFile(seedPath, []byte(seedContent), 0600); err != nil {
		t.Fatalf("failed to write seed config: %v", err)
	}

	t.Setenv("CONNECTOR_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Logf("run() returned error: %v (may be due to missing MQTT broker)", err)
	}
}

// TestPublishSeedConfig_MissingFile verifies a missing seed file is not an
// error; the connector just waits for a broker-delivered configuration.
func TestPublishSeedConfig_MissingFile(t *testing.T) {
	log := logging.Default()

	if err := publishSeedConfig(nil, "", log); err != nil {
		t.Errorf("publishSeedConfig(empty path) error = %v", err)
	}

	missing := filepath.Join(t.TempDir(), "no-such-fleet.json")
	if err := publishSeedConfig(nil, missing, log); err != nil {
		t.Errorf("publishSeedConfig(missing file) error = %v", err)
	}
}
