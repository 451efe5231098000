// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, duration parsing, and defaults

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"

model:
  base_url: "https://api.openai.com/v1"
  api_key: "sk-test"
  model: "gpt-4o"
  timeout: "20s"

reminders:
  past_grace: "90s"

drafts:
  max_kept: 5

events:
  retry_hint: "5s"
  heartbeat_interval: "15s"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Model.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Model.Model)
	}
	if cfg.Model.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v", cfg.Model.Timeout)
	}
	if cfg.Reminders.PastGrace != 90*time.Second {
		t.Errorf("PastGrace = %v", cfg.Reminders.PastGrace)
	}
	if cfg.Drafts.MaxKept != 5 {
		t.Errorf("MaxKept = %d", cfg.Drafts.MaxKept)
	}
	if cfg.Events.RetryHint != 5*time.Second {
		t.Errorf("RetryHint = %v", cfg.Events.RetryHint)
	}
	if cfg.Events.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.Events.HeartbeatInterval)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
model:
  base_url: "http://localhost:11434/v1"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model.Model != DefaultModel {
		t.Errorf("Model = %q, want default", cfg.Model.Model)
	}
	if cfg.Events.RetryHint != DefaultRetryHint {
		t.Errorf("RetryHint = %v, want default", cfg.Events.RetryHint)
	}
	if cfg.Events.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v, want default", cfg.Events.HeartbeatInterval)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default", cfg.Metrics.Path)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CHIME_TEST_API_KEY", "sk-from-env")

	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
model:
  base_url: "https://api.openai.com/v1"
  api_key: "${CHIME_TEST_API_KEY}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.Model.APIKey)
	}
}

func TestLoad_MissingHTTPAddr(t *testing.T) {
	path := writeConfig(t, `
model:
  base_url: "https://api.openai.com/v1"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "http_addr") {
		t.Errorf("expected http_addr validation error, got %v", err)
	}
}

func TestLoad_TailscaleReplacesHTTPAddr(t *testing.T) {
	path := writeConfig(t, `
tailscale:
  enabled: true
  hostname: "chime"
model:
  base_url: "https://api.openai.com/v1"
`)

	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoad_TailscaleRequiresHostname(t *testing.T) {
	path := writeConfig(t, `
tailscale:
  enabled: true
model:
  base_url: "https://api.openai.com/v1"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "hostname") {
		t.Errorf("expected hostname validation error, got %v", err)
	}
}

func TestLoad_MissingModelBaseURL(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("expected base_url validation error, got %v", err)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
model:
  base_url: "https://api.openai.com/v1"
  timeout: "not-a-duration"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected duration parse error, got %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
