// ABOUTME: Configuration loading and parsing for chimed
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete chimed configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Model     ModelConfig     `yaml:"model"`
	Reminders RemindersConfig `yaml:"reminders"`
	Drafts    DraftsConfig    `yaml:"drafts"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// ModelConfig holds the language model endpoint configuration
type ModelConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// RemindersConfig holds reminder scheduling configuration
type RemindersConfig struct {
	// PastGrace is how far in the past a reminder time may resolve before
	// it is rejected.
	PastGrace    time.Duration `yaml:"-"`
	PastGraceRaw string        `yaml:"past_grace"`
}

// DraftsConfig holds email draft retention configuration
type DraftsConfig struct {
	// MaxKept is the number of drafts retained before FIFO eviction.
	MaxKept int `yaml:"max_kept"`
}

// EventsConfig holds event stream configuration
type EventsConfig struct {
	// RetryHint is the reconnect delay hint sent to new subscribers.
	RetryHint    time.Duration `yaml:"-"`
	RetryHintRaw string        `yaml:"retry_hint"`

	// HeartbeatInterval is how often keep-alive comments are written.
	HeartbeatInterval    time.Duration `yaml:"-"`
	HeartbeatIntervalRaw string        `yaml:"heartbeat_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults applied when the corresponding config value is absent.
const (
	DefaultRetryHint         = 3 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultModel             = "gpt-4o-mini"
	DefaultMetricsPath       = "/metrics"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale provides the listener
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required")
	}

	if c.Drafts.MaxKept < 0 {
		return fmt.Errorf("drafts.max_kept must not be negative")
	}

	return nil
}

// applyDefaults fills in defaults for optional settings.
func applyDefaults(cfg *Config) {
	if cfg.Model.Model == "" {
		cfg.Model.Model = DefaultModel
	}
	if cfg.Events.RetryHint == 0 {
		cfg.Events.RetryHint = DefaultRetryHint
	}
	if cfg.Events.HeartbeatInterval == 0 {
		cfg.Events.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Model.TimeoutRaw != "" {
		cfg.Model.Timeout, err = time.ParseDuration(cfg.Model.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing model.timeout %q: %w", cfg.Model.TimeoutRaw, err)
		}
	}

	if cfg.Reminders.PastGraceRaw != "" {
		cfg.Reminders.PastGrace, err = time.ParseDuration(cfg.Reminders.PastGraceRaw)
		if err != nil {
			return fmt.Errorf("parsing reminders.past_grace %q: %w", cfg.Reminders.PastGraceRaw, err)
		}
	}

	if cfg.Events.RetryHintRaw != "" {
		cfg.Events.RetryHint, err = time.ParseDuration(cfg.Events.RetryHintRaw)
		if err != nil {
			return fmt.Errorf("parsing events.retry_hint %q: %w", cfg.Events.RetryHintRaw, err)
		}
	}

	if cfg.Events.HeartbeatIntervalRaw != "" {
		cfg.Events.HeartbeatInterval, err = time.ParseDuration(cfg.Events.HeartbeatIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing events.heartbeat_interval %q: %w", cfg.Events.HeartbeatIntervalRaw, err)
		}
	}

	return nil
}
