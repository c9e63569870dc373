// ABOUTME: Configuration loading and parsing for coven-control
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389/coven-control/internal/connection"
)

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "COVEN_CONTROL_CONFIG"

// Config represents the complete coven-control configuration
type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway"`
	Realtime    RealtimeConfig    `yaml:"realtime"`
	Reliability ReliabilityConfig `yaml:"reliability"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// GatewayConfig holds the gateway endpoint and credentials
type GatewayConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"-"`

	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// RealtimeConfig holds realtime transport settings
type RealtimeConfig struct {
	// SocketURL and StreamURL override the URLs derived from gateway.base_url
	SocketURL            string        `yaml:"socket_url"`
	StreamURL            string        `yaml:"stream_url"`
	Channels             []string      `yaml:"channels"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `yaml:"-"`

	ReconnectDelayRaw string `yaml:"reconnect_delay"`
}

// ReliabilityConfig holds retry and circuit breaker settings
type ReliabilityConfig struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	IdempotencyMaxKeys int           `yaml:"idempotency_max_keys"`
	BaseDelay          time.Duration `yaml:"-"`
	CircuitCooldown    time.Duration `yaml:"-"`
	IdempotencyTTL     time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	BaseDelayRaw       string `yaml:"base_delay"`
	CircuitCooldownRaw string `yaml:"circuit_cooldown"`
	IdempotencyTTLRaw  string `yaml:"idempotency_ttl"`
}

// DatabaseConfig holds local store configuration
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	SecretKeyPath string `yaml:"secret_key_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a configuration that talks to a gateway on localhost and
// keeps its data under the XDG data directory.
func Default() *Config {
	dataDir := dataDir()
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:           "http://localhost:18789/",
			RequestTimeout:    30 * time.Second,
			RequestTimeoutRaw: "30s",
		},
		Realtime: RealtimeConfig{
			Channels:             []string{"agents", "projects", "runs"},
			MaxReconnectAttempts: 5,
			ReconnectDelay:       2 * time.Second,
			ReconnectDelayRaw:    "2s",
		},
		Reliability: ReliabilityConfig{
			MaxAttempts:        3,
			IdempotencyMaxKeys: 10_000,
			BaseDelay:          100 * time.Millisecond,
			IdempotencyTTL:     24 * time.Hour,
			BaseDelayRaw:       "100ms",
			IdempotencyTTLRaw:  "24h",
		},
		Database: DatabaseConfig{
			Path:          filepath.Join(dataDir, "control.db"),
			SecretKeyPath: filepath.Join(dataDir, "secret.key"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// DefaultPath returns the config path from COVEN_CONTROL_CONFIG, falling
// back to $XDG_CONFIG_HOME/coven/control.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "coven", "control.yaml")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "coven", "control.yaml")
}

func dataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "coven")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Values missing from the file keep their defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, returning Default() when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
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
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if _, err := connection.NormalizeBaseURL(c.Gateway.BaseURL); err != nil {
		return fmt.Errorf("gateway.base_url %q must be an absolute http or https URL: %w", c.Gateway.BaseURL, err)
	}

	if c.Reliability.MaxAttempts < 1 {
		return fmt.Errorf("reliability.max_attempts must be at least 1")
	}
	if c.Reliability.IdempotencyMaxKeys < 0 {
		return fmt.Errorf("reliability.idempotency_max_keys must not be negative")
	}
	if c.Realtime.MaxReconnectAttempts < 0 {
		return fmt.Errorf("realtime.max_reconnect_attempts must not be negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"gateway.request_timeout", cfg.Gateway.RequestTimeoutRaw, &cfg.Gateway.RequestTimeout},
		{"realtime.reconnect_delay", cfg.Realtime.ReconnectDelayRaw, &cfg.Realtime.ReconnectDelay},
		{"reliability.base_delay", cfg.Reliability.BaseDelayRaw, &cfg.Reliability.BaseDelay},
		{"reliability.circuit_cooldown", cfg.Reliability.CircuitCooldownRaw, &cfg.Reliability.CircuitCooldown},
		{"reliability.idempotency_ttl", cfg.Reliability.IdempotencyTTLRaw, &cfg.Reliability.IdempotencyTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}

	return nil
}
