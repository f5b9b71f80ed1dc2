package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Agent     AgentConfig     `yaml:"agent"`
	Host      HostConfig      `yaml:"host"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// ProxyConfig holds sandbox proxy configuration.
type ProxyConfig struct {
	// PublicBase is the origin guests are pointed at. Empty means derive
	// from the server listen address.
	PublicBase string `envconfig:"PROXY_BASE" default:"" yaml:"public_base"`
	// Secret authenticates proxy requests. Empty means generate at startup.
	Secret string `envconfig:"PROXY_SECRET" default:"" yaml:"secret"`
	// GuestTTLSeconds bounds how long staged guest content stays servable.
	GuestTTLSeconds int `envconfig:"PROXY_GUEST_TTL" default:"300" yaml:"guest_ttl_seconds"`
	// MaxGuestEntries caps the staged content store.
	MaxGuestEntries int `envconfig:"PROXY_GUEST_MAX" default:"64" yaml:"max_guest_entries"`
}

// AgentConfig holds agent backend configuration.
type AgentConfig struct {
	Address       string `envconfig:"AGENT_ADDR" default:"http://localhost:3000" yaml:"address"`
	Secret        string `envconfig:"AGENT_SECRET" default:"" yaml:"secret"`
	TimeoutSecs   int    `envconfig:"AGENT_TIMEOUT" default:"120" yaml:"timeout_seconds"`
	RetryAttempts int    `envconfig:"AGENT_RETRIES" default:"2" yaml:"retry_attempts"`
}

// HostConfig holds embedded app host behavior.
type HostConfig struct {
	// DisplayModes is the comma-separated list of modes this host offers.
	DisplayModes string `envconfig:"HOST_DISPLAY_MODES" default:"inline,fullscreen,pip" yaml:"display_modes"`
	// FetchRetries is how many times a failed resource fetch is retried.
	FetchRetries int `envconfig:"HOST_FETCH_RETRIES" default:"5" yaml:"fetch_retries"`
	// FetchBackoffMS is the base retry delay; it doubles per attempt.
	FetchBackoffMS int `envconfig:"HOST_FETCH_BACKOFF_MS" default:"250" yaml:"fetch_backoff_ms"`
	// RPCTimeoutSecs bounds guest-originated RPC round trips. Zero means
	// no deadline beyond the backend's own.
	RPCTimeoutSecs int `envconfig:"HOST_RPC_TIMEOUT" default:"0" yaml:"rpc_timeout_seconds"`
	// BundledDir points at the bundled extensions tree. Empty disables
	// bundled serving.
	BundledDir string `envconfig:"HOST_BUNDLED_DIR" default:"" yaml:"bundled_dir"`
	// MCPExtensions lists extension servers to spawn at startup as
	// semicolon-separated "name=command arg ..." entries. These serve
	// their resources and tools directly, bypassing the agent backend.
	MCPExtensions string `envconfig:"HOST_MCP_EXTENSIONS" default:"" yaml:"mcp_extensions"`
	// TrustedLinks is a comma-separated list of glob patterns whose URLs
	// open without confirmation.
	TrustedLinks string `envconfig:"HOST_TRUSTED_LINKS" default:"" yaml:"trusted_links"`
	// UserAgent is reported to guests through the host context.
	UserAgent string `envconfig:"HOST_USER_AGENT" default:"goose-host/1.0" yaml:"user_agent"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("goose", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from a YAML file layered over defaults.
// File values take precedence over defaults; environment is not consulted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Proxy: ProxyConfig{
			GuestTTLSeconds: 300,
			MaxGuestEntries: 64,
		},
		Agent: AgentConfig{
			Address:       "http://localhost:3000",
			TimeoutSecs:   120,
			RetryAttempts: 2,
		},
		Host: HostConfig{
			DisplayModes:   "inline,fullscreen,pip",
			FetchRetries:   5,
			FetchBackoffMS: 250,
			UserAgent:      "goose-host/1.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
