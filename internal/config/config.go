// ABOUTME: Configuration loading and parsing for the support console
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultPageSize     = 20
	DefaultNamespace    = "messages"
	DefaultAPITimeout   = 15 * time.Second
	DefaultReconnectMin = 500 * time.Millisecond
	DefaultReconnectMax = 30 * time.Second
	DefaultDedupeTTL    = 5 * time.Minute
)

// Config represents the complete support console configuration
type Config struct {
	API      APIConfig      `yaml:"api" toml:"api"`
	Realtime RealtimeConfig `yaml:"realtime" toml:"realtime"`
	Chat     ChatConfig     `yaml:"chat" toml:"chat"`
	State    StateConfig    `yaml:"state" toml:"state"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// APIConfig holds the REST backend configuration
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// RealtimeConfig holds the messaging channel configuration
type RealtimeConfig struct {
	URL          string        `yaml:"url" toml:"url"`
	Namespace    string        `yaml:"namespace" toml:"namespace"`
	ReconnectMin time.Duration `yaml:"-" toml:"-"`
	ReconnectMax time.Duration `yaml:"-" toml:"-"`
	DedupeTTL    time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ReconnectMinRaw string `yaml:"reconnect_min" toml:"reconnect_min"`
	ReconnectMaxRaw string `yaml:"reconnect_max" toml:"reconnect_max"`
	DedupeTTLRaw    string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// ChatConfig holds message thread and composer settings
type ChatConfig struct {
	PageSize       int  `yaml:"page_size" toml:"page_size"`
	RenderMarkdown bool `yaml:"render_markdown" toml:"render_markdown"`
}

// StateConfig holds the client-local state database location
type StateConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds credential storage configuration
type AuthConfig struct {
	TokenFile string `yaml:"token_file" toml:"token_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no config file exists. It
// points at a fake shop on localhost and keeps client state at statePath.
func Default(statePath string) *Config {
	cfg := &Config{
		API:      APIConfig{BaseURL: "http://localhost:8080"},
		Realtime: RealtimeConfig{URL: "ws://localhost:8080"},
		Chat:     ChatConfig{RenderMarkdown: true},
		State:    StateConfig{Path: statePath},
		Logging:  LoggingConfig{Level: "warn"},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Parse decodes raw configuration content. ext selects the format (".toml"
// for TOML, anything else for YAML).
func Parse(data []byte, ext string) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(ext, ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

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
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Realtime.URL == "" {
		return fmt.Errorf("realtime.url is required")
	}
	if !strings.HasPrefix(c.Realtime.URL, "ws://") && !strings.HasPrefix(c.Realtime.URL, "wss://") &&
		!strings.HasPrefix(c.Realtime.URL, "http://") && !strings.HasPrefix(c.Realtime.URL, "https://") {
		return fmt.Errorf("realtime.url must use ws, wss, http or https scheme")
	}
	if c.Chat.PageSize < 0 {
		return fmt.Errorf("chat.page_size must not be negative")
	}
	if c.Realtime.ReconnectMax < c.Realtime.ReconnectMin {
		return fmt.Errorf("realtime.reconnect_max must be >= realtime.reconnect_min")
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// applyDefaults fills zero values with their defaults
func (c *Config) applyDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.Realtime.Namespace == "" {
		c.Realtime.Namespace = DefaultNamespace
	}
	if c.Realtime.ReconnectMin == 0 {
		c.Realtime.ReconnectMin = DefaultReconnectMin
	}
	if c.Realtime.ReconnectMax == 0 {
		c.Realtime.ReconnectMax = DefaultReconnectMax
	}
	if c.Realtime.DedupeTTL == 0 {
		c.Realtime.DedupeTTL = DefaultDedupeTTL
	}
	if c.Chat.PageSize == 0 {
		c.Chat.PageSize = DefaultPageSize
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"api.timeout", cfg.API.TimeoutRaw, &cfg.API.Timeout},
		{"realtime.reconnect_min", cfg.Realtime.ReconnectMinRaw, &cfg.Realtime.ReconnectMin},
		{"realtime.reconnect_max", cfg.Realtime.ReconnectMaxRaw, &cfg.Realtime.ReconnectMax},
		{"realtime.dedupe_ttl", cfg.Realtime.DedupeTTLRaw, &cfg.Realtime.DedupeTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
