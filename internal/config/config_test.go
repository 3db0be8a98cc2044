// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "http://localhost:3000/api"
  timeout: "5s"

realtime:
  url: "ws://localhost:3000"
  namespace: "support"
  reconnect_min: "250ms"
  reconnect_max: "10s"
  dedupe_ttl: "1m"

chat:
  page_size: 30
  render_markdown: true

state:
  path: "./console.db"

auth:
  token_file: "/tmp/token"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:3000/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:3000/api")
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 5*time.Second)
	}
	if cfg.Realtime.URL != "ws://localhost:3000" {
		t.Errorf("Realtime.URL = %q, want %q", cfg.Realtime.URL, "ws://localhost:3000")
	}
	if cfg.Realtime.Namespace != "support" {
		t.Errorf("Realtime.Namespace = %q, want %q", cfg.Realtime.Namespace, "support")
	}
	if cfg.Realtime.ReconnectMin != 250*time.Millisecond {
		t.Errorf("Realtime.ReconnectMin = %v, want %v", cfg.Realtime.ReconnectMin, 250*time.Millisecond)
	}
	if cfg.Realtime.ReconnectMax != 10*time.Second {
		t.Errorf("Realtime.ReconnectMax = %v, want %v", cfg.Realtime.ReconnectMax, 10*time.Second)
	}
	if cfg.Realtime.DedupeTTL != time.Minute {
		t.Errorf("Realtime.DedupeTTL = %v, want %v", cfg.Realtime.DedupeTTL, time.Minute)
	}
	if cfg.Chat.PageSize != 30 {
		t.Errorf("Chat.PageSize = %d, want 30", cfg.Chat.PageSize)
	}
	if !cfg.Chat.RenderMarkdown {
		t.Error("Chat.RenderMarkdown = false, want true")
	}
	if cfg.State.Path != "./console.db" {
		t.Errorf("State.Path = %q, want %q", cfg.State.Path, "./console.db")
	}
	if cfg.Auth.TokenFile != "/tmp/token" {
		t.Errorf("Auth.TokenFile = %q, want %q", cfg.Auth.TokenFile, "/tmp/token")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "console.toml", `
[api]
base_url = "https://shop.example.com/api"

[realtime]
url = "wss://shop.example.com"
reconnect_max = "1m"

[chat]
page_size = 50

[state]
path = "/var/lib/petshop/console.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://shop.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Realtime.URL != "wss://shop.example.com" {
		t.Errorf("Realtime.URL = %q", cfg.Realtime.URL)
	}
	if cfg.Realtime.ReconnectMax != time.Minute {
		t.Errorf("Realtime.ReconnectMax = %v, want %v", cfg.Realtime.ReconnectMax, time.Minute)
	}
	if cfg.Chat.PageSize != 50 {
		t.Errorf("Chat.PageSize = %d, want 50", cfg.Chat.PageSize)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "http://localhost:3000/api"
realtime:
  url: "ws://localhost:3000"
state:
  path: "./console.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Realtime.Namespace != DefaultNamespace {
		t.Errorf("Realtime.Namespace = %q, want %q", cfg.Realtime.Namespace, DefaultNamespace)
	}
	if cfg.Realtime.ReconnectMin != DefaultReconnectMin {
		t.Errorf("Realtime.ReconnectMin = %v, want %v", cfg.Realtime.ReconnectMin, DefaultReconnectMin)
	}
	if cfg.Realtime.ReconnectMax != DefaultReconnectMax {
		t.Errorf("Realtime.ReconnectMax = %v, want %v", cfg.Realtime.ReconnectMax, DefaultReconnectMax)
	}
	if cfg.Realtime.DedupeTTL != DefaultDedupeTTL {
		t.Errorf("Realtime.DedupeTTL = %v, want %v", cfg.Realtime.DedupeTTL, DefaultDedupeTTL)
	}
	if cfg.Chat.PageSize != DefaultPageSize {
		t.Errorf("Chat.PageSize = %d, want %d", cfg.Chat.PageSize, DefaultPageSize)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_PETSHOP_API", "http://api.internal:3000/api")
	t.Setenv("TEST_PETSHOP_WS", "ws://api.internal:3000")

	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "${TEST_PETSHOP_API}"
realtime:
  url: "${TEST_PETSHOP_WS}"
state:
  path: "./console.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://api.internal:3000/api" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://api.internal:3000/api")
	}
	if cfg.Realtime.URL != "ws://api.internal:3000" {
		t.Errorf("Realtime.URL = %q, want %q", cfg.Realtime.URL, "ws://api.internal:3000")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/console.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v, want reading config file error", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", "api: [unclosed")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("error = %v, want parsing error", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, "console.yaml", `
api:
  base_url: "http://localhost:3000/api"
realtime:
  url: "ws://localhost:3000"
  reconnect_min: "soon"
state:
  path: "./console.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "realtime.reconnect_min") {
		t.Errorf("error = %v, want mention of realtime.reconnect_min", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			API:      APIConfig{BaseURL: "http://localhost:3000/api"},
			Realtime: RealtimeConfig{URL: "ws://localhost:3000", ReconnectMin: time.Second, ReconnectMax: time.Minute},
			State:    StateConfig{Path: "./console.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing api url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "api.base_url"},
		{name: "missing realtime url", mutate: func(c *Config) { c.Realtime.URL = "" }, wantErr: "realtime.url is required"},
		{name: "bad realtime scheme", mutate: func(c *Config) { c.Realtime.URL = "ftp://x" }, wantErr: "scheme"},
		{name: "negative page size", mutate: func(c *Config) { c.Chat.PageSize = -1 }, wantErr: "chat.page_size"},
		{name: "inverted backoff", mutate: func(c *Config) { c.Realtime.ReconnectMax = time.Millisecond }, wantErr: "reconnect_max"},
		{name: "missing state path", mutate: func(c *Config) { c.State.Path = "" }, wantErr: "state.path"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single env var", input: "${FOO}", expected: "bar"},
		{name: "env var with surrounding text", input: "prefix-${FOO}-suffix", expected: "prefix-bar-suffix"},
		{name: "multiple env vars", input: "${FOO}/${BAZ}", expected: "bar/qux"},
		{name: "no env vars", input: "no-vars-here", expected: "no-vars-here"},
		{name: "unset env var", input: "${UNSET_VAR}", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default("/tmp/state.db")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() config invalid: %v", err)
	}
	if cfg.State.Path != "/tmp/state.db" {
		t.Errorf("State.Path = %q, want %q", cfg.State.Path, "/tmp/state.db")
	}
	if cfg.Realtime.Namespace != DefaultNamespace {
		t.Errorf("Realtime.Namespace = %q, want %q", cfg.Realtime.Namespace, DefaultNamespace)
	}
	if cfg.Chat.PageSize != DefaultPageSize {
		t.Errorf("Chat.PageSize = %d, want %d", cfg.Chat.PageSize, DefaultPageSize)
	}
}
