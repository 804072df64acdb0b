// Package config handles loading and validating mcp-secrets configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goutils "github.com/jkaninda/go-utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jkaninda/mcp-secrets/internal/dialog"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration.
type Config struct {
	// Name is the application identity that namespaces all stored
	// secrets. Required.
	Name string `json:"name" yaml:"name"`

	// Host and Port select the transport: with a port the server speaks
	// streamable HTTP on host:port, otherwise stdio. Overrides: HOST, PORT.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port string `json:"port,omitempty" yaml:"port,omitempty"`

	// KeyringBackend is "system" (platform vault, default) or "memory"
	// (volatile, for tests and headless hosts without a vault).
	KeyringBackend string `json:"keyring_backend,omitempty" yaml:"keyring_backend,omitempty"`

	// DialogBinary overrides the bundled per-platform collector binary.
	DialogBinary string `json:"dialog_binary,omitempty" yaml:"dialog_binary,omitempty"`

	// BypassPermissions releases stored secrets without prompting.
	// Operator escape hatch for non-interactive environments; set only
	// via MCP_SECRETS_BYPASS_PERMISSIONS=true.
	BypassPermissions bool `json:"-" yaml:"-"`

	// WipeOnStart deletes all stored secrets before first use. Set only
	// via SECRETS_STORAGE_CLEAR=true.
	WipeOnStart bool `json:"-" yaml:"-"`

	// MetricsAddr exposes Prometheus metrics on this address when set,
	// e.g. "127.0.0.1:9190". Empty disables metrics.
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`

	// LogLevel is "debug", "info", "warn", or "error". Default: info.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Schema lists the secrets this application collects interactively.
	Schema []dialog.FieldSpec `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Load reads a YAML or JSON config file and applies environment
// overrides. The format is detected by file extension: .yml/.yaml for
// YAML, everything else for JSON. An empty path skips the file and
// builds the config from environment alone. Environment variables take
// precedence over config file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
			}
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing JSON config %s: %w", path, err)
			}
		}
	}

	cfg.Name = goutils.Env("MCP_SECRETS_NAME", cfg.Name)
	cfg.Port = goutils.Env("PORT", cfg.Port)
	cfg.DialogBinary = goutils.Env("MCP_SECRETS_DIALOG_BINARY", cfg.DialogBinary)
	cfg.MetricsAddr = goutils.Env("MCP_SECRETS_METRICS_ADDR", cfg.MetricsAddr)

	// Defaults apply after the env lookup: a variable set to "" must not
	// defeat them, so the fallback wraps the env result.
	cfg.Host = defaultString(goutils.Env("HOST", cfg.Host), "127.0.0.1")
	cfg.KeyringBackend = defaultString(goutils.Env("MCP_SECRETS_KEYRING_BACKEND", cfg.KeyringBackend), "system")
	cfg.LogLevel = defaultString(goutils.Env("MCP_SECRETS_LOG_LEVEL", cfg.LogLevel), "info")

	cfg.BypassPermissions = goutils.Env("MCP_SECRETS_BYPASS_PERMISSIONS", "false") == "true"
	cfg.WipeOnStart = goutils.Env("SECRETS_STORAGE_CLEAR", "false") == "true"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for contradictions and bad schemas.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: name is required (set name in the config file or MCP_SECRETS_NAME)")
	}
	switch c.KeyringBackend {
	case "system", "memory":
	default:
		return fmt.Errorf("config: unknown keyring backend %q (want \"system\" or \"memory\")", c.KeyringBackend)
	}
	if len(c.Schema) > 0 {
		if err := dialog.Schema(c.Schema).Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// DefaultSchema is the example application schema used when the config
// file does not define one.
func DefaultSchema() []dialog.FieldSpec {
	return []dialog.FieldSpec{
		{
			Name:      "api_key",
			Label:     "API Key",
			FieldType: "password",
			Required:  true,
			HelpText:  "Your secret API key from the service dashboard",
		},
		{
			Name:      "endpoint",
			Label:     "API Endpoint",
			FieldType: "url",
			Required:  true,
			Default:   "https://api.example.com",
			HelpText:  "The base URL for API requests",
		},
		{
			Name:      "timeout",
			Label:     "Request Timeout (seconds)",
			FieldType: "text",
			Required:  false,
			Default:   "30",
			HelpText:  "How long to wait for API responses",
		},
	}
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
