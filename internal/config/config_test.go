package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "defaults are valid",
			modify:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid server port",
			modify:      func(c *Config) { c.Server.UDPPort = 70000 },
			expectError: true,
			errorMsg:    "udp_port must be between 1 and 65535",
		},
		{
			name:        "buffer smaller than a datagram",
			modify:      func(c *Config) { c.Server.BufferSize = 512 },
			expectError: true,
			errorMsg:    "buffer_size must be at least 1024",
		},
		{
			name:        "no workers",
			modify:      func(c *Config) { c.Server.Workers = 0 },
			expectError: true,
			errorMsg:    "workers must be at least 1",
		},
		{
			name:        "unknown random source",
			modify:      func(c *Config) { c.Generator.Source = "dev-urandom" },
			expectError: true,
			errorMsg:    "source must be 'time' or 'crypto'",
		},
		{
			name: "rate limit enabled without rate",
			modify: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.RequestsPerSecond = 0
			},
			expectError: true,
			errorMsg:    "requests_per_second must be positive",
		},
		{
			name: "rate limit disabled ignores values",
			modify: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Burst = 0
			},
			expectError: false,
		},
		{
			name: "http enabled without address",
			modify: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.Address = ""
			},
			expectError: true,
			errorMsg:    "http address cannot be empty",
		},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		validate    func(*Config) bool
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  udp_port: 12345
  bind_address: "0.0.0.0"
  buffer_size: 65536
  workers: 4
  queue_size: 100
  read_timeout_ms: 500
generator:
  source: "crypto"
rate_limit:
  enabled: true
  requests_per_second: 5
  burst: 10
  idle_timeout: 60
logging:
  level: "debug"
  format: "json"
  output: "stdout"
  log_passwords: false
`,
			validate: func(c *Config) bool {
				return c.Server.Workers == 4 &&
					c.Generator.Source == SourceCrypto &&
					c.RateLimit.Enabled &&
					!c.Logging.ShouldLogPasswords() &&
					c.Server.GetReadTimeout() == 500*time.Millisecond
			},
		},
		{
			name: "partial file keeps defaults",
			configYAML: `
server:
  udp_port: 4000
`,
			validate: func(c *Config) bool {
				return c.Server.UDPPort == 4000 &&
					c.Server.BindAddress == "0.0.0.0" &&
					c.Server.Workers == 1 &&
					c.Generator.Source == SourceTime &&
					c.Logging.ShouldLogPasswords()
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  udp_port: 4444
  buffer_size: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "explicitly empty bind address",
			configYAML: `
server:
  bind_address: ""
`,
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if tt.validate != nil && !tt.validate(config) {
				t.Errorf("Validation failed for config: %+v", config)
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatalf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PASSWDGEN_UDP_PORT":           "5555",
		"PASSWDGEN_BIND_ADDRESS":       "127.0.0.1",
		"PASSWDGEN_WORKERS":            "3",
		"PASSWDGEN_LOG_LEVEL":          "warn",
		"PASSWDGEN_HTTP_ENABLED":       "true",
		"PASSWDGEN_RATE_LIMIT_ENABLED": "1",
		"PASSWDGEN_LOG_PASSWORDS":      "false",
		"PASSWDGEN_GENERATOR_SOURCE":   "crypto",
	}
	getenv := func(key string) string { return env[key] }

	config := Default()
	if err := config.ApplyEnv(getenv); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}

	if config.Server.UDPPort != 5555 {
		t.Errorf("Expected udp_port 5555, got %d", config.Server.UDPPort)
	}
	if config.Server.BindAddress != "127.0.0.1" {
		t.Errorf("Expected bind_address 127.0.0.1, got %s", config.Server.BindAddress)
	}
	if config.Server.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", config.Server.Workers)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", config.Logging.Level)
	}
	if !config.HTTP.Enabled || !config.RateLimit.Enabled {
		t.Errorf("Expected HTTP and rate limiting to be enabled")
	}
	if config.Logging.ShouldLogPasswords() {
		t.Errorf("Expected password logging to be disabled")
	}
	if config.Generator.Source != SourceCrypto {
		t.Errorf("Expected crypto source, got %s", config.Generator.Source)
	}
}

func TestApplyEnvInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "PASSWDGEN_UDP_PORT", value: "twelve"},
		{key: "PASSWDGEN_HTTP_ENABLED", value: "maybe"},
		{key: "PASSWDGEN_LOG_PASSWORDS", value: "perhaps"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			getenv := func(key string) string {
				if key == tt.key {
					return tt.value
				}
				return ""
			}
			if err := Default().ApplyEnv(getenv); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tempDir := t.TempDir()
	t.Chdir(tempDir)

	// Nothing on disk: built-in defaults
	config, source, err := Resolve("", filepath.Join(tempDir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults, got error: %v", err)
	}
	if source != "" && !strings.HasSuffix(source, "config.yaml") {
		t.Errorf("Unexpected config source %q", source)
	}
	if config == nil {
		t.Fatalf("Expected config, got nil")
	}

	// Default path present
	defaultPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(defaultPath, []byte("server:\n  udp_port: 4321\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	config, source, err = Resolve("", defaultPath)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if source != defaultPath || config.Server.UDPPort != 4321 {
		t.Errorf("Expected config from %s with port 4321, got %s with port %d", defaultPath, source, config.Server.UDPPort)
	}

	// Explicit path must exist
	if _, _, err := Resolve(filepath.Join(tempDir, "nope.yaml"), defaultPath); err == nil {
		t.Errorf("Expected error for missing explicit config path")
	}
}

func TestDurationHelpers(t *testing.T) {
	server := ServerConfig{ReadTimeoutMS: 250}
	if server.GetReadTimeout() != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", server.GetReadTimeout())
	}

	limit := RateLimitConfig{IdleTimeout: 90}
	if limit.GetIdleTimeout() != 90*time.Second {
		t.Errorf("Expected 90 seconds, got %v", limit.GetIdleTimeout())
	}
}
