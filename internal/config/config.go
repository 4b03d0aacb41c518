package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/skypro1111/passwdgen-service/internal/protocol"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PASSWDGEN_"

// xdgConfigFile is searched in the XDG config directories when no file is given
const xdgConfigFile = "passwdgen/config.yaml"

// Random sources for the generator
const (
	SourceTime   = "time"
	SourceCrypto = "crypto"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains UDP server configuration
type ServerConfig struct {
	UDPPort       int    `yaml:"udp_port"`
	BindAddress   string `yaml:"bind_address"`
	BufferSize    int    `yaml:"buffer_size"`     // socket read buffer, bytes
	Workers       int    `yaml:"workers"`         // packet processors, 1 keeps strict ordering
	QueueSize     int    `yaml:"queue_size"`      // datagrams waiting for a worker
	ReadTimeoutMS int    `yaml:"read_timeout_ms"` // poll interval for shutdown checks
}

// GeneratorConfig selects the random source
type GeneratorConfig struct {
	Source string `yaml:"source"` // "time" or "crypto"
}

// RateLimitConfig contains per-peer rate limiting parameters
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	IdleTimeout       int     `yaml:"idle_timeout"` // seconds
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	LogPasswords *bool  `yaml:"log_passwords"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	logPasswords := true
	return &Config{
		Server: ServerConfig{
			UDPPort:       protocol.DefaultPort,
			BindAddress:   "0.0.0.0",
			BufferSize:    65536,
			Workers:       1,
			QueueSize:     1000,
			ReadTimeoutMS: 1000,
		},
		Generator: GeneratorConfig{
			Source: SourceTime,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 10,
			Burst:             20,
			IdleTimeout:       600,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "127.0.0.1",
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "text",
			Output:       "stdout",
			LogPasswords: &logPasswords,
		},
	}
}

// Load reads and parses the configuration file. Keys missing from the file keep their
// default values; environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("environment override: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Resolve loads configuration for the server binary.
//
// An explicit path must exist. Otherwise defaultPath is tried, then passwdgen/config.yaml
// in the XDG config directories, and finally the built-in defaults are used. Any .env
// file in the working directory is loaded into the environment first.
func Resolve(path, defaultPath string) (*Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to load .env file: %w", err)
	}

	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	candidates := []string{defaultPath}
	if found, err := xdg.SearchConfigFile(xdgConfigFile); err == nil {
		candidates = append(candidates, found)
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cfg, err := Load(candidate)
		return cfg, candidate, err
	}

	cfg := Default()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, "", fmt.Errorf("environment override: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, "", nil
}

// ApplyEnv overrides configuration values from PASSWDGEN_* variables
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strVars := map[string]*string{
		"BIND_ADDRESS":     &c.Server.BindAddress,
		"GENERATOR_SOURCE": &c.Generator.Source,
		"HTTP_ADDRESS":     &c.HTTP.Address,
		"LOG_LEVEL":        &c.Logging.Level,
		"LOG_FORMAT":       &c.Logging.Format,
		"LOG_OUTPUT":       &c.Logging.Output,
	}
	for name, dst := range strVars {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"UDP_PORT":   &c.Server.UDPPort,
		"WORKERS":    &c.Server.Workers,
		"QUEUE_SIZE": &c.Server.QueueSize,
		"HTTP_PORT":  &c.HTTP.Port,
	}
	for name, dst := range intVars {
		v := getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s must be an integer, got '%s'", EnvPrefix, name, v)
		}
		*dst = n
	}

	boolVars := map[string]*bool{
		"HTTP_ENABLED":       &c.HTTP.Enabled,
		"RATE_LIMIT_ENABLED": &c.RateLimit.Enabled,
	}
	for name, dst := range boolVars {
		v := getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s must be a boolean, got '%s'", EnvPrefix, name, v)
		}
		*dst = b
	}

	if v := getenv(EnvPrefix + "LOG_PASSWORDS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_PASSWORDS must be a boolean, got '%s'", EnvPrefix, v)
		}
		c.Logging.LogPasswords = &b
	}

	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.UDPPort < 1 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.BufferSize < protocol.BufferSize {
		return fmt.Errorf("buffer_size must be at least %d bytes, got %d", protocol.BufferSize, s.BufferSize)
	}

	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}

	if s.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", s.QueueSize)
	}

	if s.ReadTimeoutMS < 10 {
		return fmt.Errorf("read_timeout_ms must be at least 10, got %d", s.ReadTimeoutMS)
	}

	return nil
}

// Validate validates generator configuration
func (g *GeneratorConfig) Validate() error {
	if g.Source != SourceTime && g.Source != SourceCrypto {
		return fmt.Errorf("source must be '%s' or '%s', got '%s'", SourceTime, SourceCrypto, g.Source)
	}
	return nil
}

// Validate validates rate limiting configuration
func (r *RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive, got %f", r.RequestsPerSecond)
	}

	if r.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", r.Burst)
	}

	if r.IdleTimeout < 1 {
		return fmt.Errorf("idle_timeout must be at least 1 second, got %d", r.IdleTimeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output is stdout, stderr or a file path

	return nil
}

// ShouldLogPasswords reports whether generated passwords are written to the log
func (l *LoggingConfig) ShouldLogPasswords() bool {
	return l.LogPasswords == nil || *l.LogPasswords
}

// GetReadTimeout returns the receive poll interval as a time.Duration
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// GetIdleTimeout returns the limiter eviction delay as a time.Duration
func (r *RateLimitConfig) GetIdleTimeout() time.Duration {
	return time.Duration(r.IdleTimeout) * time.Second
}
