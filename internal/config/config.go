// Package config provides configuration for the assistant orchestrator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// ModeMock runs the service against the in-memory gateway.
const ModeMock = "MOCK"

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Gateway settings
	Mode           string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	Model          string
	RequestTimeout time.Duration
	GatewayRPS     float64
	GatewayBurst   int

	// Run polling
	PollInterval    time.Duration
	MaxPollAttempts int
	RunTimeout      time.Duration

	// Tool policy
	DisabledTools []string

	// Logging
	LogLevel string
}

// fileConfig is the on-disk shape. Durations are milliseconds, matching the
// environment variables.
type fileConfig struct {
	HTTPPort         int      `yaml:"http_port" toml:"http_port"`
	DatabaseURL      string   `yaml:"database_url" toml:"database_url"`
	Mode             string   `yaml:"mode" toml:"mode"`
	OpenAIAPIKey     string   `yaml:"openai_api_key" toml:"openai_api_key"`
	OpenAIBaseURL    string   `yaml:"openai_base_url" toml:"openai_base_url"`
	Model            string   `yaml:"model" toml:"model"`
	RequestTimeoutMs int      `yaml:"request_timeout_ms" toml:"request_timeout_ms"`
	GatewayRPS       float64  `yaml:"gateway_rps" toml:"gateway_rps"`
	GatewayBurst     int      `yaml:"gateway_burst" toml:"gateway_burst"`
	PollIntervalMs   int      `yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	MaxPollAttempts  int      `yaml:"max_poll_attempts" toml:"max_poll_attempts"`
	RunTimeoutMs     int      `yaml:"run_timeout_ms" toml:"run_timeout_ms"`
	DisabledTools    []string `yaml:"disabled_tools" toml:"disabled_tools"`
	LogLevel         string   `yaml:"log_level" toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:        8080,
		DatabaseURL:     "file:unfiltered.db?cache=shared&mode=rwc",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		Model:           "gpt-4o",
		RequestTimeout:  60 * time.Second,
		GatewayRPS:      5,
		GatewayBurst:    5,
		PollInterval:    2 * time.Second,
		MaxPollAttempts: 60,
		RunTimeout:      3 * time.Minute,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, then the optional file at
// path (.yaml, .yml or .toml), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		_, err = toml.Decode(string(data), &fc)
	default:
		return fmt.Errorf("%w: unsupported config file extension %q", domain.ErrConfiguration, ext)
	}
	if err != nil {
		return fmt.Errorf("%w: parsing config %s: %w", domain.ErrConfiguration, path, err)
	}

	if fc.HTTPPort != 0 {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.Mode != "" {
		c.Mode = fc.Mode
	}
	if fc.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = fc.OpenAIAPIKey
	}
	if fc.OpenAIBaseURL != "" {
		c.OpenAIBaseURL = fc.OpenAIBaseURL
	}
	if fc.Model != "" {
		c.Model = fc.Model
	}
	if fc.RequestTimeoutMs > 0 {
		c.RequestTimeout = time.Duration(fc.RequestTimeoutMs) * time.Millisecond
	}
	if fc.GatewayRPS != 0 {
		c.GatewayRPS = fc.GatewayRPS
	}
	if fc.GatewayBurst > 0 {
		c.GatewayBurst = fc.GatewayBurst
	}
	if fc.PollIntervalMs > 0 {
		c.PollInterval = time.Duration(fc.PollIntervalMs) * time.Millisecond
	}
	if fc.MaxPollAttempts > 0 {
		c.MaxPollAttempts = fc.MaxPollAttempts
	}
	if fc.RunTimeoutMs > 0 {
		c.RunTimeout = time.Duration(fc.RunTimeoutMs) * time.Millisecond
	}
	if len(fc.DisabledTools) > 0 {
		c.DisabledTools = fc.DisabledTools
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Mode = getEnv("UNFILTERED_MODE", c.Mode)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.Model = getEnv("OPENAI_MODEL", c.Model)
	c.RequestTimeout = time.Duration(getEnvInt("LLM_TIMEOUT_MS", int(c.RequestTimeout.Milliseconds()))) * time.Millisecond
	c.GatewayRPS = getEnvFloat("GATEWAY_RPS", c.GatewayRPS)
	c.GatewayBurst = getEnvInt("GATEWAY_BURST", c.GatewayBurst)
	c.PollInterval = time.Duration(getEnvInt("POLL_INTERVAL_MS", int(c.PollInterval.Milliseconds()))) * time.Millisecond
	c.MaxPollAttempts = getEnvInt("MAX_POLL_ATTEMPTS", c.MaxPollAttempts)
	c.RunTimeout = time.Duration(getEnvInt("RUN_TIMEOUT_MS", int(c.RunTimeout.Milliseconds()))) * time.Millisecond
	if val := os.Getenv("DISABLED_TOOLS"); val != "" {
		c.DisabledTools = splitList(val)
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// IsMock reports whether the in-memory gateway is selected.
func (c *Config) IsMock() bool {
	return strings.EqualFold(c.Mode, ModeMock)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.IsMock() && c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required unless UNFILTERED_MODE=%s", domain.ErrConfiguration, ModeMock)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrConfiguration)
	}
	if c.MaxPollAttempts <= 0 {
		return fmt.Errorf("%w: max poll attempts must be positive", domain.ErrConfiguration)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", domain.ErrConfiguration)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
