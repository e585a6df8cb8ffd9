// Package config provides configuration for the gateway.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is the well-known placeholder secret. It must never be
// used outside development.
const DefaultJWTSecret = "dev-secret-key-change-in-production"

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`
	OpsPort  int `yaml:"ops_port"`

	// Environment selects the mode claim embedded in issued tokens
	Environment string `yaml:"environment"`

	// Auth settings
	JWTSecret string `yaml:"jwt_secret_key"`

	// Upstream completion service
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`

	// GatewayMode=MOCK swaps the upstream for a canned client
	GatewayMode string `yaml:"gateway_mode"`

	// Timeouts
	UpstreamTimeout   time.Duration `yaml:"-"`
	StreamIdleTimeout time.Duration `yaml:"-"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// CORS
	CORSOrigins []string `yaml:"cors_origins"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// fileConfig mirrors Config for YAML files; durations are given in milliseconds.
type fileConfig struct {
	Config              `yaml:",inline"`
	UpstreamTimeoutMs   int `yaml:"upstream_timeout_ms"`
	StreamIdleTimeoutMs int `yaml:"stream_idle_timeout_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:          8000,
		OpsPort:           8001,
		Environment:       EnvDevelopment,
		JWTSecret:         DefaultJWTSecret,
		OpenAIBaseURL:     "http://localhost:11434/v1",
		OpenAIAPIKey:      "ollama",
		OpenAIModel:       "llama3:latest",
		UpstreamTimeout:   60 * time.Second,
		StreamIdleTimeout: 30 * time.Second,
		DatabaseURL:       "file:gateway.db?cache=shared&mode=rwc",
		CORSOrigins:       []string{"http://localhost:3000", "http://localhost:3001"},
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Load loads configuration from environment variables on top of the defaults.
func Load() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile loads a YAML file, then applies environment overrides.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fc := fileConfig{Config: *cfg}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		*cfg = fc.Config
		if fc.UpstreamTimeoutMs > 0 {
			cfg.UpstreamTimeout = time.Duration(fc.UpstreamTimeoutMs) * time.Millisecond
		}
		if fc.StreamIdleTimeoutMs > 0 {
			cfg.StreamIdleTimeout = time.Duration(fc.StreamIdleTimeoutMs) * time.Millisecond
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.OpsPort = getEnvInt("OPS_PORT", cfg.OpsPort)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.JWTSecret = getEnv("JWT_SECRET_KEY", cfg.JWTSecret)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GatewayMode = getEnv("GATEWAY_MODE", cfg.GatewayMode)
	cfg.UpstreamTimeout = getEnvMs("UPSTREAM_TIMEOUT_MS", cfg.UpstreamTimeout)
	cfg.StreamIdleTimeout = getEnvMs("STREAM_IDLE_TIMEOUT_MS", cfg.StreamIdleTimeout)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port out of range: %d", c.HTTPPort))
	}
	if c.OpsPort < 0 || c.OpsPort > 65535 {
		errs = append(errs, fmt.Errorf("ops_port out of range: %d", c.OpsPort))
	}
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret_key is required"))
	}
	if c.Environment == EnvProduction && c.InsecureSecret() {
		errs = append(errs, errors.New("jwt_secret_key is the insecure default; set JWT_SECRET_KEY for production"))
	}
	if c.OpenAIBaseURL == "" {
		errs = append(errs, errors.New("openai_base_url is required"))
	}
	if c.OpenAIModel == "" {
		errs = append(errs, errors.New("openai_model is required"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("upstream timeout must be positive"))
	}
	if c.StreamIdleTimeout <= 0 {
		errs = append(errs, errors.New("stream idle timeout must be positive"))
	}
	return errors.Join(errs...)
}

// InsecureSecret reports whether the signing secret is the built-in placeholder.
func (c *Config) InsecureSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// IssueDevelopmentTokens reports whether freshly minted tokens carry the
// development mode claim.
func (c *Config) IssueDevelopmentTokens() bool {
	return c.Environment == EnvDevelopment
}

// MockUpstream reports whether GATEWAY_MODE selects the canned upstream.
func (c *Config) MockUpstream() bool {
	return strings.EqualFold(c.GatewayMode, "MOCK")
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

func getEnvMs(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
