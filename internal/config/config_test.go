package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "ENVIRONMENT", "JWT_SECRET_KEY", "OPENAI_MODEL", "CORS_ORIGINS", "UPSTREAM_TIMEOUT_MS", "GATEWAY_MODE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "llama3:latest", cfg.OpenAIModel)
	assert.Equal(t, 60*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORSOrigins)
	assert.True(t, cfg.InsecureSecret())
	assert.True(t, cfg.IssueDevelopmentTokens())
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("UPSTREAM_TIMEOUT_MS", "1500")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GATEWAY_MODE", "mock")

	cfg := Load()
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 1500*time.Millisecond, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.InsecureSecret())
	assert.False(t, cfg.IssueDevelopmentTokens())
	assert.True(t, cfg.MockUpstream())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	for _, key := range []string{"OPENAI_MODEL", "OPENAI_API_KEY", "ENVIRONMENT", "STREAM_IDLE_TIMEOUT_MS"} {
		t.Setenv(key, "")
	}
	t.Setenv("HTTP_PORT", "7000")

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := "http_port: 8100\nopenai_model: mistral\nenvironment: staging\nstream_idle_timeout_ms: 250\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.HTTPPort, "env wins over file")
	assert.Equal(t, "mistral", cfg.OpenAIModel)
	assert.Equal(t, EnvStaging, cfg.Environment)
	assert.Equal(t, 250*time.Millisecond, cfg.StreamIdleTimeout)
	assert.Equal(t, "ollama", cfg.OpenAIAPIKey, "defaults survive partial files")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg := Default()
	cfg.Environment = EnvProduction

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure default")

	cfg.JWTSecret = "rotated"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.HTTPPort = 0
	cfg.Environment = "qa"
	cfg.OpenAIModel = ""
	cfg.StreamIdleTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"http_port", "unknown environment", "openai_model", "idle timeout"} {
		assert.Contains(t, err.Error(), want)
	}
}
