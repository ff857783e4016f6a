package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("YUMI_BACKEND_URL", "https://backend.example.com/")
	t.Setenv("RESUME_TOKEN_TTL", "not-a-duration")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com ,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://backend.example.com", cfg.BackendBaseURL)
	assert.Equal(t, time.Hour, cfg.ResumeTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.BalanceCacheTTL)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	t.Setenv("BAD_INT", "forty-two")

	assert.Equal(t, 42, getEnvAsInt("SOME_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("BAD_INT", 1))
	assert.Equal(t, 7, getEnvAsInt("UNSET_INT_FOR_TEST", 7))
}

func TestClientOptions(t *testing.T) {
	t.Setenv("TEMPORAL_HOST_PORT", "temporal.internal:7233")
	t.Setenv("TEMPORAL_NAMESPACE", "checkout")

	opts := Load().ClientOptions()

	assert.Equal(t, "temporal.internal:7233", opts.HostPort)
	assert.Equal(t, "checkout", opts.Namespace)
	assert.NotNil(t, opts.Logger)
}
