package config

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigWithDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://donnees.roulez-eco.fr/opendata/instantane", cfg.FeedArchiveURL)
	assert.Equal(t, "https://data.economie.gouv.fr/api/records/1.0", cfg.SearchBaseURL)
	assert.Equal(t, "https://geo.api.gouv.fr", cfg.GeocodeBaseURL)
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.OverpassBaseURL)
}

func TestWithEnvironment(t *testing.T) {
	cfg := New(WithEnvironment("development"))

	assert.Equal(t, "development", cfg.Environment)
}

func TestWithLogLevel(t *testing.T) {
	cfg := New(WithLogLevel("debug"))

	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestWithHTTPTimeout(t *testing.T) {
	cfg := New(WithHTTPTimeout(30 * time.Second))

	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestWithListenAddr(t *testing.T) {
	cfg := New(WithListenAddr(":9090"))

	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestInitializeLogging(t *testing.T) {
	cfg := New(WithEnvironment("local"), WithLogLevel("debug"))
	cfg.InitializeLogging()

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("LISTEN_ADDR", ":9999")

	cfg := LoadFromEnv()

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestGetEnvOrDefault(t *testing.T) {
	err := os.Setenv("TEST_ENV_VAR", "value")
	if err != nil {
		return
	}
	defer func() {
		err := os.Unsetenv("TEST_ENV_VAR")
		if err != nil {
			return
		}
	}()

	assert.Equal(t, "value", getEnvOrDefault("TEST_ENV_VAR", "default"))
	assert.Equal(t, "default", getEnvOrDefault("NON_EXISTENT_ENV_VAR", "default"))
}

func TestGetDurationEnvOrDefault(t *testing.T) {
	err := os.Setenv("TEST_DURATION_ENV_VAR", "2s")
	if err != nil {
		return
	}
	defer func() {
		err := os.Unsetenv("TEST_DURATION_ENV_VAR")
		if err != nil {
			return
		}
	}()

	assert.Equal(t, 2*time.Second, getDurationEnvOrDefault("TEST_DURATION_ENV_VAR", 1*time.Second))
	assert.Equal(t, 1*time.Second, getDurationEnvOrDefault("NON_EXISTENT_DURATION_ENV_VAR", 1*time.Second))
}
