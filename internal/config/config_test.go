package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Empty(t, cfg.Database.DSN)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, 25, cfg.Timeline.PageSize)
	assert.Equal(t, 150, cfg.Timeline.SourceCap)
	assert.Equal(t, 90*24*time.Hour, cfg.Timeline.Window)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("app:\n  port: \"9090\"\nstripe:\n  currency: eur\ntimeline:\n  page_size: 10\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("BACKOFFICE_DATABASE_DSN", "postgres://localhost/backoffice")
	t.Setenv("BACKOFFICE_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("BACKOFFICE_TIMELINE_PAGE_SIZE", "50")

	cfg, err := LoadConfig("", dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "eur", cfg.Stripe.Currency)
	assert.Equal(t, "postgres://localhost/backoffice", cfg.Database.DSN)
	assert.Equal(t, 50, cfg.Timeline.PageSize)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BACKOFFICE_REDIS_ADDR=localhost:6379\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BACKOFFICE_REDIS_ADDR") })

	cfg, err := LoadConfig(envFile, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadConfig_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("BACKOFFICE_APP_ENV", "production")

	_, err := LoadConfig("", t.TempDir())
	assert.ErrorContains(t, err, "jwt_secret")

	t.Setenv("BACKOFFICE_AUTH_JWT_SECRET", "s3cret")
	cfg, err := LoadConfig("", t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
