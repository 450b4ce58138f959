package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `debug: false
server:
  address: ":8075"
database:
  host: "localhost"
  user: "crosspost"
  password: "secret"
  name: "crosspost"
redis:
  url: "localhost:6379"
publisher:
  site_url: "https://aimaqaqshamy.kz"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8075", cfg.Server.Address)
	assert.Equal(t, DefaultReadTimeoutSeconds*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 15*time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 30*24*time.Hour, cfg.Publisher.DedupTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadRequiresDatabaseHost(t *testing.T) {
	content := `redis:
  url: "localhost:6379"
`
	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestLoadRequiresRedisURL(t *testing.T) {
	content := `database:
  host: "localhost"
  name: "crosspost"
`
	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.url")
}

func TestConfigDebugFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{"true from env", "true", true},
		{"1 from env", "1", true},
		{"yes from env", "yes", true},
		{"false from env", "false", false},
		{"0 from env", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_DEBUG", tt.envValue)

			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Debug, "APP_DEBUG=%q", tt.envValue)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PASSWORD", "override")
	t.Setenv("REDIS_URL", "redis.internal:6379")
	t.Setenv("SITE_URL", "https://staging.aimaqaqshamy.kz")
	t.Setenv("CROSSPOST_PORT", "9090")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "override", cfg.Database.Password)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.URL)
	assert.Equal(t, "https://staging.aimaqaqshamy.kz", cfg.Publisher.SiteURL)
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestQueueValidation(t *testing.T) {
	content := minimalConfig + `queue:
  poll_interval: "-5s"
`
	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue.poll_interval")
}
