package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	values := Config{RunAddr: ":9000"}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":9000", values.RunAddr)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, 24*time.Hour, values.SessionTTL)
	assert.Equal(t, "/uploads", values.UploadURLPrefix)
	assert.EqualValues(t, 10<<20, values.MaxUploadSize)
}

func TestDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "bookshelf_session", cfg.SessionCookieName)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.True(t, cfg.IsDevSessionSecret())

	location, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, location)
}

const testJSON = `{
	"server_address": ":3001",
	"file_storage_path": "json_storage.json",
	"database_dsn": "json-dsn",
	"session_ttl": "2h",
	"secure_cookie": true
}`

const testYAML = `
server_address: ":3002"
database_dsn: yaml-dsn
db_connection_timeout: 3s
book_of_day_tz: Europe/Berlin
`

func writeTempConfig(t *testing.T, pattern, content string) string {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), pattern)
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0o600))
	return fileName
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", testJSON))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.RunAddr)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SecureCookie)
	assert.Equal(t, "info", cfg.LogLevel, "defaults fill what the file omits")
}

func TestConfigYAML(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config.yaml", testYAML))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3002", cfg.RunAddr)
	assert.Equal(t, "yaml-dsn", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("SESSION_SECRET", "env-secret-0123456789")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr) // env overrides json
	assert.Equal(t, "env-secret-0123456789", cfg.SessionSecret)
	assert.False(t, cfg.IsDevSessionSecret())
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigPriorityAllSources(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("REDIS_URL", "redis://env:6379/0")

	cfg, err := New(WithArgs([]string{
		"-a", ":6000",
		"-r", "redis://cli:6379/1",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr) // CLI > ENV > JSON
	assert.Equal(t, "redis://cli:6379/1", cfg.RedisURL)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN) // from JSON
}

func TestConfigFileFromFlag(t *testing.T) {
	cfg, err := New(WithArgs([]string{"-c", writeTempConfig(t, "config.yml", testYAML)}))
	require.NoError(t, err)

	assert.Equal(t, "yaml-dsn", cfg.DatabaseDSN)
}

func TestConfigEnvOnly(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.EqualValues(t, 1024, cfg.MaxUploadSize)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "short session secret", env: map[string]string{"SESSION_SECRET": "short"}},
		{name: "bad address", env: map[string]string{"SERVER_ADDRESS": "no-port"}},
		{name: "unknown time zone", env: map[string]string{"BOOK_OF_DAY_TZ": "Mars/Olympus"}},
		{name: "upload prefix without slash", env: map[string]string{"UPLOAD_URL_PREFIX": "uploads"}},
		{name: "bucket without credentials", env: map[string]string{"S3_BUCKET": "covers"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := New(WithDisableFlagsParsing(true))
			assert.Error(t, err)
		})
	}
}

func TestConfigBrokenFile(t *testing.T) {
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", `{"session_ttl": "forever"}`))
	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)

	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	_, err = New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
