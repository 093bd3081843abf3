package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 5000\n"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:5000", cfg.App.BaseURL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, "/uploads", cfg.Upload.PublicPath)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/gif"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, 800, cfg.Image.MaxWidth)
	assert.Equal(t, 80, cfg.Image.Quality)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.Storage.MirrorEnabled())
	assert.False(t, cfg.Events.EventsEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.Events.PublishTimeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("BASE_URL", "https://memes.example")
	t.Setenv("FRONTEND_URL", "https://app.example, https://admin.example")
	t.Setenv("UPLOAD_LIMIT", "1048576")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(writeConfig(t, "rate_limit:\n  window: 1m\n"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://memes.example", cfg.App.BaseURL)
	assert.Equal(t, []string{"https://app.example", "https://admin.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxBytes)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
	assert.True(t, cfg.Events.EventsEnabled())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown driver", content: "database:\n  driver: oracle\n"},
		{name: "postgres without dsn", content: "database:\n  driver: postgres\n"},
		{name: "mongodb without uri", content: "database:\n  driver: mongodb\n"},
		{name: "bad quality", content: "image:\n  quality: 0\n"},
		{name: "negative upload limit", content: "upload:\n  max_bytes: -1\n"},
		{name: "relative public path", content: "upload:\n  public_path: uploads\n"},
		{name: "mirror without bucket", content: "storage:\n  type: s3\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
