package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
mysql:
  dsn: "root:pass@tcp(127.0.0.1:3306)/longform?charset=utf8mb4&parseTime=True"
redis:
  addr: "127.0.0.1:6379"
  password: "secret"
minio:
  endpoint: "127.0.0.1:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "longform"
  use_ssl: false
providers:
  openrouter:
    api_key: "sk-or"
    model: "google/gemini-2.0-flash-001"
  fishaudio:
    api_key: "fa-key"
  wavespeed:
    api_key: "ws-key"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, "longform", cfg.MinIO.Bucket)
	assert.Equal(t, "sk-or", cfg.Providers.OpenRouter.APIKey)
	assert.Equal(t, "fa-key", cfg.Providers.FishAudio.APIKey)
	assert.Equal(t, "ws-key", cfg.Providers.WaveSpeed.APIKey)
}

func TestLoad_DefaultPort(t *testing.T) {
	path := writeConfig(t, `
mysql:
  dsn: "root@tcp(127.0.0.1:3306)/longform"
redis:
  addr: "127.0.0.1:6379"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Run("no dsn", func(t *testing.T) {
		path := writeConfig(t, "redis:\n  addr: \"127.0.0.1:6379\"\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mysql.dsn")
	})

	t.Run("no redis addr", func(t *testing.T) {
		path := writeConfig(t, "mysql:\n  dsn: \"root@tcp(x)/y\"\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis.addr")
	})
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a map\n")
	_, err := Load(path)
	require.Error(t, err)
}
