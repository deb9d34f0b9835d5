package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"videogen-server/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  base_url: http://pipeline.test/api\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 360, cfg.Poll.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Timeout)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, "generations", cfg.MinIO.Bucket)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  base_url: http://pipeline.test/api
  timeout: 10s
poll:
  interval: 2s
  max_attempts: 12
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Pipeline.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 12, cfg.Poll.MaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  base_url: http://pipeline.test/api\n")
	t.Setenv("VIDEOGEN_PIPELINE_BASE_URL", "http://override.test")
	t.Setenv("VIDEOGEN_POLL_INTERVAL", "250ms")
	t.Setenv("VIDEOGEN_POLL_MAX_ATTEMPTS", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override.test", cfg.Pipeline.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 7, cfg.Poll.MaxAttempts)
}

func TestLoad_MissingPipeline(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \":9090\"\n")

	_, err := config.Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.base_url is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_MinIOEndpoint(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pipeline.BaseURL = "http://pipeline.test"
	cfg.Poll.Interval = time.Second
	cfg.Poll.MaxAttempts = 1
	cfg.MinIO.Enabled = true

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "minio.endpoint")
}
