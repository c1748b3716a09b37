package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leca/dt-image-store/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imagestore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IMAGESTORE_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
storage_path: /srv/images
quality: 70
cleanup_interval: 30s
delete_failure_mode: throw
max_pixels: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/srv/images", cfg.StoragePath)
	assert.Equal(t, 70, cfg.Quality)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, "throw", cfg.DeleteFailureMode)
	assert.Nil(t, cfg.Validator())

	// Unset keys keep their defaults.
	assert.Equal(t, Default().DBPath, cfg.DBPath)
}

func TestLoad_FileFromEnv(t *testing.T) {
	path := writeConfig(t, "quality: 60\n")
	t.Setenv("IMAGESTORE_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Quality)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "quality: 60\nlisten_addr: \":9090\"\n")
	t.Setenv("IMAGESTORE_QUALITY", "95")
	t.Setenv("IMAGESTORE_CLEANUP_INTERVAL", "1m")
	t.Setenv("IMAGESTORE_AUTH_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 95, cfg.Quality)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Equal(t, "secret", cfg.AuthToken)
}

func TestLoad_MalformedEnvKeepsValue(t *testing.T) {
	t.Setenv("IMAGESTORE_CONFIG", "")
	t.Setenv("IMAGESTORE_QUALITY", "high")
	t.Setenv("IMAGESTORE_CLEANUP_ENABLED", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Quality, cfg.Quality)
	assert.True(t, cfg.CleanupEnabled)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("IMAGESTORE_CONFIG", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "quality: [1, 2]\n"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"quality too high", func(c *Config) { c.Quality = 101 }, "quality 101"},
		{"unknown failure mode", func(c *Config) { c.DeleteFailureMode = "ignore" }, "unknown delete failure mode"},
		{"record without cleanup", func(c *Config) { c.CleanupEnabled = false }, "requires cleanup_enabled"},
		{"throw without cleanup", func(c *Config) {
			c.CleanupEnabled = false
			c.DeleteFailureMode = "throw"
		}, ""},
		{"zero interval", func(c *Config) { c.CleanupInterval = 0 }, "cleanup_interval"},
		{"no storage path", func(c *Config) { c.StoragePath = "" }, "storage_path"},
		{"no upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, "max_upload_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestStorageOptions(t *testing.T) {
	cfg := Default()
	cfg.Quality = 80

	opts, err := cfg.StorageOptions()
	require.NoError(t, err)
	assert.Equal(t, 80, opts.Quality)
	assert.True(t, opts.CleanupEnabled)
	assert.Equal(t, storage.FailureWriteRecord, opts.FailureMode)
	assert.NotNil(t, cfg.Validator())
}
