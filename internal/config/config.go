package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leca/dt-image-store/internal/storage"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "IMAGESTORE_"

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	DBPath      string `yaml:"db_path"`
	StoragePath string `yaml:"storage_path"`
	AuthToken   string `yaml:"auth_token"`
	BaseURL     string `yaml:"base_url"`

	Quality           int           `yaml:"quality"`
	CleanupEnabled    bool          `yaml:"cleanup_enabled"`
	DeleteFailureMode string        `yaml:"delete_failure_mode"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	MaxPixels      int64 `yaml:"max_pixels"`
	MaxPresets     int   `yaml:"max_presets"`

	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		DBPath:            "/data/db/images.db",
		StoragePath:       "/data/images",
		BaseURL:           "http://localhost:8080",
		Quality:           0,
		CleanupEnabled:    true,
		DeleteFailureMode: storage.FailureWriteRecord.String(),
		CleanupInterval:   5 * time.Minute,
		MaxUploadBytes:    32 << 20,
		MaxPixels:         100_000_000,
		MaxPresets:        100,
		LogLevel:          "info",
		LogFormat:         "json",
		MetricsNamespace:  "imagestore",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if path is empty, IMAGESTORE_CONFIG is consulted), then IMAGESTORE_*
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.StoragePath = getEnv("STORAGE_PATH", cfg.StoragePath)
	cfg.AuthToken = getEnv("AUTH_TOKEN", cfg.AuthToken)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.Quality = getEnvInt("QUALITY", cfg.Quality)
	cfg.CleanupEnabled = getEnvBool("CLEANUP_ENABLED", cfg.CleanupEnabled)
	cfg.DeleteFailureMode = getEnv("DELETE_FAILURE_MODE", cfg.DeleteFailureMode)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.MaxPixels = int64(getEnvInt("MAX_PIXELS", int(cfg.MaxPixels)))
	cfg.MaxPresets = getEnvInt("MAX_PRESETS", cfg.MaxPresets)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.MetricsNamespace = getEnv("METRICS_NAMESPACE", cfg.MetricsNamespace)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the store cannot be built from.
func (c *Config) Validate() error {
	var errs []error
	if c.StoragePath == "" {
		errs = append(errs, errors.New("storage_path is required"))
	}
	if c.Quality < 0 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality %d out of range 0..100", c.Quality))
	}
	mode, err := storage.ParseDeleteFailureMode(c.DeleteFailureMode)
	if err != nil {
		errs = append(errs, err)
	} else if mode == storage.FailureWriteRecord && !c.CleanupEnabled {
		errs = append(errs, errors.New("delete_failure_mode record requires cleanup_enabled"))
	}
	if c.CleanupEnabled && c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval %s must be positive", c.CleanupInterval))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes %d must be positive", c.MaxUploadBytes))
	}
	if c.MaxPixels < 0 {
		errs = append(errs, fmt.Errorf("max_pixels %d must not be negative", c.MaxPixels))
	}
	return errors.Join(errs...)
}

// StorageOptions maps the store settings onto storage.Options. Logger and
// Metrics are left for the caller.
func (c *Config) StorageOptions() (storage.Options, error) {
	mode, err := storage.ParseDeleteFailureMode(c.DeleteFailureMode)
	if err != nil {
		return storage.Options{}, err
	}
	return storage.Options{
		Quality:        c.Quality,
		CleanupEnabled: c.CleanupEnabled,
		FailureMode:    mode,
	}, nil
}

// Validator returns the upload validator for the configured pixel limit, or
// nil when uploads are not limited.
func (c *Config) Validator() storage.Validator {
	if c.MaxPixels <= 0 {
		return nil
	}
	return storage.MaxPixels(c.MaxPixels)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
