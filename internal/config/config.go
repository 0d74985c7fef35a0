package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultConfigPath is the path to the shipped defaults file.
const DefaultConfigPath = "config/mutant.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the service configuration. Values are resolved in order:
// Default, then the JSON file, then MUTANT_* environment variables, then
// command-line flags.
type Config struct {
	Listen     string `json:"listen" env:"MUTANT_LISTEN"`
	GRPCListen string `json:"grpc_listen" env:"MUTANT_GRPC_LISTEN"` // empty disables the gRPC health server
	DBPath     string `json:"db_path" env:"MUTANT_DB_PATH"`
	LogLevel   string `json:"log_level" env:"MUTANT_LOG_LEVEL"`
	DevMode    bool   `json:"dev_mode" env:"MUTANT_DEV"`

	ShutdownTimeout string `json:"shutdown_timeout" env:"MUTANT_SHUTDOWN_TIMEOUT"` // duration string like "5s"

	Recorder RecorderConfig `json:"recorder"`
}

// RecorderConfig controls asynchronous outcome persistence.
type RecorderConfig struct {
	Workers      int    `json:"workers" env:"MUTANT_RECORDER_WORKERS"`
	QueueSize    int    `json:"queue_size" env:"MUTANT_RECORDER_QUEUE"`
	MaxAttempts  int    `json:"max_attempts" env:"MUTANT_RECORDER_ATTEMPTS"`
	RetryBackoff string `json:"retry_backoff" env:"MUTANT_RECORDER_BACKOFF"` // duration string like "200ms"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		DBPath:          "mutant_dna.db",
		LogLevel:        "info",
		ShutdownTimeout: "5s",
		Recorder: RecorderConfig{
			Workers:      4,
			QueueSize:    1024,
			MaxAttempts:  3,
			RetryBackoff: "200ms",
		},
	}
}

// Load resolves the configuration from defaults, the optional JSON file at
// path and the environment. Fields omitted from the file keep their default
// values, so partial configs are safe. The result is not validated; callers
// apply any remaining overrides and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("invalid shutdown_timeout %q: %w", c.ShutdownTimeout, err))
	}
	if c.Recorder.Workers < 1 {
		errs = append(errs, fmt.Errorf("recorder.workers must be at least 1, got %d", c.Recorder.Workers))
	}
	if c.Recorder.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("recorder.queue_size must be at least 1, got %d", c.Recorder.QueueSize))
	}
	if c.Recorder.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("recorder.max_attempts must be at least 1, got %d", c.Recorder.MaxAttempts))
	}
	if d, err := time.ParseDuration(c.Recorder.RetryBackoff); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("invalid recorder.retry_backoff %q", c.Recorder.RetryBackoff))
	}
	return errors.Join(errs...)
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetRetryBackoff returns the delay between persistence attempts.
func (c *RecorderConfig) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching from the current
// directory up to the repository root. Panics if the file cannot be loaded;
// intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil && cfg.Validate() == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}
