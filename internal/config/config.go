package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Optional log file; console only when empty
	Verbose      bool   `yaml:"verbose" json:"verbose"`             // Enable debug-level output
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep our own log before rotation
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // Maximum CPU usage during a run (e.g. 10.0)
}

type WorkerPoolConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`         // Enable concurrent per-file rotation (default: off)
	Concurrency int  `yaml:"concurrency" json:"concurrency"` // Number of rotation workers (default: 4)
}

// Config is the resolved configuration for one rotation run (or for the
// daemon that repeats runs). It is immutable once validated.
type Config struct {
	Directory         string           `yaml:"directory" json:"directory"`
	AgeOffDays        int              `yaml:"age_off_days" json:"age_off_days"`
	Recursive         bool             `yaml:"recursive" json:"recursive"`
	DryRun            bool             `yaml:"dry_run" json:"dry_run"`
	SkipContentVerify bool             `yaml:"skip_content_verify" json:"skip_content_verify"` // Size-only archive verification
	Schedule          string           `yaml:"schedule" json:"schedule"`                        // Cron expression; overrides interval_minutes
	IntervalMinutes   int              `yaml:"interval_minutes" json:"interval_minutes"`       // Daemon cycle interval when no cron schedule
	Prometheus        PrometheusCfg    `yaml:"prometheus" json:"prometheus"`
	Logging           LoggingCfg       `yaml:"logging" json:"logging"`
	ResourceLimits    ResourceLimits   `yaml:"resource_limits" json:"resource_limits"`
	WorkerPool        WorkerPoolConfig `yaml:"worker_pool" json:"worker_pool"`
	DatabasePath      string           `yaml:"database_path" json:"database_path"` // SQLite rotation history; empty disables
}

var (
	ErrNoDirectory = errors.New("configuration must specify a directory")
	errNegativeAge = errors.New("age_off_days cannot be negative")
)

// Load reads a YAML configuration file and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration carrying only defaults; callers fill in the
// directory (typically from the CLI positional argument) and re-validate.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ValidateAndDefault fills defaults and rejects unusable settings. It checks
// configuration shape only; the existence/is-a-directory check on Directory
// belongs to the scanner, which owns the fatal invalid-directory error.
func (c *Config) ValidateAndDefault() error {
	if c.Directory == "" {
		return ErrNoDirectory
	}

	abs, err := filepath.Abs(c.Directory)
	if err != nil {
		return fmt.Errorf("resolve directory %q: %w", c.Directory, err)
	}
	c.Directory = filepath.Clean(abs)

	if c.AgeOffDays < 0 {
		return errNegativeAge
	}

	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.AgeOffDays == 0 {
		c.AgeOffDays = 5
	}
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 60
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}
	if c.WorkerPool.Concurrency <= 0 {
		c.WorkerPool.Concurrency = 4
	}
	// Prometheus.Port 0 means the metrics server stays off; no default port.
	// DatabasePath empty means history recording stays off.
}

// AgeThreshold returns the minimum elapsed time since last modification
// before a file is compressed.
func (c *Config) AgeThreshold() time.Duration {
	return time.Duration(c.AgeOffDays) * 24 * time.Hour
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
