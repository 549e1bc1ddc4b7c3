package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
directory: /var/log/app
age_off_days: 14
recursive: true
dry_run: true
schedule: "0 3 * * *"
interval_minutes: 30
prometheus:
  port: 9090
logging:
  file: /var/log/filemanager/filemanager.log
  verbose: true
  rotation_days: 7
resource_limits:
  max_cpu_percent: 25.0
worker_pool:
  enabled: true
  concurrency: 8
database_path: /var/lib/filemanager/rotations.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Directory != "/var/log/app" {
		t.Errorf("Expected directory /var/log/app, got %s", cfg.Directory)
	}
	if cfg.AgeOffDays != 14 {
		t.Errorf("Expected age_off_days 14, got %d", cfg.AgeOffDays)
	}
	if !cfg.Recursive || !cfg.DryRun {
		t.Errorf("Expected recursive and dry_run to be true")
	}
	if cfg.Schedule != "0 3 * * *" {
		t.Errorf("Expected cron schedule, got %q", cfg.Schedule)
	}
	if cfg.Prometheus.Port != 9090 {
		t.Errorf("Expected prometheus port 9090, got %d", cfg.Prometheus.Port)
	}
	if !cfg.WorkerPool.Enabled || cfg.WorkerPool.Concurrency != 8 {
		t.Errorf("Expected worker pool enabled with 8 workers, got %+v", cfg.WorkerPool)
	}
	if cfg.ResourceLimits.MaxCPUPercent != 25.0 {
		t.Errorf("Expected max_cpu_percent 25.0, got %f", cfg.ResourceLimits.MaxCPUPercent)
	}
	if cfg.DatabasePath != "/var/lib/filemanager/rotations.db" {
		t.Errorf("Expected database path, got %s", cfg.DatabasePath)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "directory: /var/log/app\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AgeOffDays != 5 {
		t.Errorf("Expected default age_off_days 5, got %d", cfg.AgeOffDays)
	}
	if cfg.IntervalMinutes != 60 {
		t.Errorf("Expected default interval_minutes 60, got %d", cfg.IntervalMinutes)
	}
	if cfg.Logging.RotationDays != 30 {
		t.Errorf("Expected default rotation_days 30, got %d", cfg.Logging.RotationDays)
	}
	if cfg.WorkerPool.Concurrency != 4 {
		t.Errorf("Expected default concurrency 4, got %d", cfg.WorkerPool.Concurrency)
	}
	if cfg.Prometheus.Port != 0 {
		t.Errorf("Metrics server must stay off by default, got port %d", cfg.Prometheus.Port)
	}
	if cfg.DatabasePath != "" {
		t.Errorf("History database must stay off by default, got %s", cfg.DatabasePath)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	path := writeConfig(t, "age_off_days: 5\n")

	_, err := Load(path)
	if !errors.Is(err, ErrNoDirectory) {
		t.Errorf("Expected ErrNoDirectory, got %v", err)
	}
}

func TestLoadNegativeAge(t *testing.T) {
	path := writeConfig(t, "directory: /var/log/app\nage_off_days: -1\n")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for negative age_off_days")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "directory: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestDirectoryResolvedAbsolute(t *testing.T) {
	cfg := Default()
	cfg.Directory = "logs/../logs"
	if err := cfg.ValidateAndDefault(); err != nil {
		t.Fatalf("ValidateAndDefault failed: %v", err)
	}
	if !filepath.IsAbs(cfg.Directory) {
		t.Errorf("Expected absolute directory, got %s", cfg.Directory)
	}
	if filepath.Clean(cfg.Directory) != cfg.Directory {
		t.Errorf("Expected cleaned directory, got %s", cfg.Directory)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()
	cfg.Directory = "/var/log/app"
	cfg.AgeOffDays = 3
	cfg.IntervalMinutes = 15
	cfg.Prometheus.Port = 2112
	if err := cfg.ValidateAndDefault(); err != nil {
		t.Fatalf("ValidateAndDefault failed: %v", err)
	}

	if cfg.AgeThreshold() != 72*time.Hour {
		t.Errorf("Expected 72h threshold, got %v", cfg.AgeThreshold())
	}
	if cfg.Interval() != 15*time.Minute {
		t.Errorf("Expected 15m interval, got %v", cfg.Interval())
	}
	if cfg.PrometheusAddress() != ":2112" {
		t.Errorf("Expected :2112, got %s", cfg.PrometheusAddress())
	}
}
