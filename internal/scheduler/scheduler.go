package scheduler

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sbj-ee/FileManager/internal/config"
	"github.com/sbj-ee/FileManager/internal/disk"
	"github.com/sbj-ee/FileManager/internal/history"
	"github.com/sbj-ee/FileManager/internal/metrics"
	"github.com/sbj-ee/FileManager/internal/rotate"
	"github.com/sbj-ee/FileManager/internal/scan"
)

// RunOnce executes a single scan-and-rotate cycle against the configured
// directory. Per-file failures are folded into the returned stats; the
// error return is reserved for cycle-level problems such as an unreadable
// root directory.
func RunOnce(ctx context.Context, cfg *config.Config, logger *log.Logger, logFile *os.File, db *history.RotationDB) (rotate.RunStats, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return rotate.RunStats{}, errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return rotate.RunStats{}, ctx.Err()
	default:
	}

	start := time.Now()
	metrics.RecordRun()
	updateFreeSpaceMetric(cfg, logger)

	scanner := scan.NewScanner(logger)
	result, err := scanner.Scan(cfg.Directory, cfg.Recursive)
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return rotate.RunStats{}, err
	}

	rotator := rotate.NewRotator(cfg, logger, logFile, db)

	var stats rotate.RunStats
	if cfg.WorkerPool.Enabled && cfg.WorkerPool.Concurrency > 1 {
		stats = rotator.RunParallel(ctx, result, cfg.WorkerPool.Concurrency)
	} else {
		stats = rotator.Run(ctx, result)
	}

	elapsed := time.Since(start).Seconds()
	metrics.FilesScannedTotal.Add(float64(stats.Scanned))
	metrics.RunDuration.Observe(elapsed)

	logger.Printf("cycle complete: %s duration=%.3fs", stats.String(), elapsed)
	return stats, ctx.Err()
}

// Run executes rotation cycles until the context is cancelled. When the
// config carries a cron schedule the cycles fire on that schedule;
// otherwise a fixed interval ticker drives them. A signal on trigger
// (SIGUSR1, also sent by the /trigger HTTP endpoint) forces an immediate
// cycle between scheduled ones.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger, logFile *os.File, db *history.RotationDB, trigger chan os.Signal) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	if _, err := RunOnce(ctx, cfg, logger, logFile, db); err != nil {
		return err
	}

	if cfg.Schedule != "" {
		return runCron(ctx, cfg, logger, logFile, db, trigger)
	}
	return runTicker(ctx, cfg, logger, logFile, db, trigger)
}

func runTicker(ctx context.Context, cfg *config.Config, logger *log.Logger, logFile *os.File, db *history.RotationDB, trigger chan os.Signal) error {
	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := RunOnce(ctx, cfg, logger, logFile, db); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		case <-triggerChan(trigger):
			logger.Println("triggered rotation cycle")
			if _, err := RunOnce(ctx, cfg, logger, logFile, db); err != nil {
				logger.Printf("error running triggered cycle: %v", err)
			}
		}
	}
}

func runCron(ctx context.Context, cfg *config.Config, logger *log.Logger, logFile *os.File, db *history.RotationDB, trigger chan os.Signal) error {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return err
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		if _, err := RunOnce(ctx, cfg, logger, logFile, db); err != nil {
			logger.Printf("error running scheduled cycle: %v", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	logger.Printf("cron scheduler started: schedule=%q", cfg.Schedule)

	for {
		select {
		case <-ctx.Done():
			stopCtx := c.Stop()
			<-stopCtx.Done()
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-triggerChan(trigger):
			logger.Println("triggered rotation cycle")
			if _, err := RunOnce(ctx, cfg, logger, logFile, db); err != nil {
				logger.Printf("error running triggered cycle: %v", err)
			}
		}
	}
}

// triggerChan makes a nil trigger channel safe to select on.
func triggerChan(trigger chan os.Signal) <-chan os.Signal {
	if trigger == nil {
		return nil
	}
	return trigger
}

func updateFreeSpaceMetric(cfg *config.Config, logger *log.Logger) {
	percent, err := disk.GetFreePercent(cfg.Directory)
	if err != nil {
		logger.Printf("failed to get disk usage for %s: %v", cfg.Directory, err)
		return
	}
	metrics.UpdateFreeSpacePercent(cfg.Directory, percent)
}
