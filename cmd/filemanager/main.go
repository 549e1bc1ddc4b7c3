package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sbj-ee/FileManager/internal/config"
	"github.com/sbj-ee/FileManager/internal/exitcodes"
	"github.com/sbj-ee/FileManager/internal/history"
	"github.com/sbj-ee/FileManager/internal/logging"
	"github.com/sbj-ee/FileManager/internal/metrics"
	"github.com/sbj-ee/FileManager/internal/scan"
	"github.com/sbj-ee/FileManager/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	days := flag.Int("days", 0, "Age threshold in days before files are compressed (default 5)")
	recursive := flag.Bool("recursive", false, "Process subdirectories recursively")
	dryRun := flag.Bool("dry-run", false, "Show what would be compressed without changing anything")
	logFilePath := flag.String("log-file", "", "Optional log file (in addition to console output)")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	once := flag.Bool("once", false, "Run one rotation cycle and exit (no loop)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := resolveConfig(*configPath, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}

	// Flags override file-loaded settings.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "days":
			cfg.AgeOffDays = *days
		case "recursive":
			cfg.Recursive = *recursive
		case "dry-run":
			cfg.DryRun = *dryRun
		case "log-file":
			cfg.Logging.File = *logFilePath
		case "verbose":
			cfg.Logging.Verbose = *verbose
		}
	})
	if err := cfg.ValidateAndDefault(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}

	logger := logging.New(cfg.Logging.File, cfg.Logging.RotationDays)

	logger.Println("File Manager Starting...")
	logger.Printf("Directory: %s age_off=%dd recursive=%v", cfg.Directory, cfg.AgeOffDays, cfg.Recursive)
	if cfg.DryRun {
		logger.Println("DRY RUN MODE: No files will be modified")
	}

	eventLog := logging.OpenEventLog(cfg.Logging.File)
	if eventLog != nil {
		defer eventLog.Close()
	}

	metrics.Init()
	trigger := make(chan os.Signal, 1)
	metrics.SetTriggerChannel(trigger)
	signal.Notify(trigger, syscall.SIGUSR1)
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	var db *history.RotationDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening rotation history database: %s", cfg.DatabasePath)
		db, err = history.New(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			return exitcodes.RuntimeError
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if *once || *configPath == "" {
		// One-shot is the default for the plain CLI surface; daemon mode
		// requires an explicit config file.
		stats, err := scheduler.RunOnce(ctx, cfg, logger, eventLog, db)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("ERROR: Rotation failed: %v", err)
			if errors.Is(err, scan.ErrInvalidDirectory) {
				return exitcodes.InvalidDirectory
			}
			return exitcodes.RuntimeError
		}
		logger.Printf("Rotation completed: %s", stats.String())
		return exitcodes.Success
	}

	logger.Println("Starting rotation scheduler...")
	err = scheduler.Run(ctx, cfg, logger, eventLog, db, trigger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metrics.Shutdown(shutdownCtx, logger)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("ERROR: Scheduler failed: %v", err)
		if errors.Is(err, scan.ErrInvalidDirectory) {
			return exitcodes.InvalidDirectory
		}
		return exitcodes.RuntimeError
	}

	logger.Println("File Manager stopped")
	return exitcodes.Success
}

func resolveConfig(configPath, dirArg string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if dirArg != "" {
			cfg.Directory = dirArg
		}
		return cfg, nil
	}

	if dirArg == "" {
		return nil, config.ErrNoDirectory
	}
	cfg := config.Default()
	cfg.Directory = dirArg
	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <directory>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Compress files older than the age threshold to .gz and remove the originals.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}
