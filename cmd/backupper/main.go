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

	"github.com/robfig/cron/v3"

	"github.com/NDilbone/Backupper/pkg/buildinfo"
	"github.com/NDilbone/Backupper/pkg/config"
	"github.com/NDilbone/Backupper/pkg/engine"
	"github.com/NDilbone/Backupper/pkg/plog"
)

// action defines a special command to execute instead of a backup.
type action int

const (
	actionRunBackup action = iota // The default action is to run a backup.
	actionShowVersion
	actionInitConfig
)

// flags holds the parsed command line, merged over the config file later.
type flags struct {
	configPath string
	source     string
	target     string
	workers    int
	logLevel   string
	schedule   string
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", buildinfo.Name, buildinfo.Version)
		fmt.Fprintf(flag.CommandLine.Output(), "A concurrent snapshot backup utility with retention and integrity verification.\n\n")
		flag.PrintDefaults()
	}
}

func parseFlags() (action, flags) {
	f := flags{}
	flag.StringVar(&f.configPath, "config", config.ConfigFileName, "Path to the configuration file")
	flag.StringVar(&f.source, "source", "", "Source directory to back up (overrides config)")
	flag.StringVar(&f.target, "target", "", "Destination directory for snapshots (overrides config)")
	flag.IntVar(&f.workers, "workers", 0, "Number of copy workers (overrides config)")
	flag.StringVar(&f.logLevel, "log-level", "", "Logging level: 'debug', 'notice', 'info', 'warn', 'error'")
	flag.StringVar(&f.schedule, "schedule", "", "Cron expression to run backups on a schedule instead of once")
	initFlag := flag.Bool("init", false, "Generate a default configuration file and exit")
	versionFlag := flag.Bool("version", false, "Print the application version and exit")
	flag.Parse()

	if *versionFlag {
		return actionShowVersion, f
	}
	if *initFlag {
		return actionInitConfig, f
	}
	return actionRunBackup, f
}

// loadConfig merges the flag overrides over the configuration file.
func loadConfig(f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		// Running purely from flags is fine when no config file exists.
		if !errors.Is(err, os.ErrNotExist) || f.source == "" || f.target == "" {
			return config.Config{}, err
		}
		cfg = config.NewDefault()
	}

	if f.source != "" {
		cfg.SourceDir = f.source
	}
	if f.target != "" {
		cfg.DestinationDir = f.target
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, cfg.Validate()
}

func runInit(f flags) error {
	if _, err := os.Stat(f.configPath); err == nil {
		return fmt.Errorf("config file %s already exists", f.configPath)
	}
	cfg := config.NewDefault()
	cfg.SourceDir = f.source
	cfg.DestinationDir = f.target
	if err := cfg.Write(f.configPath); err != nil {
		return err
	}
	plog.Info("Default configuration written", "path", f.configPath)
	return nil
}

func runBackup(ctx context.Context, f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	plog.SetLevel(plog.LevelFromString(cfg.LogLevel))
	cfg.LogSummary()

	runner := engine.NewRunner(cfg)

	if f.schedule == "" {
		_, err := runner.Execute(ctx)
		return err
	}
	return runScheduled(ctx, runner, f.schedule)
}

// runScheduled runs backups on a cron schedule until the context is
// cancelled. A run that overlaps the previous one is skipped by the lock
// file, not queued.
func runScheduled(ctx context.Context, runner *engine.Runner, expr string) error {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if _, err := runner.Execute(ctx); err != nil {
			plog.Error("Scheduled backup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	plog.Info("Scheduler started", "schedule", expr)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		plog.Warn("Scheduler did not stop cleanly")
	}
	return nil
}

func run(ctx context.Context) error {
	act, f := parseFlags()

	switch act {
	case actionShowVersion:
		fmt.Printf("%s version %s\n", buildinfo.Name, buildinfo.Version)
		return nil
	case actionInitConfig:
		return runInit(f)
	case actionRunBackup:
		plog.Info("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid())
		return runBackup(ctx, f)
	default:
		return fmt.Errorf("internal error: unknown action %d", act)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		plog.Warn("Shutdown requested, finishing current work")
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
