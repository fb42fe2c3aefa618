// Package config loads and validates the backup configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/NDilbone/Backupper/pkg/plog"
	"github.com/NDilbone/Backupper/pkg/util"
)

// ConfigFileName is the default name of the configuration file.
const ConfigFileName = "backupper.config.json"

// snapshotTimestampLayout is the fixed timestamp pattern appended to the
// snapshot prefix, producing directories like "backup_2026-08-29_1404_07".
const snapshotTimestampLayout = "2006-01-02_1504_05"

// defaultExclusionPatterns excludes common temp/cache artifacts. Patterns are
// regular expressions matched against the entry's full path with whole-string
// semantics, so they must account for the leading directories.
var defaultExclusionPatterns = []string{
	`.*\.tmp`,
	`.*\.swp`,
	`.*~`,
	`.*/\.cache(/.*)?`,
	`.*/\.DS_Store`,
	`.*/Thumbs\.db`,
}

// CompressionConfig controls optional post-copy compression of the snapshot.
type CompressionConfig struct {
	Enabled bool `json:"enabled"`
	// Format is "gzip" or "zstd".
	Format string `json:"format"`
}

// NotifyConfig holds the Discord webhook settings for the run report.
// An empty WebhookURL disables notifications.
type NotifyConfig struct {
	WebhookURL string `json:"webhookUrl"`
	UserID     int64  `json:"userId"`
}

type Config struct {
	Version          string `json:"version"`
	SourceDir        string `json:"sourceDir"`
	DestinationDir   string `json:"destinationDir"`
	SnapshotPrefix   string `json:"snapshotPrefix"`
	LogLevel         string `json:"logLevel"`
	MaxBackupsToKeep int    `json:"maxBackupsToKeep"`
	Workers          int    `json:"workers"`
	MaxRetries       int    `json:"maxRetries"`
	RetryDelayMs     int    `json:"retryDelayMs"`
	// Note: omitempty is intentionally not used for user-configurable slices
	// so that they appear in the generated config file for better discoverability.
	ExclusionPatterns []string          `json:"exclusionPatterns"`
	Compression       CompressionConfig `json:"compression"`
	Notify            NotifyConfig      `json:"notify"`
}

// NewDefault creates a Config with sensible default values. Source and
// destination are intentionally empty to force user configuration.
func NewDefault() Config {
	return Config{
		Version:           "1",
		SourceDir:         "",
		DestinationDir:    "",
		SnapshotPrefix:    "backup",
		LogLevel:          "info",
		MaxBackupsToKeep:  5,
		Workers:           runtime.NumCPU(),
		MaxRetries:        3,
		RetryDelayMs:      1000,
		ExclusionPatterns: append([]string(nil), defaultExclusionPatterns...),
		Compression: CompressionConfig{
			Enabled: false,
			Format:  "gzip",
		},
	}
}

// Load reads and parses the configuration file at path, filling unset
// numeric fields with their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := NewDefault()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayMs <= 0 {
		cfg.RetryDelayMs = 1000
	}
	if cfg.MaxBackupsToKeep <= 0 {
		cfg.MaxBackupsToKeep = 5
	}
	if cfg.SnapshotPrefix == "" {
		cfg.SnapshotPrefix = "backup"
	}

	if expanded, err := util.ExpandPath(cfg.SourceDir); err == nil {
		cfg.SourceDir = expanded
	}
	if expanded, err := util.ExpandPath(cfg.DestinationDir); err == nil {
		cfg.DestinationDir = expanded
	}

	plog.Debug("Configuration loaded", "path", path)
	return cfg, nil
}

// Write marshals the config to path with indentation, for -init.
func (c Config) Write(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration describes a runnable backup.
// A failure here is fatal to the run before any copying starts.
func (c Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("sourceDir is not set")
	}
	if c.DestinationDir == "" {
		return fmt.Errorf("destinationDir is not set")
	}
	if c.Compression.Enabled {
		switch c.Compression.Format {
		case "gzip", "zstd":
		default:
			return fmt.Errorf("unknown compression format %q (expected \"gzip\" or \"zstd\")", c.Compression.Format)
		}
	}
	return nil
}

// RetryDelay returns the configured base retry delay as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// SnapshotDirName builds the timestamped name of a new snapshot directory.
func (c Config) SnapshotDirName(t time.Time) string {
	return c.SnapshotPrefix + "_" + t.Format(snapshotTimestampLayout)
}

// SnapshotDir builds the absolute path of a new snapshot under the
// destination root.
func (c Config) SnapshotDir(t time.Time) string {
	return filepath.Join(c.DestinationDir, c.SnapshotDirName(t))
}

// LogSummary prints the effective configuration at startup.
func (c Config) LogSummary() {
	plog.Info("Configuration",
		"source", c.SourceDir,
		"destination", c.DestinationDir,
		"workers", c.Workers,
		"maxRetries", c.MaxRetries,
		"retryDelay", c.RetryDelay(),
		"maxBackupsToKeep", c.MaxBackupsToKeep,
		"exclusions", len(c.ExclusionPatterns),
		"compression", c.Compression.Enabled,
	)
}
