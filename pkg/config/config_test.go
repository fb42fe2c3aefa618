package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.MaxBackupsToKeep != 5 {
		t.Errorf("MaxBackupsToKeep = %d, want 5", cfg.MaxBackupsToKeep)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelayMs != 1000 {
		t.Errorf("RetryDelayMs = %d, want 1000", cfg.RetryDelayMs)
	}
	if len(cfg.ExclusionPatterns) == 0 {
		t.Error("expected default exclusion patterns")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected default config to fail validation without paths")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := NewDefault()
	cfg.SourceDir = "/data/source"
	cfg.DestinationDir = "/data/backups"
	cfg.Workers = 2
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SourceDir != "/data/source" {
		t.Errorf("SourceDir = %q", loaded.SourceDir)
	}
	if loaded.Workers != 2 {
		t.Errorf("Workers = %d, want 2", loaded.Workers)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	raw := `{"sourceDir": "/s", "destinationDir": "/d", "workers": 0, "maxRetries": -1}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelayMs != 1000 {
		t.Errorf("RetryDelayMs = %d, want 1000", cfg.RetryDelayMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidateCompressionFormat(t *testing.T) {
	cfg := NewDefault()
	cfg.SourceDir = "/s"
	cfg.DestinationDir = "/d"

	cfg.Compression.Enabled = true
	cfg.Compression.Format = "lzma"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown compression format")
	}

	cfg.Compression.Format = "zstd"
	if err := cfg.Validate(); err != nil {
		t.Errorf("zstd should validate: %v", err)
	}
}

func TestSnapshotDirName(t *testing.T) {
	cfg := NewDefault()
	cfg.SnapshotPrefix = "docker-backup"

	ts := time.Date(2026, 8, 29, 14, 4, 7, 0, time.UTC)
	got := cfg.SnapshotDirName(ts)
	want := "docker-backup_2026-08-29_1404_07"
	if got != want {
		t.Errorf("SnapshotDirName = %q, want %q", got, want)
	}
	if strings.ContainsAny(got, `/\:`) {
		t.Errorf("snapshot name contains path-hostile characters: %q", got)
	}
}
