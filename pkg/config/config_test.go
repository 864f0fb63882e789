package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadNoPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DataDir != "./data" {
		t.Fatalf("DataDir = %q, want ./data", cfg.Database.DataDir)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vector.DefaultMetric != "cosine" {
		t.Fatalf("DefaultMetric = %q, want cosine", cfg.Vector.DefaultMetric)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helix.yaml")
	contents := "database:\n  data_dir: /var/lib/helix\n  in_memory: true\nvector:\n  default_metric: euclidean\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DataDir != "/var/lib/helix" {
		t.Fatalf("DataDir = %q, want /var/lib/helix", cfg.Database.DataDir)
	}
	if !cfg.Database.InMemory {
		t.Fatalf("InMemory = false, want true")
	}
	if cfg.Vector.DefaultMetric != "euclidean" {
		t.Fatalf("DefaultMetric = %q, want euclidean", cfg.Vector.DefaultMetric)
	}
	// Fields the file didn't set still come from Default.
	if cfg.Query.MaxRangeLimit != 100_000 {
		t.Fatalf("MaxRangeLimit = %d, want 100000", cfg.Query.MaxRangeLimit)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helix.yaml")
	if err := os.WriteFile(path, []byte("database:\n  data_dir: /from/file\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("HELIX_DATA_DIR", "/from/env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DataDir != "/from/env" {
		t.Fatalf("DataDir = %q, want /from/env (env should win over file)", cfg.Database.DataDir)
	}
}

func TestValidateRejectsBadMetric(t *testing.T) {
	cfg := Default()
	cfg.Vector.DefaultMetric = "manhattan"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want error for unknown metric")
	}
}

func TestValidateRejectsMissingDataDir(t *testing.T) {
	cfg := Default()
	cfg.Database.DataDir = ""
	cfg.Database.InMemory = false
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want error for empty data dir")
	}
}

func TestGCInterval(t *testing.T) {
	cfg := Default()
	cfg.Database.GCIntervalSeconds = 120
	if got := cfg.GCInterval().Seconds(); got != 120 {
		t.Fatalf("GCInterval = %v, want 120s", got)
	}
}
