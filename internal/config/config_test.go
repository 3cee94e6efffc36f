package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		path := writeTempConfig(t, `project: test-project
version: 1

storage:
  backend: sqlite
  dsn: sqlite://loom.db

knowledge:
  path: ./knowledge.yaml

causality:
  significance_threshold: 0.3
  look_back: 10
  retention:
    immediate: 5m
    arc: 24h

coherence:
  causal_threshold: 0.7
  cache_ttl: 5m
`)
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Causality.Retention.Arc.Std() != 24*time.Hour {
			t.Fatalf("expected parsed retention, got %v", cfg.Causality.Retention.Arc)
		}
		if cfg.Coherence.CacheTTL.Std() != 5*time.Minute {
			t.Fatalf("expected parsed cache ttl, got %v", cfg.Coherence.CacheTTL)
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("sqlite defaults applied", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Storage.Backend != "sqlite" || cfg.Storage.DSN == "" {
			t.Fatalf("expected sqlite defaults, got %+v", cfg.Storage)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstorage:\n  backend: mongo\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstorage:\n  backend: postgres\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("threshold out of range", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\ncausality:\n  significance_threshold: 1.5\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("malformed duration", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\ncoherence:\n  cache_ttl: soon\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "storyloom.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
