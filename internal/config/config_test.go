package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
grid:
  start_hour: 8
  end_hour: 18
  cell_duration_minutes: 15
database:
  path: `+filepath.Join(t.TempDir(), "gantt.db")+`
http:
  port: 9090
redis:
  address: localhost:6379
  cache_ttl_seconds: 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.GridStartHour() != 8 || cfg.GridEndHour() != 18 {
		t.Errorf("unexpected grid bounds %d-%d", cfg.GridStartHour(), cfg.GridEndHour())
	}
	if cfg.CellDuration() != 15 {
		t.Errorf("expected cell duration 15, got %d", cfg.CellDuration())
	}
	if cfg.HTTPPort() != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort())
	}
	if cfg.CacheTTL() != 30*time.Second {
		t.Errorf("expected 30s TTL, got %v", cfg.CacheTTL())
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  path: "+filepath.Join(t.TempDir(), "gantt.db")+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.GridStartHour() != 6 || cfg.GridEndHour() != 23 {
		t.Errorf("unexpected default grid bounds %d-%d", cfg.GridStartHour(), cfg.GridEndHour())
	}
	if cfg.CellDuration() != 5 {
		t.Errorf("expected default cell duration 5, got %d", cfg.CellDuration())
	}
	if cfg.DefaultSlotMinutes() != 20 {
		t.Errorf("expected default slot minutes 20, got %d", cfg.DefaultSlotMinutes())
	}
	perSec, burst := cfg.RateLimit()
	if perSec != 20 || burst != 40 {
		t.Errorf("unexpected default rate limit %d/%d", perSec, burst)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("GANTT_DB_PATH", filepath.Join(t.TempDir(), "env.db"))
	path := writeConfig(t, "database:\n  path: ${GANTT_DB_PATH}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path == "${GANTT_DB_PATH}" || cfg.Database.Path == "" {
		t.Errorf("env placeholder not expanded: %q", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
