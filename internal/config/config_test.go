package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SCOREBOARD_TOKEN", "secret-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  port: "9090"
directory:
  base_url: https://workspace.example.com
  token: ${SCOREBOARD_TOKEN}
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Directory.Token != "secret-token" {
		t.Fatalf("expected env-expanded token, got %q", cfg.Directory.Token)
	}
	if cfg.Workshop.PointsPerQuestion != 10 || cfg.Workshop.MaxQuestions != 10 {
		t.Fatalf("expected workshop defaults, got %+v", cfg.Workshop)
	}
	if cfg.Workshop.UsersTable != "eligible_users" || cfg.Workshop.ResponsesTable != "user_responses" {
		t.Fatalf("expected default table names, got %+v", cfg.Workshop)
	}
	if cfg.Workshop.RefreshInterval != "30s" {
		t.Fatalf("expected default refresh interval, got %q", cfg.Workshop.RefreshInterval)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %v", got)
	}
	if got := TTLDuration("45s", time.Minute); got != 45*time.Second {
		t.Fatalf("expected 45s, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %v", got)
	}
}
