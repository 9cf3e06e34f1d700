package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Storage.History {
		t.Error("history should default to true")
	}
	if cfg.Exec.Timeout != "30s" {
		t.Errorf("timeout = %q, want 30s", cfg.Exec.Timeout)
	}
	if cfg.Exec.MaxOutput != 64*1024 {
		t.Errorf("max_output = %d", cfg.Exec.MaxOutput)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
server:
  port: 9999
storage:
  history: false
exec:
  timeout: 5s
  max_output: 1024
`
	if err := os.WriteFile(filepath.Join(dir, "plotbox.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Storage.History {
		t.Error("history should be false")
	}
	if cfg.Exec.Timeout != "5s" {
		t.Errorf("timeout = %q", cfg.Exec.Timeout)
	}
}

func TestPolicyOverrides(t *testing.T) {
	cfg := &Config{
		Exec: ExecConfig{Timeout: "2s", MaxOutput: 512},
	}

	pol, err := cfg.Policy()
	if err != nil {
		t.Fatalf("Policy: %v", err)
	}
	if pol.MaxTimeout != 2*time.Second {
		t.Errorf("MaxTimeout = %v, want 2s", pol.MaxTimeout)
	}
	if pol.MaxOutput != 512 {
		t.Errorf("MaxOutput = %d, want 512", pol.MaxOutput)
	}
	if !pol.IsModuleAllowed("numeric") {
		t.Error("stock modules should survive overrides")
	}
}

func TestPolicyBadTimeout(t *testing.T) {
	cfg := &Config{Exec: ExecConfig{Timeout: "never"}}
	if _, err := cfg.Policy(); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestPolicyMissingProfile(t *testing.T) {
	cfg := &Config{Exec: ExecConfig{Profile: "/does/not/exist.yaml"}}
	if _, err := cfg.Policy(); err == nil {
		t.Error("expected error for missing profile")
	}
}
