package main

import (
	"os"
	"path/filepath"
	"testing"
)

// Test 1: A config in the directory itself is found and parsed.
func TestLoadConfig_SameDirectory(t *testing.T) {
	dir := t.TempDir()
	content := "context_tolerance = 2\nignore_whitespace = true\nsandbox = true\n"
	if err := os.WriteFile(filepath.Join(dir, configName), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.ContextTolerance == nil || *cfg.ContextTolerance != 2 {
		t.Errorf("context_tolerance = %v", cfg.ContextTolerance)
	}
	if cfg.IgnoreWhitespace == nil || !*cfg.IgnoreWhitespace {
		t.Errorf("ignore_whitespace = %v", cfg.IgnoreWhitespace)
	}
	if cfg.Sandbox == nil || !*cfg.Sandbox {
		t.Errorf("sandbox = %v", cfg.Sandbox)
	}
}

// Test 2: The lookup walks upward to a parent directory.
func TestLoadConfig_WalksUpward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, configName), []byte("snapshot_dir = \"/tmp/blobs\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(sub)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.SnapshotDir == nil || *cfg.SnapshotDir != "/tmp/blobs" {
		t.Errorf("snapshot_dir = %v", cfg.SnapshotDir)
	}
}

// Test 3: No config anywhere yields an empty config, not an error.
func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.ContextTolerance != nil || cfg.IgnoreWhitespace != nil || cfg.Sandbox != nil || cfg.SnapshotDir != nil {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}
