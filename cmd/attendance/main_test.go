package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bhaskarRao-22/attendance-sync/internal/config"
)

func TestValidatePort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		if err := validatePort(port); err == nil {
			t.Fatalf("expected error for port %d", port)
		}
	}
	if err := validatePort(5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInitWritesConfigOnce(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvDBConnection, "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	dsn := "file:" + filepath.Join(dir, "attendance.db")

	if err := run(context.Background(), []string{"-config", cfgPath, "-init", dsn}); err != nil {
		t.Fatalf("init: %v", err)
	}
	got, err := config.LoadDatabaseDSN(cfgPath)
	if err != nil {
		t.Fatalf("LoadDatabaseDSN: %v", err)
	}
	if got != dsn {
		t.Fatalf("expected %q, got %q", dsn, got)
	}

	err = run(context.Background(), []string{"-config", cfgPath, "-init", dsn})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected second init to refuse, got %v", err)
	}
	if err := run(context.Background(), []string{"-config", cfgPath, "-migrate"}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestRunRejectsBadPort(t *testing.T) {
	if err := run(context.Background(), []string{"-port", "0"}); err == nil {
		t.Fatal("expected invalid port error")
	}
}
