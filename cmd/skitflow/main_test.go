package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
audio_dir = %q
image_dir = %q
download_dir = %q
archive_dir = %q
output_dir = %q
log_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "audio"),
		filepath.Join(base, "images"),
		filepath.Join(base, "downloads"),
		filepath.Join(base, "archives"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected target path in output, got %q", output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestQueueStatusOnEmptyStore(t *testing.T) {
	cfgPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", cfgPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(output, "Stage: empty") {
		t.Fatalf("expected empty stage, got %q", output)
	}
}

func TestQueueClearRequiresConfirmation(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if _, err := runCommand(t, "--config", cfgPath, "queue", "clear"); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}
	if _, err := runCommand(t, "--config", cfgPath, "queue", "clear", "--yes"); err != nil {
		t.Fatalf("queue clear --yes: %v", err)
	}
}

func TestQueueHealthReportsDatabase(t *testing.T) {
	cfgPath := writeTestConfig(t)

	output, err := runCommand(t, "--config", cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if !strings.Contains(output, "Integrity: ok") {
		t.Fatalf("expected integrity check to pass, got %q", output)
	}
}
