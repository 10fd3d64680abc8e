package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"skitflow/internal/testsupport"
)

func TestSweepAudioMovesArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.AudioDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"peter_audio_1.wav", "stewie_audio_2.wav", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(cfg.Paths.AudioDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	archiver := New(cfg, nil)
	archiver.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	batchDir, err := archiver.SweepAudio()
	if err != nil {
		t.Fatalf("SweepAudio: %v", err)
	}
	if filepath.Base(batchDir) != "20260829_120000" {
		t.Fatalf("unexpected batch directory %q", batchDir)
	}

	for _, name := range []string{"peter_audio_1.wav", "stewie_audio_2.wav"} {
		if _, err := os.Stat(filepath.Join(batchDir, name)); err != nil {
			t.Fatalf("expected %s archived: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.AudioDir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed from audio directory", name)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.AudioDir, "notes.txt")); err != nil {
		t.Fatal("non-WAV files must be left in place")
	}
}

func TestSweepAudioEmptyDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.AudioDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	batchDir, err := New(cfg, nil).SweepAudio()
	if err != nil {
		t.Fatalf("SweepAudio: %v", err)
	}
	if batchDir != "" {
		t.Fatalf("expected no batch directory for empty sweep, got %q", batchDir)
	}
}

func TestSweepAudioMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	batchDir, err := New(cfg, nil).SweepAudio()
	if err != nil {
		t.Fatalf("SweepAudio: %v", err)
	}
	if batchDir != "" {
		t.Fatalf("expected no batch directory, got %q", batchDir)
	}
}
