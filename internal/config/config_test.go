package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"skitflow/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.PollWindowMinutes != 15 {
		t.Fatalf("expected default poll window, got %d", cfg.Telegram.PollWindowMinutes)
	}
	if cfg.Render.LeadInSeconds != 10.0 {
		t.Fatalf("expected default lead-in, got %v", cfg.Render.LeadInSeconds)
	}
}

func TestLoadParsesFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + dir + `/data"
audio_dir = "` + dir + `/audio"
log_dir = "` + dir + `/logs"

[telegram]
bot_token = "from-file"
chat_id = "123"

[synthesis]
default_voice = "en-lessac"

[synthesis.voices]
Peter = "en-bryce"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "123" {
		t.Fatalf("expected chat id from file, got %q", cfg.Telegram.ChatID)
	}
	if cfg.Synthesis.Voices["Peter"] != "en-bryce" {
		t.Fatalf("expected voice mapping, got %#v", cfg.Synthesis.Voices)
	}
	if cfg.Synthesis.DefaultVoice != "en-lessac" {
		t.Fatalf("expected default voice from file, got %q", cfg.Synthesis.DefaultVoice)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero poll interval")
	}
}

func TestRequireTelegram(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireTelegram(); err == nil {
		t.Fatal("expected error without credentials")
	}
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "42"
	if err := cfg.RequireTelegram(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.ImageDir = filepath.Join(base, "images")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archives")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.AudioDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}
