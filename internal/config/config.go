package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for pipeline artifacts.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	AudioDir    string `toml:"audio_dir"`
	ImageDir    string `toml:"image_dir"`
	DownloadDir string `toml:"download_dir"`
	ArchiveDir  string `toml:"archive_dir"`
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
}

// Telegram contains configuration for the chat transport used by intake and
// notifications. BotToken and ChatID may also come from the environment
// (TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID), which takes precedence.
type Telegram struct {
	BotToken          string `toml:"bot_token"`
	ChatID            string `toml:"chat_id"`
	RequestTimeout    int    `toml:"request_timeout"`
	PollWindowMinutes int    `toml:"poll_window_minutes"`
	PollInterval      int    `toml:"poll_interval"`
}

// Synthesis contains configuration for the local voice-synthesis session.
type Synthesis struct {
	ModelsDir    string            `toml:"models_dir"`
	DefaultVoice string            `toml:"default_voice"`
	Voices       map[string]string `toml:"voices"`
}

// Render contains configuration for the compositor.
type Render struct {
	BaseVideo     string  `toml:"base_video"`
	LeadInSeconds float64 `toml:"lead_in_seconds"`
	FFmpegBinary  string  `toml:"ffmpeg_binary"`
	FFprobeBinary string  `toml:"ffprobe_binary"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Telegram  Telegram  `toml:"telegram"`
	Synthesis Synthesis `toml:"synthesis"`
	Render    Render    `toml:"render"`
	Logging   Logging   `toml:"logging"`
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return expandHome("~/.config/skitflow/config.toml")
}

// Load reads the TOML config at path, layered over defaults and the
// environment. A missing file is not an error: defaults plus environment
// overrides are returned so that `skitflow config init` can bootstrap.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultPath()
	}
	resolved = expandHome(resolved)

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = expandHome(strings.TrimSpace(path))
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates every configured artifact directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.AudioDir,
		c.Paths.ImageDir,
		c.Paths.DownloadDir,
		c.Paths.ArchiveDir,
		c.Paths.OutputDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the dialogue store location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "dialogue.db")
}

// CursorPath returns the intake update-id cursor location.
func (c *Config) CursorPath() string {
	return filepath.Join(c.Paths.DataDir, "last_update_id")
}

// LockPath returns the run-lock location shared by all invocations.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "skitflow.lock")
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")); v != "" {
		c.Telegram.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		c.Telegram.ChatID = v
	}
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.AudioDir = expandHome(c.Paths.AudioDir)
	c.Paths.ImageDir = expandHome(c.Paths.ImageDir)
	c.Paths.DownloadDir = expandHome(c.Paths.DownloadDir)
	c.Paths.ArchiveDir = expandHome(c.Paths.ArchiveDir)
	c.Paths.OutputDir = expandHome(c.Paths.OutputDir)
	c.Paths.LogDir = expandHome(c.Paths.LogDir)
	c.Synthesis.ModelsDir = expandHome(c.Synthesis.ModelsDir)
	c.Render.BaseVideo = expandHome(c.Render.BaseVideo)
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
