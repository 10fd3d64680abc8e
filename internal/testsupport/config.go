package testsupport

import (
	"path/filepath"
	"testing"

	"skitflow/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.ImageDir = filepath.Join(base, "images")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archives")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Synthesis.ModelsDir = filepath.Join(base, "models")
	return &cfg
}
