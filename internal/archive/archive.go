package archive

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skitflow/internal/config"
	"skitflow/internal/logging"
	"skitflow/internal/services"
)

// Archiver relocates produced audio artifacts out of the working directory
// after a successful render, one timestamped batch directory per cycle.
type Archiver struct {
	cfg    *config.Config
	logger *slog.Logger

	// now is swapped in tests for deterministic batch names.
	now func() time.Time
}

// New builds an archiver.
func New(cfg *config.Config, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Archiver{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "archive"),
		now:    time.Now,
	}
}

// SweepAudio moves every WAV artifact from the audio directory into a new
// batch directory under the archive root and returns that directory. An
// empty audio directory yields no batch directory and no error.
func (a *Archiver) SweepAudio() (string, error) {
	entries, err := os.ReadDir(a.cfg.Paths.AudioDir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "archive", "sweep", "read audio directory", err)
	}

	var artifacts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		artifacts = append(artifacts, entry.Name())
	}
	if len(artifacts) == 0 {
		return "", nil
	}

	batchDir := filepath.Join(a.cfg.Paths.ArchiveDir, a.now().Format("20060102_150405"))
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStorage, "archive", "sweep", "create batch directory", err)
	}

	for _, name := range artifacts {
		src := filepath.Join(a.cfg.Paths.AudioDir, name)
		dst := filepath.Join(batchDir, name)
		if err := moveFile(src, dst); err != nil {
			return "", services.Wrap(services.ErrStorage, "archive", "sweep",
				fmt.Sprintf("relocate %s", name), err)
		}
	}

	a.logger.Info("archived audio artifacts",
		logging.Int("count", len(artifacts)),
		logging.String("batch", batchDir))
	return batchDir, nil
}

// moveFile renames when possible and falls back to copy-and-delete for
// cross-device archive directories.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
