package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skitflow/internal/config"
	"skitflow/internal/dialogue"
	"skitflow/internal/logging"
	"skitflow/internal/media/ffprobe"
	"skitflow/internal/services"
	"skitflow/internal/stage"
	"skitflow/internal/synthesis"
)

// Store is the slice of the dialogue store the render stage reads.
type Store interface {
	FetchProcessed(ctx context.Context) ([]dialogue.Line, error)
}

// Prober measures media durations. The default wraps ffprobe.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Searcher resolves an auxiliary image for a search term, best effort.
type Searcher interface {
	FetchFirst(ctx context.Context, query, destDir string) (string, error)
}

// Handler renders the final video from all processed lines.
type Handler struct {
	cfg      *config.Config
	store    Store
	prober   Prober
	searcher Searcher
	runner   Runner
	logger   *slog.Logger

	outputPath string
}

// NewHandler wires the render stage. searcher may be nil to disable
// auxiliary image lookups entirely.
func NewHandler(cfg *config.Config, store Store, prober Prober, searcher Searcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		prober:   prober,
		searcher: searcher,
		runner:   ExecRunner,
		logger:   logging.NewComponentLogger(logger, "render"),
	}
}

// SetRunner substitutes the ffmpeg runner; tests use this.
func (h *Handler) SetRunner(runner Runner) { h.runner = runner }

func (h *Handler) Name() string { return "render" }

// OutputPath returns the artifact path from the most recent successful
// Execute.
func (h *Handler) OutputPath() string { return h.outputPath }

// Prepare verifies the base video exists and the output directory is
// writable.
func (h *Handler) Prepare(_ context.Context) error {
	if h.cfg.Render.BaseVideo == "" {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "no base video configured", nil)
	}
	if _, err := os.Stat(h.cfg.Render.BaseVideo); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "base video not found", err)
	}
	if err := os.MkdirAll(h.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "create output directory", err)
	}
	return nil
}

// Execute gathers materials for every processed line, builds the timeline,
// and runs the render. Any missing required artifact aborts before ffmpeg
// starts so no partial video is produced.
func (h *Handler) Execute(ctx context.Context) error {
	h.outputPath = ""

	lines, err := h.store.FetchProcessed(ctx)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return services.Wrap(services.ErrRender, "render", "gather", "no processed lines to render", nil)
	}

	materials := make([]Material, 0, len(lines))
	for _, line := range lines {
		material, err := h.gather(ctx, line)
		if err != nil {
			return err
		}
		materials = append(materials, material)
	}

	timeline, err := BuildTimeline(materials)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(h.cfg.Paths.OutputDir,
		fmt.Sprintf("skit_%s.mp4", time.Now().Format("20060102_150405")))
	args := BuildArgs(h.cfg.Render.BaseVideo, h.cfg.Render.LeadInSeconds, timeline, outputPath)

	h.logger.Info("rendering",
		logging.Int("lines", len(lines)),
		logging.Int("segments", len(timeline.Segments)),
		logging.Float64("total_seconds", timeline.Total))

	if err := h.runner(ctx, h.cfg.Render.FFmpegBinary, args); err != nil {
		return services.Wrap(services.ErrRender, "render", "encode", "ffmpeg invocation failed", err)
	}

	h.outputPath = outputPath
	h.logger.Info("render complete", logging.String("output", outputPath))
	return nil
}

// HealthCheck reports render tool configuration status.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if h.cfg.Render.BaseVideo == "" {
		return stage.Unhealthy("render", "no base video configured")
	}
	if _, err := os.Stat(h.cfg.Render.BaseVideo); err != nil {
		return stage.Unhealthy("render", "base video not found")
	}
	return stage.Healthy("render")
}

// gather resolves one line's artifacts. Audio and character image are
// required; the auxiliary image is best effort.
func (h *Handler) gather(ctx context.Context, line dialogue.Line) (Material, error) {
	ctx = services.WithLineID(ctx, line.ID)
	logger := logging.WithContext(ctx, h.logger)

	speaker, utterance, err := synthesis.ParseLine(line.Sentence)
	if err != nil {
		return Material{}, services.Wrap(services.ErrRender, "render", "gather",
			fmt.Sprintf("processed line %d is unparseable", line.ID), err)
	}

	audioPath := filepath.Join(h.cfg.Paths.AudioDir, synthesis.ArtifactName(speaker, line.ID))
	if _, err := os.Stat(audioPath); err != nil {
		return Material{}, services.Wrap(services.ErrRender, "render", "gather",
			fmt.Sprintf("audio artifact missing for line %d", line.ID), err)
	}
	duration, err := h.prober.Duration(ctx, audioPath)
	if err != nil {
		return Material{}, services.Wrap(services.ErrRender, "render", "gather",
			fmt.Sprintf("probe audio for line %d", line.ID), err)
	}
	if duration <= 0 {
		return Material{}, services.Wrap(services.ErrRender, "render", "gather",
			fmt.Sprintf("audio for line %d has zero duration", line.ID), nil)
	}

	imagePath, err := h.characterImage(line, speaker)
	if err != nil {
		return Material{}, err
	}

	material := Material{
		LineID:         line.ID,
		Speaker:        speaker,
		Utterance:      utterance,
		AudioPath:      audioPath,
		AudioDuration:  duration,
		CharacterImage: imagePath,
	}

	if h.searcher != nil && line.ImageSearch != "" {
		auxPath, err := h.searcher.FetchFirst(ctx, line.ImageSearch, h.cfg.Paths.DownloadDir)
		if err != nil {
			logger.Warn("auxiliary image lookup failed",
				logging.String("query", line.ImageSearch),
				logging.Error(err))
		} else {
			material.AuxiliaryImage = auxPath
		}
	}
	return material, nil
}

// characterImage resolves the required character artwork: the line's own
// image reference when present, otherwise <speaker>.png in the image
// directory.
func (h *Handler) characterImage(line dialogue.Line, speaker string) (string, error) {
	name := line.Image
	if name == "" {
		name = strings.ToLower(speaker) + ".png"
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.cfg.Paths.ImageDir, name)
	}
	if _, err := os.Stat(path); err != nil {
		return "", services.Wrap(services.ErrRender, "render", "gather",
			fmt.Sprintf("character image missing for line %d (%s)", line.ID, path), err)
	}
	return path, nil
}

// FFprobeProber adapts the ffprobe wrapper to the Prober interface.
type FFprobeProber struct {
	Binary string
}

// Duration probes one media file for its duration in seconds.
func (p FFprobeProber) Duration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, p.Binary, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}
