package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skitflow/internal/config"
	"skitflow/internal/dialogue"
	"skitflow/internal/services"
	"skitflow/internal/testsupport"
)

type fetchStore struct {
	lines []dialogue.Line
}

func (s *fetchStore) FetchProcessed(context.Context) ([]dialogue.Line, error) {
	return s.lines, nil
}

type fixedProber struct {
	durations map[string]float64
}

func (p fixedProber) Duration(_ context.Context, path string) (float64, error) {
	if d, ok := p.durations[filepath.Base(path)]; ok {
		return d, nil
	}
	return 0, errors.New("unknown artifact")
}

type fixedSearcher struct {
	paths map[string]string
	err   error
}

func (s fixedSearcher) FetchFirst(_ context.Context, query, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if path, ok := s.paths[query]; ok {
		return path, nil
	}
	return "", errors.New("no results")
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func renderFixture(t *testing.T) (*config.Config, *fetchStore, fixedProber) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Render.BaseVideo = filepath.Join(t.TempDir(), "base.mp4")
	touch(t, cfg.Render.BaseVideo)

	store := &fetchStore{lines: []dialogue.Line{
		{ID: 1, Sentence: "Peter: hello there", AudioProcessed: true},
		{ID: 2, Sentence: "Stewie: well well", ImageSearch: "funny dog", AudioProcessed: true},
	}}
	touch(t, filepath.Join(cfg.Paths.AudioDir, "peter_audio_1.wav"))
	touch(t, filepath.Join(cfg.Paths.AudioDir, "stewie_audio_2.wav"))
	touch(t, filepath.Join(cfg.Paths.ImageDir, "peter.png"))
	touch(t, filepath.Join(cfg.Paths.ImageDir, "stewie.png"))

	prober := fixedProber{durations: map[string]float64{
		"peter_audio_1.wav":  3.0,
		"stewie_audio_2.wav": 2.0,
	}}
	return cfg, store, prober
}

func TestExecuteRendersProcessedLines(t *testing.T) {
	cfg, store, prober := renderFixture(t)
	auxPath := filepath.Join(t.TempDir(), "funny_dog.jpg")
	touch(t, auxPath)
	searcher := fixedSearcher{paths: map[string]string{"funny dog": auxPath}}

	handler := NewHandler(cfg, store, prober, searcher, nil)
	var gotArgs []string
	handler.SetRunner(func(_ context.Context, binary string, args []string) error {
		if binary != cfg.Render.FFmpegBinary {
			t.Errorf("unexpected binary %q", binary)
		}
		gotArgs = args
		return nil
	})

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if handler.OutputPath() == "" {
		t.Fatal("expected output path after successful render")
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "peter_audio_1.wav") || !strings.Contains(joined, auxPath) {
		t.Fatalf("expected artifacts in ffmpeg args: %s", joined)
	}
	if !strings.Contains(joined, "-t 6") {
		t.Fatalf("expected total duration 6 in args: %s", joined)
	}
}

func TestExecuteFailsOnMissingAudio(t *testing.T) {
	cfg, store, prober := renderFixture(t)
	if err := os.Remove(filepath.Join(cfg.Paths.AudioDir, "stewie_audio_2.wav")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	handler := NewHandler(cfg, store, prober, nil, nil)
	ran := false
	handler.SetRunner(func(context.Context, string, []string) error {
		ran = true
		return nil
	})

	err := handler.Execute(context.Background())
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
	if ran {
		t.Fatal("ffmpeg must not run when a required artifact is missing")
	}
	if handler.OutputPath() != "" {
		t.Fatal("no output path on failed render")
	}
}

func TestExecuteFailsOnMissingCharacterImage(t *testing.T) {
	cfg, store, prober := renderFixture(t)
	if err := os.Remove(filepath.Join(cfg.Paths.ImageDir, "peter.png")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	handler := NewHandler(cfg, store, prober, nil, nil)
	handler.SetRunner(func(context.Context, string, []string) error { return nil })

	if err := handler.Execute(context.Background()); !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestExecuteAuxiliaryFailureIsNotFatal(t *testing.T) {
	cfg, store, prober := renderFixture(t)
	searcher := fixedSearcher{err: errors.New("search is down")}

	handler := NewHandler(cfg, store, prober, searcher, nil)
	handler.SetRunner(func(context.Context, string, []string) error { return nil })

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("auxiliary lookup failure must not fail the render: %v", err)
	}
}

func TestExecuteFailsWithNoProcessedLines(t *testing.T) {
	cfg, _, prober := renderFixture(t)
	handler := NewHandler(cfg, &fetchStore{}, prober, nil, nil)
	handler.SetRunner(func(context.Context, string, []string) error { return nil })

	if err := handler.Execute(context.Background()); !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error for empty batch, got %v", err)
	}
}

func TestExplicitImageReferenceWins(t *testing.T) {
	cfg, store, prober := renderFixture(t)
	store.lines[0].Image = "custom_peter.png"
	touch(t, filepath.Join(cfg.Paths.ImageDir, "custom_peter.png"))

	handler := NewHandler(cfg, store, prober, nil, nil)
	var joined string
	handler.SetRunner(func(_ context.Context, _ string, args []string) error {
		joined = strings.Join(args, " ")
		return nil
	})

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(joined, "custom_peter.png") {
		t.Fatalf("expected explicit image reference in args: %s", joined)
	}
}
