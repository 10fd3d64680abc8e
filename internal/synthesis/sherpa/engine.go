package sherpa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"skitflow/internal/config"
	"skitflow/internal/services"
	"skitflow/internal/synthesis"
)

// modelInfo describes one VITS voice model on disk.
type modelInfo struct {
	subDir     string
	onnxFile   string
	tokensFile string
	dataDir    string
}

// registry maps voice keys to piper VITS model layouts. Models are expected
// under the configured models directory in their release archive layout.
var registry = map[string]modelInfo{
	"en-amy": {
		subDir:     "vits-piper-en_US-amy-low",
		onnxFile:   "en_US-amy-low.onnx",
		tokensFile: "tokens.txt",
		dataDir:    "espeak-ng-data",
	},
	"en-lessac": {
		subDir:     "vits-piper-en_US-lessac-medium",
		onnxFile:   "en_US-lessac-medium.onnx",
		tokensFile: "tokens.txt",
		dataDir:    "espeak-ng-data",
	},
	"en-bryce": {
		subDir:     "vits-piper-en_US-bryce-medium",
		onnxFile:   "en_US-bryce-medium.onnx",
		tokensFile: "tokens.txt",
		dataDir:    "espeak-ng-data",
	},
	"en-alan": {
		subDir:     "vits-piper-en_GB-alan-medium",
		onnxFile:   "en_GB-alan-medium.onnx",
		tokensFile: "tokens.txt",
		dataDir:    "espeak-ng-data",
	},
}

// Engine synthesizes speech with local sherpa-onnx VITS models, one model
// per configured voice, loaded lazily and cached for the session.
type Engine struct {
	modelsDir    string
	audioDir     string
	defaultVoice string
	voices       map[string]string

	mu     sync.Mutex
	models map[string]*sherpa.OfflineTts
}

// NewEngine builds a session from the synthesis configuration. Speaker
// names map to voice keys through cfg.Synthesis.Voices; unmapped speakers
// fall back to the default voice.
func NewEngine(cfg *config.Config) *Engine {
	voices := make(map[string]string, len(cfg.Synthesis.Voices))
	for speaker, voice := range cfg.Synthesis.Voices {
		voices[strings.ToLower(speaker)] = voice
	}
	return &Engine{
		modelsDir:    cfg.Synthesis.ModelsDir,
		audioDir:     cfg.Paths.AudioDir,
		defaultVoice: cfg.Synthesis.DefaultVoice,
		voices:       voices,
		models:       make(map[string]*sherpa.OfflineTts),
	}
}

// Generate synthesizes one utterance and writes it as a mono 16-bit WAV.
func (e *Engine) Generate(ctx context.Context, req synthesis.Request) (synthesis.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return synthesis.Artifact{}, err
	}

	voice := e.VoiceFor(req.Speaker)
	tts, err := e.loadModel(voice)
	if err != nil {
		return synthesis.Artifact{}, err
	}

	audio := tts.Generate(req.Utterance, 0, 1.0)
	if len(audio.Samples) == 0 {
		return synthesis.Artifact{}, services.Wrap(services.ErrExternalTool, "synthesis", "generate",
			fmt.Sprintf("voice %s produced empty audio", voice), nil)
	}

	path := filepath.Join(e.audioDir, synthesis.ArtifactName(req.Speaker, req.LineID))
	if err := os.WriteFile(path, encodeWav(audio.Samples, audio.SampleRate), 0o644); err != nil {
		return synthesis.Artifact{}, services.Wrap(services.ErrExternalTool, "synthesis", "generate", "write audio artifact", err)
	}
	return synthesis.Artifact{Path: path}, nil
}

// Close releases loaded models.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, tts := range e.models {
		sherpa.DeleteOfflineTts(tts)
		delete(e.models, key)
	}
	return nil
}

// VoiceFor resolves the voice key for a speaker name.
func (e *Engine) VoiceFor(speaker string) string {
	if voice, ok := e.voices[strings.ToLower(strings.TrimSpace(speaker))]; ok {
		return voice
	}
	return e.defaultVoice
}

// CheckModels verifies every configured voice resolves to a known model
// whose files exist under the models directory.
func (e *Engine) CheckModels() error {
	seen := map[string]bool{e.defaultVoice: true}
	for _, voice := range e.voices {
		seen[voice] = true
	}
	for voice := range seen {
		info, ok := registry[voice]
		if !ok {
			return services.Wrap(services.ErrConfiguration, "synthesis", "models",
				fmt.Sprintf("unknown voice %q", voice), nil)
		}
		modelPath := filepath.Join(e.modelsDir, info.subDir, info.onnxFile)
		if _, err := os.Stat(modelPath); err != nil {
			return services.Wrap(services.ErrConfiguration, "synthesis", "models",
				fmt.Sprintf("voice %q model missing at %s", voice, modelPath), err)
		}
	}
	return nil
}

func (e *Engine) loadModel(voice string) (*sherpa.OfflineTts, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tts, ok := e.models[voice]; ok {
		return tts, nil
	}

	info, ok := registry[voice]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "models",
			fmt.Sprintf("unknown voice %q", voice), nil)
	}

	fullDir := filepath.Join(e.modelsDir, info.subDir)
	cfg := sherpa.OfflineTtsConfig{
		Model: sherpa.OfflineTtsModelConfig{
			Vits: sherpa.OfflineTtsVitsModelConfig{
				Model:   filepath.Join(fullDir, info.onnxFile),
				Tokens:  filepath.Join(fullDir, info.tokensFile),
				DataDir: filepath.Join(fullDir, info.dataDir),
			},
			Provider:   "cpu",
			NumThreads: 1,
		},
	}

	tts := sherpa.NewOfflineTts(&cfg)
	if tts == nil {
		return nil, services.Wrap(services.ErrExternalTool, "synthesis", "models",
			fmt.Sprintf("load voice %q from %s", voice, fullDir), nil)
	}
	e.models[voice] = tts
	return tts, nil
}
