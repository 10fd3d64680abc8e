package synthesis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"skitflow/internal/services"
)

// maxUtteranceLen bounds a single utterance. Longer text degrades VITS
// output badly enough that the line is treated as malformed.
const maxUtteranceLen = 100

// Request is one line of speech to synthesize.
type Request struct {
	LineID    int64
	Speaker   string
	Utterance string
}

// Artifact is the synthesized audio on disk.
type Artifact struct {
	Path string
}

// Session produces speech audio for dialogue lines. Implementations must
// be safe for sequential reuse across a batch; Close releases model state.
type Session interface {
	Generate(ctx context.Context, req Request) (Artifact, error)
	Close() error
}

// ParseLine splits a stored sentence into speaker and utterance. The
// expected shape is "Speaker: utterance text"; anything else is malformed
// and burns one retry without reaching the synthesizer.
func ParseLine(sentence string) (speaker, utterance string, err error) {
	before, after, found := strings.Cut(sentence, ":")
	if !found {
		return "", "", services.Wrap(services.ErrValidation, "synthesis", "parse", "sentence has no speaker separator", nil)
	}
	speaker = strings.TrimSpace(before)
	utterance = strings.TrimSpace(after)
	if speaker == "" {
		return "", "", services.Wrap(services.ErrValidation, "synthesis", "parse", "sentence has empty speaker", nil)
	}
	if utterance == "" {
		return "", "", services.Wrap(services.ErrValidation, "synthesis", "parse", "sentence has empty utterance", nil)
	}
	if len(utterance) > maxUtteranceLen {
		return "", "", services.Wrap(services.ErrValidation, "synthesis", "parse",
			fmt.Sprintf("utterance exceeds %d characters", maxUtteranceLen), nil)
	}
	return speaker, utterance, nil
}

// ArtifactName is the canonical audio filename for a line. The render
// stage reconstructs this name when locating artifacts for processed lines.
func ArtifactName(speaker string, lineID int64) string {
	return fmt.Sprintf("%s_audio_%d.wav", strings.ToLower(speaker), lineID)
}

var speakerCaser = cases.Title(language.English)

// DisplayName renders a speaker name for operator-facing output, so
// "peter" and "PETER" both read as "Peter".
func DisplayName(speaker string) string {
	return speakerCaser.String(strings.ToLower(strings.TrimSpace(speaker)))
}
