package synthesis

import (
	"errors"
	"strings"
	"testing"

	"skitflow/internal/services"
)

func TestParseLine(t *testing.T) {
	speaker, utterance, err := ParseLine("Peter: you gotta hear this")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if speaker != "Peter" || utterance != "you gotta hear this" {
		t.Fatalf("unexpected parse: speaker=%q utterance=%q", speaker, utterance)
	}
}

func TestParseLineKeepsLaterColons(t *testing.T) {
	_, utterance, err := ParseLine("Stewie: the ratio is 2:1")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if utterance != "the ratio is 2:1" {
		t.Fatalf("unexpected utterance %q", utterance)
	}
}

func TestParseLineRejectsMalformed(t *testing.T) {
	cases := []string{
		"no separator at all",
		": missing speaker",
		"Peter:   ",
		"Peter: " + strings.Repeat("a", 101),
	}
	for _, sentence := range cases {
		if _, _, err := ParseLine(sentence); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", sentence, err)
		}
	}
}

func TestParseLineAcceptsCeilingLengthUtterance(t *testing.T) {
	if _, _, err := ParseLine("Peter: " + strings.Repeat("a", 100)); err != nil {
		t.Fatalf("expected 100-character utterance to pass, got %v", err)
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("Peter", 12); got != "peter_audio_12.wav" {
		t.Fatalf("unexpected artifact name %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	for input, want := range map[string]string{
		"peter":  "Peter",
		"STEWIE": "Stewie",
		" brian": "Brian",
	} {
		if got := DisplayName(input); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}
