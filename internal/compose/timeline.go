package compose

import (
	"fmt"
	"strings"

	"skitflow/internal/services"
)

// lineGapSeconds separates consecutive lines' audio on the timeline.
const lineGapSeconds = 0.5

// SegmentKind identifies what a timeline segment places.
type SegmentKind int

const (
	KindAudio SegmentKind = iota
	KindCharacterImage
	KindAuxiliaryImage
	KindCaptionWord
)

func (k SegmentKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindCharacterImage:
		return "character-image"
	case KindAuxiliaryImage:
		return "auxiliary-image"
	case KindCaptionWord:
		return "caption-word"
	default:
		return "unknown"
	}
}

// Side is the horizontal placement of a character image.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Segment is one timed placement on the render timeline. Segments exist
// only for the duration of one render and are never persisted.
type Segment struct {
	Kind     SegmentKind
	Start    float64
	Duration float64
	// Path locates the media file for audio and image segments.
	Path string
	// Word holds the caption text for caption segments.
	Word string
	Side Side

	LineID  int64
	Speaker string
}

// End returns the segment's exclusive end offset.
func (s Segment) End() float64 { return s.Start + s.Duration }

// Material bundles one processed line with its resolved artifacts.
// AuxiliaryImage is optional; everything else is required.
type Material struct {
	LineID         int64
	Speaker        string
	Utterance      string
	AudioPath      string
	AudioDuration  float64
	CharacterImage string
	AuxiliaryImage string
}

// Timeline is the full layout for one render.
type Timeline struct {
	Segments []Segment
	// Total is the final cursor value: sum of all audio durations plus
	// one gap per line.
	Total float64
}

// BuildTimeline lays out materials in order with a single forward pass.
// Each line contributes an audio segment at the cursor, a character image
// for the same window, one caption segment per word dividing the audio
// duration into equal sub-intervals, and optionally an auxiliary image.
// The last word absorbs the float remainder so word durations sum exactly
// to the audio duration.
func BuildTimeline(materials []Material) (Timeline, error) {
	var timeline Timeline
	sides := map[string]Side{}
	cursor := 0.0

	for _, m := range materials {
		if m.AudioPath == "" || m.AudioDuration <= 0 {
			return Timeline{}, services.Wrap(services.ErrRender, "compose", "timeline",
				fmt.Sprintf("line %d has no usable audio artifact", m.LineID), nil)
		}
		if m.CharacterImage == "" {
			return Timeline{}, services.Wrap(services.ErrRender, "compose", "timeline",
				fmt.Sprintf("line %d has no character image", m.LineID), nil)
		}
		words := strings.Fields(m.Utterance)
		if len(words) == 0 {
			return Timeline{}, services.Wrap(services.ErrRender, "compose", "timeline",
				fmt.Sprintf("line %d has no caption words", m.LineID), nil)
		}

		d := m.AudioDuration
		timeline.Segments = append(timeline.Segments, Segment{
			Kind:     KindAudio,
			Start:    cursor,
			Duration: d,
			Path:     m.AudioPath,
			LineID:   m.LineID,
			Speaker:  m.Speaker,
		})
		timeline.Segments = append(timeline.Segments, Segment{
			Kind:     KindCharacterImage,
			Start:    cursor,
			Duration: d,
			Path:     m.CharacterImage,
			Side:     sideFor(sides, m.Speaker),
			LineID:   m.LineID,
			Speaker:  m.Speaker,
		})
		if m.AuxiliaryImage != "" {
			timeline.Segments = append(timeline.Segments, Segment{
				Kind:     KindAuxiliaryImage,
				Start:    cursor,
				Duration: d,
				Path:     m.AuxiliaryImage,
				LineID:   m.LineID,
				Speaker:  m.Speaker,
			})
		}

		per := d / float64(len(words))
		for i, word := range words {
			start := cursor + per*float64(i)
			duration := per
			if i == len(words)-1 {
				duration = cursor + d - start
			}
			timeline.Segments = append(timeline.Segments, Segment{
				Kind:     KindCaptionWord,
				Start:    start,
				Duration: duration,
				Word:     word,
				LineID:   m.LineID,
				Speaker:  m.Speaker,
			})
		}

		cursor += d + lineGapSeconds
	}

	timeline.Total = cursor
	return timeline, nil
}

// sideFor assigns left/right by order of first appearance, so a speaker's
// side is stable across every line they have in the batch.
func sideFor(sides map[string]Side, speaker string) Side {
	key := strings.ToLower(speaker)
	if side, ok := sides[key]; ok {
		return side
	}
	side := Side(len(sides) % 2)
	sides[key] = side
	return side
}
