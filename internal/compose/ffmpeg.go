package compose

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Overlay layout constants. Character images sit in the lower corners,
// auxiliary images top-center, captions dead center.
const (
	characterHeight = 500
	auxiliaryHeight = 350
	edgeMargin      = 50
	captionFontSize = 95
	outputFrameRate = 24
)

// Runner executes a rendered ffmpeg invocation. The default shells out;
// tests substitute a recorder.
type Runner func(ctx context.Context, binary string, args []string) error

// ExecRunner runs ffmpeg and surfaces its stderr on failure.
func ExecRunner(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(string(output), 2048))
	}
	return nil
}

// BuildArgs translates a timeline into one ffmpeg invocation compositing
// every segment over the base video, starting at the configured lead-in so
// the base video's own opening is skipped.
func BuildArgs(baseVideo string, leadIn float64, timeline Timeline, outputPath string) []string {
	args := []string{
		"-y", "-hide_banner",
		"-ss", formatSeconds(leadIn),
		"-i", baseVideo,
	}

	// Input ordering: base video is input 0, then one input per audio
	// segment, then one per image segment, in timeline order.
	var audioSegments, imageSegments []Segment
	for _, segment := range timeline.Segments {
		switch segment.Kind {
		case KindAudio:
			audioSegments = append(audioSegments, segment)
		case KindCharacterImage, KindAuxiliaryImage:
			imageSegments = append(imageSegments, segment)
		}
	}
	for _, segment := range audioSegments {
		args = append(args, "-i", segment.Path)
	}
	for _, segment := range imageSegments {
		args = append(args, "-i", segment.Path)
	}

	var filters []string

	// Delay each audio segment to its timeline start, then mix.
	mixInputs := make([]string, 0, len(audioSegments))
	for i, segment := range audioSegments {
		label := fmt.Sprintf("a%d", i)
		delayMS := int(segment.Start * 1000)
		filters = append(filters, fmt.Sprintf("[%d:a]adelay=%d|%d[%s]", i+1, delayMS, delayMS, label))
		mixInputs = append(mixInputs, "["+label+"]")
	}
	if len(mixInputs) > 0 {
		filters = append(filters, fmt.Sprintf("%samix=inputs=%d:normalize=0[aout]", strings.Join(mixInputs, ""), len(mixInputs)))
	}

	// Scale and overlay images, each enabled only for its window.
	video := "[0:v]"
	imageInputBase := 1 + len(audioSegments)
	for i, segment := range imageSegments {
		height := characterHeight
		if segment.Kind == KindAuxiliaryImage {
			height = auxiliaryHeight
		}
		scaled := fmt.Sprintf("img%d", i)
		filters = append(filters, fmt.Sprintf("[%d:v]scale=-1:%d[%s]", imageInputBase+i, height, scaled))

		out := fmt.Sprintf("v%d", i)
		filters = append(filters, fmt.Sprintf("%s[%s]overlay=%s:enable='between(t,%s,%s)'[%s]",
			video, scaled, overlayPosition(segment),
			formatSeconds(segment.Start), formatSeconds(segment.End()), out))
		video = "[" + out + "]"
	}

	// Caption words, centered, one drawtext per sub-interval.
	captionIndex := 0
	for _, segment := range timeline.Segments {
		if segment.Kind != KindCaptionWord {
			continue
		}
		out := fmt.Sprintf("t%d", captionIndex)
		filters = append(filters, fmt.Sprintf(
			"%sdrawtext=text='%s':fontsize=%d:fontcolor=yellow:borderw=2:bordercolor=black:x=(w-text_w)/2:y=(h-text_h)/2:enable='between(t,%s,%s)'[%s]",
			video, escapeDrawtext(segment.Word), captionFontSize,
			formatSeconds(segment.Start), formatSeconds(segment.End()), out))
		video = "[" + out + "]"
		captionIndex++
	}

	if len(filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(filters, ";"))
	}
	videoMap := video
	if videoMap == "[0:v]" {
		videoMap = "0:v"
	}
	args = append(args, "-map", videoMap)
	if len(mixInputs) > 0 {
		args = append(args, "-map", "[aout]")
	}
	args = append(args,
		"-t", formatSeconds(timeline.Total),
		"-r", fmt.Sprintf("%d", outputFrameRate),
		"-c:v", "libx264",
		"-c:a", "aac",
		outputPath,
	)
	return args
}

func overlayPosition(segment Segment) string {
	switch segment.Kind {
	case KindAuxiliaryImage:
		return fmt.Sprintf("x=(main_w-overlay_w)/2:y=%d", edgeMargin)
	default:
		if segment.Side == SideRight {
			return fmt.Sprintf("x=main_w-overlay_w-%d:y=main_h-overlay_h-%d", edgeMargin, edgeMargin)
		}
		return fmt.Sprintf("x=%d:y=main_h-overlay_h-%d", edgeMargin, edgeMargin)
	}
}

func formatSeconds(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

// escapeDrawtext neutralizes the characters drawtext treats specially.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
