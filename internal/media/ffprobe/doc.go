// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The render stage probes synthesized audio artifacts and the base video
// for their exact durations before building the composition timeline.
package ffprobe
