package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorage marks failures of the durable dialogue store. Write-path
	// storage errors are always surfaced, never swallowed.
	ErrStorage = errors.New("storage error")
	// ErrNotFound marks updates referencing an unknown identity.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks failures of external capabilities (voice
	// synthesis, ffmpeg, image search).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed input rejected at a boundary.
	ErrValidation = errors.New("validation error")
	// ErrRender marks a fatal composition failure; the store must not be
	// reset on this path so the same materials can be retried.
	ErrRender = errors.New("render failure")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error must abort the current pass rather than be
// absorbed by per-line retry accounting.
func Fatal(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRender) ||
		errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
