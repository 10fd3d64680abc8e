// Package logging wires log/slog with the console and JSON handlers used
// across the pipeline, plus attr helpers and context-derived fields.
package logging
