// Package synthesis drives the text-to-speech stage: it pulls the eligible
// batch from the dialogue store, synthesizes one audio artifact per line,
// and records every attempt against the line's retry budget.
package synthesis
