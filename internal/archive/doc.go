// Package archive relocates rendered cycles' audio artifacts into
// timestamped batch directories so the next cycle starts clean.
package archive
