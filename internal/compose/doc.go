// Package compose builds the render timeline from processed dialogue lines
// and drives ffmpeg to produce the final video over the base footage.
package compose
