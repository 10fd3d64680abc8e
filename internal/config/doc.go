// Package config loads and validates the TOML configuration for the
// pipeline, layering environment overrides for chat credentials.
package config
