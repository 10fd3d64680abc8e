// Package services holds cross-cutting helpers shared by pipeline stages:
// sentinel error markers used for failure classification and context
// annotation for structured logging.
package services
