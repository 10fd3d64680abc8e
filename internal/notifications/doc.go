// Package notifications delivers pipeline lifecycle events to the operator
// chat, degrading to a no-op when no bot credentials are configured.
package notifications
