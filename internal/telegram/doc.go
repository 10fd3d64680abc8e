// Package telegram implements the chat transport used by intake polling
// and operator notifications.
package telegram
