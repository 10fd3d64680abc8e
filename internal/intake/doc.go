// Package intake seeds the dialogue store from operator chat payloads.
//
// A payload is a message beginning with "from:" followed by a JSON array
// of dialogue records. The whole batch is validated before any line is
// queued; a single bad record rejects the message.
package intake
