// Package dialogue persists the dialogue work queue in SQLite and derives
// the pipeline stage from its contents.
package dialogue
