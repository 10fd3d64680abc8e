// Package workflow coordinates the staged pipeline: classify the dialogue
// store, run the one stage that classification selects, and perform the
// post-render archive and reset that starts the next cycle.
package workflow
