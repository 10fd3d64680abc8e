package testsupport

import (
	"context"
	"fmt"
	"testing"

	"skitflow/internal/config"
	"skitflow/internal/dialogue"
)

// MustOpenStore opens a dialogue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *dialogue.Store {
	t.Helper()

	store, err := dialogue.Open(cfg)
	if err != nil {
		t.Fatalf("dialogue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedLines inserts numbered dialogue lines alternating between two speakers.
func SeedLines(t testing.TB, store *dialogue.Store, count int) []dialogue.LineInput {
	t.Helper()

	speakers := []string{"Peter", "Stewie"}
	lines := make([]dialogue.LineInput, 0, count)
	for i := 0; i < count; i++ {
		speaker := speakers[i%len(speakers)]
		lines = append(lines, dialogue.LineInput{
			Sentence:    fmt.Sprintf("%s: test line %d", speaker, i+1),
			Character:   speaker,
			Image:       speaker + ".png",
			ImageSearch: fmt.Sprintf("search term %d", i+1),
		})
	}
	if _, err := store.InsertBatch(context.Background(), lines); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	return lines
}
