package dialogue_test

import (
	"context"
	"errors"
	"testing"

	"skitflow/internal/dialogue"
	"skitflow/internal/testsupport"
)

func TestClassifyEmptyStore(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	snap, err := store.Classify(context.Background())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StageEmpty {
		t.Fatalf("expected empty stage, got %s", snap.Stage)
	}
	if len(snap.Eligible) != 0 {
		t.Fatalf("expected no eligible lines, got %d", len(snap.Eligible))
	}
}

func TestInsertBatchThenClassifyReturnsCappedOrderedBatch(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedLines(t, store, 5)

	snap, err := store.Classify(context.Background())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StagePending {
		t.Fatalf("expected pending stage, got %s", snap.Stage)
	}
	if len(snap.Eligible) != 3 {
		t.Fatalf("expected 3 eligible lines, got %d", len(snap.Eligible))
	}
	for i, line := range snap.Eligible {
		if line.ID != int64(i+1) {
			t.Fatalf("expected ascending identities starting at 1, got %d at index %d", line.ID, i)
		}
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedLines(t, store, 4)

	ctx := context.Background()
	first, err := store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	second, err := store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if first.Stage != second.Stage {
		t.Fatalf("stage changed between calls: %s vs %s", first.Stage, second.Stage)
	}
	if len(first.Eligible) != len(second.Eligible) {
		t.Fatalf("eligible set changed between calls")
	}
	for i := range first.Eligible {
		if first.Eligible[i].ID != second.Eligible[i].ID {
			t.Fatalf("eligible ordering changed between calls")
		}
	}
}

func TestMarkAttemptSuccessIncrementsRetryCount(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.InsertBatch(ctx, []dialogue.LineInput{
		{Sentence: "Peter: hi", Character: "Peter"},
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	if err := store.MarkAttempt(ctx, 1, true); err != nil {
		t.Fatalf("MarkAttempt: %v", err)
	}

	line, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !line.AudioProcessed {
		t.Fatal("expected line marked processed")
	}
	if line.RetryCount != 1 {
		t.Fatalf("expected retry count 1 after successful attempt, got %d", line.RetryCount)
	}
}

func TestMarkAttemptUnknownIdentity(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	err := store.MarkAttempt(context.Background(), 99, false)
	if !errors.Is(err, dialogue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetryExhaustionPermanentlyExcludesLine(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.InsertBatch(ctx, []dialogue.LineInput{
		{Sentence: "Peter: doomed line", Character: "Peter"},
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	for i := 0; i < dialogue.MaxRetries; i++ {
		if err := store.MarkAttempt(ctx, 1, false); err != nil {
			t.Fatalf("MarkAttempt %d: %v", i, err)
		}
	}

	snap, err := store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StageReady {
		t.Fatalf("expected ready stage after exhaustion, got %s", snap.Stage)
	}

	lines, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected exhausted line to remain visible, got %d lines", len(lines))
	}
	if lines[0].AudioProcessed {
		t.Fatal("exhausted line must remain unprocessed")
	}
	if !lines[0].Exhausted() {
		t.Fatal("expected line to report exhausted")
	}

	processed, err := store.FetchProcessed(ctx)
	if err != nil {
		t.Fatalf("FetchProcessed: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("exhausted line must not appear processed, got %d", len(processed))
	}
}

func TestFetchProcessedOrdering(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.SeedLines(t, store, 3)

	// Mark out of order; fetch must still come back in identity order.
	for _, id := range []int64{3, 1, 2} {
		if err := store.MarkAttempt(ctx, id, true); err != nil {
			t.Fatalf("MarkAttempt %d: %v", id, err)
		}
	}

	processed, err := store.FetchProcessed(ctx)
	if err != nil {
		t.Fatalf("FetchProcessed: %v", err)
	}
	if len(processed) != 3 {
		t.Fatalf("expected 3 processed lines, got %d", len(processed))
	}
	for i, line := range processed {
		if line.ID != int64(i+1) {
			t.Fatalf("expected identity order, got %d at index %d", line.ID, i)
		}
	}
}

func TestFullCycleScenario(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	snap, err := store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StageEmpty {
		t.Fatalf("expected empty stage, got %s", snap.Stage)
	}

	testsupport.SeedLines(t, store, 5)

	snap, err = store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StagePending || len(snap.Eligible) != 3 {
		t.Fatalf("expected pending with 3 lines, got %s with %d", snap.Stage, len(snap.Eligible))
	}
	if snap.Eligible[0].ID != 1 || snap.Eligible[2].ID != 3 {
		t.Fatalf("expected lines 1-3, got %d-%d", snap.Eligible[0].ID, snap.Eligible[2].ID)
	}

	for id := int64(1); id <= 3; id++ {
		if err := store.MarkAttempt(ctx, id, true); err != nil {
			t.Fatalf("MarkAttempt %d: %v", id, err)
		}
	}

	snap, err = store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StagePending || len(snap.Eligible) != 2 {
		t.Fatalf("expected pending with 2 lines, got %s with %d", snap.Stage, len(snap.Eligible))
	}
	if snap.Eligible[0].ID != 4 || snap.Eligible[1].ID != 5 {
		t.Fatalf("expected lines 4-5, got %d and %d", snap.Eligible[0].ID, snap.Eligible[1].ID)
	}

	for id := int64(4); id <= 5; id++ {
		if err := store.MarkAttempt(ctx, id, true); err != nil {
			t.Fatalf("MarkAttempt %d: %v", id, err)
		}
	}

	snap, err = store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StageReady {
		t.Fatalf("expected ready stage, got %s", snap.Stage)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	snap, err = store.Classify(ctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if snap.Stage != dialogue.StageEmpty {
		t.Fatalf("expected empty stage after reset, got %s", snap.Stage)
	}

	// Identity counter restarts at 1 for the next cycle.
	if _, err := store.InsertBatch(ctx, []dialogue.LineInput{
		{Sentence: "Stewie: fresh start", Character: "Stewie"},
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	line, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID after reset: %v", err)
	}
	if line.Sentence != "Stewie: fresh start" {
		t.Fatalf("unexpected line after reset: %#v", line)
	}
}

func TestStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.SeedLines(t, store, 3)

	if err := store.MarkAttempt(ctx, 1, true); err != nil {
		t.Fatalf("MarkAttempt: %v", err)
	}
	for i := 0; i < dialogue.MaxRetries; i++ {
		if err := store.MarkAttempt(ctx, 2, false); err != nil {
			t.Fatalf("MarkAttempt: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Processed != 1 || stats.Eligible != 1 || stats.Exhausted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestInsertBatchPreservesExplicitFlags(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	count, err := store.InsertBatch(ctx, []dialogue.LineInput{
		{Sentence: "Peter: already done", Character: "Peter", AudioProcessed: true, RetryCount: 2},
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 inserted, got %d", count)
	}

	line, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !line.AudioProcessed || line.RetryCount != 2 {
		t.Fatalf("explicit flags not preserved: %#v", line)
	}
}

func TestCheckHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedLines(t, store, 2)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %+v", health)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalLines != 2 {
		t.Fatalf("expected 2 lines, got %d", health.TotalLines)
	}
}
