package synthesis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"skitflow/internal/dialogue"
	"skitflow/internal/testsupport"
)

type fakeStore struct {
	snapshot dialogue.Snapshot
	attempts map[int64]bool
}

func (s *fakeStore) Classify(context.Context) (dialogue.Snapshot, error) {
	return s.snapshot, nil
}

func (s *fakeStore) MarkAttempt(_ context.Context, id int64, succeeded bool) error {
	if s.attempts == nil {
		s.attempts = make(map[int64]bool)
	}
	if _, dup := s.attempts[id]; dup {
		return fmt.Errorf("line %d marked twice", id)
	}
	s.attempts[id] = succeeded
	return nil
}

type fakeSession struct {
	failFor  map[int64]bool
	requests []Request
}

func (s *fakeSession) Generate(_ context.Context, req Request) (Artifact, error) {
	s.requests = append(s.requests, req)
	if s.failFor[req.LineID] {
		return Artifact{}, errors.New("synthesizer crashed")
	}
	return Artifact{Path: ArtifactName(req.Speaker, req.LineID)}, nil
}

func (s *fakeSession) Close() error { return nil }

func pendingSnapshot(lines ...dialogue.Line) dialogue.Snapshot {
	return dialogue.Snapshot{Stage: dialogue.StagePending, Eligible: lines}
}

func TestExecuteMarksEveryLineOnce(t *testing.T) {
	store := &fakeStore{snapshot: pendingSnapshot(
		dialogue.Line{ID: 1, Sentence: "Peter: first line"},
		dialogue.Line{ID: 2, Sentence: "Stewie: second line"},
	)}
	session := &fakeSession{}
	handler := NewHandler(testsupport.NewConfig(t), store, session, nil)

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(store.attempts) != 2 || !store.attempts[1] || !store.attempts[2] {
		t.Fatalf("expected both lines marked successful, got %v", store.attempts)
	}
	outcome := handler.Outcome()
	if outcome.Attempted != 2 || outcome.Processed != 2 || outcome.Failed != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestExecuteIsolatesFailures(t *testing.T) {
	store := &fakeStore{snapshot: pendingSnapshot(
		dialogue.Line{ID: 1, Sentence: "Peter: works fine"},
		dialogue.Line{ID: 2, Sentence: "Stewie: breaks the synthesizer"},
		dialogue.Line{ID: 3, Sentence: "Peter: still runs"},
	)}
	session := &fakeSession{failFor: map[int64]bool{2: true}}
	handler := NewHandler(testsupport.NewConfig(t), store, session, nil)

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !store.attempts[1] || store.attempts[2] || !store.attempts[3] {
		t.Fatalf("expected failure recorded only for line 2, got %v", store.attempts)
	}
	outcome := handler.Outcome()
	if outcome.Processed != 2 || outcome.Failed != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestExecuteBurnsRetryForMalformedLine(t *testing.T) {
	store := &fakeStore{snapshot: pendingSnapshot(
		dialogue.Line{ID: 7, Sentence: "no separator here"},
	)}
	session := &fakeSession{}
	handler := NewHandler(testsupport.NewConfig(t), store, session, nil)

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(session.requests) != 0 {
		t.Fatalf("malformed line must not reach the synthesizer, got %v", session.requests)
	}
	if succeeded, ok := store.attempts[7]; !ok || succeeded {
		t.Fatalf("expected failed attempt for line 7, got %v", store.attempts)
	}
}

func TestExecuteSkipsWhenNotPending(t *testing.T) {
	store := &fakeStore{snapshot: dialogue.Snapshot{Stage: dialogue.StageReady}}
	session := &fakeSession{}
	handler := NewHandler(testsupport.NewConfig(t), store, session, nil)

	if err := handler.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(session.requests) != 0 || len(store.attempts) != 0 {
		t.Fatal("expected no work when stage is not pending")
	}
}

func TestPrepareRequiresSession(t *testing.T) {
	handler := NewHandler(testsupport.NewConfig(t), &fakeStore{}, nil, nil)
	if err := handler.Prepare(context.Background()); err == nil {
		t.Fatal("expected prepare to fail without a session")
	}
}
