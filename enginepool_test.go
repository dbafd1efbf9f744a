package devotional

import "testing"

func TestSessionPool(t *testing.T) {
	pool := NewSessionPool(2)
	doc := &StudyDocument{ID: "study-1", Quiz: scenarioQuiz()}

	first := pool.Start(doc, seeded(1))
	second := pool.Start(doc, seeded(2))
	if first.ID == second.ID || first.StudyID != "study-1" {
		t.Fatalf("Unexpected sessions %+v %+v", first, second)
	}
	if got, ok := pool.Get(first.ID); !ok || got != first {
		t.Errorf("Expected to get the first session back")
	}

	third := pool.Start(doc, seeded(3))
	if pool.Size() != 2 {
		t.Errorf("Expected size 2 after eviction, got %d", pool.Size())
	}
	if _, ok := pool.Get(first.ID); ok {
		t.Errorf("Expected the oldest session to be evicted")
	}

	if !pool.MarkSaved(third.ID) {
		t.Errorf("Expected the first MarkSaved to succeed")
	}
	if pool.MarkSaved(third.ID) {
		t.Errorf("Expected a second MarkSaved to report false")
	}
	pool.Unmark(third.ID)
	if !pool.MarkSaved(third.ID) {
		t.Errorf("Expected MarkSaved to succeed after Unmark")
	}

	pool.Remove(second.ID)
	if _, ok := pool.Get(second.ID); ok || pool.Size() != 1 {
		t.Errorf("Expected the session to be removed, size %d", pool.Size())
	}
	if pool.MarkSaved("missing") {
		t.Errorf("Expected MarkSaved on a missing session to report false")
	}
}

func TestSessionPoolIndependentEngines(t *testing.T) {
	pool := NewSessionPool(0)
	doc := &StudyDocument{ID: "s", Quiz: scenarioQuiz()}
	a := pool.Start(doc, seeded(1))
	b := pool.Start(doc, seeded(1))

	if _, err := a.Engine.Submit(ChoiceAnswer{Index: 1}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if a.Engine.Score() != 1 || b.Engine.Score() != 0 {
		t.Errorf("Expected independent scores, got %d and %d", a.Engine.Score(), b.Engine.Score())
	}
}
