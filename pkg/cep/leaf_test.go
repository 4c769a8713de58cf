package cep

import (
	"testing"

	"github.com/prequel-dev/prequel-cep/pkg/predicate"
)

func attr(key string) func(any) any {
	return func(v any) any { return v.(map[string]any)[key] }
}

func TestLeafNodeHandleEventStoresMatchingEvent(t *testing.T) {
	leaf := newLeafNode(unboundedWindow, 0, QItem{EventType: "A", Name: "a", PatternPosition: 0})

	e := Event{EventType: "A", Timestamp: 1, Payload: map[string]any{"v": 5.0}}
	if err := leaf.handleEvent(e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !leaf.hasPartialMatches() {
		t.Fatal("expected a stored partial match")
	}
}

func TestLeafNodeHandleEventRejectsFailingPredicate(t *testing.T) {
	leaf := newLeafNode(unboundedWindow, 0, QItem{EventType: "A", Name: "a", PatternPosition: 0})
	leaf.applyPredicate(predicate.GreaterThan(
		predicate.IdentifierTerm{Name: "a", GetAttr: attr("v")},
		predicate.AtomicTerm{Value: 10.0},
	))

	e := Event{EventType: "A", Timestamp: 1, Payload: map[string]any{"v": 5.0}}
	if err := leaf.handleEvent(e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leaf.hasPartialMatches() {
		t.Error("expected event failing the predicate to be dropped")
	}
}

func TestLeafNodeWithNoParentDoesNotPropagate(t *testing.T) {
	leaf := newLeafNode(unboundedWindow, 0, QItem{EventType: "A", Name: "a", PatternPosition: 0})
	e := Event{EventType: "A", Timestamp: 1, Payload: map[string]any{"v": 1.0}}
	if err := leaf.handleEvent(e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pm, ok := leaf.consumeFirst()
	if !ok {
		t.Fatal("expected the match to be retrievable from the leaf's own store")
	}
	if len(pm.Events) != 1 || pm.Events[0].Timestamp != 1 {
		t.Errorf("unexpected partial match contents: %+v", pm)
	}
}

func TestLeafNodeHandleNewPartialMatchIsInvalidSource(t *testing.T) {
	leaf := newLeafNode(unboundedWindow, 0, QItem{EventType: "A", Name: "a", PatternPosition: 0})
	err := leaf.handleNewPartialMatch(leaf)
	if !IsInternalInvariantError(err) {
		t.Errorf("expected an internal-invariant error, got %v", err)
	}
}
