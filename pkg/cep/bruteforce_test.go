package cep

import (
	"testing"

	"github.com/prequel-dev/prequel-cep/pkg/predicate"
)

// idEq2 builds a Predicate asserting that leftKey on the leftName binding
// equals rightKey on the rightName binding, e.g. idEq2("a", "v", "b", "v")
// for "a.v == b.v".
func idEq2(leftName, leftKey, rightName, rightKey string) Predicate {
	return predicate.Eq(
		predicate.IdentifierTerm{Name: leftName, GetAttr: attr(leftKey)},
		predicate.IdentifierTerm{Name: rightName, GetAttr: attr(rightKey)},
	)
}

// runEngineOrdered feeds stream through a freshly built engine, in stream
// order, and returns every match drained during feeding plus whatever
// Flush() yields at EOF.
func runEngineOrdered(t *testing.T, pattern Pattern, stream []Event) []PartialMatch {
	t.Helper()
	eng, err := NewEngine(pattern, nil, NegationModeFirstChance)
	if err != nil {
		t.Fatalf("unexpected error building engine: %v", err)
	}
	var out []PartialMatch
	for _, e := range stream {
		got, err := eng.Feed(e)
		if err != nil {
			t.Fatalf("Feed(%+v) failed: %v", e, err)
		}
		out = append(out, got...)
	}
	out = append(out, eng.Flush()...)
	return out
}

func sameMatchSet(a, b []PartialMatch) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, pm := range a {
		found := false
		for i, other := range b {
			if used[i] {
				continue
			}
			if partialMatchEqual(pm, other) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Property: with no negation, the engine's output equals the brute-force
// reference generator's output (spec.md §8, completeness/soundness without
// negation).
func TestEngineMatchesBruteForceSeq(t *testing.T) {
	pattern := seqPattern(10, nil,
		QItem{EventType: "A", Name: "a", PatternPosition: 0},
		QItem{EventType: "B", Name: "b", PatternPosition: 1},
	)

	stream := []Event{
		{EventType: "A", Timestamp: 0, Payload: map[string]any{}},
		{EventType: "B", Timestamp: 3, Payload: map[string]any{}},
		{EventType: "A", Timestamp: 5, Payload: map[string]any{}},
		{EventType: "B", Timestamp: 6, Payload: map[string]any{}},
		{EventType: "B", Timestamp: 25, Payload: map[string]any{}},
	}

	got := runEngineOrdered(t, pattern, stream)
	want := GenerateMatchesBruteForce(pattern, stream)

	if !sameMatchSet(got, want) {
		t.Fatalf("engine output diverges from brute-force reference\nengine: %+v\nbrute:  %+v", got, want)
	}
}

func TestEngineMatchesBruteForceAnd(t *testing.T) {
	pattern := Pattern{
		Operator: OpAnd,
		Placeholders: []QItem{
			{EventType: "A", Name: "a", PatternPosition: 0},
			{EventType: "B", Name: "b", PatternPosition: 1},
		},
		Window: 10,
	}

	stream := []Event{
		{EventType: "B", Timestamp: 0, Payload: map[string]any{}},
		{EventType: "A", Timestamp: 5, Payload: map[string]any{}},
		{EventType: "A", Timestamp: 30, Payload: map[string]any{}},
		{EventType: "B", Timestamp: 32, Payload: map[string]any{}},
	}

	got := runEngineOrdered(t, pattern, stream)
	want := GenerateMatchesBruteForce(pattern, stream)

	if !sameMatchSet(got, want) {
		t.Fatalf("engine output diverges from brute-force reference\nengine: %+v\nbrute:  %+v", got, want)
	}
}

func TestEngineMatchesBruteForceWithCondition(t *testing.T) {
	pattern := seqPattern(100, nil,
		QItem{EventType: "A", Name: "a", PatternPosition: 0},
		QItem{EventType: "B", Name: "b", PatternPosition: 1},
	)
	pattern.Condition = idEq2("a", "v", "b", "v")

	stream := []Event{
		{EventType: "A", Timestamp: 0, Payload: map[string]any{"v": 1.0}},
		{EventType: "B", Timestamp: 1, Payload: map[string]any{"v": 2.0}},
		{EventType: "A", Timestamp: 2, Payload: map[string]any{"v": 2.0}},
		{EventType: "B", Timestamp: 3, Payload: map[string]any{"v": 2.0}},
	}

	got := runEngineOrdered(t, pattern, stream)
	want := GenerateMatchesBruteForce(pattern, stream)

	if !sameMatchSet(got, want) {
		t.Fatalf("engine output diverges from brute-force reference\nengine: %+v\nbrute:  %+v", got, want)
	}
}
