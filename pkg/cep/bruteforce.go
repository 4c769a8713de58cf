package cep

// GenerateMatchesBruteForce is an independent, deliberately naive reference
// oracle: it exhaustively enumerates every combination of one event per
// positive placeholder, keeping those that fit the window (and, for SEQ,
// appear in non-decreasing timestamp order) and satisfy the pattern's
// condition. It ignores negated placeholders entirely, mirroring
// misc.Utils.generate_matches / generate_matches_recursive in
// original_source, which is itself only ever exercised against
// negation-free patterns (generate_matches_with_negation never finished:
// it discards the negative events it computes). Used only by tests, to
// check the engine's output against a trusted-by-construction generator —
// never by the engine itself.
func GenerateMatchesBruteForce(pattern Pattern, stream []Event) []PartialMatch {
	positive := make([]QItem, 0, len(pattern.Placeholders))
	for _, q := range pattern.Placeholders {
		if !pattern.Negated[q.Name] {
			positive = append(positive, q)
		}
	}

	byType := make(map[string][]Event)
	for _, e := range stream {
		byType[e.EventType] = append(byType[e.EventType], e)
	}

	condition := pattern.Condition
	if condition == nil {
		condition = truePredicate
	}
	isSeq := pattern.Operator == OpSeq

	var (
		matches []PartialMatch
		match   = make([]Event, 0, len(positive))
		binding = make(Binding, len(positive))
	)

	var recurse func(loop int)
	recurse = func(loop int) {
		if loop == len(positive) {
			ok, err := condition.Eval(binding)
			if err != nil || !ok {
				return
			}
			candidate := NewPartialMatch(append([]Event(nil), match...))
			for _, existing := range matches {
				if partialMatchEqual(existing, candidate) {
					return
				}
			}
			matches = append(matches, candidate)
			return
		}

		q := positive[loop]
		for _, e := range byType[q.EventType] {
			if isSeq && len(match) > 0 && match[len(match)-1].Timestamp > e.Timestamp {
				continue
			}
			match = append(match, e)
			if pattern.Window == unboundedWindow || withinWindow(match, pattern.Window) {
				binding[q.Name] = e.Payload
				recurse(loop + 1)
			}
			match = match[:len(match)-1]
		}
		delete(binding, q.Name)
	}
	recurse(0)
	return matches
}

func withinWindow(events []Event, window int64) bool {
	first, last := events[0].Timestamp, events[0].Timestamp
	for _, e := range events[1:] {
		if e.Timestamp < first {
			first = e.Timestamp
		}
		if e.Timestamp > last {
			last = e.Timestamp
		}
	}
	return last-first <= window
}
