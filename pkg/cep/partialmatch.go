package cep

import "sort"

// PartialMatch is an immutable record of a list of events forming a
// (possibly partial) match. Length equals the number of placeholders in
// the subtree that produced it; event ordering matches that subtree's
// EventDefs.
type PartialMatch struct {
	Events        []Event
	FirstTs       int64
	LastTs        int64
}

// NewPartialMatch computes FirstTs/LastTs at construction from a
// non-empty event list.
func NewPartialMatch(events []Event) PartialMatch {
	first, last := events[0].Timestamp, events[0].Timestamp
	for _, e := range events[1:] {
		if e.Timestamp < first {
			first = e.Timestamp
		}
		if e.Timestamp > last {
			last = e.Timestamp
		}
	}
	return PartialMatch{Events: events, FirstTs: first, LastTs: last}
}

// store is the shared partial-match collection embedded in every node:
// a list sorted by FirstTs ascending (logarithmic-time insertion via
// binary search, prefix expiration), plus a FIFO of matches not yet
// consumed by the parent's join.
type store struct {
	window     int64 // sliding window in nanoseconds; unboundedWindow disables expiration
	matches    []PartialMatch
	unhandled  []PartialMatch
}

const unboundedWindow int64 = -1

// add inserts pm at the position given by binary search on FirstTs
// (stable: equal keys go after existing entries), and — if hasParent —
// enqueues it onto unhandled for the parent's join to pick up.
func (s *store) add(pm PartialMatch, hasParent bool) {
	idx := sort.Search(len(s.matches), func(i int) bool {
		return s.matches[i].FirstTs > pm.FirstTs
	})
	s.matches = append(s.matches, PartialMatch{})
	copy(s.matches[idx+1:], s.matches[idx:])
	s.matches[idx] = pm

	if hasParent {
		s.unhandled = append(s.unhandled, pm)
	}
}

// expire removes every prefix element whose FirstTs is older than
// cutoff-window. No-op when the window is unbounded.
func (s *store) expire(cutoff int64) {
	if s.window == unboundedWindow {
		return
	}
	deadline := cutoff - s.window
	count := sort.Search(len(s.matches), func(i int) bool {
		return s.matches[i].FirstTs >= deadline
	})
	if count > 0 {
		s.matches = s.matches[count:]
	}
}

// popUnhandled pops and returns the oldest-enqueued unhandled match
// (FIFO), mirroring Node.get_last_unhandled_partial_match's Queue
// semantics in the original mechanism.
func (s *store) popUnhandled() (PartialMatch, bool) {
	if len(s.unhandled) == 0 {
		return PartialMatch{}, false
	}
	pm := s.unhandled[0]
	s.unhandled = s.unhandled[1:]
	return pm, true
}

// consumeFirst pops and returns the earliest partial match. Used only at
// the root to drain full matches.
func (s *store) consumeFirst() (PartialMatch, bool) {
	if len(s.matches) == 0 {
		return PartialMatch{}, false
	}
	pm := s.matches[0]
	s.matches = s.matches[1:]
	return pm, true
}

func (s *store) hasAny() bool { return len(s.matches) > 0 }

func (s *store) all() []PartialMatch { return s.matches }

// removeAll deletes every match in toRemove from the store's matches.
// Two matches are the same when they hold the same number of events and
// each position's Timestamp, EventType and ArrivalIndex agree
// (partialMatchEqual); payloads are not compared.
func (s *store) removeAll(toRemove []PartialMatch) {
	if len(toRemove) == 0 {
		return
	}
	kept := s.matches[:0]
	for _, pm := range s.matches {
		remove := false
		for _, rm := range toRemove {
			if partialMatchEqual(pm, rm) {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, pm)
		}
	}
	s.matches = kept
}

func partialMatchEqual(a, b PartialMatch) bool {
	if len(a.Events) != len(b.Events) {
		return false
	}
	for i := range a.Events {
		if a.Events[i].Timestamp != b.Events[i].Timestamp ||
			a.Events[i].EventType != b.Events[i].EventType ||
			a.Events[i].ArrivalIndex != b.Events[i].ArrivalIndex {
			return false
		}
	}
	return true
}
