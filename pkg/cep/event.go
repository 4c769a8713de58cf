package cep

import "github.com/prequel-dev/prequel-cep/pkg/entry"

// Event is a single, immutable occurrence on the input stream. Re-exported
// from pkg/entry so callers of pkg/cep don't need to import it separately.
type Event = entry.Event

// Operator enumerates the pattern's combination operators.
type Operator int

const (
	OpSeq Operator = iota
	OpAnd
	OpOr
)

func (o Operator) String() string {
	switch o {
	case OpSeq:
		return "SEQ"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "UNKNOWN"
	}
}

// QItem (PlaceholderSpec) names a single typed slot in a pattern.
// PatternPosition is the placeholder's index in the original source
// pattern, used for stable SEQ ordering and for locating dependency sets
// when inserting negated placeholders.
type QItem struct {
	EventType       string
	Name            string
	PatternPosition int
}

// EventDef describes, in positional order, which placeholder a given slot
// of a partial match corresponds to. ArrivalSlot is unique within a node;
// siblings' arrival slots are disjoint and their union equals the parent's.
type EventDef struct {
	ArrivalSlot int
	Placeholder QItem
}

func eventDefNames(defs []EventDef) map[string]struct{} {
	names := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		names[d.Placeholder.Name] = struct{}{}
	}
	return names
}

// arrivalSlotKey orders by ArrivalSlot, the key SeqNode._set_event_definitions
// uses to merge two child subtrees' defs into the parent's.
func arrivalSlotKey(d EventDef) int { return d.ArrivalSlot }

// patternPositionKey orders by the placeholder's position in the source
// pattern, the key InternalNegationNode._set_event_definitions uses instead
// of ArrivalSlot (negative leaves are assigned an arbitrary, possibly
// colliding, arrival slot since they never reach the root as their own
// subtree).
func patternPositionKey(d EventDef) int { return d.Placeholder.PatternPosition }

// mergeEventDefs merges two EventDef lists ordered by key ascending.
func mergeEventDefs(left, right []EventDef, key func(EventDef) int) []EventDef {
	ret := make([]EventDef, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if key(left[i]) < key(right[j]) {
			ret = append(ret, left[i])
			i++
		} else {
			ret = append(ret, right[j])
			j++
		}
	}
	ret = append(ret, left[i:]...)
	ret = append(ret, right[j:]...)
	return ret
}

// mergeEventsAccordingTo weaves first/second event lists together following
// the same interleaving that mergeEventDefs would produce for
// firstDefs/secondDefs, without recomputing it. Mirrors misc.Utils.merge_according_to.
func mergeEventsAccordingTo(firstDefs, secondDefs []EventDef, firstEvents, secondEvents []Event, key func(EventDef) int) []Event {
	ret := make([]Event, 0, len(firstEvents)+len(secondEvents))
	i, j := 0, 0
	for i < len(firstDefs) && j < len(secondDefs) {
		if key(firstDefs[i]) < key(secondDefs[j]) {
			ret = append(ret, firstEvents[i])
			i++
		} else {
			ret = append(ret, secondEvents[j])
			j++
		}
	}
	ret = append(ret, firstEvents[i:]...)
	ret = append(ret, secondEvents[j:]...)
	return ret
}

func isSortedByTimestamp(events []Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i-1].Timestamp > events[i].Timestamp {
			return false
		}
	}
	return true
}
