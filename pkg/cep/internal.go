package cep

// InternalNode is a positive binary join: SEQ (ordered) or AND (unordered).
// Grounded on InternalNode / SeqNode / AndNode in
// original_source/evaluation/TreeBasedEvaluationMechanism.py.
type InternalNode struct {
	par       Node
	win       int64
	st        store
	condition Predicate
	operator  Operator // OpSeq or OpAnd
	l, r      Node
	defs      []EventDef
	threshold int64 // un-invalidation guard; 0 means disabled
}

func newInternalNode(win int64, operator Operator) *InternalNode {
	return &InternalNode{win: win, st: store{window: win}, condition: truePredicate, operator: operator}
}

func (n *InternalNode) setSubtrees(left, right Node) {
	n.l, n.r = left, right
	left.setParent(n)
	right.setParent(n)
	n.defs = mergeEventDefs(left.eventDefs(), right.eventDefs(), arrivalSlotKey)
}

func (n *InternalNode) parent() Node     { return n.par }
func (n *InternalNode) setParent(p Node) { n.par = p }
func (n *InternalNode) window() int64    { return n.win }
func (n *InternalNode) left() Node       { return n.l }
func (n *InternalNode) right() Node      { return n.r }

func (n *InternalNode) replaceChild(old, nw Node) {
	switch old {
	case n.l:
		n.l = nw
	case n.r:
		n.r = nw
	}
	n.defs = mergeEventDefs(n.l.eventDefs(), n.r.eventDefs(), arrivalSlotKey)
}

func (n *InternalNode) expireOwn(cutoff int64)             { n.st.expire(cutoff) }
func (n *InternalNode) hasPartialMatches() bool            { return n.st.hasAny() }
func (n *InternalNode) consumeFirst() (PartialMatch, bool) { return n.st.consumeFirst() }
func (n *InternalNode) partialMatches() []PartialMatch     { return n.st.all() }
func (n *InternalNode) popUnhandled() (PartialMatch, bool) { return n.st.popUnhandled() }
func (n *InternalNode) pushUnhandled(pm PartialMatch)      { n.st.unhandled = append(n.st.unhandled, pm) }
func (n *InternalNode) setThreshold(ts int64)              { n.threshold = ts }

func (n *InternalNode) addPartialMatch(pm PartialMatch) {
	n.st.add(pm, n.par != nil)
}

func (n *InternalNode) eventDefs() []EventDef { return n.defs }

// applyPredicate projects p onto this node's own event-def names, then
// hands its OWN (further-restricted) condition down to both children —
// top-down, single-pass, same as InternalNode.apply_formula.
func (n *InternalNode) applyPredicate(p Predicate) {
	n.condition = projectPredicate(p, eventDefNames(n.defs))
	n.l.applyPredicate(n.condition)
	n.r.applyPredicate(n.condition)
}

func (n *InternalNode) leaves() []*LeafNode { return leavesOf(n) }
func (n *InternalNode) deepestLeaf() Node   { return deepestLeafOf(n) }
func (n *InternalNode) firstChanceNodes() []*FirstChanceNegationNode {
	return firstChanceNodesOf(n)
}

// handleNewPartialMatch is invoked on this node by whichever child just
// grew a new partial match; it tries to join that match against every
// current match on the other side.
func (n *InternalNode) handleNewPartialMatch(source Node) error {
	var other Node
	if source == n.l {
		other = n.r
	} else if source == n.r {
		other = n.l
	} else {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}

	newPm, ok := source.popUnhandled()
	if !ok {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}
	sourceDefs := source.eventDefs()
	otherDefs := other.eventDefs()

	if err := expireNode(other, newPm.LastTs); err != nil {
		return err
	}
	if err := expireNode(n, newPm.LastTs); err != nil {
		return err
	}

	for _, cand := range other.partialMatches() {
		var firstPm, secondPm PartialMatch
		var firstDefs, secondDefs []EventDef
		if source == n.l {
			firstPm, secondPm = newPm, cand
			firstDefs, secondDefs = sourceDefs, otherDefs
		} else {
			firstPm, secondPm = cand, newPm
			firstDefs, secondDefs = otherDefs, sourceDefs
		}
		if err := n.tryCreateMatch(firstPm, secondPm, firstDefs, secondDefs); err != nil {
			return err
		}
	}
	return nil
}

func (n *InternalNode) tryCreateMatch(firstPm, secondPm PartialMatch, firstDefs, secondDefs []EventDef) error {
	if n.win != unboundedWindow && abs64(firstPm.LastTs-secondPm.FirstTs) > n.win {
		return nil
	}
	events := mergeEventsAccordingTo(firstDefs, secondDefs, firstPm.Events, secondPm.Events, arrivalSlotKey)
	if n.operator == OpSeq && !isSortedByTimestamp(events) {
		return nil
	}
	if n.threshold != 0 && firstPm.LastTs < n.threshold {
		return nil
	}
	b, err := bindingOf(n.defs, events)
	if err != nil {
		return err
	}
	ok, err := evalPredicate(n.condition, b)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	pm := NewPartialMatch(events)
	n.addPartialMatch(pm)
	if n.par != nil {
		return n.par.handleNewPartialMatch(n)
	}
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// bindingOf builds the name->payload binding a condition evaluates
// against, given the event list in the same order as defs. A length
// mismatch between defs and events means a join merged events
// inconsistently with its own event-def slots — an internal invariant
// violation, not a recoverable predicate failure.
func bindingOf(defs []EventDef, events []Event) (Binding, error) {
	if len(events) != len(defs) {
		return nil, wrapErr(KindInternalInvariant, ErrEventDefNotFound)
	}
	b := make(Binding, len(defs))
	for i, d := range defs {
		b[d.Placeholder.Name] = events[i].Payload
	}
	return b, nil
}
