package cep

// expiryEntry records a positive match that a FirstChance negation node
// blocked, alongside the timestamp at which the negative event that
// blocked it ages out of the window and the block should be reconsidered.
type expiryEntry struct {
	deadline int64
	pm       PartialMatch
}

// negBase is the state shared by both negation join strategies: a binary
// join whose right child is always the negated placeholder's leaf, and
// whose own store holds pure positive matches (the negative event is
// never part of a propagated match). Grounded on InternalNegationNode in
// original_source/evaluation/TreeBasedEvaluationMechanism.py.
type negBase struct {
	par Node
	win int64
	st  store // positive matches, same shape as l.eventDefs()

	l, r Node // r is always the negative placeholder's *LeafNode

	// internalDefs merges l's and r's defs keyed by pattern position
	// (not arrival slot, since negative leaves are assigned an arbitrary
	// slot). Used only to build the binding condition evaluates against.
	internalDefs []EventDef
	condition    Predicate

	isFirst, isLast bool
	topOperator     Operator

	threshold         int64
	waitingForTimeout []PartialMatch

	// matchesToHandleAtEOF only has meaning when this node is the tree's
	// root: a trailing is_last negation always ends up as the root.
	matchesToHandleAtEOF []PartialMatch
}

func newNegBase(win int64, isFirst, isLast bool, topOperator Operator) negBase {
	return negBase{win: win, st: store{window: win}, condition: truePredicate, isFirst: isFirst, isLast: isLast, topOperator: topOperator}
}

func (n *negBase) setSubtrees(left, right Node) {
	n.l, n.r = left, right
	n.internalDefs = mergeEventDefs(left.eventDefs(), right.eventDefs(), patternPositionKey)
}

func (n *negBase) parent() Node     { return n.par }
func (n *negBase) setParent(p Node) { n.par = p }
func (n *negBase) window() int64    { return n.win }
func (n *negBase) left() Node       { return n.l }
func (n *negBase) right() Node      { return n.r }

func (n *negBase) replaceChild(old, nw Node) {
	switch old {
	case n.l:
		n.l = nw
	case n.r:
		n.r = nw
	}
	n.internalDefs = mergeEventDefs(n.l.eventDefs(), n.r.eventDefs(), patternPositionKey)
}

func (n *negBase) setCondition(p Predicate) { n.condition = p }

func (n *negBase) expireOwn(cutoff int64)             { n.st.expire(cutoff) }
func (n *negBase) hasPartialMatches() bool            { return n.st.hasAny() }
func (n *negBase) consumeFirst() (PartialMatch, bool) { return n.st.consumeFirst() }
func (n *negBase) partialMatches() []PartialMatch     { return n.st.all() }
func (n *negBase) popUnhandled() (PartialMatch, bool) { return n.st.popUnhandled() }
func (n *negBase) pushUnhandled(pm PartialMatch)      { n.st.unhandled = append(n.st.unhandled, pm) }

func (n *negBase) addPartialMatch(pm PartialMatch) { n.st.add(pm, n.par != nil) }

// eventDefs exposes only the left (positive) subtree's defs to whatever
// sits above this node: the negated placeholder never appears in a
// propagated match.
func (n *negBase) eventDefs() []EventDef { return n.l.eventDefs() }

func (n *negBase) applyPredicate(p Predicate) {
	n.condition = projectPredicate(p, eventDefNames(n.internalDefs))
	n.l.applyPredicate(n.condition)
	n.r.applyPredicate(n.condition)
}

func (n *negBase) leaves() []*LeafNode { return leavesOf(n) }
func (n *negBase) deepestLeaf() Node   { return deepestLeafOf(n) }

func (n *negBase) isFirstFlag() bool                { return n.isFirst }
func (n *negBase) isLastFlag() bool                 { return n.isLast }
func (n *negBase) waitingList() []PartialMatch      { return n.waitingForTimeout }
func (n *negBase) setWaitingList(w []PartialMatch)  { n.waitingForTimeout = w }
func (n *negBase) setThreshold(ts int64)            { n.threshold = ts }

// tryCreateNegationMatch reports whether the negative candidate
// invalidates (for SEQ-ordered patterns: follows in time and satisfies
// the join condition) the positive candidate. AND/OR-topped negation
// joins are a ConfigurationError: the original mechanism never
// implemented them (InternalNegationNode._try_create_new_match raises
// NotImplementedError for those operators).
func (n *negBase) tryCreateNegationMatch(firstPm, secondPm PartialMatch, firstDefs, secondDefs []EventDef) (bool, error) {
	if n.win != unboundedWindow && abs64(firstPm.LastTs-secondPm.FirstTs) > n.win {
		return false, nil
	}
	events := mergeEventsAccordingTo(firstDefs, secondDefs, firstPm.Events, secondPm.Events, patternPositionKey)
	if n.topOperator != OpSeq {
		return false, wrapErr(KindConfiguration, ErrUnsupportedNegationOperator)
	}
	if !isSortedByTimestamp(events) {
		return false, nil
	}
	b, err := bindingOf(n.internalDefs, events)
	if err != nil {
		return false, err
	}
	return evalPredicate(n.condition, b)
}

// FirstChanceNegationNode invalidates a positive match the instant a
// disqualifying negative event arrives. For a leading negation it parks a
// positive candidate blocked by an earlier negative event until that
// negative ages out of the window; for a trailing negation it parks the
// candidate in waitingForTimeout, where a later negative event can still
// invalidate it.
type FirstChanceNegationNode struct {
	negBase
	checkExpired []expiryEntry
}

func newFirstChanceNegationNode(win int64, isFirst, isLast bool, topOperator Operator) *FirstChanceNegationNode {
	return &FirstChanceNegationNode{negBase: newNegBase(win, isFirst, isLast, topOperator)}
}

func (n *FirstChanceNegationNode) setSubtrees(left, right Node) {
	n.negBase.setSubtrees(left, right)
	left.setParent(n)
	right.setParent(n)
}

func (n *FirstChanceNegationNode) firstChanceNodes() []*FirstChanceNegationNode {
	if n.isFirst {
		return []*FirstChanceNegationNode{n}
	}
	return nil
}

func (n *FirstChanceNegationNode) removePartialMatches(toRemove []PartialMatch) {
	n.st.removeAll(toRemove)
}

func (n *FirstChanceNegationNode) handleNewPartialMatch(source Node) error {
	switch source {
	case n.l:
		return n.handlePositiveArrival()
	case n.r:
		return n.handleNegativeArrival()
	default:
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}
}

func (n *FirstChanceNegationNode) handlePositiveArrival() error {
	newPm, ok := n.l.popUnhandled()
	if !ok {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}
	if n.isLast {
		n.waitingForTimeout = append(n.waitingForTimeout, newPm)
		return nil
	}

	firstDefs := n.l.eventDefs()
	if err := expireNode(n.r, newPm.LastTs); err != nil {
		return err
	}
	secondDefs := n.r.eventDefs()
	cands := n.r.partialMatches()
	if err := expireNode(n, newPm.LastTs); err != nil {
		return err
	}

	var invalidatedBy PartialMatch
	invalidated := false
	for _, cand := range cands {
		ok, err := n.tryCreateNegationMatch(newPm, cand, firstDefs, secondDefs)
		if err != nil {
			return err
		}
		if ok {
			invalidated = true
			invalidatedBy = cand
			break
		}
	}

	if !invalidated {
		n.addPartialMatch(newPm)
		if n.par != nil {
			return n.par.handleNewPartialMatch(n)
		}
		return nil
	}

	if n.isFirst {
		n.checkExpired = append(n.checkExpired, expiryEntry{deadline: invalidatedBy.LastTs + n.win, pm: newPm})
	}
	return nil
}

func (n *FirstChanceNegationNode) handleNegativeArrival() error {
	if n.isFirst {
		return nil
	}
	if n.isLast {
		return handleNegationAtEnd(n, n.r)
	}

	newPm, ok := n.r.popUnhandled()
	if !ok {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}
	firstDefs := n.r.eventDefs()
	if err := expireNode(n.l, newPm.LastTs); err != nil {
		return err
	}
	secondDefs := n.l.eventDefs()
	cands := n.l.partialMatches()
	if err := expireNode(n, newPm.LastTs); err != nil {
		return err
	}

	var toRemove []PartialMatch
	for _, cand := range cands {
		ok, err := n.tryCreateNegationMatch(newPm, cand, firstDefs, secondDefs)
		if err != nil {
			return err
		}
		if ok {
			toRemove = append(toRemove, cand)
		}
	}
	if len(toRemove) == 0 {
		return nil
	}
	var cur Node = n
	for cur != nil {
		fc, ok := cur.(*FirstChanceNegationNode)
		if !ok {
			break
		}
		fc.removePartialMatches(toRemove)
		cur = fc.parent()
	}
	return nil
}

// PostProcessingNegationNode only reconsiders a positive match once it
// completes, checking it against whatever negative events already
// arrived; a negative event arriving afterward never retroactively
// invalidates an already-propagated match.
type PostProcessingNegationNode struct {
	negBase
}

func newPostProcessingNegationNode(win int64, isFirst, isLast bool, topOperator Operator) *PostProcessingNegationNode {
	return &PostProcessingNegationNode{negBase: newNegBase(win, isFirst, isLast, topOperator)}
}

func (n *PostProcessingNegationNode) setSubtrees(left, right Node) {
	n.negBase.setSubtrees(left, right)
	left.setParent(n)
	right.setParent(n)
}

func (n *PostProcessingNegationNode) firstChanceNodes() []*FirstChanceNegationNode { return nil }

func (n *PostProcessingNegationNode) handleNewPartialMatch(source Node) error {
	switch source {
	case n.l:
		if n.isLast {
			newPm, ok := n.l.popUnhandled()
			if !ok {
				return wrapErr(KindInternalInvariant, ErrInvalidSource)
			}
			n.waitingForTimeout = append(n.waitingForTimeout, newPm)
			return nil
		}
	case n.r:
		if n.isLast {
			return handleNegationAtEnd(n, n.r)
		}
		return nil
	default:
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}

	newPm, ok := n.l.popUnhandled()
	if !ok {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}
	firstDefs := n.l.eventDefs()
	if err := expireNode(n.r, newPm.LastTs); err != nil {
		return err
	}
	secondDefs := n.r.eventDefs()
	cands := n.r.partialMatches()
	if err := expireNode(n, newPm.LastTs); err != nil {
		return err
	}

	for _, cand := range cands {
		ok, err := n.tryCreateNegationMatch(newPm, cand, firstDefs, secondDefs)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	n.addPartialMatch(newPm)
	if n.par != nil {
		return n.par.handleNewPartialMatch(n)
	}
	return nil
}

// handleNegationAtEnd is shared by both negation variants for the
// trailing-negation case: a new negative event (source) is compared
// against the waiting list parked at the innermost trailing negation
// node, using self's own condition, removing whichever waiting matches
// it invalidates.
func handleNegationAtEnd(self binaryNode, source Node) error {
	other := firstLastNegativeNode(self)
	otherNeg, ok := asNegationLike(other)
	if !ok {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}

	newPm, ok2 := source.popUnhandled()
	if !ok2 {
		return wrapErr(KindInternalInvariant, ErrInvalidSource)
	}
	firstDefs := source.eventDefs()

	if err := expireNode(other, newPm.LastTs); err != nil {
		return err
	}
	waiting := otherNeg.waitingList()
	secondDefs := other.eventDefs()
	if err := expireNode(self, newPm.LastTs); err != nil {
		return err
	}

	base := negBaseOf(self)
	kept := waiting[:0:0]
	for _, cand := range waiting {
		invalidated, err := base.tryCreateNegationMatch(newPm, cand, firstDefs, secondDefs)
		if err != nil {
			return err
		}
		if !invalidated {
			kept = append(kept, cand)
		}
	}
	otherNeg.setWaitingList(kept)
	return nil
}

func negBaseOf(n Node) *negBase {
	switch t := n.(type) {
	case *FirstChanceNegationNode:
		return &t.negBase
	case *PostProcessingNegationNode:
		return &t.negBase
	default:
		return nil
	}
}
