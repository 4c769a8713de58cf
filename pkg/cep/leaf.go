package cep

// LeafNode holds a single placeholder. It receives every event of its
// placeholder's type and emits a one-event partial match for each
// occurrence that satisfies its condition. Grounded on LeafNode in
// original_source/evaluation/TreeBasedEvaluationMechanism.py.
type LeafNode struct {
	par         Node
	win         int64
	st          store
	condition   Predicate
	arrivalSlot int
	qitem       QItem
}

func newLeafNode(win int64, arrivalSlot int, qitem QItem) *LeafNode {
	return &LeafNode{
		win:         win,
		st:          store{window: win},
		condition:   truePredicate,
		arrivalSlot: arrivalSlot,
		qitem:       qitem,
	}
}

func (n *LeafNode) parent() Node     { return n.par }
func (n *LeafNode) setParent(p Node) { n.par = p }
func (n *LeafNode) window() int64    { return n.win }

func (n *LeafNode) expireOwn(cutoff int64)          { n.st.expire(cutoff) }
func (n *LeafNode) hasPartialMatches() bool         { return n.st.hasAny() }
func (n *LeafNode) consumeFirst() (PartialMatch, bool) { return n.st.consumeFirst() }
func (n *LeafNode) partialMatches() []PartialMatch  { return n.st.all() }
func (n *LeafNode) popUnhandled() (PartialMatch, bool) { return n.st.popUnhandled() }
func (n *LeafNode) pushUnhandled(pm PartialMatch)      { n.st.unhandled = append(n.st.unhandled, pm) }

func (n *LeafNode) addPartialMatch(pm PartialMatch) {
	n.st.add(pm, n.par != nil)
}

func (n *LeafNode) eventDefs() []EventDef {
	return []EventDef{{ArrivalSlot: n.arrivalSlot, Placeholder: n.qitem}}
}

// applyPredicate projects p onto this leaf's single placeholder name.
// Mirrors LeafNode.apply_formula: only overwrites the condition when the
// projection is non-trivial, leaving the default tautology otherwise.
func (n *LeafNode) applyPredicate(p Predicate) {
	n.condition = projectPredicate(p, map[string]struct{}{n.qitem.Name: {}})
}

func (n *LeafNode) leaves() []*LeafNode            { return []*LeafNode{n} }
func (n *LeafNode) deepestLeaf() Node              { return n }
func (n *LeafNode) firstChanceNodes() []*FirstChanceNegationNode { return nil }

func (n *LeafNode) handleNewPartialMatch(Node) error {
	return wrapErr(KindInternalInvariant, ErrInvalidSource)
}

// handleEvent is invoked by the Engine for every incoming event whose type
// matches this leaf's placeholder. It expires stale matches against e's
// timestamp first (LeafNode.handle_event cleans before it binds), then
// evaluates the leaf's condition, and on success stores and propagates a
// fresh single-event partial match.
func (n *LeafNode) handleEvent(e Event) error {
	if err := expireNode(n, e.Timestamp); err != nil {
		return err
	}
	ok, err := evalPredicate(n.condition, Binding{n.qitem.Name: e.Payload})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	pm := NewPartialMatch([]Event{e})
	n.addPartialMatch(pm)
	if n.par != nil {
		return n.par.handleNewPartialMatch(n)
	}
	return nil
}
