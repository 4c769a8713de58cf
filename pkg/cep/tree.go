package cep

// Pattern is the compiled description of a single rule: its placeholders
// in source order (negated ones marked), how they combine, any window,
// and the predicate constraining the bindings. Grounded on base.Pattern /
// base.PatternStructure in original_source.
type Pattern struct {
	// Operator is the pattern's combination operator (the "top operator"
	// every join in the positive tree and every negation join's ordering
	// check is validated against).
	Operator Operator
	// Placeholders lists every slot — positive and negated — in source
	// order. PatternPosition on each QItem must equal its index here.
	Placeholders []QItem
	Negated      map[string]bool // by placeholder name
	// Window is the sliding window in nanoseconds shared by the whole
	// pattern; unboundedWindow (-1) disables expiration entirely.
	Window int64
	// Condition constrains bindings across every placeholder, positive
	// and negated alike. truePredicate if the pattern has none.
	Condition Predicate
}

// NegationMode selects how a negated placeholder is joined into the tree.
// Grounded on evaluation.EvaluationMechanism.NegationMode.
type NegationMode int

const (
	// NegationModeFirstChance invalidates a positive match the instant a
	// disqualifying negative event arrives.
	NegationModeFirstChance NegationMode = iota
	// NegationModePostProcessing only checks for a disqualifying negative
	// event once the positive match completes.
	NegationModePostProcessing
)

// Tree is a compiled Pattern: a join tree of LeafNode/InternalNode/negation
// nodes plus bookkeeping to dispatch events to the right leaves and drain
// completed matches. Grounded on evaluation.TreeBasedEvaluationMechanism.Tree.
type Tree struct {
	root       Node
	leavesByType map[string][]*LeafNode
}

// Shape is the tree-shape descriptor BuildTree takes as a second input,
// per spec.md §6 ("Tree shape (input)"): S ::= int | (S, S), over
// positive-placeholder indices (a placeholder's position among the
// pattern's non-negated placeholders, in source order — not its
// PatternPosition). A leaf Shape names one positive placeholder directly;
// a join Shape pairs two sub-shapes under whatever operator (SEQ/AND) the
// pattern specifies. Negated placeholders are never part of a Shape —
// they're spliced in afterward by BuildTree per §4.5/§4.6 step 3.
type Shape struct {
	Index       int
	Left, Right *Shape
}

// Leaf builds a Shape naming the positive placeholder at index.
func Leaf(index int) *Shape { return &Shape{Index: index} }

// Join builds a Shape pairing two sub-shapes.
func Join(left, right *Shape) *Shape { return &Shape{Left: left, Right: right} }

func (s *Shape) isLeaf() bool { return s.Left == nil && s.Right == nil }

// DefaultShape returns the left-leaning chain `(((0,1),2),3)...` over n
// positive placeholders — the join shape BuildTree used unconditionally
// before tree shapes became an explicit input. Passing a nil Shape to
// BuildTree is equivalent to passing DefaultShape(len(positive)).
func DefaultShape(n int) *Shape {
	if n == 0 {
		return nil
	}
	s := Leaf(0)
	for i := 1; i < n; i++ {
		s = Join(s, Leaf(i))
	}
	return s
}

// BuildTree compiles pattern into an evaluation tree under the given tree
// shape and negation strategy. shape describes the join structure over
// the pattern's positive placeholders (spec.md §6); a nil shape falls
// back to DefaultShape, the left-leaning chain in source order. Negated
// placeholders are never named by shape — they're spliced in as negation
// joins, in source order, after the positive tree is built and its
// predicate distributed.
func BuildTree(pattern Pattern, shape *Shape, mode NegationMode) (*Tree, error) {
	if pattern.Operator == OpOr {
		return nil, wrapErr(KindConfiguration, ErrUnsupportedNegationOperator)
	}
	if mode != NegationModeFirstChance && mode != NegationModePostProcessing {
		return nil, wrapErr(KindConfiguration, ErrUnknownNegationMode)
	}
	if err := validateUniqueNames(pattern.Placeholders); err != nil {
		return nil, err
	}

	condition := pattern.Condition
	if condition == nil {
		condition = truePredicate
	}

	positive := make([]QItem, 0, len(pattern.Placeholders))
	for _, q := range pattern.Placeholders {
		if !pattern.Negated[q.Name] {
			positive = append(positive, q)
		}
	}
	if len(positive) == 0 {
		return nil, wrapErr(KindConfiguration, ErrPlaceholderIndexRange)
	}

	if shape == nil {
		shape = DefaultShape(len(positive))
	}

	root, err := buildPositiveTree(pattern.Operator, pattern.Window, positive, shape)
	if err != nil {
		return nil, err
	}
	root.applyPredicate(condition)

	for _, q := range pattern.Placeholders {
		if !pattern.Negated[q.Name] {
			continue
		}
		var nerr error
		root, nerr = spliceNegation(root, pattern, q, mode)
		if nerr != nil {
			return nil, nerr
		}
	}

	t := &Tree{root: root}
	t.indexLeaves()
	return t, nil
}

func validateUniqueNames(qs []QItem) error {
	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		if _, ok := seen[q.Name]; ok {
			return wrapErr(KindConfiguration, ErrDuplicatePlaceholderName)
		}
		seen[q.Name] = struct{}{}
	}
	return nil
}

// buildPositiveTree builds the join tree over items (positive placeholders
// only) by recursive descent over shape, mirroring Tree.__construct_tree:
// integer leaves become LeafNodes carrying the corresponding QItem; (S, S)
// tuples become SEQ or AND InternalNodes per operator. A leaf's arrival
// slot is its index into items (its position among positive placeholders
// in source order), independent of where shape places it in the join
// tree — AND ordering (arrival_slot order) and SEQ's timestamp-tie break
// both key off source position, not join shape.
func buildPositiveTree(operator Operator, window int64, items []QItem, shape *Shape) (Node, error) {
	if operator != OpSeq && operator != OpAnd {
		return nil, wrapErr(KindConfiguration, ErrUnsupportedNegationOperator)
	}
	return buildShape(operator, window, items, shape)
}

func buildShape(operator Operator, window int64, items []QItem, s *Shape) (Node, error) {
	if s == nil {
		return nil, wrapErr(KindConfiguration, ErrPlaceholderIndexRange)
	}
	if s.isLeaf() {
		if s.Index < 0 || s.Index >= len(items) {
			return nil, wrapErr(KindConfiguration, ErrPlaceholderIndexRange)
		}
		return newLeafNode(window, s.Index, items[s.Index]), nil
	}
	left, err := buildShape(operator, window, items, s.Left)
	if err != nil {
		return nil, err
	}
	right, err := buildShape(operator, window, items, s.Right)
	if err != nil {
		return nil, err
	}
	join := newInternalNode(window, operator)
	join.setSubtrees(left, right)
	return join, nil
}

// negationConstructor is the subset of *FirstChanceNegationNode /
// *PostProcessingNegationNode spliceNegation needs before the node is
// wired into the tree.
type negationConstructor interface {
	Node
	binaryNode
	setSubtrees(left, right Node)
}

func newNegationNode(mode NegationMode, win int64, isFirst, isLast bool, operator Operator) negationConstructor {
	if mode == NegationModeFirstChance {
		return newFirstChanceNegationNode(win, isFirst, isLast, operator)
	}
	return newPostProcessingNegationNode(win, isFirst, isLast, operator)
}

// spliceNegation inserts a negated placeholder into the tree, mirroring
// Tree.create_FirstChanceNegation_Tree / create_PostProcessing_Tree.
//
// PostProcessing mode always wraps the entire tree built so far: each
// negation fully encloses whatever came before it, becoming the new
// root. FirstChance mode instead searches from the deepest leaf upward
// for the lowest node whose exposed event defs already cover every name
// the pattern's condition ties this placeholder to (climbing past any
// already-spliced FirstChance ancestor first), and splices in there —
// which may be strictly below the current root.
func spliceNegation(root Node, pattern Pattern, q QItem, mode NegationMode) (Node, error) {
	condition := pattern.Condition
	if condition == nil {
		condition = truePredicate
	}
	isFirst := isLeadingFromHere(pattern, q)
	isLast := isTrailingFromHere(pattern, q)
	leaf := newLeafNode(pattern.Window, arbitraryNegativeSlot, q)
	leaf.applyPredicate(condition)

	var node Node
	if mode == NegationModePostProcessing {
		node = root
	} else {
		depends := dependencySet(pattern, q)
		node = root.deepestLeaf()
		for !coversAll(eventDefNames(node.eventDefs()), depends) {
			p := node.parent()
			if p == nil {
				return nil, wrapErr(KindInternalInvariant, ErrPlaceholderIndexRange)
			}
			node = p
		}
		for {
			p, ok := node.parent().(*FirstChanceNegationNode)
			if !ok {
				break
			}
			node = p
		}
	}

	negNode := newNegationNode(mode, pattern.Window, isFirst, isLast, pattern.Operator)
	parent := node.parent()
	negNode.setSubtrees(node, leaf)
	negBaseOf(negNode).setCondition(projectPredicate(condition, eventDefNames(negBaseOf(negNode).internalDefs)))

	if parent == nil {
		negNode.setParent(nil)
		return negNode, nil
	}
	pb := parent.(binaryNode)
	pb.replaceChild(node, negNode)
	negNode.setParent(parent)
	return root2(negNode), nil
}

// root2 walks up from n to the tree's root — named to avoid shadowing
// the package-level root(Node) Node helper at this call site.
func root2(n Node) Node { return root(n) }

const arbitraryNegativeSlot = 1

// dependencySet names every placeholder q's condition ties it to, plus —
// for a SEQ pattern — every positive placeholder before it in source
// order (find_positive_events_before): the splice point must be a
// subtree that already produces bindings for all of them.
func dependencySet(pattern Pattern, q QItem) map[string]struct{} {
	names := make(map[string]struct{})
	if pattern.Condition != nil {
		for n := range pattern.Condition.TermsFor(q.Name) {
			if n != q.Name {
				names[n] = struct{}{}
			}
		}
	}
	if pattern.Operator == OpSeq {
		for _, p := range pattern.Placeholders {
			if p.PatternPosition < q.PatternPosition && !pattern.Negated[p.Name] {
				names[p.Name] = struct{}{}
			}
		}
	}
	return names
}

func coversAll(have, want map[string]struct{}) bool {
	for n := range want {
		if _, ok := have[n]; !ok {
			return false
		}
	}
	return true
}

// isLeadingFromHere reports whether q and every placeholder at or before
// its source position is negated, i.e. nothing positive precedes q.
func isLeadingFromHere(pattern Pattern, q QItem) bool {
	for _, p := range pattern.Placeholders {
		if p.PatternPosition <= q.PatternPosition && !pattern.Negated[p.Name] {
			return false
		}
	}
	return true
}

// isTrailingFromHere reports whether q and every placeholder after it in
// source order is negated, i.e. nothing positive follows q.
func isTrailingFromHere(pattern Pattern, q QItem) bool {
	for _, p := range pattern.Placeholders {
		if p.PatternPosition >= q.PatternPosition && !pattern.Negated[p.Name] {
			return false
		}
	}
	return true
}

func (t *Tree) indexLeaves() {
	t.leavesByType = make(map[string][]*LeafNode)
	for _, l := range t.root.leaves() {
		t.leavesByType[l.qitem.EventType] = append(t.leavesByType[l.qitem.EventType], l)
	}
}

// Root returns the tree's root node.
func (t *Tree) Root() Node { return t.root }

// LeavesFor returns every leaf listening for eventType.
func (t *Tree) LeavesFor(eventType string) []*LeafNode { return t.leavesByType[eventType] }

// DrainMatches pops and returns every full match currently buffered at
// the root, oldest first.
func (t *Tree) DrainMatches() []PartialMatch {
	var out []PartialMatch
	for t.root.hasPartialMatches() {
		pm, _ := t.root.consumeFirst()
		out = append(out, pm)
	}
	return out
}

// EOFMatches returns every match that survived to end-of-stream without
// being invalidated by a trailing negation, per Tree.handle_EOF: matches
// already past their negative event's window (matchesToHandleAtEOF) plus
// whatever is still parked in the innermost trailing negation's waiting
// list (nothing can invalidate it now that the stream has ended).
func (t *Tree) EOFMatches() []PartialMatch {
	var out []PartialMatch
	if neg, ok := asNegationLike(t.root); ok && neg.isLastFlag() {
		switch r := t.root.(type) {
		case *FirstChanceNegationNode:
			out = append(out, r.matchesToHandleAtEOF...)
		case *PostProcessingNegationNode:
			out = append(out, r.matchesToHandleAtEOF...)
		}
		if b, ok := t.root.(binaryNode); ok {
			other := firstLastNegativeNode(b)
			if otherNeg, ok := asNegationLike(other); ok {
				out = append(out, otherNeg.waitingList()...)
			}
		}
	}
	return out
}
