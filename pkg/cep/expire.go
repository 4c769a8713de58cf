package cep

import "sort"

// negationLike is implemented by both negation join variants; it exposes
// just enough of their extra state for the free functions in this file to
// drive the un-invalidation cascade without duplicating it per variant.
type negationLike interface {
	Node
	binaryNode
	isLastFlag() bool
	isFirstFlag() bool
	waitingList() []PartialMatch
	setWaitingList([]PartialMatch)
	setThreshold(int64)
}

func asNegationLike(n Node) (negationLike, bool) {
	switch t := n.(type) {
	case *FirstChanceNegationNode:
		return t, true
	case *PostProcessingNegationNode:
		return t, true
	default:
		return nil, false
	}
}

// expireNode is Node.clean_expired_partial_matches: trims this node's
// own store, migrates timed-out trailing-negation waits to the root's
// EOF bucket, then walks every reachable FirstChance node to see whether
// an expired negative event should un-invalidate a previously blocked
// positive match. Un-invalidation re-ascent (fc.handleNewPartialMatch)
// can itself fail (an UnboundNameError evaluating a reinjected match's
// condition, or an internal-invariant violation); such an error is fatal
// to the whole eval call (spec.md §7) and must propagate out of
// expireNode rather than being swallowed, though the threshold is still
// reset on that path (spec.md §9: "must be reset to 0 on all paths,
// including error paths").
func expireNode(n Node, lastTs int64) error {
	if n.window() == unboundedWindow {
		return nil
	}
	n.expireOwn(lastTs)

	if neg, ok := asNegationLike(n); ok && neg.isLastFlag() {
		w := append([]PartialMatch(nil), neg.waitingList()...)
		sort.Slice(w, func(i, j int) bool { return w[i].FirstTs < w[j].FirstTs })
		deadline := lastTs - n.window()
		idx := sort.Search(len(w), func(i int) bool { return w[i].FirstTs >= deadline })
		expired := w[:idx]
		neg.setWaitingList(w[idx:])
		appendEOF(root(n), expired)
	}

	var fcNodes []*FirstChanceNegationNode
	if n.parent() != nil {
		fcNodes = firstChanceNodesOf(n.parent())
	} else {
		fcNodes = firstChanceNodesOf(n)
	}

	for _, fc := range fcNodes {
		if fc.win == unboundedWindow {
			// Mirrors the original mechanism's early return: an
			// unbounded-window FirstChance node along the way aborts the
			// whole cascade, not just this node's share of it.
			return nil
		}
		fc.r.expireOwn(lastTs)

		var kept []expiryEntry
		for i, e := range fc.checkExpired {
			if e.deadline >= lastTs {
				kept = append(kept, e)
				continue
			}
			holder, ok := thresholdHolder(root(n))
			if ok {
				holder.setThreshold(lastTs)
			}
			fc.l.pushUnhandled(e.pm)
			err := fc.handleNewPartialMatch(fc.l)
			if ok {
				holder.setThreshold(0)
			}
			if err != nil {
				fc.checkExpired = append(kept, fc.checkExpired[i+1:]...)
				return err
			}
		}
		fc.checkExpired = kept
	}
	return nil
}

func appendEOF(r Node, pms []PartialMatch) {
	if len(pms) == 0 {
		return
	}
	switch t := r.(type) {
	case *FirstChanceNegationNode:
		t.matchesToHandleAtEOF = append(t.matchesToHandleAtEOF, pms...)
	case *PostProcessingNegationNode:
		t.matchesToHandleAtEOF = append(t.matchesToHandleAtEOF, pms...)
	}
}

type thresholdSetter interface {
	setThreshold(int64)
}

// thresholdHolder finds the node that should carry the un-invalidation
// threshold: normally the root, but if the root is an is_last
// FirstChanceNegationNode (which never consults its own threshold) the
// search descends through the chain of trailing is_last FirstChance
// nodes until it reaches one that does.
func thresholdHolder(r Node) (thresholdSetter, bool) {
	cur := r
	for {
		fc, ok := cur.(*FirstChanceNegationNode)
		if !ok || !fc.isLast {
			break
		}
		cur = fc.l
	}
	ts, ok := cur.(thresholdSetter)
	return ts, ok
}

// firstLastNegativeNode descends through the chain of trailing is_last
// negation nodes starting at n's left child, stopping at the first one
// whose own left child is not itself a trailing negation. That node is
// where timed-out-but-not-yet-invalidated matches are actually parked.
func firstLastNegativeNode(n binaryNode) Node {
	var cur Node = n
	for {
		b, ok := cur.(binaryNode)
		if !ok {
			return cur
		}
		left := b.left()
		if neg, ok := asNegationLike(left); ok && neg.isLastFlag() {
			cur = left
			continue
		}
		return cur
	}
}
