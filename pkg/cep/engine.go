package cep

import "github.com/rs/zerolog/log"

// Engine dispatches incoming events to the leaves of a compiled Tree that
// listen for their type, and drains whatever full matches that dispatch
// produced. Grounded on Tree.get_leaves / CEP.run's per-event dispatch
// loop in original_source/evaluation/TreeBasedEvaluationMechanism.py and
// CEP.py, wired the way the teacher's MatchSeq/MatchSet process one event
// at a time rather than operating on a whole batch.
type Engine struct {
	tree *Tree
}

// NewEngine compiles pattern under shape and mode and returns an Engine
// ready to consume events. A nil shape builds the left-leaning chain over
// pattern's positive placeholders in source order (DefaultShape).
func NewEngine(pattern Pattern, shape *Shape, mode NegationMode) (*Engine, error) {
	t, err := BuildTree(pattern, shape, mode)
	if err != nil {
		return nil, err
	}
	return &Engine{tree: t}, nil
}

// Feed dispatches e to every leaf registered for e.EventType, in leaf
// order, and returns any full matches the tree produced as a result.
// An event whose type matches no leaf is silently dropped, same as a
// LeafNode that never receives its type.
func (e *Engine) Feed(ev Event) ([]PartialMatch, error) {
	leaves := e.tree.LeavesFor(ev.EventType)
	if len(leaves) == 0 {
		log.Trace().Str("event_type", ev.EventType).Msg("cep: no leaf registered for event type")
		return nil, nil
	}
	for _, leaf := range leaves {
		if err := leaf.handleEvent(ev); err != nil {
			return nil, err
		}
	}
	return e.tree.DrainMatches(), nil
}

// Flush signals end-of-stream: it returns every match still alive at the
// root plus whatever trailing-negation matches survived without ever
// being invalidated (spec.md §6, Tree.handle_EOF). Call once, after the
// last event has been fed.
func (e *Engine) Flush() []PartialMatch {
	out := e.tree.DrainMatches()
	out = append(out, e.tree.EOFMatches()...)
	return out
}

// Root exposes the compiled tree's root node, mainly for tests that need
// to inspect node-level state directly.
func (e *Engine) Root() Node { return e.tree.Root() }
