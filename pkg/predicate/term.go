// Package predicate implements the boolean-formula-over-bindings
// abstraction the CEP core treats as an opaque collaborator
// (pkg/cep.Predicate): eval against a name→value binding, project onto a
// subset of names, and report which names co-occur in a condition with a
// given name.
//
// Grounded on original_source/base/Formula.py.
package predicate

// Binding maps a placeholder name to the payload value bound to it for a
// single candidate match.
type Binding map[string]any

// Term evaluates to a value, given a binding for any identifiers it
// references.
type Term interface {
	Eval(b Binding) any
	// TermOf returns the sub-term restricted to the given names, or nil
	// if the term cannot be expressed using only those names.
	TermOf(names map[string]struct{}) Term
}

// AtomicTerm is a constant term (e.g. the 7 in "x + 7").
type AtomicTerm struct {
	Value any
}

func (t AtomicTerm) Eval(Binding) any { return t.Value }

func (t AtomicTerm) TermOf(map[string]struct{}) Term { return t }

// IdentifierTerm names a single placeholder attribute (e.g. the x in
// "x*2 < y+7"). GetAttr extracts the bound value's relevant field; nil
// means "use the bound value as-is".
type IdentifierTerm struct {
	Name    string
	GetAttr func(any) any
}

func (t IdentifierTerm) Eval(b Binding) any {
	v, ok := b[t.Name]
	if !ok {
		panic(unboundNamePanic{name: t.Name})
	}
	if t.GetAttr != nil {
		return t.GetAttr(v)
	}
	return v
}

func (t IdentifierTerm) TermOf(names map[string]struct{}) Term {
	if _, ok := names[t.Name]; ok {
		return t
	}
	return nil
}

// unboundNamePanic lets Eval signal a missing binding without every Term
// implementation threading an error return; the top-level predicate.Eval
// recovers it and converts it to the UnboundNameError kind the core
// surfaces as fatal.
type unboundNamePanic struct{ name string }

type binaryTerm struct {
	lhs, rhs Term
	op       func(a, b any) any
	rebuild  func(lhs, rhs Term) Term
}

func (t binaryTerm) Eval(b Binding) any { return t.op(t.lhs.Eval(b), t.rhs.Eval(b)) }

func (t binaryTerm) TermOf(names map[string]struct{}) Term {
	lhs := t.lhs.TermOf(names)
	rhs := t.rhs.TermOf(names)
	if lhs == nil || rhs == nil {
		return nil
	}
	return t.rebuild(lhs, rhs)
}

func numOp(op func(a, b float64) float64) func(a, b any) any {
	return func(a, b any) any {
		return op(toFloat(a), toFloat(b))
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func Plus(lhs, rhs Term) Term {
	return binaryTerm{lhs: lhs, rhs: rhs, op: numOp(func(a, b float64) float64 { return a + b }), rebuild: Plus}
}

func Minus(lhs, rhs Term) Term {
	return binaryTerm{lhs: lhs, rhs: rhs, op: numOp(func(a, b float64) float64 { return a - b }), rebuild: Minus}
}

func Mul(lhs, rhs Term) Term {
	return binaryTerm{lhs: lhs, rhs: rhs, op: numOp(func(a, b float64) float64 { return a * b }), rebuild: Mul}
}

func Div(lhs, rhs Term) Term {
	return binaryTerm{lhs: lhs, rhs: rhs, op: numOp(func(a, b float64) float64 { return a / b }), rebuild: Div}
}
