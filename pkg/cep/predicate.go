package cep

import "github.com/prequel-dev/prequel-cep/pkg/predicate"

// Predicate is the opaque boolean formula over identifier-to-value
// bindings that every node's condition is built from. The CEP core never
// constructs one itself beyond the tautology (predicate.True{}); the
// concrete implementation lives in pkg/predicate, grounded on
// original_source/base/Formula.py.
type Predicate = predicate.Formula

// Binding maps a placeholder name to the payload value bound to it.
type Binding = predicate.Binding

// truePredicate is every node's condition before a pattern predicate has
// been distributed onto it, and what projectPredicate falls back to when
// a projection would otherwise be empty.
var truePredicate Predicate = predicate.True{}

func evalPredicate(p Predicate, b Binding) (bool, error) {
	ok, err := p.Eval(b)
	if err != nil {
		return false, wrapErr(KindUnboundName, err)
	}
	return ok, nil
}

func projectPredicate(p Predicate, names map[string]struct{}) Predicate {
	proj, ok := p.Project(names)
	if !ok || proj == nil {
		return truePredicate
	}
	return proj
}
