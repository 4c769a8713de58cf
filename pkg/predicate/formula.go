package predicate

import "fmt"

// ErrUnboundName is returned by Eval when a Term references an identifier
// absent from the binding — surfaced by pkg/cep as a fatal
// UnboundNameError.
type ErrUnboundName struct{ Name string }

func (e ErrUnboundName) Error() string {
	return fmt.Sprintf("identifier %q is not bound to a value", e.Name)
}

// Formula returns whether the bound parameters satisfy it. It is the
// concrete implementer of pkg/cep.Predicate.
type Formula interface {
	// Eval evaluates the formula against b. err is non-nil (an
	// ErrUnboundName) exactly when an identifier the formula requires is
	// missing from b.
	Eval(b Binding) (result bool, err error)
	// Project restricts the formula to a subset of names, returning
	// (nil, false) if no part of the formula can be expressed using only
	// those names.
	Project(names map[string]struct{}) (Formula, bool)
	// TermsFor returns the names of every identifier that co-occurs with
	// name in some atomic sub-formula of this formula.
	TermsFor(name string) map[string]struct{}
}

func safeEval(f evaluator, b Binding) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if p, ok := r.(unboundNamePanic); ok {
				err = ErrUnboundName{Name: p.name}
				return
			}
			panic(r)
		}
	}()
	return f.evalUnsafe(b), nil
}

// evaluator is implemented by every concrete Formula so Eval can share the
// panic-recovery wrapper above.
type evaluator interface {
	evalUnsafe(b Binding) bool
}

// AtomicFormula is a formula with no logic operators, e.g. "a.v < b.v".
type AtomicFormula struct {
	Left, Right Term
	Rel         func(a, b any) bool
	rebuild     func(l, r Term) AtomicFormula
	name        string
}

func (f AtomicFormula) Eval(b Binding) (bool, error) { return safeEval(f, b) }

func (f AtomicFormula) evalUnsafe(b Binding) bool {
	return f.Rel(f.Left.Eval(b), f.Right.Eval(b))
}

func (f AtomicFormula) Project(names map[string]struct{}) (Formula, bool) {
	l := f.Left.TermOf(names)
	r := f.Right.TermOf(names)
	if l == nil || r == nil {
		return nil, false
	}
	nf := f.rebuild(l, r)
	return nf, true
}

func (f AtomicFormula) TermsFor(name string) map[string]struct{} {
	li, lok := f.Left.(IdentifierTerm)
	ri, rok := f.Right.(IdentifierTerm)
	if !lok || !rok {
		return nil
	}
	if li.Name != name && ri.Name != name {
		return nil
	}
	return map[string]struct{}{li.Name: {}, ri.Name: {}}
}

func relOp(name string, rel func(a, b any) bool) func(l, r Term) AtomicFormula {
	return func(l, r Term) AtomicFormula {
		return AtomicFormula{Left: l, Right: r, Rel: rel, rebuild: relOp(name, rel), name: name}
	}
}

func numRel(cmp func(a, b float64) bool) func(a, b any) bool {
	return func(a, b any) bool { return cmp(toFloat(a), toFloat(b)) }
}

func Eq(l, r Term) Formula {
	return relOp("eq", func(a, b any) bool { return a == b })(l, r)
}

func NotEq(l, r Term) Formula {
	return relOp("ne", func(a, b any) bool { return a != b })(l, r)
}

func GreaterThan(l, r Term) Formula {
	return relOp("gt", numRel(func(a, b float64) bool { return a > b }))(l, r)
}

func SmallerThan(l, r Term) Formula {
	return relOp("lt", numRel(func(a, b float64) bool { return a < b }))(l, r)
}

func GreaterThanEq(l, r Term) Formula {
	return relOp("ge", numRel(func(a, b float64) bool { return a >= b }))(l, r)
}

func SmallerThanEq(l, r Term) Formula {
	return relOp("le", numRel(func(a, b float64) bool { return a <= b }))(l, r)
}

// binaryLogicFormula is a formula composed of a logic operator and two
// nested formulas (And / Or).
type binaryLogicFormula struct {
	left, right Formula
	op          func(a, b bool) bool
	isAnd       bool
}

func (f binaryLogicFormula) Eval(b Binding) (bool, error) { return safeEval(f, b) }

func (f binaryLogicFormula) evalUnsafe(b Binding) bool {
	lv := mustEvalUnsafe(f.left, b)
	rv := mustEvalUnsafe(f.right, b)
	return f.op(lv, rv)
}

func mustEvalUnsafe(f Formula, b Binding) bool {
	if ev, ok := f.(evaluator); ok {
		return ev.evalUnsafe(b)
	}
	// Fallback for externally supplied Formula implementations that
	// don't expose evalUnsafe: eval and re-panic on error so safeEval's
	// recover still converts it correctly.
	ok2, err := f.Eval(b)
	if err != nil {
		if eu, ok3 := err.(ErrUnboundName); ok3 {
			panic(unboundNamePanic{name: eu.Name})
		}
	}
	return ok2
}

func (f binaryLogicFormula) Project(names map[string]struct{}) (Formula, bool) {
	l, lok := f.left.Project(names)
	r, rok := f.right.Project(names)
	switch {
	case lok && rok:
		return binaryLogicFormula{left: l, right: r, op: f.op, isAnd: f.isAnd}, true
	case lok:
		return l, true
	case rok:
		return r, true
	default:
		return nil, false
	}
}

func (f binaryLogicFormula) TermsFor(name string) map[string]struct{} {
	l := f.left.TermsFor(name)
	r := f.right.TermsFor(name)
	return unionSet(l, r)
}

func unionSet(a, b map[string]struct{}) map[string]struct{} {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func And(l, r Formula) Formula {
	return binaryLogicFormula{left: l, right: r, op: func(a, b bool) bool { return a && b }, isAnd: true}
}

func Or(l, r Formula) Formula {
	return binaryLogicFormula{left: l, right: r, op: func(a, b bool) bool { return a || b }, isAnd: false}
}

// True is the tautology every node's condition starts as. Project on
// other formulas does not fall back to it: an empty projection reports
// false, and pkg/cep substitutes True in that case.
type True struct{}

func (True) Eval(Binding) (bool, error)                           { return true, nil }
func (True) evalUnsafe(Binding) bool                              { return true }
func (True) Project(map[string]struct{}) (Formula, bool)          { return True{}, true }
func (True) TermsFor(string) map[string]struct{}                  { return nil }
