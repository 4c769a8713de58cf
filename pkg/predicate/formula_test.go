package predicate

import "testing"

func idEq(name string, v any) Formula {
	return Eq(IdentifierTerm{Name: name}, AtomicTerm{Value: v})
}

func TestAtomicFormulaEval(t *testing.T) {
	f := GreaterThan(IdentifierTerm{Name: "a"}, IdentifierTerm{Name: "b"})

	tests := map[string]struct {
		b    Binding
		want bool
	}{
		"greater":  {b: Binding{"a": 5.0, "b": 2.0}, want: true},
		"equal":    {b: Binding{"a": 2.0, "b": 2.0}, want: false},
		"smaller":  {b: Binding{"a": 1.0, "b": 2.0}, want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := f.Eval(tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalUnboundName(t *testing.T) {
	f := idEq("a", "x")
	_, err := f.Eval(Binding{"b": "x"})
	if err == nil {
		t.Fatal("expected an error for unbound identifier")
	}
	if _, ok := err.(ErrUnboundName); !ok {
		t.Errorf("expected ErrUnboundName, got %T: %v", err, err)
	}
}

func TestAndOrEval(t *testing.T) {
	a := idEq("x", 1.0)
	b := idEq("y", 2.0)

	and := And(a, b)
	or := Or(a, b)

	binding := Binding{"x": 1.0, "y": 9.0}

	if ok, _ := and.Eval(binding); ok {
		t.Error("expected AND to fail when only one side matches")
	}
	if ok, err := or.Eval(binding); err != nil || !ok {
		t.Errorf("expected OR to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestProjectRestrictsToNames(t *testing.T) {
	f := And(idEq("x", 1.0), idEq("y", 2.0))

	proj, ok := f.Project(map[string]struct{}{"x": {}})
	if !ok {
		t.Fatal("expected projection onto {x} to succeed")
	}

	// The y-side atom should have dropped out entirely, leaving just the
	// x==1 atom: binding only x must now be enough to evaluate it.
	got, err := proj.Eval(Binding{"x": 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Errorf("expected projected formula to hold for x=1")
	}
}

func TestProjectOntoUnrelatedNamesFails(t *testing.T) {
	f := idEq("x", 1.0)
	_, ok := f.Project(map[string]struct{}{"z": {}})
	if ok {
		t.Error("expected projection onto an unrelated name set to fail")
	}
}

func TestTermsFor(t *testing.T) {
	f := GreaterThan(IdentifierTerm{Name: "a"}, IdentifierTerm{Name: "b"})
	got := f.TermsFor("a")
	if _, ok := got["b"]; !ok {
		t.Errorf("expected TermsFor(a) to include b, got %v", got)
	}
	if got := f.TermsFor("c"); got != nil {
		t.Errorf("expected TermsFor(c) to be empty, got %v", got)
	}
}

func TestTrueAlwaysHolds(t *testing.T) {
	ok, err := True{}.Eval(Binding{})
	if err != nil || !ok {
		t.Errorf("expected True to hold unconditionally, got ok=%v err=%v", ok, err)
	}
}

func TestArithmeticTerms(t *testing.T) {
	sum := Plus(IdentifierTerm{Name: "a"}, AtomicTerm{Value: 1.0})
	f := Eq(sum, IdentifierTerm{Name: "b"})

	ok, err := f.Eval(Binding{"a": 4.0, "b": 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected a+1 == b to hold for a=4, b=5")
	}
}
