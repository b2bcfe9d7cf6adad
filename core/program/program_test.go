package program

import (
	"math"
	"testing"
)

func TestAddVariable(t *testing.T) {
	p := New("test", []int{0, 1})
	k := Key{Component: "src", Resource: "e", Role: RoleProduce, Step: 0}
	i, err := p.AddVariable(k, 0, 3)
	if err != nil || i != 0 {
		t.Fatalf("add: %d %v", i, err)
	}
	if _, err := p.AddVariable(k, 0, 3); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := p.AddVariable(Key{Component: "x"}, 2, 1); err == nil {
		t.Fatalf("expected bounds error")
	}
	if _, err := p.AddVariable(Key{Component: "y"}, 0, math.Inf(1)); err != nil {
		t.Fatalf("unbounded above should be accepted: %v", err)
	}
	if got, ok := p.Lookup(k); !ok || got != 0 {
		t.Fatalf("lookup failed")
	}
}

func TestAddConstraintMergesTerms(t *testing.T) {
	p := New("test", []int{0})
	a, _ := p.AddVariable(Key{Component: "a"}, 0, 1)
	b, _ := p.AddVariable(Key{Component: "b"}, 0, 1)
	err := p.AddConstraint(Constraint{Name: "c", Terms: []Term{{a, 1}, {b, 2}, {a, 3}}, Sense: Equal})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	c := p.Constraints()[0]
	if len(c.Terms) != 2 || c.Terms[0].Coef != 4 || c.Terms[1].Coef != 2 {
		t.Fatalf("unexpected terms %+v", c.Terms)
	}
	if err := p.AddConstraint(Constraint{Name: "bad", Terms: []Term{{9, 1}}}); err == nil {
		t.Fatalf("expected unknown variable error")
	}
	if err := p.AddConstraint(Constraint{Name: "empty"}); err == nil {
		t.Fatalf("expected empty constraint error")
	}
}

func TestObjective(t *testing.T) {
	p := New("test", []int{0})
	a, _ := p.AddVariable(Key{Component: "a"}, 0, 1)
	b, _ := p.AddVariable(Key{Component: "b"}, 0, 1)
	_ = p.AddObjective(b, 2)
	_ = p.AddObjective(a, -1)
	_ = p.AddObjective(b, 0.5)

	terms := p.Objective()
	if len(terms) != 2 || terms[0].Var != b || terms[0].Coef != 2.5 {
		t.Fatalf("unexpected objective %+v", terms)
	}
	if got := p.Evaluate([]float64{1, 2}); got != 4 {
		t.Fatalf("evaluate = %v", got)
	}
	c := p.ObjectiveCoefficients()
	if c[a] != -1 || c[b] != 2.5 {
		t.Fatalf("dense objective %v", c)
	}
}

func TestRoleSign(t *testing.T) {
	if RoleProduce.Sign() != 1 || RoleDischarge.Sign() != 1 {
		t.Fatalf("production roles must add")
	}
	if RoleConsume.Sign() != -1 || RoleCharge.Sign() != -1 {
		t.Fatalf("consumption roles must remove")
	}
	if RoleLevel.Sign() != 0 {
		t.Fatalf("level does not enter balances")
	}
}
