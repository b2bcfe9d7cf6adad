// Package program holds the solver-neutral linear program produced by a
// compilation strategy: bounded variables, linear constraints and a
// maximisation objective, each traceable to the component it came from.
package program

import (
	"fmt"
	"math"
)

// Role identifies what a variable measures.
type Role int

const (
	RoleProduce Role = iota + 1
	RoleConsume
	RoleLevel
	RoleCharge
	RoleDischarge
)

// String returns a human-readable representation of the role.
func (r Role) String() string {
	switch r {
	case RoleProduce:
		return "produces"
	case RoleConsume:
		return "consumes"
	case RoleLevel:
		return "level"
	case RoleCharge:
		return "charge"
	case RoleDischarge:
		return "discharge"
	default:
		return "unknown"
	}
}

// Sign is the contribution of a unit of this variable to its resource
// balance: production and discharge add, consumption and charge remove.
func (r Role) Sign() float64 {
	switch r {
	case RoleProduce, RoleDischarge:
		return 1
	case RoleConsume, RoleCharge:
		return -1
	default:
		return 0
	}
}

// Key names a variable in domain terms.
type Key struct {
	Component string
	Resource  string
	Role      Role
	Step      int
}

func (k Key) String() string {
	return fmt.Sprintf("%s.%s.%s[%d]", k.Component, k.Resource, k.Role, k.Step)
}

// Variable is a bounded decision variable. Upper may be +Inf.
type Variable struct {
	Key   Key
	Lower float64
	Upper float64
}

// Sense is the relation between a constraint's left side and its RHS.
type Sense int

const (
	LessEqual Sense = iota + 1
	Equal
	GreaterEqual
)

// String returns the operator.
func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "=="
	case GreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// Term is coefficient * variable.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Program is a compiled linear program. The objective is always maximised.
// Programs are built by one goroutine and read-only afterwards.
type Program struct {
	Strategy string
	steps    []int
	vars     []Variable
	index    map[Key]int
	cons     []Constraint
	obj      map[int]float64
	objOrder []int
}

// New returns an empty program over the given step labels.
func New(strategy string, steps []int) *Program {
	cp := make([]int, len(steps))
	copy(cp, steps)
	return &Program{Strategy: strategy, steps: cp, index: make(map[Key]int), obj: make(map[int]float64)}
}

// AddVariable creates a variable and returns its index.
func (p *Program) AddVariable(key Key, lower, upper float64) (int, error) {
	if _, ok := p.index[key]; ok {
		return 0, fmt.Errorf("duplicate variable %s", key)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		return 0, fmt.Errorf("variable %s: invalid bounds [%v, %v]", key, lower, upper)
	}
	p.vars = append(p.vars, Variable{Key: key, Lower: lower, Upper: upper})
	i := len(p.vars) - 1
	p.index[key] = i
	return i, nil
}

// Lookup returns the index of the variable with the given key.
func (p *Program) Lookup(key Key) (int, bool) {
	i, ok := p.index[key]
	return i, ok
}

// AddConstraint appends a constraint. Terms on the same variable are merged.
func (p *Program) AddConstraint(c Constraint) error {
	if len(c.Terms) == 0 {
		return fmt.Errorf("constraint %s has no terms", c.Name)
	}
	merged := make([]Term, 0, len(c.Terms))
	pos := make(map[int]int, len(c.Terms))
	for _, t := range c.Terms {
		if t.Var < 0 || t.Var >= len(p.vars) {
			return fmt.Errorf("constraint %s references unknown variable %d", c.Name, t.Var)
		}
		if j, ok := pos[t.Var]; ok {
			merged[j].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(merged)
		merged = append(merged, t)
	}
	c.Terms = merged
	p.cons = append(p.cons, c)
	return nil
}

// AddObjective adds coef to the objective coefficient of variable v.
func (p *Program) AddObjective(v int, coef float64) error {
	if v < 0 || v >= len(p.vars) {
		return fmt.Errorf("objective references unknown variable %d", v)
	}
	if _, ok := p.obj[v]; !ok {
		p.objOrder = append(p.objOrder, v)
	}
	p.obj[v] += coef
	return nil
}

// Steps returns the horizon labels the program was compiled over.
func (p *Program) Steps() []int {
	cp := make([]int, len(p.steps))
	copy(cp, p.steps)
	return cp
}

// NumVariables returns the variable count.
func (p *Program) NumVariables() int { return len(p.vars) }

// NumConstraints returns the constraint count.
func (p *Program) NumConstraints() int { return len(p.cons) }

// Variable returns variable i.
func (p *Program) Variable(i int) Variable { return p.vars[i] }

// Variables returns a copy of all variables in index order.
func (p *Program) Variables() []Variable {
	cp := make([]Variable, len(p.vars))
	copy(cp, p.vars)
	return cp
}

// Constraints returns a copy of all constraints in insertion order.
func (p *Program) Constraints() []Constraint {
	cp := make([]Constraint, len(p.cons))
	for i, c := range p.cons {
		c.Terms = append([]Term(nil), c.Terms...)
		cp[i] = c
	}
	return cp
}

// Objective returns the objective terms in insertion order.
func (p *Program) Objective() []Term {
	out := make([]Term, 0, len(p.objOrder))
	for _, v := range p.objOrder {
		out = append(out, Term{Var: v, Coef: p.obj[v]})
	}
	return out
}

// ObjectiveCoefficients returns the dense objective vector.
func (p *Program) ObjectiveCoefficients() []float64 {
	c := make([]float64, len(p.vars))
	for v, coef := range p.obj {
		c[v] = coef
	}
	return c
}

// Evaluate returns the objective value of an assignment.
func (p *Program) Evaluate(values []float64) float64 {
	var total float64
	for _, v := range p.objOrder {
		total += p.obj[v] * values[v]
	}
	return total
}
