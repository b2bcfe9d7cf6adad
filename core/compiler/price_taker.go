package compiler

import (
	"fmt"
	"math"

	"github.com/kilianp07/ecodispatch/core/model"
	"github.com/kilianp07/ecodispatch/core/program"
)

// priceTaker maximises the sum of cashflows at exogenous prices. Every flow
// variable is a non-negative magnitude; its direction comes from its role.
type priceTaker struct{}

func (priceTaker) Compile(sys *model.System, opts Options) (*program.Program, error) {
	if sys == nil {
		return nil, &model.ConfigurationError{Field: "system", Reason: "must not be nil"}
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	b := &builder{
		sys:     sys,
		opts:    opts,
		n:       sys.Horizon.Len(),
		prog:    program.New(PriceTaker.String(), sys.Horizon.Labels()),
		balance: make(map[model.Resource][][]program.Term, len(sys.Resources)),
	}
	for _, r := range sys.Resources {
		b.balance[r] = make([][]program.Term, b.n)
	}
	for _, c := range sys.Components {
		if err := c.Accept(b); err != nil {
			return nil, err
		}
	}
	if err := b.addBalances(); err != nil {
		return nil, err
	}

	opts.Logger.Debugw("program compiled", map[string]any{
		"strategy":    PriceTaker.String(),
		"steps":       b.n,
		"variables":   b.prog.NumVariables(),
		"constraints": b.prog.NumConstraints(),
	})
	return b.prog, nil
}

// builder is the ComponentVisitor that emits variables and constraints. Flows
// are collected per resource and step and closed by addBalances.
type builder struct {
	sys     *model.System
	opts    Options
	n       int
	prog    *program.Program
	balance map[model.Resource][][]program.Term
}

func (b *builder) fail(reason string, err error) error {
	return &CompilationError{Strategy: PriceTaker.String(), Reason: reason, Err: err}
}

// flows creates one variable per step for component/resource/role and records
// its signed contribution to the resource balance.
func (b *builder) flows(component string, r model.Resource, role program.Role, bounds func(t int) (float64, float64)) ([]int, error) {
	vars := make([]int, b.n)
	for t := 0; t < b.n; t++ {
		lo, hi := bounds(t)
		v, err := b.prog.AddVariable(program.Key{Component: component, Resource: r.Name, Role: role, Step: t}, lo, hi)
		if err != nil {
			return nil, b.fail("variable", err)
		}
		vars[t] = v
		if role.Sign() != 0 {
			b.balance[r][t] = append(b.balance[r][t], program.Term{Var: v, Coef: role.Sign()})
		}
	}
	return vars, nil
}

func (b *builder) constrain(c program.Constraint) error {
	if err := b.prog.AddConstraint(c); err != nil {
		return b.fail("constraint", err)
	}
	return nil
}

func capacityBounds(c model.Capacity, fixed bool) func(int) (float64, float64) {
	return func(t int) (float64, float64) { return c.Bounds(t, fixed) }
}

func unbounded(int) (float64, float64) { return 0, math.Inf(1) }

func (b *builder) VisitSource(s *model.Source) error {
	vars, err := b.flows(s.Name, s.Produces, program.RoleProduce, capacityBounds(s.Capacity, s.Fixed))
	if err != nil {
		return err
	}
	if err := b.ramp(s.Name, s.Ramp, vars); err != nil {
		return err
	}
	return b.cashflows(s.Cashflows, func(model.Resource) []int { return vars })
}

func (b *builder) VisitSink(s *model.Sink) error {
	vars, err := b.flows(s.Name, s.Consumes, program.RoleConsume, capacityBounds(s.Capacity, s.Fixed))
	if err != nil {
		return err
	}
	if err := b.ramp(s.Name, s.Ramp, vars); err != nil {
		return err
	}
	return b.cashflows(s.Cashflows, func(model.Resource) []int { return vars })
}

func (b *builder) VisitConverter(c *model.Converter) error {
	flows := make(map[model.Resource][]int, len(c.Consumes)+len(c.Produces))
	for _, r := range c.Touches() {
		role := program.RoleProduce
		if c.IsConsumed(r) {
			role = program.RoleConsume
		}
		bounds := unbounded
		if r == c.CapacityResource {
			bounds = capacityBounds(c.Capacity, c.Fixed)
		}
		vars, err := b.flows(c.Name, r, role, bounds)
		if err != nil {
			return err
		}
		flows[r] = vars
	}

	ref := flows[c.CapacityResource]
	if c.Transfer != nil {
		for t := 0; t < b.n; t++ {
			m, err := c.Transfer.Multipliers(c.CapacityResource, t)
			if err != nil {
				return b.fail(fmt.Sprintf("transfer of %s", c.Name), err)
			}
			for _, r := range c.Touches() {
				if r == c.CapacityResource {
					continue
				}
				ratio, ok := m[r]
				if !ok {
					return b.fail(fmt.Sprintf("transfer of %s has no multiplier for %q", c.Name, r.Name), nil)
				}
				err := b.constrain(program.Constraint{
					Name:  fmt.Sprintf("transfer[%s,%s,%d]", c.Name, r.Name, t),
					Terms: []program.Term{{Var: flows[r][t], Coef: 1}, {Var: ref[t], Coef: -ratio}},
					Sense: program.Equal,
				})
				if err != nil {
					return err
				}
			}
		}
	}

	if err := b.ramp(c.Name, c.Ramp, ref); err != nil {
		return err
	}
	return b.cashflows(c.Cashflows, func(r model.Resource) []int {
		if r == (model.Resource{}) {
			return ref
		}
		return flows[r]
	})
}

func (b *builder) VisitStorage(s *model.Storage) error {
	level, err := b.flows(s.Name, s.Resource, program.RoleLevel, func(t int) (float64, float64) { return 0, s.Capacity[t] })
	if err != nil {
		return err
	}
	charge, err := b.flows(s.Name, s.Resource, program.RoleCharge, func(t int) (float64, float64) { return 0, s.ChargeLimit(t) })
	if err != nil {
		return err
	}
	discharge, err := b.flows(s.Name, s.Resource, program.RoleDischarge, func(t int) (float64, float64) { return 0, s.DischargeLimit(t) })
	if err != nil {
		return err
	}

	// level[t] = level[t-1] + charge[t]*sqrt(eta) - discharge[t]/sqrt(eta)
	leg := math.Sqrt(s.RoundTripEfficiency)
	for t := 0; t < b.n; t++ {
		terms := []program.Term{
			{Var: level[t], Coef: 1},
			{Var: charge[t], Coef: -leg},
			{Var: discharge[t], Coef: 1 / leg},
		}
		rhs := s.InitialLevel
		if t > 0 {
			terms = append(terms, program.Term{Var: level[t-1], Coef: -1})
			rhs = 0
		}
		err := b.constrain(program.Constraint{
			Name:  fmt.Sprintf("storage[%s,%d]", s.Name, t),
			Terms: terms,
			Sense: program.Equal,
			RHS:   rhs,
		})
		if err != nil {
			return err
		}
	}

	// A single step would yield 0 == 0.
	if s.Periodic && b.n > 1 {
		err := b.constrain(program.Constraint{
			Name:  fmt.Sprintf("periodic[%s]", s.Name),
			Terms: []program.Term{{Var: level[b.n-1], Coef: 1}, {Var: level[0], Coef: -1}},
			Sense: program.Equal,
		})
		if err != nil {
			return err
		}
	}
	return b.cashflows(s.Cashflows, func(model.Resource) []int { return discharge })
}

// ramp limits flow[t]-flow[t-1] at the steps selected by the check frequency.
// Step 0 is only limited when the prior flow is known.
func (b *builder) ramp(component string, r *model.Ramp, vars []int) error {
	if r == nil {
		return nil
	}
	k := r.Frequency
	if k == 0 {
		k = b.opts.RampFrequency
	}
	for t := 0; t < b.n; t += k {
		var (
			up, down []program.Term
			rhsUp    = r.Up
			rhsDown  = r.Down
		)
		if t == 0 {
			if r.InitialFlow == nil {
				continue
			}
			up = []program.Term{{Var: vars[0], Coef: 1}}
			down = []program.Term{{Var: vars[0], Coef: -1}}
			rhsUp += *r.InitialFlow
			rhsDown -= *r.InitialFlow
		} else {
			up = []program.Term{{Var: vars[t], Coef: 1}, {Var: vars[t-1], Coef: -1}}
			down = []program.Term{{Var: vars[t-1], Coef: 1}, {Var: vars[t], Coef: -1}}
		}
		if !math.IsInf(r.Up, 1) {
			err := b.constrain(program.Constraint{Name: fmt.Sprintf("ramp_up[%s,%d]", component, t), Terms: up, Sense: program.LessEqual, RHS: rhsUp})
			if err != nil {
				return err
			}
		}
		if !math.IsInf(r.Down, 1) {
			err := b.constrain(program.Constraint{Name: fmt.Sprintf("ramp_down[%s,%d]", component, t), Terms: down, Sense: program.LessEqual, RHS: rhsDown})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// cashflows adds coefficient(t) * flow[t] to the objective for the flow each
// cashflow prices.
func (b *builder) cashflows(cfs []model.Cashflow, priced func(model.Resource) []int) error {
	for _, cf := range cfs {
		vars := priced(cf.Resource)
		if vars == nil {
			return b.fail(fmt.Sprintf("cashflow %s prices an unknown flow", cf.Name), nil)
		}
		for t := 0; t < b.n; t++ {
			coef := cf.Coefficient(t)
			if coef == 0 {
				continue
			}
			if err := b.prog.AddObjective(vars[t], coef); err != nil {
				return b.fail("objective", err)
			}
		}
	}
	return nil
}

// addBalances emits sum(signed flows) == 0 for every resource and step.
func (b *builder) addBalances() error {
	for _, r := range b.sys.Resources {
		for t := 0; t < b.n; t++ {
			terms := b.balance[r][t]
			if len(terms) == 0 {
				return b.fail(fmt.Sprintf("resource %q has no contributing component at step %d", r.Name, t), nil)
			}
			err := b.constrain(program.Constraint{
				Name:  fmt.Sprintf("balance[%s,%d]", r.Name, t),
				Terms: terms,
				Sense: program.Equal,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
