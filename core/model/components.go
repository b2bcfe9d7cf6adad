package model

import "math"

// Component is one of Source, Sink, Converter or Storage. The set is closed:
// compilers handle every kind through ComponentVisitor, so a new kind cannot
// be added without every visitor implementing it.
type Component interface {
	ComponentName() string
	// Touches lists the resources the component exchanges with the system.
	Touches() []Resource
	CashflowTerms() []Cashflow
	Accept(v ComponentVisitor) error

	validate(n int, catalog map[Resource]bool) []error
}

// ComponentVisitor is implemented by anything that needs to treat every
// component kind.
type ComponentVisitor interface {
	VisitSource(*Source) error
	VisitSink(*Sink) error
	VisitConverter(*Converter) error
	VisitStorage(*Storage) error
}

// Capacity bounds a component's reference flow at every step. Min may be
// empty, meaning zero everywhere.
type Capacity struct {
	Max Profile
	Min Profile
}

// Bounds returns the flow bounds at step t. Fixed components are pinned to Max.
func (c Capacity) Bounds(t int, fixed bool) (lo, hi float64) {
	hi = c.Max[t]
	if fixed {
		return hi, hi
	}
	return c.Min.At(t, 0), hi
}

func (c Capacity) validate(component string, n int) []error {
	var errs []error
	if len(c.Max) != n {
		return append(errs, configErr(component, "max capacity", "profile length %d does not match horizon length %d", len(c.Max), n))
	}
	if len(c.Min) > 0 && len(c.Min) != n {
		return append(errs, configErr(component, "min capacity", "profile length %d does not match horizon length %d", len(c.Min), n))
	}
	for t := 0; t < n; t++ {
		hi, lo := c.Max[t], c.Min.At(t, 0)
		switch {
		case math.IsNaN(hi) || math.IsInf(hi, 0) || hi < 0:
			errs = append(errs, configErr(component, "max capacity", "value at step %d must be finite and non-negative, got %v", t, hi))
		case math.IsNaN(lo) || lo < 0:
			errs = append(errs, configErr(component, "min capacity", "value at step %d must be non-negative, got %v", t, lo))
		case lo > hi:
			errs = append(errs, configErr(component, "min capacity", "value at step %d exceeds max capacity (%v > %v)", t, lo, hi))
		}
	}
	return errs
}

// Ramp limits the step-to-step change of a component's reference flow. Use
// math.Inf(1) to leave one direction unlimited.
type Ramp struct {
	Up   float64
	Down float64
	// Frequency checks the limit only at steps t where t%Frequency == 0.
	// Zero falls back to the compiler default.
	Frequency int
	// InitialFlow is the flow before the first step. When nil no ramp limit
	// applies at step 0.
	InitialFlow *float64
}

func (r *Ramp) validate(component string) []error {
	if r == nil {
		return nil
	}
	var errs []error
	if math.IsNaN(r.Up) || r.Up <= 0 {
		errs = append(errs, configErr(component, "ramp up", "limit must be strictly positive, got %v", r.Up))
	}
	if math.IsNaN(r.Down) || r.Down <= 0 {
		errs = append(errs, configErr(component, "ramp down", "limit must be strictly positive, got %v", r.Down))
	}
	if r.Frequency < 0 {
		errs = append(errs, configErr(component, "ramp frequency", "must not be negative, got %d", r.Frequency))
	}
	if r.InitialFlow != nil && (!finite(*r.InitialFlow) || *r.InitialFlow < 0) {
		errs = append(errs, configErr(component, "ramp initial flow", "must be finite and non-negative, got %v", *r.InitialFlow))
	}
	return errs
}

// Source produces one resource, bounded by its capacity.
type Source struct {
	Name      string
	Produces  Resource
	Capacity  Capacity
	Ramp      *Ramp
	Fixed     bool
	Cashflows []Cashflow
}

func (s *Source) ComponentName() string           { return s.Name }
func (s *Source) Touches() []Resource             { return []Resource{s.Produces} }
func (s *Source) CashflowTerms() []Cashflow       { return s.Cashflows }
func (s *Source) Accept(v ComponentVisitor) error { return v.VisitSource(s) }
func (s *Source) validate(n int, catalog map[Resource]bool) []error {
	errs := checkKnown(s.Name, "produces", catalog, s.Produces)
	errs = append(errs, s.Capacity.validate(s.Name, n)...)
	errs = append(errs, s.Ramp.validate(s.Name)...)
	return append(errs, checkCashflows(s.Name, n, s.Cashflows, s.Produces)...)
}

// Sink consumes one resource, bounded by its capacity (the demand).
type Sink struct {
	Name      string
	Consumes  Resource
	Capacity  Capacity
	Ramp      *Ramp
	Fixed     bool
	Cashflows []Cashflow
}

func (s *Sink) ComponentName() string           { return s.Name }
func (s *Sink) Touches() []Resource             { return []Resource{s.Consumes} }
func (s *Sink) CashflowTerms() []Cashflow       { return s.Cashflows }
func (s *Sink) Accept(v ComponentVisitor) error { return v.VisitSink(s) }
func (s *Sink) validate(n int, catalog map[Resource]bool) []error {
	errs := checkKnown(s.Name, "consumes", catalog, s.Consumes)
	errs = append(errs, s.Capacity.validate(s.Name, n)...)
	errs = append(errs, s.Ramp.validate(s.Name)...)
	return append(errs, checkCashflows(s.Name, n, s.Cashflows, s.Consumes)...)
}

// Converter consumes and produces resources. Capacity bounds the flow of
// CapacityResource; Transfer derives every other flow from it.
type Converter struct {
	Name             string
	Consumes         []Resource
	Produces         []Resource
	CapacityResource Resource
	Transfer         TransferFunction
	Capacity         Capacity
	Ramp             *Ramp
	Fixed            bool
	Cashflows        []Cashflow
}

func (c *Converter) ComponentName() string { return c.Name }

// Touches returns consumed resources followed by produced ones.
func (c *Converter) Touches() []Resource {
	out := make([]Resource, 0, len(c.Consumes)+len(c.Produces))
	out = append(out, c.Consumes...)
	return append(out, c.Produces...)
}

func (c *Converter) CashflowTerms() []Cashflow       { return c.Cashflows }
func (c *Converter) Accept(v ComponentVisitor) error { return v.VisitConverter(c) }

// IsConsumed reports whether r is one of the converter's inputs.
func (c *Converter) IsConsumed(r Resource) bool {
	for _, in := range c.Consumes {
		if in == r {
			return true
		}
	}
	return false
}

func (c *Converter) validate(n int, catalog map[Resource]bool) []error {
	errs := checkKnown(c.Name, "consumes", catalog, c.Consumes...)
	errs = append(errs, checkKnown(c.Name, "produces", catalog, c.Produces...)...)
	errs = append(errs, c.Capacity.validate(c.Name, n)...)
	errs = append(errs, c.Ramp.validate(c.Name)...)

	declared := make(map[Resource]bool)
	for _, r := range c.Touches() {
		if declared[r] {
			errs = append(errs, configErr(c.Name, "resources", "resource %q declared more than once", r.Name))
		}
		declared[r] = true
	}
	if len(declared) == 0 {
		return append(errs, configErr(c.Name, "resources", "converter must consume or produce at least one resource"))
	}
	if !declared[c.CapacityResource] {
		errs = append(errs, configErr(c.Name, "capacity resource", "%q is neither consumed nor produced", c.CapacityResource.Name))
	}
	errs = append(errs, checkCashflows(c.Name, n, c.Cashflows, c.Touches()...)...)
	return append(errs, c.validateTransfer(n, declared)...)
}

func (c *Converter) validateTransfer(n int, declared map[Resource]bool) []error {
	if c.Transfer == nil {
		if len(declared) > 1 {
			return []error{configErr(c.Name, "transfer function", "required when more than one resource is declared")}
		}
		return nil
	}
	var errs []error
	related := make(map[Resource]bool)
	for _, r := range c.Transfer.Resources() {
		related[r] = true
		if !declared[r] {
			errs = append(errs, configErr(c.Name, "transfer function", "references resource %q absent from consumes/produces", r.Name))
		}
	}
	for _, r := range c.Touches() {
		if !related[r] {
			errs = append(errs, configErr(c.Name, "transfer function", "does not relate declared resource %q", r.Name))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	for t := 0; t < n; t++ {
		m, err := c.Transfer.Multipliers(c.CapacityResource, t)
		if err != nil {
			return append(errs, configErr(c.Name, "transfer function", "step %d: %v", t, err))
		}
		for r, v := range m {
			if !finite(v) || v <= 0 {
				errs = append(errs, configErr(c.Name, "transfer function", "multiplier of %q at step %d must be positive, got %v", r.Name, t, v))
			}
		}
	}
	return errs
}

// Storage holds one resource between steps. Capacity bounds the stored level.
type Storage struct {
	Name                string
	Resource            Resource
	Capacity            Profile
	RoundTripEfficiency float64
	// MaxChargeRate and MaxDischargeRate cap the per-step charge and
	// discharge. Nil means the step's capacity; zero forbids the leg.
	MaxChargeRate    *float64
	MaxDischargeRate *float64
	InitialLevel     float64
	// Periodic forces the level at the last step to equal the first.
	Periodic  bool
	Cashflows []Cashflow
}

func (s *Storage) ComponentName() string           { return s.Name }
func (s *Storage) Touches() []Resource             { return []Resource{s.Resource} }
func (s *Storage) CashflowTerms() []Cashflow       { return s.Cashflows }
func (s *Storage) Accept(v ComponentVisitor) error { return v.VisitStorage(s) }

// ChargeLimit returns the charge bound at step t.
func (s *Storage) ChargeLimit(t int) float64 { return rateAt(s.MaxChargeRate, s.Capacity[t]) }

// DischargeLimit returns the discharge bound at step t.
func (s *Storage) DischargeLimit(t int) float64 { return rateAt(s.MaxDischargeRate, s.Capacity[t]) }

func rateAt(rate *float64, capacity float64) float64 {
	if rate == nil {
		return capacity
	}
	return *rate
}

func (s *Storage) validate(n int, catalog map[Resource]bool) []error {
	errs := checkKnown(s.Name, "resource", catalog, s.Resource)
	if len(s.Capacity) != n {
		errs = append(errs, configErr(s.Name, "capacity", "profile length %d does not match horizon length %d", len(s.Capacity), n))
	} else {
		for t, v := range s.Capacity {
			if !finite(v) || v < 0 {
				errs = append(errs, configErr(s.Name, "capacity", "value at step %d must be finite and non-negative, got %v", t, v))
			}
		}
		if n > 0 && (math.IsNaN(s.InitialLevel) || s.InitialLevel < 0 || s.InitialLevel > s.Capacity[0]) {
			errs = append(errs, configErr(s.Name, "initial level", "must lie in [0, %v], got %v", s.Capacity[0], s.InitialLevel))
		}
	}
	if math.IsNaN(s.RoundTripEfficiency) || s.RoundTripEfficiency <= 0 || s.RoundTripEfficiency > 1 {
		errs = append(errs, configErr(s.Name, "round trip efficiency", "must lie in (0, 1], got %v", s.RoundTripEfficiency))
	}
	if r := s.MaxChargeRate; r != nil && (!finite(*r) || *r < 0) {
		errs = append(errs, configErr(s.Name, "max charge rate", "must be finite and non-negative, got %v", *r))
	}
	if r := s.MaxDischargeRate; r != nil && (!finite(*r) || *r < 0) {
		errs = append(errs, configErr(s.Name, "max discharge rate", "must be finite and non-negative, got %v", *r))
	}
	return append(errs, checkCashflows(s.Name, n, s.Cashflows, s.Resource)...)
}

func checkKnown(component, field string, catalog map[Resource]bool, rs ...Resource) []error {
	var errs []error
	for _, r := range rs {
		if !catalog[r] {
			errs = append(errs, configErr(component, field, "undefined resource %q", r.Name))
		}
	}
	return errs
}

// checkCashflows validates each cashflow and the flow it prices.
func checkCashflows(component string, n int, cfs []Cashflow, allowed ...Resource) []error {
	var errs []error
	for _, cf := range cfs {
		errs = append(errs, cf.validate(component, n)...)
		if cf.Resource == (Resource{}) {
			continue
		}
		ok := false
		for _, r := range allowed {
			if r == cf.Resource {
				ok = true
				break
			}
		}
		if !ok {
			errs = append(errs, configErr(component, "cashflow "+cf.Name, "prices resource %q not touched by the component", cf.Resource.Name))
		}
	}
	return errs
}
