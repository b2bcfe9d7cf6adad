package model

import "math"

// CashflowKind defines whether a cashflow earns or spends money.
type CashflowKind int

const (
	Revenue CashflowKind = iota + 1
	Cost
)

// String returns a human-readable representation of the kind.
func (k CashflowKind) String() string {
	switch k {
	case Revenue:
		return "revenue"
	case Cost:
		return "cost"
	default:
		return "unknown"
	}
}

// Sign is +1 for revenues and -1 for costs.
func (k CashflowKind) Sign() float64 {
	if k == Cost {
		return -1
	}
	return 1
}

// Cashflow is a priced linear term on one flow of its component. The value at
// step t is Sign * Alpha * Prices[t] * flow, where flow is the magnitude of the
// priced flow. Prices defaults to 1 at every step when empty.
type Cashflow struct {
	Name   string
	Kind   CashflowKind
	Alpha  float64
	Prices Profile
	// Resource selects the priced flow on a Converter. The zero value means
	// the capacity resource. Storage cashflows price the discharge leg.
	Resource Resource
}

// NewRevenue returns a revenue cashflow.
func NewRevenue(name string, alpha float64, prices ...float64) Cashflow {
	return Cashflow{Name: name, Kind: Revenue, Alpha: alpha, Prices: prices}
}

// NewCost returns a cost cashflow.
func NewCost(name string, alpha float64, prices ...float64) Cashflow {
	return Cashflow{Name: name, Kind: Cost, Alpha: alpha, Prices: prices}
}

// Coefficient returns the per-unit objective coefficient at step t.
func (c Cashflow) Coefficient(t int) float64 {
	return c.Kind.Sign() * c.Alpha * c.Prices.At(t, 1)
}

func (c Cashflow) validate(component string, n int) []error {
	var errs []error
	field := "cashflow " + c.Name
	if c.Kind != Revenue && c.Kind != Cost {
		errs = append(errs, configErr(component, field, "kind must be revenue or cost"))
	}
	if !finite(c.Alpha) {
		errs = append(errs, configErr(component, field, "alpha must be finite, got %v", c.Alpha))
	}
	if len(c.Prices) > 0 && len(c.Prices) != n {
		errs = append(errs, configErr(component, field, "price profile length %d does not match horizon length %d", len(c.Prices), n))
	}
	for t, p := range c.Prices {
		if !finite(p) {
			errs = append(errs, configErr(component, field, "price at step %d is not finite", t))
		}
	}
	return errs
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
