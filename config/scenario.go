package config

import (
	"fmt"
	"math"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/ecodispatch/core/model"
)

// Scenario is the declarative form of a model.System.
type Scenario struct {
	// Horizon lists step labels. Steps is used when Horizon is empty.
	Horizon    []int           `json:"horizon"`
	Steps      int             `json:"steps"`
	Resources  []ResourceSpec  `json:"resources"`
	Components []ComponentSpec `json:"components"`
}

// ResourceSpec declares a resource.
type ResourceSpec struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// CapacitySpec holds min and max profiles.
type CapacitySpec struct {
	Max []float64 `json:"max"`
	Min []float64 `json:"min"`
}

// RampSpec leaves a direction unlimited when it is omitted.
type RampSpec struct {
	Up          *float64 `json:"up"`
	Down        *float64 `json:"down"`
	Frequency   int      `json:"frequency"`
	InitialFlow *float64 `json:"initial_flow"`
}

// CashflowSpec declares a revenue or a cost.
type CashflowSpec struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Alpha    *float64  `json:"alpha"`
	Prices   []float64 `json:"prices"`
	Resource string    `json:"resource"`
}

// ComponentSpec declares any component kind. Fields that do not apply to the
// kind are ignored.
type ComponentSpec struct {
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Capacity  CapacitySpec   `json:"capacity"`
	Ramp      *RampSpec      `json:"ramp"`
	Fixed     bool           `json:"fixed"`
	Cashflows []CashflowSpec `json:"cashflows"`

	// Source, Sink and Converter. A single name is accepted for one resource.
	Produces []string `json:"produces"`
	Consumes []string `json:"consumes"`

	// Converter
	CapacityResource string             `json:"capacity_resource"`
	Ratios           map[string]float64 `json:"ratios"`

	// Storage. Capacity.Max bounds the stored level.
	Resource            string   `json:"resource"`
	RoundTripEfficiency float64  `json:"round_trip_efficiency"`
	InitialLevel        float64  `json:"initial_level"`
	MaxChargeRate       *float64 `json:"max_charge_rate"`
	MaxDischargeRate    *float64 `json:"max_discharge_rate"`
	Periodic            bool     `json:"periodic"`
}

// LoadScenario reads a scenario file and builds the system it describes. The
// system is not validated; compilation does that.
func LoadScenario(path string) (*model.System, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	var sc Scenario
	if err := k.UnmarshalWithConf("", &sc, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	return sc.System()
}

// System converts the scenario into a model.System. Unknown resource names
// are kept so that validation reports them against the right component.
func (sc Scenario) System() (*model.System, error) {
	h := model.NewTimeHorizon(sc.Horizon...)
	if len(sc.Horizon) == 0 {
		h = model.Steps(sc.Steps)
	}
	sys := model.NewSystem(h)
	catalog := make(map[string]model.Resource, len(sc.Resources))
	for _, r := range sc.Resources {
		res := model.Resource{Name: r.Name, Unit: r.Unit}
		catalog[r.Name] = res
		sys.AddResource(res)
	}
	lookup := func(name string) model.Resource {
		if r, ok := catalog[name]; ok {
			return r
		}
		return model.NewResource(name)
	}

	for _, spec := range sc.Components {
		c, err := spec.component(lookup)
		if err != nil {
			return nil, err
		}
		sys.AddComponent(c)
	}
	return sys, nil
}

func (spec ComponentSpec) component(lookup func(string) model.Resource) (model.Component, error) {
	cashflows, err := spec.cashflows(lookup)
	if err != nil {
		return nil, err
	}
	capacity := model.Capacity{Max: spec.Capacity.Max, Min: spec.Capacity.Min}
	switch spec.Kind {
	case "source":
		r, err := spec.single("produces", spec.Produces, lookup)
		if err != nil {
			return nil, err
		}
		return &model.Source{Name: spec.Name, Produces: r, Capacity: capacity, Ramp: spec.ramp(), Fixed: spec.Fixed, Cashflows: cashflows}, nil
	case "sink":
		r, err := spec.single("consumes", spec.Consumes, lookup)
		if err != nil {
			return nil, err
		}
		return &model.Sink{Name: spec.Name, Consumes: r, Capacity: capacity, Ramp: spec.ramp(), Fixed: spec.Fixed, Cashflows: cashflows}, nil
	case "converter":
		conv := &model.Converter{
			Name:             spec.Name,
			Consumes:         resources(spec.Consumes, lookup),
			Produces:         resources(spec.Produces, lookup),
			CapacityResource: lookup(spec.CapacityResource),
			Capacity:         capacity,
			Ramp:             spec.ramp(),
			Fixed:            spec.Fixed,
			Cashflows:        cashflows,
		}
		if len(spec.Ratios) > 0 {
			ratios := make(map[model.Resource]float64, len(spec.Ratios))
			for name, v := range spec.Ratios {
				ratios[lookup(name)] = v
			}
			conv.Transfer = model.NewRatioTransfer(ratios)
		}
		return conv, nil
	case "storage":
		return &model.Storage{
			Name:                spec.Name,
			Resource:            lookup(spec.Resource),
			Capacity:            spec.Capacity.Max,
			RoundTripEfficiency: spec.RoundTripEfficiency,
			MaxChargeRate:       spec.MaxChargeRate,
			MaxDischargeRate:    spec.MaxDischargeRate,
			InitialLevel:        spec.InitialLevel,
			Periodic:            spec.Periodic,
			Cashflows:           cashflows,
		}, nil
	default:
		return nil, &model.ConfigurationError{Component: spec.Name, Field: "kind", Reason: fmt.Sprintf("unknown component kind %q", spec.Kind)}
	}
}

func (spec ComponentSpec) single(field string, names []string, lookup func(string) model.Resource) (model.Resource, error) {
	if len(names) != 1 {
		return model.Resource{}, &model.ConfigurationError{Component: spec.Name, Field: field, Reason: fmt.Sprintf("exactly one resource expected, got %d", len(names))}
	}
	return lookup(names[0]), nil
}

func (spec ComponentSpec) ramp() *model.Ramp {
	if spec.Ramp == nil {
		return nil
	}
	r := &model.Ramp{Up: math.Inf(1), Down: math.Inf(1), Frequency: spec.Ramp.Frequency, InitialFlow: spec.Ramp.InitialFlow}
	if spec.Ramp.Up != nil {
		r.Up = *spec.Ramp.Up
	}
	if spec.Ramp.Down != nil {
		r.Down = *spec.Ramp.Down
	}
	return r
}

func (spec ComponentSpec) cashflows(lookup func(string) model.Resource) ([]model.Cashflow, error) {
	out := make([]model.Cashflow, 0, len(spec.Cashflows))
	for _, cs := range spec.Cashflows {
		alpha := 1.0
		if cs.Alpha != nil {
			alpha = *cs.Alpha
		}
		var cf model.Cashflow
		switch cs.Kind {
		case "revenue", "":
			cf = model.NewRevenue(cs.Name, alpha, cs.Prices...)
		case "cost":
			cf = model.NewCost(cs.Name, alpha, cs.Prices...)
		default:
			return nil, &model.ConfigurationError{Component: spec.Name, Field: "cashflow " + cs.Name, Reason: fmt.Sprintf("unknown kind %q", cs.Kind)}
		}
		if cs.Resource != "" {
			cf.Resource = lookup(cs.Resource)
		}
		out = append(out, cf)
	}
	return out, nil
}

func resources(names []string, lookup func(string) model.Resource) []model.Resource {
	out := make([]model.Resource, len(names))
	for i, n := range names {
		out[i] = lookup(n)
	}
	return out
}
