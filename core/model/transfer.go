package model

import (
	"fmt"
	"sort"
)

// TransferFunction converts a Converter's reference flow into the flows of its
// other resources. Implementations must stay linear: every related flow is an
// exact multiple of the reference flow at a given step.
type TransferFunction interface {
	// Resources lists every resource the function relates, reference included.
	Resources() []Resource
	// Multipliers returns flow_r / flow_reference for every related resource
	// other than reference at step t.
	Multipliers(reference Resource, t int) (map[Resource]float64, error)
}

// RatioTransfer relates flows through fixed ratios: flow_r / Ratios[r] is the
// same for every resource r. A steam-to-electricity converter at 50% is
// {steam: 1, electricity: 0.5}.
type RatioTransfer struct {
	Ratios map[Resource]float64
}

// NewRatioTransfer returns a RatioTransfer over the given ratios.
func NewRatioTransfer(ratios map[Resource]float64) RatioTransfer {
	cp := make(map[Resource]float64, len(ratios))
	for r, v := range ratios {
		cp[r] = v
	}
	return RatioTransfer{Ratios: cp}
}

// Resources returns the related resources sorted by name.
func (rt RatioTransfer) Resources() []Resource {
	out := make([]Resource, 0, len(rt.Ratios))
	for r := range rt.Ratios {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Multipliers implements TransferFunction. Ratios are time invariant.
func (rt RatioTransfer) Multipliers(reference Resource, _ int) (map[Resource]float64, error) {
	base, ok := rt.Ratios[reference]
	if !ok {
		return nil, fmt.Errorf("ratio transfer: reference resource %q has no ratio", reference.Name)
	}
	if base <= 0 || !finite(base) {
		return nil, fmt.Errorf("ratio transfer: ratio of %q must be positive, got %v", reference.Name, base)
	}
	out := make(map[Resource]float64, len(rt.Ratios)-1)
	for r, v := range rt.Ratios {
		if r == reference {
			continue
		}
		if v <= 0 || !finite(v) {
			return nil, fmt.Errorf("ratio transfer: ratio of %q must be positive, got %v", r.Name, v)
		}
		out[r] = v / base
	}
	return out, nil
}
