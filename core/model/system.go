package model

import "errors"

// System is the compiler's only input: a resource catalog, the components
// exchanging those resources and the horizon every profile is aligned with.
type System struct {
	Resources  []Resource
	Components []Component
	Horizon    TimeHorizon
}

// NewSystem returns an empty system over the given horizon.
func NewSystem(h TimeHorizon) *System { return &System{Horizon: h} }

// AddResource registers resources in the catalog.
func (s *System) AddResource(rs ...Resource) *System {
	s.Resources = append(s.Resources, rs...)
	return s
}

// AddComponent appends components to the system.
func (s *System) AddComponent(cs ...Component) *System {
	s.Components = append(s.Components, cs...)
	return s
}

// Component returns the component with the given name.
func (s *System) Component(name string) (Component, bool) {
	for _, c := range s.Components {
		if c.ComponentName() == name {
			return c, true
		}
	}
	return nil, false
}

// Validate checks the whole system and returns every problem found, joined.
// Each problem is a *ConfigurationError.
func (s *System) Validate() error {
	var errs []error
	n := s.Horizon.Len()
	if n == 0 {
		errs = append(errs, configErr("", "horizon", "must contain at least one step"))
	}

	catalog := make(map[Resource]bool, len(s.Resources))
	names := make(map[string]bool, len(s.Resources))
	for _, r := range s.Resources {
		if r.Name == "" {
			errs = append(errs, configErr("", "resources", "resource name must not be empty"))
			continue
		}
		if names[r.Name] {
			errs = append(errs, configErr("", "resources", "duplicate resource %q", r.Name))
		}
		names[r.Name] = true
		catalog[r] = true
	}

	seen := make(map[string]bool, len(s.Components))
	for i, c := range s.Components {
		if c == nil {
			errs = append(errs, configErr("", "components", "component %d is nil", i))
			continue
		}
		name := c.ComponentName()
		if name == "" {
			errs = append(errs, configErr("", "components", "component %d has no name", i))
		} else if seen[name] {
			errs = append(errs, configErr(name, "name", "duplicate component name"))
		}
		seen[name] = true
		if n > 0 {
			errs = append(errs, c.validate(n, catalog)...)
		}
	}
	return errors.Join(errs...)
}

// Summary describes the system shape for logs.
type Summary struct {
	Components int      `json:"components"`
	Storage    []string `json:"storage"`
	Resources  []string `json:"resources"`
	Steps      int      `json:"steps"`
}

// Summary returns a compact description of the system.
func (s *System) Summary() Summary {
	sum := Summary{Components: len(s.Components), Steps: s.Horizon.Len()}
	for _, r := range s.Resources {
		sum.Resources = append(sum.Resources, r.Name)
	}
	for _, c := range s.Components {
		if st, ok := c.(*Storage); ok {
			sum.Storage = append(sum.Storage, st.Name)
		}
	}
	return sum
}
