package model

// Resource identifies a commodity flowing between components. Two resources
// are the same commodity when their values are equal.
type Resource struct {
	Name string
	Unit string // informational only
}

// NewResource returns a resource without a unit.
func NewResource(name string) Resource { return Resource{Name: name} }

// String returns the resource name.
func (r Resource) String() string { return r.Name }

// Profile is a time-indexed series aligned with a TimeHorizon.
type Profile []float64

// Constant returns a profile of length n where every step equals v.
func Constant(n int, v float64) Profile {
	p := make(Profile, n)
	for i := range p {
		p[i] = v
	}
	return p
}

// At returns the value at step t, or def when the profile is empty.
func (p Profile) At(t int, def float64) float64 {
	if len(p) == 0 {
		return def
	}
	return p[t]
}

// TimeHorizon is the ordered list of dispatch steps. Labels are what callers
// see in results; indices 0..Len()-1 are what profiles and variables use.
type TimeHorizon struct {
	labels []int
}

// NewTimeHorizon builds a horizon from explicit step labels.
func NewTimeHorizon(labels ...int) TimeHorizon {
	cp := make([]int, len(labels))
	copy(cp, labels)
	return TimeHorizon{labels: cp}
}

// Steps returns a horizon labelled 0..n-1.
func Steps(n int) TimeHorizon {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	return TimeHorizon{labels: labels}
}

// Len returns the number of steps.
func (h TimeHorizon) Len() int { return len(h.labels) }

// Label returns the caller-facing label of step t.
func (h TimeHorizon) Label(t int) int { return h.labels[t] }

// Labels returns a copy of all step labels.
func (h TimeHorizon) Labels() []int {
	cp := make([]int, len(h.labels))
	copy(cp, h.labels)
	return cp
}
