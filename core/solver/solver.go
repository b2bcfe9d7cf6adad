// Package solver defines the contract between compiled programs and the
// optimisation backends that solve them.
package solver

import (
	"context"
	"time"

	"github.com/kilianp07/ecodispatch/core/program"
)

// Status is the terminal outcome of a solve.
type Status int

const (
	StatusOptimal Status = iota + 1
	StatusInfeasible
	StatusUnbounded
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Solution is what a Solver reports for a program. Values is indexed like the
// program's variables and is only meaningful when Status is optimal.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	// Detail carries the backend's diagnostic for non-optimal outcomes.
	Detail   string
	Duration time.Duration
}

// IsOptimal reports whether the solve reached an optimum.
func (s *Solution) IsOptimal() bool { return s != nil && s.Status == StatusOptimal }

// IsInfeasible reports whether the program has no feasible point.
func (s *Solution) IsInfeasible() bool { return s != nil && s.Status == StatusInfeasible }

// IsUnbounded reports whether the objective grows without limit.
func (s *Solution) IsUnbounded() bool { return s != nil && s.Status == StatusUnbounded }

// Value returns the value of variable v, or zero when there is none.
func (s *Solution) Value(v int) float64 {
	if s == nil || v < 0 || v >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Options are passed through to the backend unchanged.
type Options struct {
	// TimeLimit bounds a single solve. Zero means no limit.
	TimeLimit time.Duration
	// Tolerance is the optimality tolerance. Zero selects the backend default.
	Tolerance float64
}

// Solver solves a compiled program. Infeasible, unbounded and failed solves
// are reported through Solution.Status; the error return is reserved for
// misuse such as a nil program. Solvers must not modify the program.
type Solver interface {
	Solve(ctx context.Context, p *program.Program, opts Options) (*Solution, error)
}
