// Package simplex solves compiled programs with gonum's dense simplex.
//
// Every finite upper bound becomes a dense row with its own slack column, so
// the tableau grows quadratically with the horizon. A storage arbitrage over
// 24 steps solves in well under a second, 48 steps in a few seconds and 96
// steps in tens of seconds. Longer horizons should be split or given a
// time limit.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/ecodispatch/core/logger"
	"github.com/kilianp07/ecodispatch/core/program"
	"github.com/kilianp07/ecodispatch/core/solver"
)

// DefaultTolerance is used when the options leave the tolerance unset.
const DefaultTolerance = 1e-7

// rankEpsilon is the relative threshold below which an eliminated row counts
// as zero.
const rankEpsilon = 1e-9

// lpSimplex points to the simplex implementation. It can be overridden in
// tests to simulate solver failures.
var lpSimplex = lp.Simplex

// ErrNilProgram is returned when Solve is called without a program.
var ErrNilProgram = errors.New("simplex: nil program")

// Solver adapts gonum's simplex to the solver.Solver contract.
type Solver struct {
	log logger.Logger
}

var _ solver.Solver = (*Solver)(nil)

// New returns a simplex solver. A nil logger discards output.
func New(log logger.Logger) *Solver {
	return &Solver{log: logger.OrNop(log)}
}

// Solve runs the simplex on p. The gonum routine cannot be interrupted: when
// the context ends or the time limit passes first, the solve keeps running in
// the background and its result is discarded.
func (s *Solver) Solve(ctx context.Context, p *program.Program, opts solver.Options) (*solver.Solution, error) {
	if p == nil {
		return nil, ErrNilProgram
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	start := time.Now()
	done := make(chan *solver.Solution, 1)
	go func() { done <- s.solve(p, tol) }()

	var sol *solver.Solution
	select {
	case sol = <-done:
	case <-ctx.Done():
		sol = &solver.Solution{Status: solver.StatusError, Detail: fmt.Sprintf("solve aborted: %v", ctx.Err())}
	}
	sol.Duration = time.Since(start)
	s.log.Debugf("simplex: %s in %s", sol.Status, sol.Duration)
	return sol, nil
}

func (s *Solver) solve(p *program.Program, tol float64) (sol *solver.Solution) {
	defer func() {
		if r := recover(); r != nil {
			sol = &solver.Solution{Status: solver.StatusError, Detail: fmt.Sprintf("simplex panic: %v", r)}
		}
	}()

	sf := toStandardForm(p)
	keep, ok := reduceRows(sf.rows, sf.b, rankEpsilon)
	if !ok {
		return &solver.Solution{Status: solver.StatusInfeasible, Detail: "equality constraints are inconsistent"}
	}

	// Columns absent from every kept row are free to stay at zero. If one of
	// them lowers the cost the program is unbounded once feasible.
	used := make([]bool, len(sf.c))
	for _, i := range keep {
		for k, v := range sf.rows[i] {
			if v != 0 {
				used[k] = true
			}
		}
	}
	var cols []int
	growing := false
	for k, u := range used {
		switch {
		case u:
			cols = append(cols, k)
		case sf.c[k] < 0:
			growing = true
		}
	}

	y := make([]float64, len(sf.c))
	if len(keep) > 0 {
		c := make([]float64, len(cols))
		A := mat.NewDense(len(keep), len(cols), nil)
		b := make([]float64, len(keep))
		for k, col := range cols {
			c[k] = sf.c[col]
		}
		for r, i := range keep {
			b[r] = sf.b[i]
			for k, col := range cols {
				A.Set(r, k, sf.rows[i][col])
			}
		}
		s.log.Debugf("simplex: %d rows x %d columns (%d redundant rows dropped)", len(keep), len(cols), len(sf.rows)-len(keep))

		_, x, err := lpSimplex(c, A, b, tol, nil)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return &solver.Solution{Status: solver.StatusInfeasible, Detail: err.Error()}
		case errors.Is(err, lp.ErrUnbounded):
			return &solver.Solution{Status: solver.StatusUnbounded, Detail: err.Error()}
		case err != nil:
			return &solver.Solution{Status: solver.StatusError, Detail: err.Error()}
		}
		for k, col := range cols {
			y[col] = x[k]
		}
	}
	if growing {
		return &solver.Solution{Status: solver.StatusUnbounded, Detail: "objective improves along an unconstrained variable"}
	}

	values := sf.values(p, y)
	return &solver.Solution{
		Status:    solver.StatusOptimal,
		Values:    values,
		Objective: p.Evaluate(values),
	}
}
