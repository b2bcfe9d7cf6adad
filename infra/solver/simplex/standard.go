package simplex

import (
	"math"

	"github.com/kilianp07/ecodispatch/core/program"
)

// column maps a program variable onto standard-form columns:
// x = offset + y[pos] - y[neg]. A missing column is -1.
type column struct {
	offset   float64
	pos, neg int
}

// standardForm is min c'y s.t. Ay = b, y >= 0 together with the mapping back
// to program variables.
type standardForm struct {
	cols []column
	c    []float64
	rows [][]float64
	b    []float64
}

func (sf *standardForm) newColumn(cost float64) int {
	sf.c = append(sf.c, cost)
	for i := range sf.rows {
		sf.rows[i] = append(sf.rows[i], 0)
	}
	return len(sf.c) - 1
}

func (sf *standardForm) newRow(rhs float64) int {
	sf.rows = append(sf.rows, make([]float64, len(sf.c)))
	sf.b = append(sf.b, rhs)
	return len(sf.rows) - 1
}

// toStandardForm shifts finite lower bounds to zero, reflects variables that
// are only bounded above, splits free variables, turns finite upper bounds
// into rows and adds a slack to every inequality. The maximisation objective
// becomes a minimisation.
func toStandardForm(p *program.Program) *standardForm {
	obj := p.ObjectiveCoefficients()
	sf := &standardForm{cols: make([]column, p.NumVariables())}

	var bounded []int
	for j, v := range p.Variables() {
		col := column{pos: -1, neg: -1}
		loInf, hiInf := math.IsInf(v.Lower, -1), math.IsInf(v.Upper, 1)
		switch {
		case !loInf && v.Lower == v.Upper:
			col.offset = v.Lower
		case !loInf:
			col.offset = v.Lower
			col.pos = sf.newColumn(-obj[j])
			if !hiInf {
				bounded = append(bounded, j)
			}
		case !hiInf:
			col.offset = v.Upper
			col.neg = sf.newColumn(obj[j])
		default:
			col.pos = sf.newColumn(-obj[j])
			col.neg = sf.newColumn(obj[j])
		}
		sf.cols[j] = col
	}

	for _, c := range p.Constraints() {
		rhs := c.RHS
		for _, t := range c.Terms {
			rhs -= t.Coef * sf.cols[t.Var].offset
		}
		i := sf.newRow(rhs)
		for _, t := range c.Terms {
			col := sf.cols[t.Var]
			if col.pos >= 0 {
				sf.rows[i][col.pos] += t.Coef
			}
			if col.neg >= 0 {
				sf.rows[i][col.neg] -= t.Coef
			}
		}
		switch c.Sense {
		case program.LessEqual:
			s := sf.newColumn(0)
			sf.rows[i][s] = 1
		case program.GreaterEqual:
			s := sf.newColumn(0)
			sf.rows[i][s] = -1
		}
	}

	for _, j := range bounded {
		v := p.Variable(j)
		i := sf.newRow(v.Upper - v.Lower)
		sf.rows[i][sf.cols[j].pos] = 1
		s := sf.newColumn(0)
		sf.rows[i][s] = 1
	}

	for i, rhs := range sf.b {
		if rhs < 0 {
			sf.b[i] = -rhs
			for k := range sf.rows[i] {
				sf.rows[i][k] = -sf.rows[i][k]
			}
		}
	}
	return sf
}

// values maps a standard-form point back onto the program variables, clamped
// to their bounds.
func (sf *standardForm) values(p *program.Program, y []float64) []float64 {
	x := make([]float64, len(sf.cols))
	for j, col := range sf.cols {
		v := col.offset
		if col.pos >= 0 {
			v += y[col.pos]
		}
		if col.neg >= 0 {
			v -= y[col.neg]
		}
		b := p.Variable(j)
		x[j] = math.Min(math.Max(v, b.Lower), b.Upper)
	}
	return x
}

// reduceRows drops linearly dependent rows of [A|b] using Gaussian
// elimination. It returns false when a dependent row contradicts the others,
// which means the equalities have no solution at all.
func reduceRows(rows [][]float64, b []float64, eps float64) (keep []int, consistent bool) {
	type pivotRow struct {
		col int
		a   []float64
		b   float64
	}
	var basis []pivotRow
	for i, row := range rows {
		r := append([]float64(nil), row...)
		rb := b[i]
		scale := math.Max(1, math.Abs(rb))
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}
		for _, br := range basis {
			f := r[br.col]
			if f == 0 {
				continue
			}
			for k := range r {
				r[k] -= f * br.a[k]
			}
			rb -= f * br.b
		}
		pivot, best := -1, eps*scale
		for k, v := range r {
			if math.Abs(v) > best {
				pivot, best = k, math.Abs(v)
			}
		}
		if pivot < 0 {
			if math.Abs(rb) > eps*scale {
				return nil, false
			}
			continue
		}
		f := r[pivot]
		for k := range r {
			r[k] /= f
		}
		basis = append(basis, pivotRow{col: pivot, a: r, b: rb / f})
		keep = append(keep, i)
	}
	return keep, true
}
