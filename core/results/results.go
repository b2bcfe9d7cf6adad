// Package results turns a solved program into a dispatch table with one row
// per step.
package results

import (
	"errors"
	"fmt"

	"github.com/kilianp07/ecodispatch/core/program"
	"github.com/kilianp07/ecodispatch/core/solver"
)

const (
	// NetCashflowColumn holds the objective contribution of each step.
	NetCashflowColumn = "net_cashflow"
	// ObjectiveColumn repeats the total objective on every row.
	ObjectiveColumn = "objective"
)

// ErrNotOptimal is returned when extracting from a non-optimal solution.
var ErrNotOptimal = errors.New("solution is not optimal")

// Row is one dispatch step. Values is aligned with Results.Columns.
type Row struct {
	Step   int       `json:"step"`
	Values []float64 `json:"values"`
}

// Results is the dispatch table of a solved program.
type Results struct {
	Strategy  string   `json:"strategy"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	Objective float64  `json:"objective"`
}

// ColumnName returns the table column of a variable key. Flow columns are
// named after their direction; storage columns after the quantity.
func ColumnName(k program.Key) string {
	return fmt.Sprintf("%s_%s_%s", k.Component, k.Resource, k.Role)
}

// Extract builds the table for p from sol. Production and discharge are
// reported as they are; consumption is negative, mirroring the resource
// balance. Level, charge and discharge keep their magnitudes.
func Extract(p *program.Program, sol *solver.Solution) (*Results, error) {
	if p == nil || sol == nil {
		return nil, errors.New("results: nil program or solution")
	}
	if !sol.IsOptimal() {
		return nil, fmt.Errorf("%w: %s: %s", ErrNotOptimal, sol.Status, sol.Detail)
	}
	if len(sol.Values) != p.NumVariables() {
		return nil, fmt.Errorf("results: solution has %d values for %d variables", len(sol.Values), p.NumVariables())
	}

	steps := p.Steps()
	res := &Results{Strategy: p.Strategy, Objective: sol.Objective}
	col := make(map[string]int)
	type cell struct{ step, col int }
	var cells []cell
	vars := p.Variables()
	for _, v := range vars {
		name := ColumnName(v.Key)
		j, ok := col[name]
		if !ok {
			j = len(res.Columns)
			col[name] = j
			res.Columns = append(res.Columns, name)
		}
		cells = append(cells, cell{step: v.Key.Step, col: j})
	}
	flows := len(res.Columns)
	res.Columns = append(res.Columns, NetCashflowColumn, ObjectiveColumn)

	res.Rows = make([]Row, len(steps))
	for t, label := range steps {
		res.Rows[t] = Row{Step: label, Values: make([]float64, len(res.Columns))}
		res.Rows[t].Values[flows+1] = sol.Objective
	}
	for i, c := range cells {
		v := sol.Values[i]
		if vars[i].Key.Role == program.RoleConsume {
			v = -v
		}
		res.Rows[c.step].Values[c.col] = v
	}
	for _, term := range p.Objective() {
		step := vars[term.Var].Key.Step
		res.Rows[step].Values[flows] += term.Coef * sol.Values[term.Var]
	}
	return res, nil
}

// Column returns the values of a column across all rows.
func (r *Results) Column(name string) ([]float64, bool) {
	j := r.index(name)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(r.Rows))
	for t, row := range r.Rows {
		out[t] = row.Values[j]
	}
	return out, true
}

// Header returns the table header, step first.
func (r *Results) Header() []string {
	return append([]string{"step"}, r.Columns...)
}

func (r *Results) index(name string) int {
	for j, c := range r.Columns {
		if c == name {
			return j
		}
	}
	return -1
}
