package milp

import (
	"fmt"
	"time"
)

// Status is the solver's terminal state, normalized across solvers.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusError      Status = "solver_error"
)

// Solution is what a solver returned. Values is indexed by Var and is nil
// when the solver produced no primal values.
type Solution struct {
	Solver    string
	Status    Status
	RawStatus string
	Objective float64
	Values    []float64
	Duration  time.Duration
}

// Optimal reports whether the solve reached proven optimality.
func (s *Solution) Optimal() bool {
	return s.Status == StatusOptimal
}

// Value returns the value of v, or 0 when no values are present.
func (s *Solution) Value(v Var) float64 {
	if int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// AssignByName builds Values from a name→value map. Variables the solver
// omitted read as 0.
func (m *Model) AssignByName(named map[string]float64) ([]float64, error) {
	values := make([]float64, len(m.vars))
	for name, x := range named {
		v, ok := m.varNames[name]
		if !ok {
			return nil, fmt.Errorf("solver returned unknown column %s", name)
		}
		values[v] = x
	}
	return values, nil
}
