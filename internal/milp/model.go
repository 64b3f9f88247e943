// Package milp holds a solver-independent mixed-integer linear program and
// writes it in the text formats external solvers read.
package milp

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// VarType is the domain of a variable.
type VarType int

const (
	Continuous VarType = iota
	Integer
	Binary
)

func (t VarType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Var is a handle to a model variable.
type Var int

// Variable describes one column.
type Variable struct {
	Name  string
	Type  VarType
	Lower float64
	Upper float64
}

// Sense is a constraint relation.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case EQ:
		return "="
	default:
		return ">="
	}
}

// Term is coef * var.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Add appends coef*v.
func (e *Expr) Add(v Var, coef float64) *Expr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConstant adds c to the constant part.
func (e *Expr) AddConstant(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr appends scale*o.
func (e *Expr) AddExpr(o Expr, scale float64) *Expr {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: t.Coef * scale})
	}
	e.Constant += o.Constant * scale
	return e
}

// Sum returns the expression v1 + v2 + ...
func Sum(vars ...Var) Expr {
	e := Expr{Terms: make([]Term, len(vars))}
	for i, v := range vars {
		e.Terms[i] = Term{Var: v, Coef: 1}
	}
	return e
}

// Simplified returns e with duplicate variables merged and zero terms dropped.
func (e Expr) Simplified() Expr {
	return e.normalize()
}

// normalize merges duplicate variables, drops zero coefficients and sorts
// terms by variable.
func (e Expr) normalize() Expr {
	merged := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		merged[t.Var] += t.Coef
	}
	out := Expr{Constant: e.Constant, Terms: make([]Term, 0, len(merged))}
	for v, c := range merged {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var < out.Terms[j].Var })
	return out
}

// Constraint is Expr Sense RHS, with any constant of the original
// expression moved to the right-hand side.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Model is a minimization problem.
type Model struct {
	Name string

	vars      []Variable
	varNames  map[string]Var
	cons      []Constraint
	conNames  map[string]int
	objective Expr
}

func NewModel(name string) *Model {
	return &Model{
		Name:     name,
		varNames: make(map[string]Var),
		conNames: make(map[string]int),
	}
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.ContainsAny(name, " \t\r\n:") {
		return fmt.Errorf("name %q contains whitespace or ':'", name)
	}
	return nil
}

// AddVar adds a variable. Binary variables are clamped to [0, 1].
func (m *Model) AddVar(name string, typ VarType, lower, upper float64) (Var, error) {
	if err := validName(name); err != nil {
		return 0, fmt.Errorf("variable: %w", err)
	}
	if _, ok := m.varNames[name]; ok {
		return 0, fmt.Errorf("duplicate variable %s", name)
	}
	if typ == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		return 0, fmt.Errorf("variable %s: invalid bounds [%v, %v]", name, lower, upper)
	}
	v := Var(len(m.vars))
	m.vars = append(m.vars, Variable{Name: name, Type: typ, Lower: lower, Upper: upper})
	m.varNames[name] = v
	return v, nil
}

// AddConstraint adds expr sense rhs.
func (m *Model) AddConstraint(name string, expr Expr, sense Sense, rhs float64) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("constraint: %w", err)
	}
	if _, ok := m.conNames[name]; ok {
		return fmt.Errorf("duplicate constraint %s", name)
	}
	if err := m.checkExpr(expr); err != nil {
		return fmt.Errorf("constraint %s: %w", name, err)
	}
	n := expr.normalize()
	c := Constraint{Name: name, Sense: sense, RHS: rhs - n.Constant}
	n.Constant = 0
	c.Expr = n
	m.conNames[name] = len(m.cons)
	m.cons = append(m.cons, c)
	return nil
}

// SetObjective sets the expression to minimize.
func (m *Model) SetObjective(expr Expr) error {
	if err := m.checkExpr(expr); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	m.objective = expr.normalize()
	return nil
}

func (m *Model) checkExpr(e Expr) error {
	for _, t := range e.Terms {
		if t.Var < 0 || int(t.Var) >= len(m.vars) {
			return fmt.Errorf("unknown variable %d", t.Var)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("coefficient of %s is not finite", m.vars[t.Var].Name)
		}
	}
	return nil
}

func (m *Model) NumVars() int            { return len(m.vars) }
func (m *Model) NumConstraints() int     { return len(m.cons) }
func (m *Model) Variable(v Var) Variable { return m.vars[v] }
func (m *Model) Objective() Expr         { return m.objective }

// Constraints returns the constraints in insertion order.
func (m *Model) Constraints() []Constraint {
	return append([]Constraint(nil), m.cons...)
}

// Constraint looks up a constraint by name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	i, ok := m.conNames[name]
	if !ok {
		return Constraint{}, false
	}
	return m.cons[i], true
}

// VarByName looks up a variable handle.
func (m *Model) VarByName(name string) (Var, bool) {
	v, ok := m.varNames[name]
	return v, ok
}

// HasIntegers reports whether any variable is integer or binary.
func (m *Model) HasIntegers() bool {
	for _, v := range m.vars {
		if v.Type != Continuous {
			return true
		}
	}
	return false
}

// Evaluate computes expr at the given variable values.
func (m *Model) Evaluate(expr Expr, values []float64) float64 {
	total := expr.Constant
	for _, t := range expr.Terms {
		total += t.Coef * values[t.Var]
	}
	return total
}

// Violation is one failed bound, integrality requirement or constraint.
type Violation struct {
	Kind   string // "bound", "integrality" or "constraint"
	Name   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Name, v.Detail)
}

// Check returns every requirement the values break by more than tol.
func (m *Model) Check(values []float64, tol float64) []Violation {
	if len(values) != len(m.vars) {
		return []Violation{{Kind: "shape", Name: m.Name, Detail: fmt.Sprintf("%d values for %d variables", len(values), len(m.vars))}}
	}

	var out []Violation
	for i, v := range m.vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			out = append(out, Violation{Kind: "bound", Name: v.Name, Detail: fmt.Sprintf("%v outside [%v, %v]", x, v.Lower, v.Upper)})
		}
		if v.Type != Continuous && math.Abs(x-math.Round(x)) > tol {
			out = append(out, Violation{Kind: "integrality", Name: v.Name, Detail: fmt.Sprintf("%v is not integral", x)})
		}
	}
	for _, c := range m.cons {
		lhs := m.Evaluate(c.Expr, values)
		var broken bool
		switch c.Sense {
		case LE:
			broken = lhs > c.RHS+tol
		case GE:
			broken = lhs < c.RHS-tol
		case EQ:
			broken = math.Abs(lhs-c.RHS) > tol
		}
		if broken {
			out = append(out, Violation{Kind: "constraint", Name: c.Name, Detail: fmt.Sprintf("%v %s %v", lhs, c.Sense, c.RHS)})
		}
	}
	return out
}
