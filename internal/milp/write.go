package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteMPS writes the model in free MPS format. Integer and binary columns
// are wrapped in MARKER lines and always carry explicit bounds.
func (m *Model) WriteMPS(w io.Writer) error {
	bw := bufio.NewWriter(w)
	name := m.Name
	if name == "" {
		name = "model"
	}

	fmt.Fprintf(bw, "NAME %s\n", name)
	fmt.Fprintln(bw, "ROWS")
	fmt.Fprintln(bw, " N obj")
	for _, c := range m.cons {
		fmt.Fprintf(bw, " %s %s\n", mpsSense(c.Sense), c.Name)
	}

	// Column-major view of the constraint matrix.
	type entry struct {
		row  string
		coef float64
	}
	cols := make([][]entry, len(m.vars))
	for _, t := range m.objective.Terms {
		cols[t.Var] = append(cols[t.Var], entry{row: "obj", coef: t.Coef})
	}
	for _, c := range m.cons {
		for _, t := range c.Expr.Terms {
			cols[t.Var] = append(cols[t.Var], entry{row: c.Name, coef: t.Coef})
		}
	}

	fmt.Fprintln(bw, "COLUMNS")
	inInt := false
	markers := 0
	for i, v := range m.vars {
		isInt := v.Type != Continuous
		if isInt != inInt {
			tag := "INTEND"
			if isInt {
				tag = "INTORG"
			}
			fmt.Fprintf(bw, " M%d 'MARKER' '%s'\n", markers, tag)
			markers++
			inInt = isInt
		}
		if len(cols[i]) == 0 {
			// Declare the column even when it appears nowhere.
			fmt.Fprintf(bw, " %s obj 0\n", v.Name)
			continue
		}
		for _, e := range cols[i] {
			fmt.Fprintf(bw, " %s %s %s\n", v.Name, e.row, num(e.coef))
		}
	}
	if inInt {
		fmt.Fprintf(bw, " M%d 'MARKER' 'INTEND'\n", markers)
	}

	fmt.Fprintln(bw, "RHS")
	for _, c := range m.cons {
		if c.RHS != 0 {
			fmt.Fprintf(bw, " RHS %s %s\n", c.Name, num(c.RHS))
		}
	}

	fmt.Fprintln(bw, "BOUNDS")
	for _, v := range m.vars {
		writeMPSBounds(bw, v)
	}
	fmt.Fprintln(bw, "ENDATA")
	return bw.Flush()
}

func mpsSense(s Sense) string {
	switch s {
	case LE:
		return "L"
	case GE:
		return "G"
	default:
		return "E"
	}
}

func writeMPSBounds(w io.Writer, v Variable) {
	lo, hi := v.Lower, v.Upper
	loInf, hiInf := math.IsInf(lo, -1), math.IsInf(hi, 1)
	isInt := v.Type != Continuous

	switch {
	case !loInf && !hiInf && lo == hi:
		fmt.Fprintf(w, " FX BND %s %s\n", v.Name, num(lo))
		return
	case loInf && hiInf:
		fmt.Fprintf(w, " FR BND %s\n", v.Name)
		return
	case loInf:
		fmt.Fprintf(w, " MI BND %s\n", v.Name)
	case lo != 0 || isInt || hi < 0:
		fmt.Fprintf(w, " LO BND %s %s\n", v.Name, num(lo))
	}

	switch {
	case !hiInf:
		fmt.Fprintf(w, " UP BND %s %s\n", v.Name, num(hi))
	case isInt:
		fmt.Fprintf(w, " PL BND %s\n", v.Name)
	}
}

// WriteLP writes the model in CPLEX LP format. It is meant for reading.
func (m *Model) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ Problem: %s\n", m.Name)
	fmt.Fprintf(bw, "\\ Variables: %d, Constraints: %d\n", len(m.vars), len(m.cons))

	fmt.Fprintln(bw, "Minimize")
	fmt.Fprintf(bw, " obj: %s\n", m.lpExpr(m.objective))

	fmt.Fprintln(bw, "Subject To")
	for _, c := range m.cons {
		fmt.Fprintf(bw, " %s: %s %s %s\n", c.Name, m.lpExpr(c.Expr), c.Sense, num(c.RHS))
	}

	fmt.Fprintln(bw, "Bounds")
	for _, v := range m.vars {
		if v.Type == Binary {
			continue
		}
		lo, hi := v.Lower, v.Upper
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			fmt.Fprintf(bw, " %s free\n", v.Name)
		case math.IsInf(hi, 1):
			if lo != 0 {
				fmt.Fprintf(bw, " %s >= %s\n", v.Name, num(lo))
			}
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", lpBound(lo), v.Name, num(hi))
		}
	}

	var generals, binaries []string
	for _, v := range m.vars {
		switch v.Type {
		case Integer:
			generals = append(generals, v.Name)
		case Binary:
			binaries = append(binaries, v.Name)
		}
	}
	if len(generals) > 0 {
		fmt.Fprintln(bw, "General")
		for _, n := range generals {
			fmt.Fprintf(bw, " %s\n", n)
		}
	}
	if len(binaries) > 0 {
		fmt.Fprintln(bw, "Binary")
		for _, n := range binaries {
			fmt.Fprintf(bw, " %s\n", n)
		}
	}
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

func lpBound(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return num(v)
}

func (m *Model) lpExpr(e Expr) string {
	if len(e.Terms) == 0 {
		return "0"
	}
	var buf []byte
	for i, t := range e.Terms {
		coef := t.Coef
		switch {
		case i == 0 && coef < 0:
			buf = append(buf, "- "...)
			coef = -coef
		case i > 0 && coef < 0:
			buf = append(buf, " - "...)
			coef = -coef
		case i > 0:
			buf = append(buf, " + "...)
		}
		if coef != 1 {
			buf = append(buf, num(coef)...)
			buf = append(buf, ' ')
		}
		buf = append(buf, m.vars[t.Var].Name...)
		if i > 0 && i%8 == 0 && i < len(e.Terms)-1 {
			buf = append(buf, "\n   "...)
		}
	}
	return string(buf)
}
