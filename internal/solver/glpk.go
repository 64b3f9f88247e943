package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mes_planner/internal/milp"
)

// GLPK drives the glpsol executable.
type GLPK struct {
	// Binary defaults to "glpsol".
	Binary string
}

func (g *GLPK) Name() string { return "glpk" }

func (g *GLPK) binary() string {
	if g.Binary != "" {
		return g.Binary
	}
	return "glpsol"
}

func (g *GLPK) Solve(ctx context.Context, m *milp.Model, opts Options) (*milp.Solution, error) {
	bin, err := lookPath(g.binary())
	if err != nil {
		return nil, err
	}
	dir, cleanup, err := workspace(opts, g.Name())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := writeMPS(m, filepath.Join(dir, "model.mps")); err != nil {
		return nil, err
	}
	args := []string{"--freemps", "model.mps", "-w", "model.sol"}
	if opts.TimeLimit > 0 {
		secs := int(math.Ceil(opts.TimeLimit.Seconds()))
		args = append(args, "--tmlim", strconv.Itoa(secs))
	}
	if opts.MIPGap > 0 && m.HasIntegers() {
		args = append(args, "--mipgap", strconv.FormatFloat(opts.MIPGap, 'g', -1, 64))
	}

	started := time.Now()
	out, err := run(ctx, dir, bin, args...)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, "model.sol"))
	if errors.Is(err, os.ErrNotExist) {
		return finish(m, &milp.Solution{Solver: g.Name(), Status: milp.StatusError, RawStatus: lastLine(out)}, started), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening glpk solution: %w", err)
	}
	defer f.Close()

	raw, err := parseGLPKSolution(f)
	if err != nil {
		return nil, fmt.Errorf("parsing glpk solution: %w", err)
	}
	if raw.cols != m.NumVars() {
		return nil, fmt.Errorf("glpk solution has %d columns, model has %d", raw.cols, m.NumVars())
	}

	sol := &milp.Solution{Solver: g.Name(), RawStatus: raw.statusLine, Status: raw.status}
	if sol.Status == milp.StatusOptimal || sol.Status == milp.StatusFeasible {
		sol.Values = raw.values
	}
	return finish(m, sol, started), nil
}

type glpkRaw struct {
	statusLine string
	status     milp.Status
	cols       int
	values     []float64
}

// parseGLPKSolution reads the glpsol -w format. Columns are addressed by
// ordinal, which matches the model's variable order because the MPS writer
// emits columns in that order.
//
//	s mip ROWS COLS STAT OBJ      j COL VAL
//	s bas ROWS COLS PST DST OBJ   j COL STAT PRIM DUAL
func parseGLPKSolution(r io.Reader) (*glpkRaw, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var raw *glpkRaw
	kind := ""
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "c", "i", "e":
			continue
		case "s":
			if len(fields) < 5 {
				return nil, fmt.Errorf("line %d: malformed status line", lineNum)
			}
			kind = fields[1]
			cols, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: column count: %w", lineNum, err)
			}
			raw = &glpkRaw{
				statusLine: strings.Join(fields, " "),
				cols:       cols,
				values:     make([]float64, cols),
			}
			switch kind {
			case "mip":
				raw.status = glpkMIPStatus(fields[4])
			case "bas", "ipt":
				if len(fields) < 6 {
					return nil, fmt.Errorf("line %d: malformed status line", lineNum)
				}
				raw.status = glpkLPStatus(fields[4], fields[5])
			default:
				return nil, fmt.Errorf("line %d: unknown solution kind %q", lineNum, kind)
			}
		case "j":
			if raw == nil {
				return nil, fmt.Errorf("line %d: column before status line", lineNum)
			}
			// mip: j COL VAL; bas: j COL STAT PRIM DUAL; ipt: j COL PRIM DUAL
			valueField := 2
			if kind == "bas" {
				valueField = 3
			}
			if len(fields) <= valueField {
				return nil, fmt.Errorf("line %d: malformed column line", lineNum)
			}
			col, err := strconv.Atoi(fields[1])
			if err != nil || col < 1 || col > raw.cols {
				return nil, fmt.Errorf("line %d: bad column number %q", lineNum, fields[1])
			}
			v, err := strconv.ParseFloat(fields[valueField], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %d value: %w", lineNum, col, err)
			}
			raw.values[col-1] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("no status line found")
	}
	return raw, nil
}

func glpkMIPStatus(s string) milp.Status {
	switch s {
	case "o":
		return milp.StatusOptimal
	case "f":
		return milp.StatusFeasible
	case "n":
		return milp.StatusInfeasible
	default:
		return milp.StatusError
	}
}

func glpkLPStatus(primal, dual string) milp.Status {
	switch {
	case primal == "f" && dual == "f":
		return milp.StatusOptimal
	case primal == "n" || primal == "i":
		return milp.StatusInfeasible
	case primal == "f" && (dual == "n" || dual == "i"):
		return milp.StatusUnbounded
	case primal == "f":
		return milp.StatusFeasible
	default:
		return milp.StatusError
	}
}
