package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mes_planner/internal/milp"
)

// HiGHS drives the highs command-line executable.
type HiGHS struct {
	// Binary defaults to "highs".
	Binary string
}

func (h *HiGHS) Name() string { return "highs" }

func (h *HiGHS) binary() string {
	if h.Binary != "" {
		return h.Binary
	}
	return "highs"
}

func (h *HiGHS) Solve(ctx context.Context, m *milp.Model, opts Options) (*milp.Solution, error) {
	bin, err := lookPath(h.binary())
	if err != nil {
		return nil, err
	}
	dir, cleanup, err := workspace(opts, h.Name())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := writeMPS(m, filepath.Join(dir, "model.mps")); err != nil {
		return nil, err
	}
	args := []string{"--model_file", "model.mps", "--solution_file", "model.sol"}
	if opts.MIPGap > 0 {
		optFile := fmt.Sprintf("mip_rel_gap = %s\n", strconv.FormatFloat(opts.MIPGap, 'g', -1, 64))
		if err := os.WriteFile(filepath.Join(dir, "highs.opt"), []byte(optFile), 0o644); err != nil {
			return nil, fmt.Errorf("writing highs options: %w", err)
		}
		args = append(args, "--options_file", "highs.opt")
	}
	if opts.TimeLimit > 0 {
		args = append(args, "--time_limit", strconv.FormatFloat(opts.TimeLimit.Seconds(), 'f', -1, 64))
	}

	started := time.Now()
	out, err := run(ctx, dir, bin, args...)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, "model.sol"))
	if errors.Is(err, os.ErrNotExist) {
		return finish(m, &milp.Solution{Solver: h.Name(), Status: milp.StatusError, RawStatus: lastLine(out)}, started), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening highs solution: %w", err)
	}
	defer f.Close()

	raw, err := parseHiGHSSolution(f)
	if err != nil {
		return nil, fmt.Errorf("parsing highs solution: %w", err)
	}

	sol := &milp.Solution{Solver: h.Name(), RawStatus: raw.modelStatus}
	sol.Status = highsStatus(raw.modelStatus, raw.primalFeasible)
	if raw.primalFeasible && (sol.Status == milp.StatusOptimal || sol.Status == milp.StatusFeasible) {
		sol.Values, err = m.AssignByName(raw.columns)
		if err != nil {
			return nil, err
		}
	}
	return finish(m, sol, started), nil
}

type highsRaw struct {
	modelStatus    string
	primalFeasible bool
	objective      float64
	columns        map[string]float64
}

// parseHiGHSSolution reads the raw solution style:
//
//	Model status
//	Optimal
//
//	# Primal solution values
//	Feasible
//	Objective 12.5
//	# Columns 2
//	x 1
//	y 2
//	# Rows 1
//	...
//
// Only the first "# Columns" block, the primal one, is read.
func parseHiGHSSolution(r io.Reader) (*highsRaw, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	raw := &highsRaw{columns: make(map[string]float64)}
	next := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				return line, true
			}
		}
		return "", false
	}

	seenStatus := false
	for {
		line, ok := next()
		if !ok {
			break
		}
		switch {
		case line == "Model status":
			status, ok := next()
			if !ok {
				return nil, fmt.Errorf("missing model status value")
			}
			raw.modelStatus = status
			seenStatus = true
		case strings.HasPrefix(line, "Model status:"):
			// Older writers put the status on the same line.
			raw.modelStatus = strings.TrimSpace(strings.TrimPrefix(line, "Model status:"))
			seenStatus = true
		case line == "# Primal solution values":
			validity, ok := next()
			if !ok {
				return nil, fmt.Errorf("missing primal solution validity")
			}
			raw.primalFeasible = validity == "Feasible"
		case strings.HasPrefix(line, "Objective "):
			// Reported for the record; the caller recomputes it.
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, "Objective "), 64); err == nil {
				raw.objective = v
			}
		case strings.HasPrefix(line, "# Columns "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns ")))
			if err != nil {
				return nil, fmt.Errorf("column count %q: %w", line, err)
			}
			for i := 0; i < n; i++ {
				entry, ok := next()
				if !ok {
					return nil, fmt.Errorf("expected %d columns, got %d", n, i)
				}
				fields := strings.Fields(entry)
				if len(fields) < 2 {
					return nil, fmt.Errorf("malformed column line %q", entry)
				}
				v, err := parseHiGHSNumber(fields[1])
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", fields[0], err)
				}
				raw.columns[fields[0]] = v
			}
			if err := sc.Err(); err != nil {
				return nil, err
			}
			if !seenStatus {
				return nil, fmt.Errorf("no model status before solution values")
			}
			return raw, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenStatus {
		return nil, fmt.Errorf("no model status found")
	}
	return raw, nil
}

func parseHiGHSNumber(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf", "-inf":
		return 0, fmt.Errorf("infinite value %s", s)
	}
	return strconv.ParseFloat(s, 64)
}

func highsStatus(model string, primalFeasible bool) milp.Status {
	switch model {
	case "Optimal":
		return milp.StatusOptimal
	case "Infeasible", "Primal infeasible or unbounded":
		return milp.StatusInfeasible
	case "Unbounded":
		return milp.StatusUnbounded
	case "Time limit reached", "Iteration limit reached", "Interrupted by user",
		"Solution limit reached", "Objective bound", "Objective target":
		if primalFeasible {
			return milp.StatusFeasible
		}
	}
	return milp.StatusError
}
