// Package solver hands milp models to external MILP solver executables and
// reads their solutions back.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mes_planner/internal/config"
	"mes_planner/internal/milp"
)

// ErrUnavailable means the solver executable could not be found.
var ErrUnavailable = errors.New("solver unavailable")

// Options control one solve.
type Options struct {
	// TimeLimit of 0 means no limit.
	TimeLimit time.Duration
	// MIPGap is the relative optimality gap; 0 keeps the solver default.
	MIPGap float64
	// WorkDir is where model and solution files are written; empty uses the
	// system temp directory.
	WorkDir string
	// KeepFiles leaves the model and solution files in place.
	KeepFiles bool
}

// Solver solves a model. Implementations block until the solver exits or
// ctx is done.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *milp.Model, opts Options) (*milp.Solution, error)
}

// New builds the primary→fallback chain named in the configuration.
func New(cfg config.SolverConfig, log zerolog.Logger) (Solver, error) {
	primary, err := byName(cfg.Primary)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" || cfg.Fallback == config.SolverNone {
		return NewChain(log, primary), nil
	}
	fallback, err := byName(cfg.Fallback)
	if err != nil {
		return nil, err
	}
	return NewChain(log, primary, fallback), nil
}

func byName(name string) (Solver, error) {
	switch name {
	case config.SolverHiGHS:
		return &HiGHS{}, nil
	case config.SolverGLPK:
		return &GLPK{}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", name)
	}
}

// OptionsFrom converts the configured limits.
func OptionsFrom(cfg config.SolverConfig) Options {
	return Options{
		TimeLimit: time.Duration(cfg.TimeLimitSeconds * float64(time.Second)),
		MIPGap:    cfg.MIPGap,
	}
}

// Chain tries solvers in order, moving on only when one is unavailable.
type Chain struct {
	solvers []Solver
	log     zerolog.Logger
}

func NewChain(log zerolog.Logger, solvers ...Solver) *Chain {
	return &Chain{solvers: solvers, log: log}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.solvers))
	for i, s := range c.solvers {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

func (c *Chain) Solve(ctx context.Context, m *milp.Model, opts Options) (*milp.Solution, error) {
	for _, s := range c.solvers {
		sol, err := s.Solve(ctx, m, opts)
		if errors.Is(err, ErrUnavailable) {
			c.log.Warn().Err(err).Str("solver", s.Name()).Msg("solver unavailable, trying next")
			continue
		}
		return sol, err
	}
	return nil, fmt.Errorf("no usable solver in [%s]: %w", c.Name(), ErrUnavailable)
}

func lookPath(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, bin, err)
	}
	return path, nil
}

// workspace creates the directory holding one solve's files.
func workspace(opts Options, solverName string) (dir string, cleanup func(), err error) {
	if opts.WorkDir != "" {
		if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("creating solver work dir: %w", err)
		}
	}
	dir, err = os.MkdirTemp(opts.WorkDir, "mes-"+solverName+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating solver work dir: %w", err)
	}
	cleanup = func() {
		if !opts.KeepFiles {
			os.RemoveAll(dir)
		}
	}
	return dir, cleanup, nil
}

func writeMPS(m *milp.Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := m.WriteMPS(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// run executes the solver and returns its combined output. A non-zero exit
// is not an error here; the missing or partial solution file reports it.
func run(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return out, fmt.Errorf("running %s: %w", filepath.Base(bin), err)
	}
	return out, nil
}

func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(string(lines[len(lines)-1]))
}

// finish recomputes the objective from the returned values so every
// solver reports it the same way.
func finish(m *milp.Model, sol *milp.Solution, started time.Time) *milp.Solution {
	sol.Duration = time.Since(started)
	if sol.Values != nil {
		sol.Objective = m.Evaluate(m.Objective(), sol.Values)
	}
	return sol
}
