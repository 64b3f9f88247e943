package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mes_planner/internal/component"
	"mes_planner/internal/config"
	"mes_planner/internal/dataset"
	"mes_planner/internal/formulation"
	"mes_planner/internal/ingest"
	"mes_planner/internal/metrics"
	"mes_planner/internal/milp"
	"mes_planner/internal/report"
	"mes_planner/internal/solver"
	"mes_planner/internal/store"
)

// ErrNotOptimal is returned when the solver finished without a proven
// optimum. No result files are written in that case.
var ErrNotOptimal = errors.New("solution not optimal")

// Stage is a step of a scenario run.
type Stage string

const (
	StageData      Stage = "data"
	StageHub       Stage = "hub"
	StageFormulate Stage = "formulate"
	StageSolve     Stage = "solve"
	StageReport    Stage = "report"
)

// StageUpdate is emitted when a run enters a stage.
type StageUpdate struct {
	Scenario string    `json:"scenario"`
	Stage    Stage     `json:"stage"`
	Time     time.Time `json:"time"`
}

// ModelStats describe the built model.
type ModelStats struct {
	Scenario    string `json:"scenario"`
	Variables   int    `json:"variables"`
	Constraints int    `json:"constraints"`
	Branches    int    `json:"branches"`
	Rows        int    `json:"rows"`
}

// Outcome is what a run produced.
type Outcome struct {
	Scenario  string         `json:"scenario"`
	Status    milp.Status    `json:"status"`
	RawStatus string         `json:"raw_status"`
	Solver    string         `json:"solver"`
	Elapsed   time.Duration  `json:"elapsed"`
	Files     report.Files   `json:"files"`
	Metrics   report.Metrics `json:"metrics"`

	Result *formulation.Result `json:"-"`
}

// Callback receives run events. Sweeps with more than one worker call it
// from several goroutines.
type Callback interface {
	OnStage(update StageUpdate)
	OnModel(stats ModelStats)
	OnOutcome(outcome Outcome)
}

// NopCallback ignores every event.
type NopCallback struct{}

func (NopCallback) OnStage(StageUpdate) {}
func (NopCallback) OnModel(ModelStats)  {}
func (NopCallback) OnOutcome(Outcome)   {}

// Runner executes scenarios.
type Runner struct {
	log      zerolog.Logger
	callback Callback
	registry *component.Registry
	design   Design

	mu        sync.Mutex
	solver    solver.Solver // nil: built from each scenario's config
	keepFiles bool
	workDir   string
	stores    map[string]cachedStore
}

// NewRunner returns a runner for the default design.
func NewRunner(log zerolog.Logger, cb Callback) *Runner {
	if cb == nil {
		cb = NopCallback{}
	}
	return &Runner{
		log:      log,
		callback: cb,
		registry: component.NewRegistry(),
		design:   DefaultDesign(),
		stores:   make(map[string]cachedStore),
	}
}

// SetDesign replaces the hub layout.
func (r *Runner) SetDesign(d Design) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.design = d
}

// SetSolver overrides the configured solver chain.
func (r *Runner) SetSolver(s solver.Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solver = s
}

// KeepSolverFiles leaves model and solution files under dir (the system
// temp directory when empty).
func (r *Runner) KeepSolverFiles(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepFiles = true
	r.workDir = dir
}

// cachedStore is a parsed input table and the file state it was read from.
// Pinned entries come from UseStore and are never reloaded.
type cachedStore struct {
	store   *store.Store
	modTime time.Time
	size    int64
	pinned  bool
}

// loadStore reads an input table, reusing the parsed copy while the file's
// modification time and size are unchanged.
func (r *Runner) loadStore(path string) (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cached, ok := r.stores[path]
	if ok && cached.pinned {
		return cached.store, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.store, nil
	}
	s, err := ingest.LoadFile(path, ingest.NewTimeSeriesParser())
	if err != nil {
		return nil, err
	}
	if ok {
		r.log.Info().Str("path", path).Msg("data file changed, reloaded")
	}
	r.stores[path] = cachedStore{store: s, modTime: info.ModTime(), size: info.Size()}
	return s, nil
}

// UseStore registers already loaded data under path. It is used as is and
// the file at path is never read.
func (r *Runner) UseStore(path string, s *store.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[path] = cachedStore{store: s, pinned: true}
}

func (r *Runner) stage(scenario string, s Stage) {
	r.log.Debug().Str("scenario", scenario).Str("stage", string(s)).Msg("stage")
	r.callback.OnStage(StageUpdate{Scenario: scenario, Stage: s, Time: time.Now()})
}

// Run plans one scenario. cfgPath is only reported in the summary.
func (r *Runner) Run(ctx context.Context, scenario string, cfg *config.Config, cfgPath string) (*Outcome, error) {
	outcome, err := r.run(ctx, scenario, cfg, cfgPath)
	status := "failed"
	if outcome != nil {
		status = string(outcome.Status)
	}
	metrics.ScenarioFinished(status)
	if err != nil {
		r.log.Error().Err(err).Str("scenario", scenario).Msg("scenario failed")
		return outcome, fmt.Errorf("scenario %s: %w", scenario, err)
	}
	r.callback.OnOutcome(*outcome)
	return outcome, nil
}

func (r *Runner) run(ctx context.Context, scenario string, cfg *config.Config, cfgPath string) (*Outcome, error) {
	started := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	design, slv := r.design, r.solver
	keep, workDir := r.keepFiles, r.workDir
	r.mu.Unlock()

	r.stage(scenario, StageData)
	st, err := r.loadStore(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	data, err := dataset.SelectRepresentativeDays(st, cfg.Simulation.NumDays, cfg.Economic.GasPriceMultiplier)
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("scenario", scenario).Int("days", data.NumDays()).
		Float64("weight", data.Weights[0]).Msg("representative days selected")

	r.stage(scenario, StageHub)
	hub, err := design.Build(cfg, r.registry)
	if err != nil {
		return nil, err
	}
	incidence, err := hub.IncidenceMatrices()
	if err != nil {
		return nil, err
	}
	for _, e := range incidence.Unconnected() {
		r.log.Warn().Str("scenario", scenario).Str("node", e.Node).Str("port", e.Port).Msg("port has no branch")
	}

	r.stage(scenario, StageFormulate)
	problem, err := formulation.Build(hub, data, cfg)
	if err != nil {
		return nil, err
	}
	stats := ModelStats{
		Scenario:    scenario,
		Variables:   problem.Model.NumVars(),
		Constraints: problem.Model.NumConstraints(),
		Branches:    hub.NumBranches(),
		Rows:        data.Rows(),
	}
	metrics.ModelBuilt(scenario, stats.Variables, stats.Constraints)
	r.callback.OnModel(stats)
	r.log.Info().Str("scenario", scenario).Int("variables", stats.Variables).
		Int("constraints", stats.Constraints).Msg("model built")

	r.stage(scenario, StageSolve)
	if slv == nil {
		if slv, err = solver.New(cfg.Solver, r.log); err != nil {
			return nil, err
		}
	}
	opts := solver.OptionsFrom(cfg.Solver)
	opts.KeepFiles, opts.WorkDir = keep, workDir
	sol, err := slv.Solve(ctx, problem.Model, opts)
	if err != nil {
		return nil, err
	}
	metrics.SolveObserved(sol.Solver, sol.Duration)

	outcome := &Outcome{
		Scenario:  scenario,
		Status:    sol.Status,
		RawStatus: sol.RawStatus,
		Solver:    sol.Solver,
	}
	r.log.Info().Str("scenario", scenario).Str("solver", sol.Solver).Str("status", string(sol.Status)).
		Dur("solve_time", sol.Duration).Msg("solve finished")
	if !sol.Optimal() {
		outcome.Elapsed = time.Since(started)
		return outcome, fmt.Errorf("%w: %s (%s)", ErrNotOptimal, sol.Status, sol.RawStatus)
	}

	res, err := problem.Extract(sol)
	if err != nil {
		return outcome, err
	}
	outcome.Result = res

	r.stage(scenario, StageReport)
	outcome.Elapsed = time.Since(started)
	meta := report.Meta{Scenario: scenario, ConfigPath: cfgPath, Elapsed: outcome.Elapsed}
	files, err := report.Write(cfg.Output.Dir, meta, sol.Status, res, problem.Model)
	if err != nil {
		return outcome, err
	}
	outcome.Files = files
	outcome.Metrics, err = report.ReadSummary(files.Summary, GasComponents)
	if err != nil {
		return outcome, err
	}
	r.log.Info().Str("scenario", scenario).Float64("total_cost", res.TotalCost).
		Str("summary", files.Summary).Msg("results written")
	return outcome, nil
}
