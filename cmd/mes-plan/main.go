// Command mes-plan plans one scenario: it loads a config, selects the
// representative days, solves the capacity MILP and writes the result files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"mes_planner/internal/config"
	"mes_planner/internal/logging"
	"mes_planner/internal/planner"
)

func main() {
	cfgPath := pflag.String("config", "configs/baseline.yaml", "scenario config file")
	scenario := pflag.String("scenario", "", "scenario name (default: config file name)")
	timeout := pflag.Duration("timeout", 0, "abort the run after this long (0: no limit)")
	level := pflag.String("log-level", "info", "debug, info, warn or error")
	keepFiles := pflag.Bool("keep-solver-files", false, "keep solver model and solution files")
	workDir := pflag.String("work-dir", "", "directory for kept solver files")
	pflag.Parse()

	log := logging.NewConsole(*level, os.Stderr)

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	name := *scenario
	if name == "" {
		name = scenarioName(*cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	runner := planner.NewRunner(log, nil)
	if *keepFiles {
		runner.KeepSolverFiles(*workDir)
	}

	outcome, err := runner.Run(ctx, name, cfg, *cfgPath)
	if errors.Is(err, planner.ErrNotOptimal) {
		log.Error().Str("status", string(outcome.Status)).Str("raw_status", outcome.RawStatus).
			Msg("no optimal solution, no results written")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("planning failed")
	}

	printOutcome(outcome)
}

func printOutcome(o *planner.Outcome) {
	fmt.Printf("Scenario %s solved by %s in %s\n", o.Scenario, o.Solver, o.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Total annual cost:  %.2f HKD\n", o.Metrics.TotalCost)
	fmt.Printf("  Investment cost:    %.2f HKD\n", o.Metrics.InvestmentCost)
	fmt.Printf("  Operational cost:   %.2f HKD\n", o.Metrics.OperationalCost)
	fmt.Printf("  Gas import:         %.2f MWh\n", o.Metrics.GasImport)
	fmt.Printf("  Electricity import: %.2f MWh\n", o.Metrics.ElecImport)
	fmt.Println("Files:")
	for _, path := range o.Files.All() {
		fmt.Printf("  %s\n", path)
	}
}

// scenarioName is the config file name without its extension.
func scenarioName(cfgPath string) string {
	base := filepath.Base(cfgPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
