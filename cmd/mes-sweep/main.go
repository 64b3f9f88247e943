// Command mes-sweep runs the representative-days sweep and the gas viability
// sweep over a baseline config and writes one aggregate CSV per sweep.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"mes_planner/internal/config"
	"mes_planner/internal/logging"
	"mes_planner/internal/planner"
	"mes_planner/internal/report"
)

const (
	daysFile = "days_sweep_results.csv"
	gasFile  = "gas_viability_sweep_results.csv"
)

func main() {
	cfgPath := pflag.String("config", "configs/baseline.yaml", "baseline scenario config")
	sweep := pflag.String("sweep", "all", "days, gas or all")
	days := pflag.IntSlice("days", planner.DefaultSweepDays, "representative-day counts")
	priceMults := pflag.Float64Slice("price-mults", planner.DefaultMultipliers, "gas price multipliers")
	investMults := pflag.Float64Slice("invest-mults", planner.DefaultMultipliers, "gas component investment multipliers")
	workers := pflag.Int("workers", 1, "scenarios solved in parallel")
	resultsDir := pflag.String("results-dir", "results", "directory for scenario and sweep results")
	level := pflag.String("log-level", "info", "debug, info, warn or error")
	pflag.Parse()

	log := logging.NewConsole(*level, os.Stderr)

	runDays, runGas, err := parseSweep(*sweep)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	base, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading baseline config")
	}
	base.Output.Dir = *resultsDir
	if err := os.MkdirAll(*resultsDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("creating results directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := planner.NewRunner(log, nil)

	if runDays {
		results := runner.Sweep(ctx, *cfgPath, planner.DaysSweep(base, *days), *workers)
		rows := planner.DaysRows(results)
		path := filepath.Join(*resultsDir, daysFile)
		logSweep(log, path, len(results), len(rows), writeSweep(path, len(rows), func(w io.Writer) error {
			return report.WriteDaysSweep(w, rows)
		}))
	}

	if runGas {
		points := planner.GasViabilitySweep(base, *priceMults, *investMults, planner.GasComponents)
		results := runner.Sweep(ctx, *cfgPath, points, *workers)
		rows := planner.GasRows(results)
		path := filepath.Join(*resultsDir, gasFile)
		logSweep(log, path, len(results), len(rows), writeSweep(path, len(rows), func(w io.Writer) error {
			return report.WriteGasSweep(w, rows)
		}))
	}
}

// parseSweep maps --sweep to the sweeps to run.
func parseSweep(s string) (days, gas bool, err error) {
	switch s {
	case "days":
		return true, false, nil
	case "gas":
		return false, true, nil
	case "all":
		return true, true, nil
	default:
		return false, false, fmt.Errorf("--sweep must be days, gas or all, got %q", s)
	}
}

// errNothingSucceeded means no sweep point produced a row.
var errNothingSucceeded = errors.New("no successful scenarios")

// writeSweep writes the aggregate file unless no point succeeded.
func writeSweep(path string, succeeded int, write func(io.Writer) error) error {
	if succeeded == 0 {
		return errNothingSucceeded
	}
	return report.WriteFile(path, write)
}

func logSweep(log zerolog.Logger, path string, points, succeeded int, err error) {
	switch {
	case errors.Is(err, errNothingSucceeded):
		log.Warn().Str("file", path).Int("points", points).Msg("no successful scenarios, nothing written")
	case err != nil:
		log.Fatal().Err(err).Msg("writing sweep results")
	default:
		fmt.Printf("%s: %d of %d scenarios\n", path, succeeded, points)
	}
}
