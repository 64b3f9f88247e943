package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mes_planner/internal/config"
	"mes_planner/internal/report"
)

// DefaultSweepDays are the representative-day counts of the days sweep.
var DefaultSweepDays = []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 30, 50}

// DefaultMultipliers run from 1.0 down to 0 in steps of 0.1.
var DefaultMultipliers = []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0}

// Point is one scenario of a sweep. Every point owns its Config.
type Point struct {
	Scenario string
	Config   *config.Config

	NumDays          int
	PriceMultiplier  float64
	InvestMultiplier float64
}

// PointResult pairs a point with its outcome or error.
type PointResult struct {
	Point   Point
	Outcome *Outcome
	Err     error
}

// DaysSweep varies the number of representative days.
func DaysSweep(base *config.Config, days []int) []Point {
	points := make([]Point, 0, len(days))
	for _, n := range days {
		cfg := base.Clone()
		cfg.Simulation.NumDays = n
		points = append(points, Point{Scenario: fmt.Sprintf("days_%d", n), Config: cfg, NumDays: n})
	}
	return points
}

// GasViabilitySweep varies the gas price multiplier and scales the
// investment cost of the gas-fired components.
func GasViabilitySweep(base *config.Config, priceMults, investMults []float64, gasComponents []string) []Point {
	points := make([]Point, 0, len(priceMults)*len(investMults))
	for _, p := range priceMults {
		for _, i := range investMults {
			cfg := base.Clone()
			cfg.Economic.GasPriceMultiplier = p
			for _, name := range gasComponents {
				if cost, ok := base.InvestmentCosts[name]; ok {
					cfg.InvestmentCosts[name] = cost * i
				}
			}
			points = append(points, Point{
				Scenario:         fmt.Sprintf("gas_p%d_i%d", int(p*100), int(i*100)),
				Config:           cfg,
				NumDays:          cfg.Simulation.NumDays,
				PriceMultiplier:  p,
				InvestMultiplier: i,
			})
		}
	}
	return points
}

// Sweep runs every point, at most workers at a time (1 when workers < 1).
// Failed points are logged and reported in their PointResult; the rest
// still run. Results keep the point order.
func (r *Runner) Sweep(ctx context.Context, cfgPath string, points []Point, workers int) []PointResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]PointResult, len(points))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, pt := range points {
		g.Go(func() error {
			results[i].Point = pt
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			r.log.Info().Str("scenario", pt.Scenario).Msg("running sweep point")
			outcome, err := r.Run(ctx, pt.Scenario, pt.Config, cfgPath)
			results[i].Outcome, results[i].Err = outcome, err
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.log.Info().Int("points", len(points)).Int("failed", failed).Msg("sweep finished")
	return results
}

// DaysRows aggregates the successful points of a days sweep.
func DaysRows(results []PointResult) []report.DaysRow {
	var rows []report.DaysRow
	for _, res := range results {
		if res.Err != nil || res.Outcome == nil {
			continue
		}
		rows = append(rows, report.DaysRow{NumDays: res.Point.NumDays, Metrics: res.Outcome.Metrics})
	}
	return rows
}

// GasRows aggregates the successful points of a gas viability sweep.
func GasRows(results []PointResult) []report.GasRow {
	var rows []report.GasRow
	for _, res := range results {
		if res.Err != nil || res.Outcome == nil {
			continue
		}
		rows = append(rows, report.GasRow{
			PriceMultiplier:  res.Point.PriceMultiplier,
			InvestMultiplier: res.Point.InvestMultiplier,
			Metrics:          res.Outcome.Metrics,
		})
	}
	return rows
}
