// Package metrics exposes planner activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scenarios = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mes_scenarios_total",
		Help: "Scenarios run, by final status.",
	}, []string{"status"})

	solveSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mes_solve_duration_seconds",
		Help:    "Wall time of one solver run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	}, []string{"solver"})

	modelVariables = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mes_model_variables",
		Help: "Variables in the last model built for a scenario.",
	}, []string{"scenario"})

	modelConstraints = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mes_model_constraints",
		Help: "Constraints in the last model built for a scenario.",
	}, []string{"scenario"})
)

// ScenarioFinished counts a scenario under its status ("optimal",
// "infeasible", "failed", ...).
func ScenarioFinished(status string) {
	scenarios.WithLabelValues(status).Inc()
}

// SolveObserved records one solver run.
func SolveObserved(solver string, d time.Duration) {
	solveSeconds.WithLabelValues(solver).Observe(d.Seconds())
}

// ModelBuilt records the size of a scenario's model.
func ModelBuilt(scenario string, variables, constraints int) {
	modelVariables.WithLabelValues(scenario).Set(float64(variables))
	modelConstraints.WithLabelValues(scenario).Set(float64(constraints))
}
