package config

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads and parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfigYAML parses a Config from YAML bytes on top of the defaults
// and validates it.
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate re-checks a configuration after programmatic changes.
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(cfg *Config) error {
	if cfg.Simulation.NumDays < 1 {
		return fmt.Errorf("simulation_control.num_days must be at least 1, got %d", cfg.Simulation.NumDays)
	}

	econ := cfg.Economic
	if !finite(econ.InterestRate) || econ.InterestRate < 0 {
		return fmt.Errorf("economic_parameters.interest_rate cannot be negative: %v", econ.InterestRate)
	}
	if !finite(econ.GasPriceMultiplier) || econ.GasPriceMultiplier < 0 {
		return fmt.Errorf("economic_parameters.gas_price_multiplier cannot be negative: %v", econ.GasPriceMultiplier)
	}
	if !finite(econ.GasPriceConversion) || econ.GasPriceConversion <= 0 {
		return fmt.Errorf("economic_parameters.gas_price_conversion must be positive: %v", econ.GasPriceConversion)
	}

	for _, key := range []string{ShedElec, ShedHeat, ShedCool} {
		v, ok := cfg.Costs.ShedCostPerMWh[key]
		if !ok {
			return fmt.Errorf("cost_parameters.shed_cost_per_mwh.%s is required", key)
		}
		if !finite(v) || v < 0 {
			return fmt.Errorf("cost_parameters.shed_cost_per_mwh.%s cannot be negative: %v", key, v)
		}
	}

	for _, name := range sortedKeys(cfg.InvestmentCosts) {
		if v := cfg.InvestmentCosts[name]; !finite(v) || v < 0 {
			return fmt.Errorf("investment_costs.%s cannot be negative: %v", name, v)
		}
	}
	for _, name := range sortedKeys(cfg.Lifetimes) {
		if v := cfg.Lifetimes[name]; v < 0 {
			return fmt.Errorf("lifetimes.%s cannot be negative: %d", name, v)
		}
	}
	for _, name := range sortedKeys(cfg.BaseCapacities) {
		if err := validateCapacity(cfg.BaseCapacities[name]); err != nil {
			return fmt.Errorf("base_capacities.%s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(cfg.ComponentParams) {
		for key, v := range cfg.ComponentParams[name] {
			if !finite(v) {
				return fmt.Errorf("component_params.%s.%s is not finite", name, key)
			}
		}
	}

	if cfg.Data.Path == "" {
		return fmt.Errorf("data.path cannot be empty")
	}
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}

	return validateSolver(cfg.Solver)
}

func validateCapacity(b BaseCapacity) error {
	if b.Storage {
		if !finite(b.Power) || b.Power <= 0 {
			return fmt.Errorf("power must be positive: %v", b.Power)
		}
		if !finite(b.Capacity) || b.Capacity <= 0 {
			return fmt.Errorf("capacity must be positive: %v", b.Capacity)
		}
		return nil
	}
	if !finite(b.Value) || b.Value <= 0 {
		return fmt.Errorf("must be positive: %v", b.Value)
	}
	return nil
}

func validateSolver(s SolverConfig) error {
	switch s.Primary {
	case SolverHiGHS, SolverGLPK:
	default:
		return fmt.Errorf("invalid solver.primary: %q (must be highs or glpk)", s.Primary)
	}
	switch s.Fallback {
	case "", SolverNone, SolverHiGHS, SolverGLPK:
	default:
		return fmt.Errorf("invalid solver.fallback: %q (must be highs, glpk or none)", s.Fallback)
	}
	if s.Fallback == s.Primary {
		return fmt.Errorf("solver.fallback must differ from solver.primary")
	}
	if s.TimeLimitSeconds < 0 {
		return fmt.Errorf("solver.time_limit_seconds cannot be negative")
	}
	if s.MIPGap < 0 || s.MIPGap >= 1 {
		return fmt.Errorf("solver.mip_gap must be in [0, 1): %v", s.MIPGap)
	}
	if !finite(s.BigM) || s.BigM <= 0 {
		return fmt.Errorf("solver.big_m must be positive: %v", s.BigM)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
