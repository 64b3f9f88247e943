// Package config loads and validates scenario configuration files.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is one scenario's complete parameter set. It is a plain value:
// callers pass it explicitly and clone it before deriving variants.
type Config struct {
	Simulation      SimulationControl             `yaml:"simulation_control"`
	Economic        EconomicParameters            `yaml:"economic_parameters"`
	Costs           CostParameters                `yaml:"cost_parameters"`
	InvestmentCosts map[string]float64            `yaml:"investment_costs"`
	Lifetimes       map[string]int                `yaml:"lifetimes"`
	BaseCapacities  map[string]BaseCapacity       `yaml:"base_capacities"`
	ComponentParams map[string]map[string]float64 `yaml:"component_params"`
	Data            DataConfig                    `yaml:"data"`
	Output          OutputConfig                  `yaml:"output"`
	Solver          SolverConfig                  `yaml:"solver"`
}

type SimulationControl struct {
	NumDays int `yaml:"num_days"`
}

type EconomicParameters struct {
	InterestRate       float64 `yaml:"interest_rate"`
	GasPriceMultiplier float64 `yaml:"gas_price_multiplier"`
	// GasPriceConversion turns the per-m^3 gas price column into HKD/MWh.
	GasPriceConversion float64 `yaml:"gas_price_conversion"`
}

type CostParameters struct {
	ShedCostPerMWh map[string]float64 `yaml:"shed_cost_per_mwh"`
}

type DataConfig struct {
	Path string `yaml:"path"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type SolverConfig struct {
	Primary  string `yaml:"primary"`
	Fallback string `yaml:"fallback"`
	// TimeLimitSeconds of 0 leaves the solver unbounded.
	TimeLimitSeconds float64 `yaml:"time_limit_seconds"`
	MIPGap           float64 `yaml:"mip_gap"`
	BigM             float64 `yaml:"big_m"`
}

// BaseCapacity is a converter's unit size (a YAML scalar) or a storage's
// power and energy unit sizes (a {power, capacity} mapping).
type BaseCapacity struct {
	Value    float64
	Power    float64
	Capacity float64
	// Storage is set when the value was given as a mapping.
	Storage bool
}

type storageCapacity struct {
	Power    float64 `yaml:"power"`
	Capacity float64 `yaml:"capacity"`
}

func (b *BaseCapacity) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: base capacity must be a number: %w", node.Line, err)
		}
		*b = BaseCapacity{Value: v}
		return nil
	case yaml.MappingNode:
		var sc storageCapacity
		if err := node.Decode(&sc); err != nil {
			return fmt.Errorf("line %d: storage base capacity: %w", node.Line, err)
		}
		*b = BaseCapacity{Power: sc.Power, Capacity: sc.Capacity, Storage: true}
		return nil
	default:
		return fmt.Errorf("line %d: base capacity must be a number or a {power, capacity} mapping", node.Line)
	}
}

func (b BaseCapacity) MarshalYAML() (any, error) {
	if b.Storage {
		return storageCapacity{Power: b.Power, Capacity: b.Capacity}, nil
	}
	return b.Value, nil
}

// Shed cost keys.
const (
	ShedElec = "elec"
	ShedHeat = "heat"
	ShedCool = "cool"
)

// Solver names.
const (
	SolverHiGHS = "highs"
	SolverGLPK  = "glpk"
	SolverNone  = "none"
)

// Default returns a configuration holding only the defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationControl{NumDays: 8},
		Economic: EconomicParameters{
			InterestRate:       0.08,
			GasPriceMultiplier: 1.0,
			GasPriceConversion: 100,
		},
		Costs:           CostParameters{ShedCostPerMWh: map[string]float64{}},
		InvestmentCosts: map[string]float64{},
		Lifetimes:       map[string]int{},
		BaseCapacities:  map[string]BaseCapacity{},
		ComponentParams: map[string]map[string]float64{},
		Data:            DataConfig{Path: "data/data.csv"},
		Output:          OutputConfig{Dir: "results"},
		Solver: SolverConfig{
			Primary:  SolverHiGHS,
			Fallback: SolverGLPK,
			BigM:     1e5,
		},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Costs.ShedCostPerMWh = cloneMap(c.Costs.ShedCostPerMWh)
	out.InvestmentCosts = cloneMap(c.InvestmentCosts)
	out.Lifetimes = cloneMap(c.Lifetimes)
	out.BaseCapacities = cloneMap(c.BaseCapacities)
	out.ComponentParams = make(map[string]map[string]float64, len(c.ComponentParams))
	for name, params := range c.ComponentParams {
		out.ComponentParams[name] = cloneMap(params)
	}
	return &out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
