package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
cost_parameters:
  shed_cost_per_mwh: {elec: 50000, heat: 30000, cool: 30000}
investment_costs:
  Gas_Boiler: 800000
  Heat_Storage: 150000
lifetimes:
  Gas_Boiler: 20
  Heat_Storage: 20
base_capacities:
  Gas_Boiler: 5
  Heat_Storage: {power: 2, capacity: 10}
component_params:
  Gas_Boiler: {eta: 0.92}
  Heat_Storage: {eta_c: 0.9, eta_d: 0.9}
`

func TestParseConfigYAML_Defaults(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Simulation.NumDays)
	assert.Equal(t, 0.08, cfg.Economic.InterestRate)
	assert.Equal(t, 1.0, cfg.Economic.GasPriceMultiplier)
	assert.Equal(t, 100.0, cfg.Economic.GasPriceConversion)
	assert.Equal(t, "data/data.csv", cfg.Data.Path)
	assert.Equal(t, "results", cfg.Output.Dir)
	assert.Equal(t, SolverHiGHS, cfg.Solver.Primary)
	assert.Equal(t, SolverGLPK, cfg.Solver.Fallback)
	assert.Equal(t, 1e5, cfg.Solver.BigM)
}

func TestParseConfigYAML_BaseCapacities(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(minimalYAML))
	require.NoError(t, err)

	boiler := cfg.BaseCapacities["Gas_Boiler"]
	assert.False(t, boiler.Storage)
	assert.Equal(t, 5.0, boiler.Value)

	storage := cfg.BaseCapacities["Heat_Storage"]
	assert.True(t, storage.Storage)
	assert.Equal(t, 2.0, storage.Power)
	assert.Equal(t, 10.0, storage.Capacity)
}

func TestParseConfigYAML_ExplicitZeroMultiplier(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(minimalYAML + "economic_parameters: {gas_price_multiplier: 0}\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Economic.GasPriceMultiplier)
	assert.Equal(t, 0.08, cfg.Economic.InterestRate)
}

func TestParseConfigYAML_Invalid(t *testing.T) {
	const top = "cost_parameters:"
	tests := []struct {
		name   string
		old    string
		repl   string
		errMsg string
	}{
		{"zero days", top, "simulation_control: {num_days: 0}\n" + top, "num_days"},
		{"negative interest", top, "economic_parameters: {interest_rate: -0.1}\n" + top, "interest_rate"},
		{"negative lifetime", "  Gas_Boiler: 20\n", "  Gas_Boiler: -1\n", "lifetimes.Gas_Boiler"},
		{"bad capacity", "  Gas_Boiler: 5\n", "  Gas_Boiler: [1, 2]\n", "base capacity"},
		{"zero capacity", "  Gas_Boiler: 5\n", "  Gas_Boiler: 0\n", "base_capacities.Gas_Boiler"},
		{"storage without power", "{power: 2, capacity: 10}", "{capacity: 10}", "power"},
		{"unknown solver", top, "solver: {primary: cplex}\n" + top, "solver.primary"},
		{"same fallback", top, "solver: {primary: glpk, fallback: glpk}\n" + top, "differ"},
		{"bad big M", top, "solver: {big_m: 0}\n" + top, "big_m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(minimalYAML, tt.old, tt.repl, 1)
			require.NotEqual(t, minimalYAML, data)
			_, err := ParseConfigYAML([]byte(data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseConfigYAML_MissingShedCost(t *testing.T) {
	data := strings.Replace(minimalYAML, "{elec: 50000, heat: 30000, cool: 30000}", "{elec: 50000, heat: 30000}", 1)
	_, err := ParseConfigYAML([]byte(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shed_cost_per_mwh.cool")
}

func TestParseConfigYAML_Malformed(t *testing.T) {
	_, err := ParseConfigYAML([]byte("simulation_control: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.92, cfg.ComponentParams["Gas_Boiler"]["eta"])

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_Baseline(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "baseline.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.ComponentParams, 13)
	assert.True(t, cfg.BaseCapacities["Cooling_Storage"].Storage)
}

func TestClone_IsDeep(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(minimalYAML))
	require.NoError(t, err)

	clone := cfg.Clone()
	clone.InvestmentCosts["Gas_Boiler"] = 1
	clone.ComponentParams["Gas_Boiler"]["eta"] = 0.5
	clone.Costs.ShedCostPerMWh["elec"] = 1
	clone.BaseCapacities["Gas_Boiler"] = BaseCapacity{Value: 99}
	clone.Simulation.NumDays = 2

	assert.Equal(t, 800000.0, cfg.InvestmentCosts["Gas_Boiler"])
	assert.Equal(t, 0.92, cfg.ComponentParams["Gas_Boiler"]["eta"])
	assert.Equal(t, 50000.0, cfg.Costs.ShedCostPerMWh["elec"])
	assert.Equal(t, 5.0, cfg.BaseCapacities["Gas_Boiler"].Value)
	assert.Equal(t, 8, cfg.Simulation.NumDays)
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(minimalYAML))
	require.NoError(t, err)

	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := ParseConfigYAML(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
