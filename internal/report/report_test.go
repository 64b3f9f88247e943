package report

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/component"
	"mes_planner/internal/formulation"
	"mes_planner/internal/milp"
	"mes_planner/internal/model"
)

func testResult() *formulation.Result {
	start := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	return &formulation.Result{
		Timestamps:  []time.Time{start, start.Add(time.Hour)},
		Weights:     []float64{365},
		HoursPerDay: 2,
		Investments: []formulation.Investment{
			{Name: "CHP_A", Kind: component.KindConverter},
			{Name: "Boiler", Kind: component.KindConverter, Units: 2, Capacity: 20},
			{Name: "Heat_Storage", Kind: component.KindStorage, Units: 1, Power: 5, Capacity: 10},
		},
		Balances: map[model.Carrier]*formulation.Balance{
			model.CarrierHeat: {Demand: []float64{9, 10}, Supply: []float64{9, 9}, Shed: []float64{0, 1}},
		},
		SoC:          map[string][]float64{"Heat_Storage": {0, 2.5}},
		StorageOrder: []string{"Heat_Storage"},
		Imports: []formulation.Import{{
			Node:    "Gas_Import",
			Carrier: model.CarrierGas,
			Energy:  []float64{10, 10},
			Price:   []float64{50, 70},
			Cost:    []float64{500, 700},
		}},
		InvestmentCost:  1000,
		OperationalCost: 1233567.891,
		TotalCost:       1234567.891,
	}
}

const wantSummary = `========= Summary for Scenario: base =========
Configuration File: configs/base.yaml
Total Time: 1.50s

--- Cost Summary ---
Total Annual Cost: 1,234,567.89 HKD
  - Annualized Investment Cost: 1,000.00 HKD
  - Total Annual Operational Cost: 1,233,567.89 HKD

--- Investment Decisions ---
Converters:
  - Boiler: 2 units => Capacity: 20.00 MW

Storages:
  - Heat_Storage: 1 units => Power: 5.00 MW, Capacity: 10.00 MWh

--- Annual Energy & Load Summary ---
Total Gas Import: 7,300.00 MWh/year
Total Elec Import: 0.00 MWh/year
Total Elec Shed: 0.00 MWh/year
Total Heat Shed: 365.00 MWh/year
Total Cool Shed: 0.00 MWh/year

Average Gas Price: 60.00 HKD/MWh
`

var testMeta = Meta{Scenario: "base", ConfigPath: "configs/base.yaml", Elapsed: 1500 * time.Millisecond}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testMeta, testResult()))
	assert.Equal(t, wantSummary, buf.String())
}

func TestWriteSummary_NoImports(t *testing.T) {
	r := testResult()
	r.Imports[0].Energy = []float64{0, 0}
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testMeta, r))
	assert.NotContains(t, buf.String(), "Average Gas Price")
	assert.Contains(t, buf.String(), "Total Gas Import: 0.00 MWh/year")
}

func TestParseSummary(t *testing.T) {
	m := ParseSummary(wantSummary, []string{"CHP_A", "Boiler", "ICE"})
	assert.Equal(t, Metrics{
		TotalCost:       1234567.89,
		InvestmentCost:  1000,
		OperationalCost: 1233567.89,
		GasImport:       7300,
		ElecImport:      0,
		SolveTime:       1.5,
		GasCapacity:     20,
	}, m)
}

func TestParseSummary_MissingMetrics(t *testing.T) {
	assert.Equal(t, Metrics{}, ParseSummary("Total Annual Cost: n/a\n", []string{"ICE"}))
}

func TestWriteEnergyBalance(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnergyBalance(&buf, testResult()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp,Elec_Demand,Elec_Supply,Elec_Shed,Heat_Demand,Heat_Supply,Heat_Shed,Cool_Demand,Cool_Supply,Cool_Shed", lines[0])
	assert.Equal(t, "2023-07-01 01:00:00,0,0,0,10,9,1,0,0,0", lines[2])
}

func TestWriteStorageSoC(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStorageSoC(&buf, testResult()))
	assert.Equal(t, "Heat_Storage\n0\n2.5\n", buf.String())
}

func TestWriteGridImport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGridImport(&buf, testResult()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp,Gas_Import_MWh,Elec_Import_MWh,Gas_Price_per_MWh,Elec_Price_per_MWh,Gas_Cost_HKD,Elec_Cost_HKD", lines[0])
	assert.Equal(t, "2023-07-01 00:00:00,10,0,50,0,500,0", lines[1])
}

func tinyModel(t *testing.T) *milp.Model {
	t.Helper()
	m := milp.NewModel("tiny")
	x, err := m.AddVar("x", milp.Continuous, 0, 10)
	require.NoError(t, err)
	var e milp.Expr
	e.Add(x, 1)
	require.NoError(t, m.AddConstraint("floor", e, milp.GE, 1))
	require.NoError(t, m.SetObjective(e))
	return m
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	files, err := Write(dir, testMeta, milp.StatusOptimal, testResult(), tinyModel(t))
	require.NoError(t, err)

	assert.Equal(t, Paths(dir, "base"), files)
	for _, path := range files.All() {
		assert.FileExists(t, path)
	}
	data, err := os.ReadFile(files.Constraints)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "========= Constraints for Scenario: base =========\n\n"))
	assert.Contains(t, string(data), "floor")

	m, err := ReadSummary(files.Summary, []string{"Boiler"})
	require.NoError(t, err)
	assert.Equal(t, 20.0, m.GasCapacity)
}

func TestWrite_NotOptimal(t *testing.T) {
	dir := t.TempDir()
	for _, status := range []milp.Status{milp.StatusFeasible, milp.StatusInfeasible, milp.StatusError} {
		_, err := Write(dir, testMeta, status, testResult(), tinyModel(t))
		assert.Error(t, err)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSweepCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDaysSweep(&buf, []DaysRow{{NumDays: 4, Metrics: Metrics{TotalCost: 10, SolveTime: 0.5}}}))
	assert.Equal(t,
		"total_annual_cost,investment_cost,operational_cost,gas_import_mwh,elec_import_mwh,solve_time,gas_invested_capacity_mw,num_days\n"+
			"10,0,0,0,0,0.5,0,4\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteGasSweep(&buf, []GasRow{{PriceMultiplier: 0.7, InvestMultiplier: 1, Metrics: Metrics{GasCapacity: 12}}}))
	assert.Equal(t,
		"total_annual_cost,investment_cost,operational_cost,gas_import_mwh,elec_import_mwh,solve_time,gas_invested_capacity_mw,gas_price_multiplier,gas_invest_multiplier\n"+
			"0,0,0,0,0,0,12,0.7,1\n", buf.String())
}
