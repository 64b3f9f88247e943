package report

import (
	"io"
	"os"
)

var metricColumns = []string{
	"total_annual_cost",
	"investment_cost",
	"operational_cost",
	"gas_import_mwh",
	"elec_import_mwh",
	"solve_time",
	"gas_invested_capacity_mw",
}

func (m Metrics) fields() []string {
	return []string{
		formatFloat(m.TotalCost),
		formatFloat(m.InvestmentCost),
		formatFloat(m.OperationalCost),
		formatFloat(m.GasImport),
		formatFloat(m.ElecImport),
		formatFloat(m.SolveTime),
		formatFloat(m.GasCapacity),
	}
}

// DaysRow is one point of the representative-days sweep.
type DaysRow struct {
	NumDays int
	Metrics Metrics
}

// GasRow is one point of the gas viability sweep.
type GasRow struct {
	PriceMultiplier  float64
	InvestMultiplier float64
	Metrics          Metrics
}

// WriteDaysSweep writes days_sweep_results.csv content.
func WriteDaysSweep(w io.Writer, rows []DaysRow) error {
	header := append(append([]string{}, metricColumns...), "num_days")
	return writeCSV(w, header, len(rows), func(i int) []string {
		return append(rows[i].Metrics.fields(), formatFloat(float64(rows[i].NumDays)))
	})
}

// WriteGasSweep writes gas_viability_sweep_results.csv content.
func WriteGasSweep(w io.Writer, rows []GasRow) error {
	header := append(append([]string{}, metricColumns...), "gas_price_multiplier", "gas_invest_multiplier")
	return writeCSV(w, header, len(rows), func(i int) []string {
		return append(rows[i].Metrics.fields(),
			formatFloat(rows[i].PriceMultiplier),
			formatFloat(rows[i].InvestMultiplier))
	})
}

// ReadSummary parses a summary file from disk.
func ReadSummary(path string, gasComponents []string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, err
	}
	return ParseSummary(string(data), gasComponents), nil
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	return writeFile(path, write)
}
