// Package report writes the per-scenario result files and reads summaries
// back for batch aggregation.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mes_planner/internal/formulation"
	"mes_planner/internal/milp"
	"mes_planner/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05"

// balanceCarriers are the carriers of the energy balance table, in column order.
var balanceCarriers = []model.Carrier{model.CarrierElec, model.CarrierHeat, model.CarrierCool}

// Meta describes the run that produced a result.
type Meta struct {
	Scenario   string
	ConfigPath string
	Elapsed    time.Duration
}

// Files are the paths written for one scenario.
type Files struct {
	EnergyBalance string
	StorageSoC    string
	GridImport    string
	Summary       string
	Constraints   string
}

// Paths returns the file names of a scenario under dir.
func Paths(dir, scenario string) Files {
	at := func(suffix string) string {
		return filepath.Join(dir, scenario+suffix)
	}
	return Files{
		EnergyBalance: at("_energy_balance.csv"),
		StorageSoC:    at("_storage_soc.csv"),
		GridImport:    at("_grid_import.csv"),
		Summary:       at("_summary.txt"),
		Constraints:   at("_constraints.txt"),
	}
}

// All lists the paths in write order.
func (f Files) All() []string {
	return []string{f.EnergyBalance, f.StorageSoC, f.GridImport, f.Summary, f.Constraints}
}

// Write stores every result file of an optimal solve under dir.
func Write(dir string, meta Meta, status milp.Status, r *formulation.Result, m *milp.Model) (Files, error) {
	if status != milp.StatusOptimal {
		return Files{}, fmt.Errorf("scenario %s: status %s, no results written", meta.Scenario, status)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("creating output dir: %w", err)
	}

	files := Paths(dir, meta.Scenario)
	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{files.EnergyBalance, func(w io.Writer) error { return WriteEnergyBalance(w, r) }},
		{files.StorageSoC, func(w io.Writer) error { return WriteStorageSoC(w, r) }},
		{files.GridImport, func(w io.Writer) error { return WriteGridImport(w, r) }},
		{files.Summary, func(w io.Writer) error { return WriteSummary(w, meta, r) }},
		{files.Constraints, func(w io.Writer) error { return WriteConstraints(w, meta.Scenario, m) }},
	}
	for _, wr := range writers {
		if err := writeFile(wr.path, wr.write); err != nil {
			return Files{}, err
		}
	}
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(w io.Writer, header []string, rows int, row func(t int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for t := 0; t < rows; t++ {
		if err := cw.Write(row(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEnergyBalance writes Timestamp plus Demand, Supply and Shed per
// demand carrier. Carriers the hub does not serve read as zero.
func WriteEnergyBalance(w io.Writer, r *formulation.Result) error {
	header := []string{"Timestamp"}
	for _, c := range balanceCarriers {
		name := model.CarrierCatalog[c].Name
		header = append(header, name+"_Demand", name+"_Supply", name+"_Shed")
	}
	return writeCSV(w, header, len(r.Timestamps), func(t int) []string {
		row := []string{r.Timestamps[t].Format(timestampLayout)}
		for _, c := range balanceCarriers {
			b, ok := r.Balances[c]
			if !ok {
				row = append(row, "0", "0", "0")
				continue
			}
			row = append(row, formatFloat(b.Demand[t]), formatFloat(b.Supply[t]), formatFloat(b.Shed[t]))
		}
		return row
	})
}

// WriteStorageSoC writes one column per storage.
func WriteStorageSoC(w io.Writer, r *formulation.Result) error {
	return writeCSV(w, r.StorageOrder, len(r.Timestamps), func(t int) []string {
		row := make([]string, len(r.StorageOrder))
		for i, name := range r.StorageOrder {
			row[i] = formatFloat(r.SoC[name][t])
		}
		return row
	})
}

// WriteGridImport writes hourly gas and electricity purchases.
func WriteGridImport(w io.Writer, r *formulation.Result) error {
	gas, _ := r.Import(model.CarrierGas)
	elec, _ := r.Import(model.CarrierElec)
	at := func(xs []float64, t int) string {
		if xs == nil {
			return "0"
		}
		return formatFloat(xs[t])
	}
	header := []string{
		"Timestamp",
		"Gas_Import_MWh", "Elec_Import_MWh",
		"Gas_Price_per_MWh", "Elec_Price_per_MWh",
		"Gas_Cost_HKD", "Elec_Cost_HKD",
	}
	return writeCSV(w, header, len(r.Timestamps), func(t int) []string {
		return []string{
			r.Timestamps[t].Format(timestampLayout),
			at(gas.Energy, t), at(elec.Energy, t),
			at(gas.Price, t), at(elec.Price, t),
			at(gas.Cost, t), at(elec.Cost, t),
		}
	})
}

// WriteConstraints dumps the model in LP format under a scenario header.
func WriteConstraints(w io.Writer, scenario string, m *milp.Model) error {
	if _, err := fmt.Fprintf(w, "========= Constraints for Scenario: %s =========\n\n", scenario); err != nil {
		return err
	}
	return m.WriteLP(w)
}
