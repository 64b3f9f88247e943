package report

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"

	"mes_planner/internal/component"
	"mes_planner/internal/formulation"
	"mes_planner/internal/model"
)

// money renders v with thousands separators and two decimals.
func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// annual is the day-weighted yearly total of an hourly series.
func annual(xs, hourWeights []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Dot(xs, hourWeights)
}

// averagePrice is the import-weighted mean price, and false when nothing
// was imported.
func averagePrice(imp formulation.Import, hourWeights []float64) (float64, bool) {
	if len(imp.Energy) == 0 {
		return 0, false
	}
	weighted := make([]float64, len(imp.Energy))
	floats.MulTo(weighted, imp.Energy, hourWeights)
	total := floats.Sum(weighted)
	if total <= 0 {
		return 0, false
	}
	return floats.Dot(weighted, imp.Price) / total, true
}

// WriteSummary writes the human-readable scenario report.
func WriteSummary(w io.Writer, meta Meta, r *formulation.Result) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("========= Summary for Scenario: %s =========\n", meta.Scenario)
	p("Configuration File: %s\n", meta.ConfigPath)
	p("Total Time: %.2fs\n\n", meta.Elapsed.Seconds())

	p("--- Cost Summary ---\n")
	p("Total Annual Cost: %s HKD\n", money(r.TotalCost))
	p("  - Annualized Investment Cost: %s HKD\n", money(r.InvestmentCost))
	p("  - Total Annual Operational Cost: %s HKD\n\n", money(r.OperationalCost))

	p("--- Investment Decisions ---\n")
	p("Converters:\n")
	for _, inv := range r.Investments {
		if inv.Kind == component.KindConverter && inv.Units > 0.1 {
			p("  - %s: %d units => Capacity: %.2f MW\n", inv.Name, int(inv.Units), inv.Capacity)
		}
	}
	p("\nStorages:\n")
	for _, inv := range r.Investments {
		if inv.Kind == component.KindStorage && inv.Units > 0.1 {
			p("  - %s: %d units => Power: %.2f MW, Capacity: %.2f MWh\n", inv.Name, int(inv.Units), inv.Power, inv.Capacity)
		}
	}
	p("\n")

	hw := r.HourWeights()
	gas, _ := r.Import(model.CarrierGas)
	elec, _ := r.Import(model.CarrierElec)
	shed := func(c model.Carrier) float64 {
		if b, ok := r.Balances[c]; ok {
			return annual(b.Shed, hw)
		}
		return 0
	}

	p("--- Annual Energy & Load Summary ---\n")
	p("Total Gas Import: %s MWh/year\n", money(annual(gas.Energy, hw)))
	p("Total Elec Import: %s MWh/year\n", money(annual(elec.Energy, hw)))
	p("Total Elec Shed: %s MWh/year\n", money(shed(model.CarrierElec)))
	p("Total Heat Shed: %s MWh/year\n", money(shed(model.CarrierHeat)))
	p("Total Cool Shed: %s MWh/year\n\n", money(shed(model.CarrierCool)))

	if avg, ok := averagePrice(gas, hw); ok {
		p("Average Gas Price: %s HKD/MWh\n", money(avg))
	}
	if avg, ok := averagePrice(elec, hw); ok {
		p("Average Elec Price: %s HKD/MWh\n", money(avg))
	}
	return bw.Flush()
}

// Metrics are the headline numbers of one summary file.
type Metrics struct {
	TotalCost       float64
	InvestmentCost  float64
	OperationalCost float64
	GasImport       float64
	ElecImport      float64
	SolveTime       float64
	// GasCapacity is the invested MW of the gas-fired converters.
	GasCapacity float64
}

const number = `([\d,.-]+)`

var (
	totalCostRe  = regexp.MustCompile(`Total Annual Cost: ` + number)
	investCostRe = regexp.MustCompile(`Annualized Investment Cost: ` + number)
	opCostRe     = regexp.MustCompile(`Total Annual Operational Cost: ` + number)
	gasImportRe  = regexp.MustCompile(`Total Gas Import: ` + number)
	elecImportRe = regexp.MustCompile(`Total Elec Import: ` + number)
	solveTimeRe  = regexp.MustCompile(`Total Time: ` + number + `s`)
)

// find returns the first captured number, or 0 when the pattern is absent
// or does not parse.
func find(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseSummary extracts Metrics from summary text. Missing values read as 0.
func ParseSummary(text string, gasComponents []string) Metrics {
	m := Metrics{
		TotalCost:       find(totalCostRe, text),
		InvestmentCost:  find(investCostRe, text),
		OperationalCost: find(opCostRe, text),
		GasImport:       find(gasImportRe, text),
		ElecImport:      find(elecImportRe, text),
		SolveTime:       find(solveTimeRe, text),
	}
	for _, name := range gasComponents {
		re := regexp.MustCompile(`(?m)^\s*- ` + regexp.QuoteMeta(name) + `: \d+ units? => Capacity: ` + number + ` MW`)
		m.GasCapacity += find(re, text)
	}
	return m
}
