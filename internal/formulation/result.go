package formulation

import (
	"fmt"
	"math"
	"time"

	"mes_planner/internal/component"
	"mes_planner/internal/graph"
	"mes_planner/internal/milp"
	"mes_planner/internal/model"
)

// Investment is the sizing decision for one component.
type Investment struct {
	Name  string
	Kind  component.Kind
	Units float64
	// Capacity is units*base for converters and units*cap_base (MWh) for
	// storages.
	Capacity float64
	// Power is units*power_base; storages only.
	Power float64
}

// Balance is the hourly picture of one demand carrier.
type Balance struct {
	Demand []float64
	// Supply is the total outflow of every producer of the carrier,
	// storage discharge included.
	Supply []float64
	Shed   []float64
}

// Import is the hourly purchase at one input node.
type Import struct {
	Node    string
	Carrier model.Carrier
	Energy  []float64 // MWh per hour
	Price   []float64 // HKD/MWh
	Cost    []float64 // HKD
}

// Result is a solution read back in domain terms.
type Result struct {
	Timestamps  []time.Time
	Weights     []float64
	HoursPerDay int

	Investments []Investment
	Balances    map[model.Carrier]*Balance
	// SoC per storage name, one value per hour.
	SoC          map[string][]float64
	StorageOrder []string
	Imports      []Import

	InvestmentCost  float64
	OperationalCost float64
	TotalCost       float64
}

// Import returns the import of a carrier, if the hub has one.
func (r *Result) Import(c model.Carrier) (Import, bool) {
	for _, imp := range r.Imports {
		if imp.Carrier == c {
			return imp, true
		}
	}
	return Import{}, false
}

// HourWeights repeats each day weight over the hours of that day.
func (r *Result) HourWeights() []float64 {
	w := make([]float64, len(r.Weights)*r.HoursPerDay)
	for t := range w {
		w[t] = r.Weights[t/r.HoursPerDay]
	}
	return w
}

// InvestmentCost returns the annualized investment part of the objective.
func (p *Problem) InvestmentCost(values []float64) float64 {
	return p.Model.Evaluate(p.investment, values)
}

// OperationalCost returns the weighted operational part of the objective.
func (p *Problem) OperationalCost(values []float64) float64 {
	return p.Model.Evaluate(p.operational, values)
}

// Extract reads an optimal or feasible solution.
func (p *Problem) Extract(sol *milp.Solution) (*Result, error) {
	if sol == nil || sol.Values == nil {
		return nil, fmt.Errorf("extract: solution has no values")
	}
	if len(sol.Values) != p.Model.NumVars() {
		return nil, fmt.Errorf("extract: %d values for %d variables", len(sol.Values), p.Model.NumVars())
	}
	vals := sol.Values
	T := p.steps()

	r := &Result{
		Timestamps:  p.data.Timestamps,
		Weights:     p.data.Weights,
		HoursPerDay: p.data.HoursPerDay,
		Balances:    make(map[model.Carrier]*Balance),
		SoC:         make(map[string][]float64),
	}

	for i, c := range p.converters {
		u := math.Round(vals[p.convUnits[i]])
		r.Investments = append(r.Investments, Investment{
			Name: c.Name, Kind: c.Kind, Units: u, Capacity: u * c.Capacity.Base,
		})
	}
	for i, s := range p.storages {
		u := math.Round(vals[p.storUnits[i]])
		r.Investments = append(r.Investments, Investment{
			Name: s.Name, Kind: s.Kind, Units: u,
			Capacity: u * s.Capacity.CapBase, Power: u * s.Capacity.PowerBase,
		})
		soc := make([]float64, T)
		for t := range soc {
			soc[t] = vals[p.soc[i][t]]
		}
		r.SoC[s.Name] = soc
		r.StorageOrder = append(r.StorageOrder, s.Name)
	}

	branchSum := func(branches []int, t int) float64 {
		total := 0.0
		for _, b := range branches {
			total += vals[p.flow[b][t]]
		}
		return total
	}

	for _, n := range p.demands {
		producers, _ := p.ports(n.Carrier)
		b := &Balance{
			Demand: append([]float64(nil), p.data.Series(DemandSeries[n.Carrier])...),
			Supply: make([]float64, T),
			Shed:   make([]float64, T),
		}
		for t := 0; t < T; t++ {
			for _, ep := range producers {
				b.Supply[t] += branchSum(p.hub.Outbound(ep.Node, ep.Port), t)
			}
			b.Shed[t] = vals[p.shed[n.Carrier][t]]
		}
		r.Balances[n.Carrier] = b
	}

	for i, n := range p.imports {
		imp := Import{
			Node:    n.Name,
			Carrier: n.Carrier,
			Energy:  make([]float64, T),
			Price:   append([]float64(nil), p.price[i]...),
			Cost:    make([]float64, T),
		}
		out := p.hub.Outbound(n.Name, graph.PortOut)
		for t := 0; t < T; t++ {
			imp.Energy[t] = branchSum(out, t)
			imp.Cost[t] = imp.Energy[t] * imp.Price[t]
		}
		r.Imports = append(r.Imports, imp)
	}

	r.InvestmentCost = p.InvestmentCost(vals)
	r.OperationalCost = p.OperationalCost(vals)
	r.TotalCost = r.InvestmentCost + r.OperationalCost
	return r, nil
}

// Flow looks up the flow variable of a branch at hour t.
func (p *Problem) Flow(branch string, t int) (milp.Var, bool) {
	return p.Model.VarByName(fmt.Sprintf("flow_%s_%d", branch, t))
}
