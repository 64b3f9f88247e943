// Package formulation turns a sealed hub and a representative-day dataset
// into a capacity-expansion MILP.
package formulation

import (
	"fmt"
	"math"

	"mes_planner/internal/component"
	"mes_planner/internal/config"
	"mes_planner/internal/dataset"
	"mes_planner/internal/econ"
	"mes_planner/internal/graph"
	"mes_planner/internal/milp"
	"mes_planner/internal/model"
)

// DemandSeries maps a carrier to the input column holding its exogenous demand.
var DemandSeries = map[model.Carrier]model.Series{
	model.CarrierElec: model.SeriesElecLoad,
	model.CarrierHeat: model.SeriesHeatLoad,
	model.CarrierCool: model.SeriesCoolLoad,
}

// Problem is the built model plus the handles needed to read a solution.
type Problem struct {
	Model *milp.Model

	hub  *graph.Hub
	data *dataset.Dataset
	cfg  *config.Config

	converters []*component.Component
	storages   []*component.Component
	imports    []graph.IONode
	// demand carriers in model.Carriers order, one output node each
	demands []graph.IONode

	convUnits []milp.Var
	storUnits []milp.Var
	flow      [][]milp.Var // [branch][t]
	soc       [][]milp.Var // [storage][t]
	charge    [][]milp.Var // charge flag [storage][t]
	discharge [][]milp.Var // discharge flag [storage][t]
	shed      map[model.Carrier][]milp.Var

	// price[i][t] is the price of import node i in HKD/MWh.
	price [][]float64

	investment  milp.Expr
	operational milp.Expr
}

// Build declares the variables, constraints and objective. The dataset is
// validated before anything is created, and the hub is sealed.
func Build(hub *graph.Hub, data *dataset.Dataset, cfg *config.Config) (*Problem, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	p := &Problem{
		hub:        hub,
		data:       data,
		cfg:        cfg,
		converters: hub.Converters(),
		storages:   hub.Storages(),
		imports:    hub.Inputs(),
		shed:       make(map[model.Carrier][]milp.Var),
	}
	if err := p.checkInputs(); err != nil {
		return nil, err
	}
	hub.Seal()

	p.Model = milp.NewModel("mes")
	steps := []func() error{
		p.addVariables,
		p.addBalance,
		p.addConverters,
		p.addStorages,
		p.addObjective,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Problem) checkInputs() error {
	for _, c := range p.converters {
		if c.Capacity.Base <= 0 {
			return fmt.Errorf("converter %s: base capacity not set", c.Name)
		}
	}
	for _, s := range p.storages {
		if s.Capacity.PowerBase <= 0 || s.Capacity.CapBase <= 0 {
			return fmt.Errorf("storage %s: power and energy base capacities not set", s.Name)
		}
	}
	for _, c := range p.hub.Components() {
		if _, ok := p.cfg.InvestmentCosts[c.Name]; !ok {
			return fmt.Errorf("component %s: no investment cost configured", c.Name)
		}
		if _, ok := p.cfg.Lifetimes[c.Name]; !ok {
			return fmt.Errorf("component %s: no lifetime configured", c.Name)
		}
	}

	seen := make(map[model.Carrier]bool)
	for _, n := range p.hub.Outputs() {
		if _, ok := DemandSeries[n.Carrier]; !ok {
			return fmt.Errorf("output node %s: no demand series for carrier %s", n.Name, n.Carrier)
		}
		if seen[n.Carrier] {
			return fmt.Errorf("output node %s: more than one demand node for carrier %s", n.Name, n.Carrier)
		}
		seen[n.Carrier] = true
		if _, ok := p.cfg.Costs.ShedCostPerMWh[string(n.Carrier)]; !ok {
			return fmt.Errorf("output node %s: no shed cost for carrier %s", n.Name, n.Carrier)
		}
	}
	for _, c := range model.Carriers {
		for _, n := range p.hub.Outputs() {
			if n.Carrier == c {
				p.demands = append(p.demands, n)
			}
		}
	}

	p.price = make([][]float64, len(p.imports))
	for i, n := range p.imports {
		prices, err := p.importPrices(n)
		if err != nil {
			return err
		}
		p.price[i] = prices
	}
	return nil
}

// importPrices returns the hourly HKD/MWh price of an import node. The gas
// column is per m^3; the dataset already applied the price multiplier.
func (p *Problem) importPrices(n graph.IONode) ([]float64, error) {
	var src []float64
	scale := 1.0
	switch n.Carrier {
	case model.CarrierGas:
		src = p.data.Series(model.SeriesGasPrice)
		scale = p.cfg.Economic.GasPriceConversion
	case model.CarrierElec:
		src = p.data.Series(model.SeriesElecPrice)
	default:
		return nil, fmt.Errorf("input node %s: no price series for carrier %s", n.Name, n.Carrier)
	}
	out := make([]float64, len(src))
	for t, v := range src {
		out[t] = v * scale
	}
	return out, nil
}

func (p *Problem) steps() int {
	return p.data.Rows()
}

func (p *Problem) addVariables() error {
	m := p.Model
	inf := math.Inf(1)
	var err error

	p.convUnits = make([]milp.Var, len(p.converters))
	for i, c := range p.converters {
		if p.convUnits[i], err = m.AddVar("units_"+c.Name, milp.Integer, 0, inf); err != nil {
			return err
		}
	}
	p.storUnits = make([]milp.Var, len(p.storages))
	for i, s := range p.storages {
		if p.storUnits[i], err = m.AddVar("units_"+s.Name, milp.Integer, 0, inf); err != nil {
			return err
		}
	}

	T := p.steps()
	p.flow = make([][]milp.Var, p.hub.NumBranches())
	for b, br := range p.hub.Branches() {
		p.flow[b] = make([]milp.Var, T)
		for t := 0; t < T; t++ {
			if p.flow[b][t], err = m.AddVar(fmt.Sprintf("flow_%s_%d", br.Name, t), milp.Continuous, 0, inf); err != nil {
				return err
			}
		}
	}

	p.soc = make([][]milp.Var, len(p.storages))
	p.charge = make([][]milp.Var, len(p.storages))
	p.discharge = make([][]milp.Var, len(p.storages))
	for i, s := range p.storages {
		p.soc[i] = make([]milp.Var, T)
		p.charge[i] = make([]milp.Var, T)
		p.discharge[i] = make([]milp.Var, T)
		for t := 0; t < T; t++ {
			if p.soc[i][t], err = m.AddVar(fmt.Sprintf("soc_%s_%d", s.Name, t), milp.Continuous, 0, inf); err != nil {
				return err
			}
			if p.charge[i][t], err = m.AddVar(fmt.Sprintf("charging_%s_%d", s.Name, t), milp.Binary, 0, 1); err != nil {
				return err
			}
			if p.discharge[i][t], err = m.AddVar(fmt.Sprintf("discharging_%s_%d", s.Name, t), milp.Binary, 0, 1); err != nil {
				return err
			}
		}
	}

	for _, n := range p.demands {
		vars := make([]milp.Var, T)
		for t := range vars {
			if vars[t], err = m.AddVar(fmt.Sprintf("shed_%s_%d", n.Carrier, t), milp.Continuous, 0, inf); err != nil {
				return err
			}
		}
		p.shed[n.Carrier] = vars
	}
	return nil
}

// flowSum adds scale * Σ flow[b][t] over the given branches.
func (p *Problem) flowSum(e *milp.Expr, branches []int, t int, scale float64) {
	for _, b := range branches {
		e.Add(p.flow[b][t], scale)
	}
}

// producers are the output-side ports of a carrier; consumers are the
// input-side component ports (demand nodes excluded).
func (p *Problem) ports(c model.Carrier) (producers, consumers []graph.Endpoint) {
	for _, n := range p.hub.Inputs() {
		if n.Carrier == c {
			producers = append(producers, graph.Endpoint{Node: n.Name, Port: graph.PortOut})
		}
	}
	for _, comp := range p.hub.Components() {
		for _, port := range comp.Outputs {
			if port.Carrier == c {
				producers = append(producers, graph.Endpoint{Node: comp.Name, Port: port.Name})
			}
		}
		for _, port := range comp.Inputs {
			if port.Carrier == c {
				consumers = append(consumers, graph.Endpoint{Node: comp.Name, Port: port.Name})
			}
		}
	}
	return producers, consumers
}

// addBalance adds, per carrier and hour,
//
//	Σ producer outflow = Σ consumer inflow + demand - shed
//
// Carriers without a demand node balance supply against consumption only.
// A demand node without any supplier still gets shed = demand.
func (p *Problem) addBalance() error {
	demandOf := make(map[model.Carrier][]float64)
	for _, n := range p.demands {
		demandOf[n.Carrier] = p.data.Series(DemandSeries[n.Carrier])
	}

	for _, c := range model.Carriers {
		producers, consumers := p.ports(c)
		demand, hasDemand := demandOf[c]
		if !hasDemand && len(producers) == 0 && len(consumers) == 0 {
			continue
		}
		for t := 0; t < p.steps(); t++ {
			var e milp.Expr
			for _, ep := range producers {
				p.flowSum(&e, p.hub.Outbound(ep.Node, ep.Port), t, 1)
			}
			for _, ep := range consumers {
				p.flowSum(&e, p.hub.Inbound(ep.Node, ep.Port), t, -1)
			}
			rhs := 0.0
			if hasDemand {
				e.Add(p.shed[c][t], 1)
				rhs = demand[t]
			} else if len(e.Simplified().Terms) == 0 {
				// every branch runs straight from import to consumer
				continue
			}
			if err := p.Model.AddConstraint(fmt.Sprintf("balance_%s_%d", c, t), e, milp.EQ, rhs); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Problem) addConverters() error {
	for i, c := range p.converters {
		in := c.InputPort()
		inbound := p.hub.Inbound(c.Name, in.Name)
		for t := 0; t < p.steps(); t++ {
			var capacity milp.Expr
			p.flowSum(&capacity, inbound, t, 1)
			capacity.Add(p.convUnits[i], -c.Capacity.Base)
			if err := p.Model.AddConstraint(fmt.Sprintf("capacity_%s_%d", c.Name, t), capacity, milp.LE, 0); err != nil {
				return err
			}

			for _, out := range c.Outputs {
				eff, err := c.Efficiency(out.Name)
				if err != nil {
					return err
				}
				var conv milp.Expr
				p.flowSum(&conv, p.hub.Outbound(c.Name, out.Name), t, 1)
				p.flowSum(&conv, inbound, t, -eff)
				if err := p.Model.AddConstraint(fmt.Sprintf("conversion_%s_%s_%d", c.Name, out.Name, t), conv, milp.EQ, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Problem) addStorages() error {
	m := p.Model
	bigM := p.cfg.Solver.BigM
	H := p.data.HoursPerDay

	for i, s := range p.storages {
		in := p.hub.Inbound(s.Name, component.PortEnergyIn)
		out := p.hub.Outbound(s.Name, component.PortEnergyOut)
		etaC, etaD := s.ChargeEfficiency(), s.DischargeEfficiency()
		units := p.storUnits[i]

		for t := 0; t < p.steps(); t++ {
			var chargeCap, dischargeCap, energyCap, chargeGate, dischargeGate milp.Expr

			p.flowSum(&chargeCap, in, t, 1)
			chargeCap.Add(units, -s.Capacity.PowerBase)
			p.flowSum(&dischargeCap, out, t, 1)
			dischargeCap.Add(units, -s.Capacity.PowerBase)
			energyCap.Add(p.soc[i][t], 1).Add(units, -s.Capacity.CapBase)
			p.flowSum(&chargeGate, in, t, 1)
			chargeGate.Add(p.charge[i][t], -bigM)
			p.flowSum(&dischargeGate, out, t, 1)
			dischargeGate.Add(p.discharge[i][t], -bigM)
			exclusive := milp.Sum(p.charge[i][t], p.discharge[i][t])

			// soc[t] = soc[prev] + charge*eta_c - discharge/eta_d, prev wrapping within the day
			hour := t % H
			prev := t - 1
			if hour == 0 {
				prev = t + H - 1
			}
			var recursion milp.Expr
			recursion.Add(p.soc[i][t], 1).Add(p.soc[i][prev], -1)
			p.flowSum(&recursion, in, t, -etaC)
			p.flowSum(&recursion, out, t, 1/etaD)

			rows := []struct {
				name  string
				expr  milp.Expr
				sense milp.Sense
				rhs   float64
			}{
				{"charge_limit", chargeCap, milp.LE, 0},
				{"discharge_limit", dischargeCap, milp.LE, 0},
				{"energy_limit", energyCap, milp.LE, 0},
				{"charge_gate", chargeGate, milp.LE, 0},
				{"discharge_gate", dischargeGate, milp.LE, 0},
				{"exclusive", exclusive, milp.LE, 1},
				{"soc", recursion, milp.EQ, 0},
			}
			for _, r := range rows {
				if err := m.AddConstraint(fmt.Sprintf("%s_%s_%d", r.name, s.Name, t), r.expr, r.sense, r.rhs); err != nil {
					return err
				}
			}
		}

		for d := 0; d < p.data.NumDays(); d++ {
			first, last := d*H, (d+1)*H-1
			var closure milp.Expr
			closure.Add(p.soc[i][first], 1).Add(p.soc[i][last], -1)
			if err := m.AddConstraint(fmt.Sprintf("soc_cycle_%s_day%d", s.Name, d), closure, milp.EQ, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Problem) annuity(name string) float64 {
	return econ.AnnuityFactor(p.cfg.Economic.InterestRate, p.cfg.Lifetimes[name])
}

func (p *Problem) addObjective() error {
	var inv milp.Expr
	for i, c := range p.converters {
		inv.Add(p.convUnits[i], c.Capacity.Base*p.cfg.InvestmentCosts[c.Name]*p.annuity(c.Name))
	}
	for i, s := range p.storages {
		inv.Add(p.storUnits[i], s.Capacity.CapBase*p.cfg.InvestmentCosts[s.Name]*p.annuity(s.Name))
	}

	var op milp.Expr
	for t := 0; t < p.steps(); t++ {
		w := p.data.Weights[p.data.Day(t)]
		for i, n := range p.imports {
			p.flowSum(&op, p.hub.Outbound(n.Name, graph.PortOut), t, w*p.price[i][t])
		}
		for _, n := range p.demands {
			op.Add(p.shed[n.Carrier][t], w*p.cfg.Costs.ShedCostPerMWh[string(n.Carrier)])
		}
	}

	p.investment = inv
	p.operational = op
	var total milp.Expr
	total.AddExpr(inv, 1).AddExpr(op, 1)
	return p.Model.SetObjective(total)
}
