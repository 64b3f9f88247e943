// Package planner wires configuration, data, hub, formulation, solver and
// report into scenario runs and sweeps.
package planner

import (
	"fmt"

	"mes_planner/internal/component"
	"mes_planner/internal/config"
	"mes_planner/internal/graph"
	"mes_planner/internal/model"
)

// NodeSpec declares an import or demand node.
type NodeSpec struct {
	Name    string
	Kind    graph.IOKind
	Carrier model.Carrier
}

// ComponentSpec declares a component; Carrier is set for storages only.
type ComponentSpec struct {
	Name      string
	Archetype string
	Carrier   model.Carrier
}

// Link is a single branch outside any bus.
type Link struct {
	Src, Dst graph.Endpoint
}

// Design is a hub layout. Parameters and capacities come from the
// configuration when it is built.
type Design struct {
	Nodes      []NodeSpec
	Components []ComponentSpec
	Links      []Link
	Buses      []graph.Bus
}

// GasComponents are the gas-fired converters of the default design.
var GasComponents = []string{"CHP_A", "CHP_B", "ICE", "Gas_Boiler"}

func ep(node, port string) graph.Endpoint {
	return graph.Endpoint{Node: node, Port: port}
}

// DefaultDesign returns the reference multi-energy hub.
func DefaultDesign() Design {
	d := Design{
		Nodes: []NodeSpec{
			{"Gas_Import", graph.IOInput, model.CarrierGas},
			{"Elec_Import", graph.IOInput, model.CarrierElec},
			{"Elec_Load", graph.IOOutput, model.CarrierElec},
			{"Heat_Load", graph.IOOutput, model.CarrierHeat},
			{"Cooling_Load", graph.IOOutput, model.CarrierCool},
		},
		Components: []ComponentSpec{
			{Name: "CHP_A", Archetype: component.CHPBackPressure},
			{Name: "CHP_B", Archetype: component.CHPBackPressure},
			{Name: "ICE", Archetype: component.CHPBackPressure},
			{Name: "Gas_Boiler", Archetype: component.Boiler},
			{Name: "Elec_Boiler", Archetype: component.ElectricBoiler},
			{Name: "Heat_Pump_A", Archetype: component.HeatPump},
			{Name: "Heat_Pump_B", Archetype: component.HeatPump},
			{Name: "CERG_A", Archetype: component.ElectricChiller},
			{Name: "CERG_B", Archetype: component.ElectricChiller},
			{Name: "WARP", Archetype: component.AbsorptionChiller},
			{Name: "Elec_Storage", Archetype: component.Storage, Carrier: model.CarrierElec},
			{Name: "Heat_Storage", Archetype: component.Storage, Carrier: model.CarrierHeat},
			{Name: "Cooling_Storage", Archetype: component.Storage, Carrier: model.CarrierCool},
		},
		Buses: []graph.Bus{
			{
				Carrier: model.CarrierElec,
				Producers: []graph.Endpoint{
					ep("Elec_Import", graph.PortOut), ep("CHP_A", "elec_out"), ep("CHP_B", "elec_out"), ep("ICE", "elec_out"),
				},
				Consumers: []graph.Endpoint{
					ep("Elec_Boiler", "elec_in"), ep("Heat_Pump_A", "elec_in"), ep("Heat_Pump_B", "elec_in"),
					ep("CERG_A", "elec_in"), ep("CERG_B", "elec_in"), ep("Elec_Load", graph.PortIn),
				},
				Storage: "Elec_Storage",
			},
			{
				Carrier: model.CarrierHeat,
				Producers: []graph.Endpoint{
					ep("Gas_Boiler", "heat_out"), ep("Elec_Boiler", "heat_out"),
					ep("CHP_A", "heat_out"), ep("CHP_B", "heat_out"), ep("ICE", "heat_out"),
					ep("Heat_Pump_A", "heat_out"), ep("Heat_Pump_B", "heat_out"),
				},
				Consumers: []graph.Endpoint{ep("WARP", "heat_in"), ep("Heat_Load", graph.PortIn)},
				Storage:   "Heat_Storage",
			},
			{
				Carrier:   model.CarrierCool,
				Producers: []graph.Endpoint{ep("WARP", "cool_out"), ep("CERG_A", "cool_out"), ep("CERG_B", "cool_out")},
				Consumers: []graph.Endpoint{ep("Cooling_Load", graph.PortIn)},
				Storage:   "Cooling_Storage",
			},
		},
	}
	// the gas bus has no storage
	for _, name := range GasComponents {
		d.Links = append(d.Links, Link{Src: ep("Gas_Import", graph.PortOut), Dst: ep(name, "fuel_in")})
	}
	return d
}

// Build instantiates the design with cfg's component parameters and base
// capacities.
func (d Design) Build(cfg *config.Config, reg *component.Registry) (*graph.Hub, error) {
	b := graph.NewBuilder()
	for _, n := range d.Nodes {
		if err := b.AddIONode(n.Name, n.Kind, n.Carrier); err != nil {
			return nil, err
		}
	}
	for _, spec := range d.Components {
		params, ok := cfg.ComponentParams[spec.Name]
		if !ok {
			return nil, &component.ConfigurationError{Component: spec.Name, Param: "component_params", Reason: "missing"}
		}
		var opts []component.Option
		if spec.Carrier != "" {
			opts = append(opts, component.WithCarrier(spec.Carrier))
		}
		c, err := reg.Create(spec.Archetype, spec.Name, params, opts...)
		if err != nil {
			return nil, err
		}
		if err := b.AddComponent(c); err != nil {
			return nil, err
		}
	}
	for _, l := range d.Links {
		if err := b.Connect(l.Src.Node, l.Src.Port, l.Dst.Node, l.Dst.Port); err != nil {
			return nil, err
		}
	}
	for _, bus := range d.Buses {
		if err := b.ConnectBus(bus); err != nil {
			return nil, err
		}
	}

	hub, err := b.Build()
	if err != nil {
		return nil, err
	}
	for _, c := range hub.Components() {
		capacity, err := capacityFor(c, cfg)
		if err != nil {
			return nil, err
		}
		if err := hub.SetCapacity(c.Name, capacity); err != nil {
			return nil, fmt.Errorf("setting capacity of %s: %w", c.Name, err)
		}
	}
	return hub, nil
}

func capacityFor(c *component.Component, cfg *config.Config) (component.Capacity, error) {
	bc, ok := cfg.BaseCapacities[c.Name]
	if !ok {
		return component.Capacity{}, &component.ConfigurationError{Component: c.Name, Param: "base_capacities", Reason: "missing"}
	}
	switch {
	case c.Kind == component.KindStorage && !bc.Storage:
		return component.Capacity{}, &component.ConfigurationError{
			Component: c.Name, Param: "base_capacities", Reason: "storage needs {power, capacity}",
		}
	case c.Kind == component.KindConverter && bc.Storage:
		return component.Capacity{}, &component.ConfigurationError{
			Component: c.Name, Param: "base_capacities", Reason: "converter needs a single number",
		}
	case c.Kind == component.KindStorage:
		return component.Capacity{PowerBase: bc.Power, CapBase: bc.Capacity}, nil
	default:
		return component.Capacity{Base: bc.Value}, nil
	}
}
