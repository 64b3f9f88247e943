package component

import (
	"fmt"
	"math"
	"sort"

	"mes_planner/internal/model"
)

// Archetype names.
const (
	CHPBackPressure   = "CHPBackPressure"
	Boiler            = "Boiler"
	ElectricBoiler    = "ElectricBoiler"
	HeatPump          = "HeatPump"
	ElectricChiller   = "ElectricChiller"
	AbsorptionChiller = "AbsorptionChiller"
	Storage           = "Storage"
)

// Parameter keys.
const (
	ParamEtaElec      = "eta_w"
	ParamEtaHeat      = "eta_q"
	ParamEta          = "eta"
	ParamCOP          = "cop"
	ParamEtaCharge    = "eta_c"
	ParamEtaDischarge = "eta_d"
)

// Storage port names.
const (
	PortEnergyIn  = "energy_in"
	PortEnergyOut = "energy_out"
)

// Archetype declares the fixed port layout of a component kind. For
// converters every output port names the parameter holding its efficiency.
type Archetype struct {
	Name    string
	Kind    Kind
	Inputs  []Port
	Outputs []Port
	// Params lists the parameters that must be supplied.
	Params []string
}

func converter(name string, in Port, outs ...Port) Archetype {
	in.Side = SideInput
	a := Archetype{Name: name, Kind: KindConverter, Inputs: []Port{in}}
	for _, p := range outs {
		p.Side = SideOutput
		a.Outputs = append(a.Outputs, p)
		a.Params = append(a.Params, p.Param)
	}
	return a
}

// Builtin returns the standard archetypes.
func Builtin() []Archetype {
	return []Archetype{
		converter(CHPBackPressure,
			Port{Name: "fuel_in", Carrier: model.CarrierGas},
			Port{Name: "elec_out", Carrier: model.CarrierElec, Param: ParamEtaElec},
			Port{Name: "heat_out", Carrier: model.CarrierHeat, Param: ParamEtaHeat},
		),
		converter(Boiler,
			Port{Name: "fuel_in", Carrier: model.CarrierGas},
			Port{Name: "heat_out", Carrier: model.CarrierHeat, Param: ParamEta},
		),
		converter(ElectricBoiler,
			Port{Name: "elec_in", Carrier: model.CarrierElec},
			Port{Name: "heat_out", Carrier: model.CarrierHeat, Param: ParamEta},
		),
		converter(HeatPump,
			Port{Name: "elec_in", Carrier: model.CarrierElec},
			Port{Name: "heat_out", Carrier: model.CarrierHeat, Param: ParamCOP},
		),
		converter(ElectricChiller,
			Port{Name: "elec_in", Carrier: model.CarrierElec},
			Port{Name: "cool_out", Carrier: model.CarrierCool, Param: ParamCOP},
		),
		converter(AbsorptionChiller,
			Port{Name: "heat_in", Carrier: model.CarrierHeat},
			Port{Name: "cool_out", Carrier: model.CarrierCool, Param: ParamCOP},
		),
		{
			Name:    Storage,
			Kind:    KindStorage,
			Inputs:  []Port{{Name: PortEnergyIn, Side: SideInput}},
			Outputs: []Port{{Name: PortEnergyOut, Side: SideOutput}},
			Params:  []string{ParamEtaCharge, ParamEtaDischarge},
		},
	}
}

// Registry holds the archetypes components can be created from.
type Registry struct {
	archetypes map[string]Archetype
}

// NewRegistry returns a registry preloaded with the builtin archetypes.
func NewRegistry() *Registry {
	r := &Registry{archetypes: make(map[string]Archetype)}
	for _, a := range Builtin() {
		r.archetypes[a.Name] = a
	}
	return r
}

// Register adds or replaces an archetype.
func (r *Registry) Register(a Archetype) error {
	if a.Name == "" {
		return fmt.Errorf("archetype has no name")
	}
	switch a.Kind {
	case KindConverter:
		if len(a.Inputs) != 1 || len(a.Outputs) == 0 {
			return fmt.Errorf("archetype %s: a converter needs one input and at least one output", a.Name)
		}
		for _, p := range a.Outputs {
			if p.Param == "" {
				return fmt.Errorf("archetype %s: output port %s has no efficiency parameter", a.Name, p.Name)
			}
		}
	case KindStorage:
		if len(a.Inputs) != 1 || len(a.Outputs) != 1 {
			return fmt.Errorf("archetype %s: a storage needs exactly one input and one output", a.Name)
		}
	default:
		return fmt.Errorf("archetype %s: unknown kind %d", a.Name, a.Kind)
	}
	seen := make(map[string]bool, len(a.Inputs)+len(a.Outputs))
	for _, p := range append(append([]Port(nil), a.Inputs...), a.Outputs...) {
		if p.Name == "" {
			return fmt.Errorf("archetype %s: port with no name", a.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("archetype %s: duplicate port %s", a.Name, p.Name)
		}
		seen[p.Name] = true
	}
	r.archetypes[a.Name] = a
	return nil
}

// Archetypes returns the registered archetype names in sorted order.
func (r *Registry) Archetypes() []string {
	names := make([]string, 0, len(r.archetypes))
	for name := range r.archetypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option customizes component creation.
type Option func(*createOptions)

type createOptions struct {
	carrier model.Carrier
}

// WithCarrier sets the carrier held by a storage.
func WithCarrier(c model.Carrier) Option {
	return func(o *createOptions) { o.carrier = c }
}

// Create instantiates an archetype. Parameters not declared by the
// archetype are kept but never read.
func (r *Registry) Create(archetype, name string, params map[string]float64, opts ...Option) (*Component, error) {
	if name == "" {
		return nil, &ConfigurationError{Component: "<unnamed>", Reason: "empty component name"}
	}
	a, ok := r.archetypes[archetype]
	if !ok {
		return nil, &ConfigurationError{Component: name, Reason: fmt.Sprintf("unknown archetype %q", archetype)}
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	for _, key := range a.Params {
		v, ok := params[key]
		if !ok {
			return nil, &ConfigurationError{Component: name, Param: key, Reason: "missing"}
		}
		if err := checkParam(a.Kind, key, v); err != nil {
			return nil, &ConfigurationError{Component: name, Param: key, Reason: err.Error()}
		}
	}

	c := &Component{
		Name:      name,
		Archetype: a.Name,
		Kind:      a.Kind,
		Inputs:    append([]Port(nil), a.Inputs...),
		Outputs:   append([]Port(nil), a.Outputs...),
		Params:    make(Params, len(params)),
	}
	for k, v := range params {
		c.Params[k] = v
	}

	if a.Kind == KindStorage {
		if o.carrier == "" {
			return nil, &ConfigurationError{Component: name, Reason: "storage carrier not set"}
		}
		if !o.carrier.Valid() {
			return nil, &ConfigurationError{Component: name, Reason: fmt.Sprintf("unknown carrier %q", o.carrier)}
		}
		for i := range c.Inputs {
			c.Inputs[i].Carrier = o.carrier
		}
		for i := range c.Outputs {
			c.Outputs[i].Carrier = o.carrier
		}
	}

	return c, nil
}

func checkParam(kind Kind, key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("value %v is not finite", v)
	}
	if kind == KindStorage {
		if v <= 0 || v > 1 {
			return fmt.Errorf("value %v outside (0, 1]", v)
		}
		return nil
	}
	if v <= 0 {
		return fmt.Errorf("value %v must be positive", v)
	}
	return nil
}
