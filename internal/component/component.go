// Package component defines the conversion and storage archetypes of the
// energy hub: their fixed ports and the linear relation between port flows.
package component

import (
	"errors"
	"fmt"

	"mes_planner/internal/model"
)

// Kind tags the two component variants.
type Kind int

const (
	KindConverter Kind = iota
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConverter:
		return "converter"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Side tells whether energy enters or leaves a component through a port.
type Side int

const (
	SideInput Side = iota
	SideOutput
)

func (s Side) String() string {
	if s == SideInput {
		return "input"
	}
	return "output"
}

// Port is a named connection point of a component.
type Port struct {
	Name    string
	Side    Side
	Carrier model.Carrier
	// Param is the parameter key holding this output port's efficiency.
	// Empty for input ports and storage ports.
	Param string
}

// Capacity holds the externally injected unit sizes. Converters use Base
// (MW per unit); storages use PowerBase (MW per unit) and CapBase (MWh per unit).
type Capacity struct {
	Base      float64
	PowerBase float64
	CapBase   float64
}

// Params are the numeric technical parameters of a component.
type Params map[string]float64

// Component is an instantiated archetype.
type Component struct {
	Name      string
	Archetype string
	Kind      Kind
	Inputs    []Port
	Outputs   []Port
	Params    Params
	Capacity  Capacity
}

// Clone returns a deep copy of c.
func (c *Component) Clone() *Component {
	cp := *c
	cp.Inputs = append([]Port(nil), c.Inputs...)
	cp.Outputs = append([]Port(nil), c.Outputs...)
	cp.Params = make(Params, len(c.Params))
	for k, v := range c.Params {
		cp.Params[k] = v
	}
	return &cp
}

// Port looks up a port by name on either side.
func (c *Component) Port(name string) (Port, bool) {
	for _, p := range c.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range c.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// InputPort returns the single input port of a converter.
func (c *Component) InputPort() Port {
	return c.Inputs[0]
}

// Efficiency returns the ratio output/input for a converter output port.
func (c *Component) Efficiency(outPort string) (float64, error) {
	if c.Kind != KindConverter {
		return 0, fmt.Errorf("component %s: efficiency is only defined for converters", c.Name)
	}
	for _, p := range c.Outputs {
		if p.Name == outPort {
			return c.Params[p.Param], nil
		}
	}
	return 0, fmt.Errorf("component %s: no output port %q", c.Name, outPort)
}

// Carrier returns the carrier a storage holds.
func (c *Component) Carrier() model.Carrier {
	if len(c.Inputs) == 0 {
		return ""
	}
	return c.Inputs[0].Carrier
}

// ChargeEfficiency and DischargeEfficiency return the storage round-trip parameters.
func (c *Component) ChargeEfficiency() float64    { return c.Params[ParamEtaCharge] }
func (c *Component) DischargeEfficiency() float64 { return c.Params[ParamEtaDischarge] }

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing or invalid component parameter.
type ConfigurationError struct {
	Component string
	Param     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("component %s: %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("component %s: parameter %s: %s", e.Component, e.Param, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
