package graph

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"mes_planner/internal/component"
)

// Hub is the compiled topology. Apart from capacity injection before Seal,
// it is immutable.
type Hub struct {
	mu     sync.RWMutex
	sealed bool

	ioNodes    []IONode
	components []*component.Component
	branches   []Branch

	byName   map[string]int
	ioByName map[string]int
	inbound  map[Endpoint][]int
	outbound map[Endpoint][]int
}

// Branches returns the branches in global order.
func (h *Hub) Branches() []Branch {
	return append([]Branch(nil), h.branches...)
}

// BranchNames returns the branch names in global order.
func (h *Hub) BranchNames() []string {
	names := make([]string, len(h.branches))
	for i, br := range h.branches {
		names[i] = br.Name
	}
	return names
}

// Branch returns the branch at global index i.
func (h *Hub) Branch(i int) Branch {
	return h.branches[i]
}

// NumBranches returns the number of branches.
func (h *Hub) NumBranches() int {
	return len(h.branches)
}

// Inbound returns the indices of branches ending at (node, port).
func (h *Hub) Inbound(node, port string) []int {
	return h.inbound[Endpoint{Node: node, Port: port}]
}

// Outbound returns the indices of branches starting at (node, port).
func (h *Hub) Outbound(node, port string) []int {
	return h.outbound[Endpoint{Node: node, Port: port}]
}

// Components returns copies of all components in insertion order. Capacity
// changes go through SetCapacity.
func (h *Hub) Components() []*component.Component {
	return h.clones(func(*component.Component) bool { return true })
}

// Component looks up a copy of a component by name.
func (h *Hub) Component(name string) (*component.Component, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	i, ok := h.byName[name]
	if !ok {
		return nil, false
	}
	return h.components[i].Clone(), true
}

// Converters returns copies of the converter components in insertion order.
func (h *Hub) Converters() []*component.Component {
	return h.clones(func(c *component.Component) bool { return c.Kind == component.KindConverter })
}

// Storages returns copies of the storage components in insertion order.
func (h *Hub) Storages() []*component.Component {
	return h.clones(func(c *component.Component) bool { return c.Kind == component.KindStorage })
}

func (h *Hub) clones(keep func(*component.Component) bool) []*component.Component {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*component.Component
	for _, c := range h.components {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// IONodes returns all boundary nodes in insertion order.
func (h *Hub) IONodes() []IONode {
	return append([]IONode(nil), h.ioNodes...)
}

// IONode looks up a boundary node by name.
func (h *Hub) IONode(name string) (IONode, bool) {
	i, ok := h.ioByName[name]
	if !ok {
		return IONode{}, false
	}
	return h.ioNodes[i], true
}

// Inputs returns the import nodes.
func (h *Hub) Inputs() []IONode {
	return h.ioOfKind(IOInput)
}

// Outputs returns the demand nodes.
func (h *Hub) Outputs() []IONode {
	return h.ioOfKind(IOOutput)
}

func (h *Hub) ioOfKind(k IOKind) []IONode {
	var out []IONode
	for _, n := range h.ioNodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// SetCapacity injects the unit sizes of a component.
func (h *Hub) SetCapacity(name string, c component.Capacity) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sealed {
		return ErrHubSealed
	}
	i, ok := h.byName[name]
	if !ok {
		return fmt.Errorf("set capacity: unknown component %s", name)
	}
	h.components[i].Capacity = c
	return nil
}

// Seal closes the capacity injection window.
func (h *Hub) Seal() {
	h.mu.Lock()
	h.sealed = true
	h.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (h *Hub) Sealed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sealed
}

// Matrices holds the hub's structural matrices and their row/column labels.
//
// X is input ports × branches (1 where a branch ends at the port), Y is
// output ports × branches (1 where a branch starts at the port) and Z is
// converter output ports × converter input ports holding the efficiency.
// Z is nil when the hub has no converter.
type Matrices struct {
	X *mat.Dense
	Y *mat.Dense
	Z *mat.Dense

	InputPorts    []Endpoint
	OutputPorts   []Endpoint
	ConverterIns  []Endpoint
	ConverterOuts []Endpoint
}

// IncidenceMatrices derives X, Y and Z from the branch list.
func (h *Hub) IncidenceMatrices() (*Matrices, error) {
	m := &Matrices{}
	for _, n := range h.ioNodes {
		if n.Kind == IOInput {
			m.OutputPorts = append(m.OutputPorts, Endpoint{Node: n.Name, Port: PortOut})
		} else {
			m.InputPorts = append(m.InputPorts, Endpoint{Node: n.Name, Port: PortIn})
		}
	}
	for _, c := range h.components {
		for _, p := range c.Inputs {
			e := Endpoint{Node: c.Name, Port: p.Name}
			m.InputPorts = append(m.InputPorts, e)
			if c.Kind == component.KindConverter {
				m.ConverterIns = append(m.ConverterIns, e)
			}
		}
		for _, p := range c.Outputs {
			e := Endpoint{Node: c.Name, Port: p.Name}
			m.OutputPorts = append(m.OutputPorts, e)
			if c.Kind == component.KindConverter {
				m.ConverterOuts = append(m.ConverterOuts, e)
			}
		}
	}

	nb := len(h.branches)
	if nb == 0 || len(m.InputPorts) == 0 || len(m.OutputPorts) == 0 {
		return nil, ErrEmptyGraph
	}

	m.X = mat.NewDense(len(m.InputPorts), nb, nil)
	for row, e := range m.InputPorts {
		for _, b := range h.inbound[e] {
			m.X.Set(row, b, 1)
		}
	}
	m.Y = mat.NewDense(len(m.OutputPorts), nb, nil)
	for row, e := range m.OutputPorts {
		for _, b := range h.outbound[e] {
			m.Y.Set(row, b, 1)
		}
	}

	if len(m.ConverterOuts) == 0 {
		return m, nil
	}
	inRow := make(map[string]int, len(m.ConverterIns))
	for i, e := range m.ConverterIns {
		inRow[e.Node] = i
	}
	m.Z = mat.NewDense(len(m.ConverterOuts), len(m.ConverterIns), nil)
	for row, e := range m.ConverterOuts {
		c := h.components[h.byName[e.Node]]
		eff, err := c.Efficiency(e.Port)
		if err != nil {
			return nil, err
		}
		m.Z.Set(row, inRow[e.Node], eff)
	}
	return m, nil
}

// Unconnected lists the ports no branch touches: input ports first, then
// output ports, in matrix row order.
func (m *Matrices) Unconnected() []Endpoint {
	var out []Endpoint
	out = append(out, emptyRows(m.X, m.InputPorts)...)
	return append(out, emptyRows(m.Y, m.OutputPorts)...)
}

func emptyRows(d *mat.Dense, labels []Endpoint) []Endpoint {
	var out []Endpoint
	_, cols := d.Dims()
	row := make([]float64, cols)
	for i, e := range labels {
		mat.Row(row, i, d)
		if floats.Sum(row) == 0 {
			out = append(out, e)
		}
	}
	return out
}
