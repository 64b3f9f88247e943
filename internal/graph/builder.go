// Package graph assembles components and boundary nodes into an energy hub
// connected by named, directed branches.
package graph

import (
	"fmt"

	"mes_planner/internal/component"
	"mes_planner/internal/model"
)

// IOKind tags a boundary node as a supply (input) or a demand (output).
type IOKind string

const (
	IOInput  IOKind = "input"
	IOOutput IOKind = "output"
)

// Port names exposed by boundary nodes.
const (
	PortOut = "out"
	PortIn  = "in"
)

// IONode is a boundary node: unmetered import or exogenous demand.
type IONode struct {
	Name    string
	Kind    IOKind
	Carrier model.Carrier
}

// Endpoint addresses one port of one node.
type Endpoint struct {
	Node string
	Port string
}

func (e Endpoint) String() string {
	return e.Node + "." + e.Port
}

// Branch is a directed flow link between an output-side port and an
// input-side port.
type Branch struct {
	Name    string
	Src     Endpoint
	Dst     Endpoint
	Carrier model.Carrier
}

// BranchName returns the canonical branch name for a connection.
func BranchName(src, dst Endpoint) string {
	return fmt.Sprintf("%s_%s_to_%s_%s", src.Node, src.Port, dst.Node, dst.Port)
}

// Bus is one carrier's topology: every producer feeds every consumer, and an
// optional storage charges from every producer and discharges to every consumer.
type Bus struct {
	Carrier   model.Carrier
	Producers []Endpoint
	Consumers []Endpoint
	Storage   string
}

type node struct {
	io   *IONode
	comp *component.Component
}

// Builder collects nodes and branches. It is not safe for concurrent use.
type Builder struct {
	nodes      map[string]node
	ioNodes    []IONode
	components []*component.Component
	branches   []Branch
	seen       map[string]bool
	pairs      map[[2]Endpoint]bool
}

func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]node),
		seen:  make(map[string]bool),
		pairs: make(map[[2]Endpoint]bool),
	}
}

// AddIONode adds a boundary node.
func (b *Builder) AddIONode(name string, kind IOKind, carrier model.Carrier) error {
	if kind != IOInput && kind != IOOutput {
		return fmt.Errorf("io node %s: invalid kind %q", name, kind)
	}
	if !carrier.Valid() {
		return fmt.Errorf("io node %s: unknown carrier %q", name, carrier)
	}
	if _, ok := b.nodes[name]; ok {
		return &DuplicateNodeError{Name: name}
	}
	b.ioNodes = append(b.ioNodes, IONode{Name: name, Kind: kind, Carrier: carrier})
	n := b.ioNodes[len(b.ioNodes)-1]
	b.nodes[name] = node{io: &n}
	return nil
}

// AddComponent adds a component node.
func (b *Builder) AddComponent(c *component.Component) error {
	if c == nil {
		return fmt.Errorf("nil component")
	}
	if _, ok := b.nodes[c.Name]; ok {
		return &DuplicateNodeError{Name: c.Name}
	}
	b.components = append(b.components, c)
	b.nodes[c.Name] = node{comp: c}
	return nil
}

// lookup resolves a port on the requested side and returns its carrier.
func (b *Builder) lookup(e Endpoint, side component.Side) (model.Carrier, bool) {
	n, ok := b.nodes[e.Node]
	if !ok {
		return "", false
	}
	if n.io != nil {
		switch {
		case side == component.SideOutput && n.io.Kind == IOInput && e.Port == PortOut:
			return n.io.Carrier, true
		case side == component.SideInput && n.io.Kind == IOOutput && e.Port == PortIn:
			return n.io.Carrier, true
		}
		return "", false
	}
	p, ok := n.comp.Port(e.Port)
	if !ok || p.Side != side {
		return "", false
	}
	return p.Carrier, true
}

// Connect creates one branch from an output-side port to an input-side port.
func (b *Builder) Connect(srcNode, srcPort, dstNode, dstPort string) error {
	src := Endpoint{Node: srcNode, Port: srcPort}
	dst := Endpoint{Node: dstNode, Port: dstPort}

	srcCarrier, ok := b.lookup(src, component.SideOutput)
	if !ok {
		return &UnknownPortError{Node: srcNode, Port: srcPort, Side: "source"}
	}
	dstCarrier, ok := b.lookup(dst, component.SideInput)
	if !ok {
		return &UnknownPortError{Node: dstNode, Port: dstPort, Side: "destination"}
	}

	name := BranchName(src, dst)
	key := [2]Endpoint{src, dst}
	if b.pairs[key] || b.seen[name] {
		return &DuplicateBranchError{Branch: name}
	}
	if srcCarrier != dstCarrier {
		return &CarrierMismatchError{Branch: name, Src: srcCarrier, Dst: dstCarrier}
	}

	b.pairs[key] = true
	b.seen[name] = true
	b.branches = append(b.branches, Branch{Name: name, Src: src, Dst: dst, Carrier: srcCarrier})
	return nil
}

// ConnectBus wires a bus: producers to consumers, then producers to the
// storage input, then the storage output to consumers.
func (b *Builder) ConnectBus(bus Bus) error {
	for _, p := range bus.Producers {
		for _, c := range bus.Consumers {
			if err := b.Connect(p.Node, p.Port, c.Node, c.Port); err != nil {
				return fmt.Errorf("%s bus: %w", bus.Carrier, err)
			}
		}
	}
	if bus.Storage == "" {
		return nil
	}
	for _, p := range bus.Producers {
		if err := b.Connect(p.Node, p.Port, bus.Storage, component.PortEnergyIn); err != nil {
			return fmt.Errorf("%s bus: %w", bus.Carrier, err)
		}
	}
	for _, c := range bus.Consumers {
		if err := b.Connect(bus.Storage, component.PortEnergyOut, c.Node, c.Port); err != nil {
			return fmt.Errorf("%s bus: %w", bus.Carrier, err)
		}
	}
	return nil
}

// Build freezes the insertion order as the global branch order.
func (b *Builder) Build() (*Hub, error) {
	if len(b.branches) == 0 {
		return nil, ErrEmptyGraph
	}

	h := &Hub{
		ioNodes:    append([]IONode(nil), b.ioNodes...),
		components: make([]*component.Component, len(b.components)),
		branches:   append([]Branch(nil), b.branches...),
		byName:     make(map[string]int, len(b.components)),
		ioByName:   make(map[string]int, len(b.ioNodes)),
		inbound:    make(map[Endpoint][]int),
		outbound:   make(map[Endpoint][]int),
	}
	for i, c := range b.components {
		h.components[i] = c.Clone()
		h.byName[c.Name] = i
	}
	for i, n := range h.ioNodes {
		h.ioByName[n.Name] = i
	}
	for i, br := range h.branches {
		h.outbound[br.Src] = append(h.outbound[br.Src], i)
		h.inbound[br.Dst] = append(h.inbound[br.Dst], i)
	}
	return h, nil
}
