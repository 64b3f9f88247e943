package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/component"
	"mes_planner/internal/model"
)

func newComponent(t *testing.T, archetype, name string, params map[string]float64, opts ...component.Option) *component.Component {
	t.Helper()
	c, err := component.NewRegistry().Create(archetype, name, params, opts...)
	require.NoError(t, err)
	return c
}

// toyBuilder returns gas import feeding a boiler that serves a heat load
// with a heat storage in between.
func toyBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.AddIONode("Gas_Import", IOInput, model.CarrierGas))
	require.NoError(t, b.AddIONode("Heat_Load", IOOutput, model.CarrierHeat))
	require.NoError(t, b.AddComponent(newComponent(t, component.Boiler, "Boiler", map[string]float64{"eta": 0.9})))
	require.NoError(t, b.AddComponent(newComponent(t, component.Storage, "Heat_Storage",
		map[string]float64{"eta_c": 0.95, "eta_d": 0.95}, component.WithCarrier(model.CarrierHeat))))
	return b
}

func buildToy(t *testing.T) *Hub {
	t.Helper()
	b := toyBuilder(t)
	require.NoError(t, b.Connect("Gas_Import", "out", "Boiler", "fuel_in"))
	require.NoError(t, b.ConnectBus(Bus{
		Carrier:   model.CarrierHeat,
		Producers: []Endpoint{{"Boiler", "heat_out"}},
		Consumers: []Endpoint{{"Heat_Load", "in"}},
		Storage:   "Heat_Storage",
	}))
	h, err := b.Build()
	require.NoError(t, err)
	return h
}

func TestBuilder_BranchOrderAndNames(t *testing.T) {
	h := buildToy(t)

	assert.Equal(t, []string{
		"Gas_Import_out_to_Boiler_fuel_in",
		"Boiler_heat_out_to_Heat_Load_in",
		"Boiler_heat_out_to_Heat_Storage_energy_in",
		"Heat_Storage_energy_out_to_Heat_Load_in",
	}, h.BranchNames())

	assert.Equal(t, model.CarrierGas, h.Branch(0).Carrier)
	assert.Equal(t, model.CarrierHeat, h.Branch(3).Carrier)
}

func TestBuilder_Deterministic(t *testing.T) {
	a := buildToy(t)
	b := buildToy(t)
	assert.Equal(t, a.BranchNames(), b.BranchNames())
}

func TestBuilder_PortIndex(t *testing.T) {
	h := buildToy(t)

	assert.Equal(t, []int{0}, h.Inbound("Boiler", "fuel_in"))
	assert.Equal(t, []int{1, 2}, h.Outbound("Boiler", "heat_out"))
	assert.Equal(t, []int{1, 3}, h.Inbound("Heat_Load", "in"))
	assert.Equal(t, []int{3}, h.Outbound("Heat_Storage", "energy_out"))
	assert.Empty(t, h.Inbound("Boiler", "heat_out"))
}

func TestBuilder_UnknownPort(t *testing.T) {
	tests := []struct {
		name       string
		srcNode    string
		srcPort    string
		dstNode    string
		dstPort    string
		expectNode string
		expectPort string
	}{
		{"unknown source node", "Nope", "out", "Boiler", "fuel_in", "Nope", "out"},
		{"unknown source port", "Boiler", "cool_out", "Heat_Load", "in", "Boiler", "cool_out"},
		{"input used as source", "Boiler", "fuel_in", "Heat_Load", "in", "Boiler", "fuel_in"},
		{"output node as source", "Heat_Load", "in", "Boiler", "fuel_in", "Heat_Load", "in"},
		{"unknown destination port", "Gas_Import", "out", "Boiler", "gas_in", "Boiler", "gas_in"},
		{"output used as destination", "Gas_Import", "out", "Boiler", "heat_out", "Boiler", "heat_out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := toyBuilder(t)
			err := b.Connect(tt.srcNode, tt.srcPort, tt.dstNode, tt.dstPort)
			var portErr *UnknownPortError
			require.True(t, errors.As(err, &portErr), "got %v", err)
			assert.Equal(t, tt.expectNode, portErr.Node)
			assert.Equal(t, tt.expectPort, portErr.Port)
		})
	}
}

func TestBuilder_DuplicateBranch(t *testing.T) {
	b := toyBuilder(t)
	require.NoError(t, b.Connect("Gas_Import", "out", "Boiler", "fuel_in"))

	err := b.Connect("Gas_Import", "out", "Boiler", "fuel_in")
	var dupErr *DuplicateBranchError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "Gas_Import_out_to_Boiler_fuel_in", dupErr.Branch)
}

func TestBuilder_DuplicateNode(t *testing.T) {
	b := toyBuilder(t)

	err := b.AddIONode("Boiler", IOInput, model.CarrierElec)
	var dupErr *DuplicateNodeError
	require.True(t, errors.As(err, &dupErr))

	err = b.AddComponent(newComponent(t, component.Boiler, "Gas_Import", map[string]float64{"eta": 0.9}))
	assert.True(t, errors.As(err, &dupErr))
}

func TestBuilder_CarrierMismatch(t *testing.T) {
	b := toyBuilder(t)
	err := b.Connect("Gas_Import", "out", "Heat_Load", "in")

	var mismatch *CarrierMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, model.CarrierGas, mismatch.Src)
	assert.Equal(t, model.CarrierHeat, mismatch.Dst)
}

func TestBuilder_EmptyGraph(t *testing.T) {
	_, err := toyBuilder(t).Build()
	assert.ErrorIs(t, err, ErrEmptyGraph)

	_, err = NewBuilder().Build()
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestBuilder_ConnectBusWithoutStorage(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddIONode("Elec_Import", IOInput, model.CarrierElec))
	require.NoError(t, b.AddIONode("Elec_Load", IOOutput, model.CarrierElec))
	require.NoError(t, b.AddComponent(newComponent(t, component.HeatPump, "HP", map[string]float64{"cop": 3})))

	require.NoError(t, b.ConnectBus(Bus{
		Carrier:   model.CarrierElec,
		Producers: []Endpoint{{"Elec_Import", "out"}},
		Consumers: []Endpoint{{"HP", "elec_in"}, {"Elec_Load", "in"}},
	}))
	h, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Elec_Import_out_to_HP_elec_in",
		"Elec_Import_out_to_Elec_Load_in",
	}, h.BranchNames())
}

func TestBuilder_ConnectBusError(t *testing.T) {
	b := toyBuilder(t)
	err := b.ConnectBus(Bus{
		Carrier:   model.CarrierHeat,
		Producers: []Endpoint{{"Boiler", "heat_out"}},
		Consumers: []Endpoint{{"Heat_Load", "in"}},
		Storage:   "Missing_Storage",
	})
	var portErr *UnknownPortError
	require.True(t, errors.As(err, &portErr))
	assert.Equal(t, "Missing_Storage", portErr.Node)
	assert.Contains(t, err.Error(), "heat bus")
}
