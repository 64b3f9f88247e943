package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/component"
	"mes_planner/internal/config"
)

func baseline(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("../../configs/baseline.yaml")
	require.NoError(t, err)
	return cfg
}

func TestDefaultDesign_Build(t *testing.T) {
	hub, err := DefaultDesign().Build(baseline(t), component.NewRegistry())
	require.NoError(t, err)

	assert.Len(t, hub.Components(), 13)
	assert.Len(t, hub.Converters(), 10)
	assert.Len(t, hub.Storages(), 3)
	assert.Len(t, hub.Inputs(), 2)
	assert.Len(t, hub.Outputs(), 3)
	// gas 4, elec 4*6+4+6, heat 7*2+7+2, cool 3*1+3+1
	assert.Equal(t, 68, hub.NumBranches())
	assert.Equal(t, "Gas_Import_out_to_CHP_A_fuel_in", hub.Branch(0).Name)

	chp, ok := hub.Component("CHP_B")
	require.True(t, ok)
	assert.Equal(t, component.Capacity{Base: 10}, chp.Capacity)
	eta, err := chp.Efficiency("heat_out")
	require.NoError(t, err)
	assert.Equal(t, 0.42, eta)

	st, ok := hub.Component("Elec_Storage")
	require.True(t, ok)
	assert.Equal(t, component.Capacity{PowerBase: 1, CapBase: 4}, st.Capacity)
}

func TestDefaultDesign_Deterministic(t *testing.T) {
	a, err := DefaultDesign().Build(baseline(t), component.NewRegistry())
	require.NoError(t, err)
	b, err := DefaultDesign().Build(baseline(t), component.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, a.BranchNames(), b.BranchNames())
}

func TestDesign_BuildConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing params", func(c *config.Config) { delete(c.ComponentParams, "WARP") }},
		{"missing capacity", func(c *config.Config) { delete(c.BaseCapacities, "ICE") }},
		{"scalar storage capacity", func(c *config.Config) {
			c.BaseCapacities["Heat_Storage"] = config.BaseCapacity{Value: 10}
		}},
		{"mapping converter capacity", func(c *config.Config) {
			c.BaseCapacities["Gas_Boiler"] = config.BaseCapacity{Power: 1, Capacity: 2, Storage: true}
		}},
		{"bad storage efficiency", func(c *config.Config) {
			c.ComponentParams["Elec_Storage"]["eta_c"] = 1.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseline(t)
			tt.mutate(cfg)
			_, err := DefaultDesign().Build(cfg, component.NewRegistry())
			require.Error(t, err)
			assert.True(t, errors.Is(err, component.ErrConfiguration), err.Error())
		})
	}
}
