package solph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridsolph/gridsolph/pkg/types"
)

type testSystem struct {
	entities []types.Entity
	sim      types.Simulation
	gen      uint64
}

func (s *testSystem) Entities() []types.Entity     { return s.entities }
func (s *testSystem) Simulation() types.Simulation { return s.sim }
func (s *testSystem) Generation() uint64           { return s.gen }

func newTestSystem(t *testing.T, entities ...types.Entity) *testSystem {
	t.Helper()
	sim, err := types.NewSimulation(types.Simulation{Timesteps: []int{0, 1, 2}})
	require.NoError(t, err)
	return &testSystem{entities: entities, sim: sim}
}

func (s *testSystem) invest(kind types.Kind, on bool) *testSystem {
	s.sim = s.sim.WithFeature(kind, types.Features{Investment: on})
	return s
}

func bus(uid, commodity string) *types.Bus {
	return &types.Bus{Base: types.Base{ID: types.NewUID(uid)}, Type: commodity}
}

// gasPlant is a gas bus priced at 70 feeding a power plant with efficiency
// 0.58 into an electricity bus that may have excess.
func gasPlant(t *testing.T) *testSystem {
	bgas := bus("bgas", "gas")
	bgas.Price = 70
	bel := bus("bel", "el")
	bel.Excess = true
	pp := &types.Transformer{
		Base: types.Base{ID: types.NewUID("pp_gas")},
		Links: types.Links{
			Inputs:  types.UIDs(bgas),
			Outputs: types.UIDs(bel),
			OutMax:  types.Limits(10e10),
		},
		Costs: types.Costs{OpexVar: 50, Capex: 1000, CRF: 0.08},
		Eta:   []float64{0.58},
	}
	return newTestSystem(t, bgas, bel, pp)
}

// dispatch is a gas plant with efficiency 0.5 supplying a demand of 10, 20
// and 30 on a balanced electricity bus.
func dispatch(t *testing.T, outMax float64) *testSystem {
	bgas := bus("bgas", "gas")
	bgas.Price = 70
	bel := bus("bel", "el")
	pp := &types.Transformer{
		Base: types.Base{ID: types.NewUID("pp_gas")},
		Links: types.Links{
			Inputs:  types.UIDs(bgas),
			Outputs: types.UIDs(bel),
			OutMax:  types.Limits(outMax),
		},
		Costs: types.Costs{OpexVar: 50},
		Eta:   []float64{0.5},
	}
	demand := &types.Sink{
		Base:  types.Base{ID: types.NewUID("demand")},
		Links: types.Links{Inputs: types.UIDs(bel)},
		Val:   []float64{10, 20, 30},
	}
	return newTestSystem(t, bgas, bel, pp, demand)
}
