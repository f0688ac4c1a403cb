package main

import (
	"math"

	"github.com/gridsolph/gridsolph/pkg/energysystem"
	"github.com/gridsolph/gridsolph/pkg/types"
)

type example struct {
	name  string
	build func(solver string) (*energysystem.EnergySystem, error)
}

var examples = []example{
	{name: "dispatch", build: dispatchExample},
	{name: "pv_battery", build: pvBatteryExample},
	{name: "two_regions", build: twoRegionsExample},
}

func steps(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func bus(uid, commodity string) *types.Bus {
	return &types.Bus{Base: types.Base{ID: types.NewUID(uid)}, Type: commodity}
}

// dispatchExample is a single gas plant supplying a fixed demand.
func dispatchExample(solver string) (*energysystem.EnergySystem, error) {
	es, err := energysystem.New(energysystem.Config{Simulation: types.Simulation{Solver: solver, Timesteps: steps(3)}})
	if err != nil {
		return nil, err
	}
	b := es.Builder()
	bgas := bus("bgas", "gas")
	bgas.Price = 70
	b.Bus(bgas)
	bel := b.Bus(bus("bel", "el"))
	b.Transformer(&types.Transformer{
		Base:  types.Base{ID: types.NewUID("pp_gas")},
		Links: types.Links{Inputs: types.UIDs(bgas), Outputs: types.UIDs(bel), OutMax: types.Limits(100)},
		Costs: types.Costs{OpexVar: 50},
		Eta:   []float64{0.5},
	})
	b.Sink(&types.Sink{
		Base:  types.Base{ID: types.NewUID("demand")},
		Links: types.Links{Inputs: types.UIDs(bel)},
		Val:   []float64{10, 20, 30},
	})
	return es, b.Err()
}

// pvBatteryExample is a household day with a pv system, a battery and a grid
// connection.
func pvBatteryExample(solver string) (*energysystem.EnergySystem, error) {
	const hours = 24
	es, err := energysystem.New(energysystem.Config{Simulation: types.Simulation{Solver: solver, Timesteps: steps(hours)}})
	if err != nil {
		return nil, err
	}

	pv := make([]float64, hours)
	demand := make([]float64, hours)
	for h := range hours {
		if h > 6 && h < 19 {
			dist := math.Abs(float64(h) - 13)
			pv[h] = math.Exp(-(dist * dist) / 12)
		}
		demand[h] = 1.5
		switch {
		case h >= 7 && h < 9:
			demand[h] += 2
		case h >= 18 && h < 22:
			demand[h] += 4
		}
	}

	b := es.Builder()
	bel := bus("bel", "el")
	bel.Excess = true
	b.Bus(bel)
	b.Source(&types.Source{
		Base:  types.Base{ID: types.NewUID("pv")},
		Links: types.Links{Outputs: types.UIDs(bel), OutMax: types.Limits(8)},
		Val:   pv,
		Fixed: true,
	})
	b.Source(&types.Source{
		Base:  types.Base{ID: types.NewUID("grid")},
		Links: types.Links{Outputs: types.UIDs(bel), OutMax: types.Limits(20)},
		Costs: types.Costs{OpexVar: 0.3},
	})
	b.Storage(&types.Storage{
		Base:       types.Base{ID: types.NewUID("battery")},
		Links:      types.Links{Inputs: types.UIDs(bel), Outputs: types.UIDs(bel), InMax: types.Limits(5), OutMax: types.Limits(5)},
		CapMax:     13.5,
		CapInitial: 0.5,
		EtaIn:      0.95,
		EtaOut:     0.95,
	})
	b.Sink(&types.Sink{
		Base:  types.Base{ID: types.NewUID("house")},
		Links: types.Links{Inputs: types.UIDs(bel)},
		Val:   demand,
	})
	return es, b.Err()
}

// twoRegionsExample connects a windy region to a region with the demand.
func twoRegionsExample(solver string) (*energysystem.EnergySystem, error) {
	es, err := energysystem.New(energysystem.Config{Simulation: types.Simulation{Solver: solver, Timesteps: steps(4)}})
	if err != nil {
		return nil, err
	}
	b := es.Builder()
	north := bus("bel_north", "el")
	north.Excess = true
	b.Bus(north)
	south := b.Bus(bus("bel_south", "el"))
	wind := b.Source(&types.Source{
		Base:  types.Base{ID: types.NewUID("wind")},
		Links: types.Links{Outputs: types.UIDs(north), OutMax: types.Limits(50)},
		Val:   []float64{0.9, 0.6, 0.2, 0.8},
	})
	gas := b.Source(&types.Source{
		Base:  types.Base{ID: types.NewUID("pp_south")},
		Links: types.Links{Outputs: types.UIDs(south), OutMax: types.Limits(40)},
		Costs: types.Costs{OpexVar: 60},
	})
	demand := b.Sink(&types.Sink{
		Base:  types.Base{ID: types.NewUID("demand_south")},
		Links: types.Links{Inputs: types.UIDs(south)},
		Val:   []float64{30, 35, 25, 30},
	})
	b.Connect(north, south, 30, 30, 0.97, energysystem.TransportSimple)
	if err := b.Err(); err != nil {
		return nil, err
	}

	rNorth := types.NewRegion("Landkreis Rostock", "", nil)
	rNorth.AddEntities(north, wind)
	rSouth := types.NewRegion("stadt_berlin", "", nil)
	rSouth.AddEntities(south, gas, demand)
	es.AddRegion(rNorth)
	es.AddRegion(rSouth)
	return es, nil
}
