package solph

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

// extract maps a solution back onto the entities of the problem. Flows are
// attached to the component they belong to. Duals and reduced costs are only
// included when the solution carries them.
func extract(p *Problem, sol *Solution, solver string) *types.Results {
	res := &types.Results{
		Solver:    solver,
		Status:    sol.Status,
		Objective: sol.Objective,
		Entities:  make(map[string]*types.EntityResult, len(p.owners)),
	}
	for _, uid := range p.owners {
		res.Entities[uid.Key()] = &types.EntityResult{UID: uid}
	}
	set := func(t tag, quantity string, v float64) {
		er := res.Entities[t.Owner]
		if er == nil {
			return
		}
		if t.Step < 0 {
			if er.Scalars == nil {
				er.Scalars = make(map[string]float64)
			}
			er.Scalars[quantity] = v
			return
		}
		if er.Series == nil {
			er.Series = make(map[string][]float64)
		}
		s, ok := er.Series[quantity]
		if !ok {
			s = make([]float64, p.steps)
			er.Series[quantity] = s
		}
		s[t.Step] = v
	}
	for _, v := range p.Variables {
		set(v.tag, v.tag.Quantity, sol.Primal[v.Index])
		if sol.ReducedCosts != nil {
			set(v.tag, types.QuantityReducedCostPref+v.tag.Quantity, sol.ReducedCosts[v.Index])
		}
	}
	if sol.RowDuals != nil {
		for _, c := range p.Constraints {
			set(c.tag, types.QuantityDualPrefix+c.tag.Quantity, sol.RowDuals[c.Index])
		}
	}
	return res
}
