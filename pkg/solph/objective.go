package solph

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/gridsolph/gridsolph/pkg/types"
)

// ErrUnknownObjective is returned for an objective function that is not
// registered.
var ErrUnknownObjective = errors.New("unknown objective function")

// strategy assembles the objective terms and constant from the blocks.
type strategy func(b *builder) ([]Term, float64)

var strategies = map[string]strategy{
	"minimize_cost":   minimizeCost,
	"maximize_profit": maximizeProfit,
}

// Objectives returns the names of the available objective functions.
func Objectives() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// selects reports whether kind is in kinds. An empty selection selects every
// kind.
func selects(kinds []types.Kind, kind types.Kind) bool {
	return len(kinds) == 0 || slices.Contains(kinds, kind)
}

func collectCosts(b *builder) ([]Term, float64) {
	var terms []Term
	constant := 0.0
	for _, blk := range b.blocks {
		if !selects(b.sim.Objective.CostObjects, blk.entity().Kind()) {
			continue
		}
		t, c := blk.costs(b)
		terms = append(terms, t...)
		constant += c
	}
	return terms, constant
}

func minimizeCost(b *builder) ([]Term, float64) {
	return collectCosts(b)
}

// maximizeProfit minimizes cost minus revenue.
func maximizeProfit(b *builder) ([]Term, float64) {
	terms, constant := collectCosts(b)
	for _, blk := range b.blocks {
		if !selects(b.sim.Objective.RevenueObjects, blk.entity().Kind()) {
			continue
		}
		for _, t := range blk.revenues(b) {
			terms = append(terms, Term{-t.Coef, t.Var})
		}
	}
	return terms, constant
}

func (b *builder) objective() error {
	function := b.sim.Objective.Function
	if function == "" {
		function = types.DefaultObjective
	}
	fn, ok := strategies[function]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObjective, function)
	}
	terms, constant := fn(b)
	b.p.Objective = mergeTerms(terms)
	b.p.Constant = constant
	return nil
}
