package solph

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

// busBlock collects the flows connected to a bus and its slack variables.
type busBlock struct {
	bus *types.Bus
	// inflows are the component outputs feeding the bus, outflows the
	// component inputs drawing from it, both in registration order.
	inflows  []*link
	outflows []*link
	excess   []*Variable
	shortage []*Variable
}

func (bb *busBlock) entity() types.Entity { return bb.bus }

func (bb *busBlock) key() string { return bb.bus.ID.String() }

func (bb *busBlock) owner() string { return bb.bus.ID.Key() }

func (bb *busBlock) variables(b *builder) error {
	add := func(family, quantity string) ([]*Variable, error) {
		vars := make([]*Variable, len(b.steps))
		for i, s := range b.steps {
			v, err := b.p.addVariable(name(family, bb.key(), s), 0, inf, tag{Owner: bb.owner(), Quantity: quantity, Step: i})
			if err != nil {
				return nil, err
			}
			vars[i] = v
		}
		return vars, nil
	}
	var err error
	if bb.bus.Excess {
		if bb.excess, err = add("excess", types.QuantityExcess); err != nil {
			return err
		}
	}
	if bb.bus.Shortage {
		if bb.shortage, err = add("shortage", types.QuantityShortage); err != nil {
			return err
		}
	}
	return nil
}

// constraints emits inflow + shortage - outflow - excess = 0 per timestep.
// Priced and unbalanced buses are not balanced.
func (bb *busBlock) constraints(b *builder) error {
	if !bb.bus.Balanced() {
		return nil
	}
	for i, s := range b.steps {
		var terms []Term
		for _, l := range bb.inflows {
			terms = append(terms, Term{1, l.flows[i]})
		}
		if bb.shortage != nil {
			terms = append(terms, Term{1, bb.shortage[i]})
		}
		for _, l := range bb.outflows {
			terms = append(terms, Term{-1, l.flows[i]})
		}
		if bb.excess != nil {
			terms = append(terms, Term{-1, bb.excess[i]})
		}
		t := tag{Owner: bb.owner(), Quantity: "balance", Step: i}
		if _, err := b.p.addConstraint(name("balance", bb.key(), s), terms, SenseEQ, 0, t); err != nil {
			return err
		}
	}
	return nil
}

func (bb *busBlock) costs(*builder) ([]Term, float64) {
	var terms []Term
	if bb.bus.Price != 0 {
		for _, l := range bb.outflows {
			for _, v := range l.flows {
				terms = append(terms, Term{bb.bus.Price, v})
			}
		}
	}
	for _, v := range bb.excess {
		terms = append(terms, Term{bb.bus.ExcessCosts, v})
	}
	for _, v := range bb.shortage {
		terms = append(terms, Term{bb.bus.ShortageCosts, v})
	}
	return terms, 0
}

func (bb *busBlock) revenues(*builder) []Term { return nil }
