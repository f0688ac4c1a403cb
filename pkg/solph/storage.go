package solph

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

// storageBlock charges through its input and discharges through its output.
// With investment the energy capacity is the decision variable, the charge
// and discharge links keep their bounds.
type storageBlock struct {
	*component
	s      *types.Storage
	soc    []*Variable
	invest *Variable
}

func (sb *storageBlock) variables(b *builder) error {
	if err := sb.addFlows(b, func(l *link, _ int) (float64, float64) { return 0, float64(l.max) }); err != nil {
		return err
	}
	lower, upper := sb.s.CapMin*sb.s.CapMax, sb.s.CapMax
	if sb.investing {
		upper = inf
	}
	sb.soc = make([]*Variable, len(b.steps))
	for i, s := range b.steps {
		v, err := b.p.addVariable(name("soc", sb.uid, s), lower, upper, tag{Owner: sb.owner, Quantity: types.QuantitySOC, Step: i})
		if err != nil {
			return err
		}
		sb.soc[i] = v
	}
	if !sb.investing {
		return nil
	}
	limit := inf
	if sb.s.AddCapLimit > 0 {
		limit = sb.s.AddCapLimit
	}
	v, err := b.p.addVariable(name("invest", sb.uid), 0, limit, tag{Owner: sb.owner, Quantity: types.QuantityInvestCapacity, Step: -1})
	if err != nil {
		return err
	}
	sb.invest = v
	return nil
}

// constraints emits
//
//	soc(t) = (1-loss)*soc(t-1) + etaIn*in(t) - out(t)/etaOut
//
// where soc(-1) is CapInitial*CapMax.
func (sb *storageBlock) constraints(b *builder) error {
	in, out := sb.ins[0], sb.outs[0]
	keep := 1 - sb.s.Loss
	for i, s := range b.steps {
		terms := []Term{{1, sb.soc[i]}}
		rhs := 0.0
		if i == 0 {
			rhs = keep * sb.s.CapInitial * sb.s.CapMax
		} else {
			terms = append(terms, Term{-keep, sb.soc[i-1]})
		}
		terms = append(terms, Term{-sb.s.EtaIn, in.flows[i]}, Term{1 / sb.s.EtaOut, out.flows[i]})
		t := tag{Owner: sb.owner, Quantity: types.QuantitySOC, Step: i}
		if _, err := b.p.addConstraint(name("soc", sb.uid, s), terms, SenseEQ, rhs, t); err != nil {
			return err
		}
	}
	if sb.invest == nil {
		return nil
	}
	for i, s := range b.steps {
		terms := []Term{{1, sb.soc[i]}, {-1, sb.invest}}
		t := tag{Owner: sb.owner, Quantity: "soc_capacity", Step: i}
		if _, err := b.p.addConstraint(name("soc_capacity", sb.uid, s), terms, SenseLE, sb.s.CapMax, t); err != nil {
			return err
		}
	}
	return nil
}

func (sb *storageBlock) costs(*builder) ([]Term, float64) {
	terms := sb.flowCosts(sb.outs)
	if sb.invest != nil {
		return append(terms, Term{sb.s.Capex*sb.s.Annuity() + sb.s.OpexFix, sb.invest}), 0
	}
	return terms, sb.s.OpexFix * sb.s.CapMax
}
