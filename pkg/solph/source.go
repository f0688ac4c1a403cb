package solph

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

type sourceBlock struct {
	*component
	s *types.Source
}

// nominal is the value a normalized profile is scaled with.
func nominal(l *link) float64 {
	if l.provided && !l.max.IsUnbounded() {
		return float64(l.max)
	}
	return 1
}

func (sb *sourceBlock) bounds(l *link, i int) (float64, float64) {
	if len(sb.s.Val) == 0 || sb.invests(l) {
		return sb.defaultBounds(l, i)
	}
	v := step(sb.s.Val, i) * nominal(l)
	if sb.s.Fixed {
		return v, v
	}
	return 0, v
}

func (sb *sourceBlock) variables(b *builder) error {
	if err := sb.addFlows(b, sb.bounds); err != nil {
		return err
	}
	return sb.addInvest(b, func(*link) float64 { return sb.s.AddOutLimit })
}

// constraints scales the profile with the total capacity of invested links.
// A fixed source produces exactly that, otherwise it is a cap.
func (sb *sourceBlock) constraints(b *builder) error {
	if len(sb.s.Val) == 0 {
		return sb.addCapacities(b)
	}
	for _, l := range sb.outs {
		if !sb.invests(l) {
			continue
		}
		from, to := sb.ends(l)
		for i, s := range b.steps {
			v := step(sb.s.Val, i)
			terms := []Term{{1, l.flows[i]}, {-v, l.invest}}
			var err error
			if sb.s.Fixed {
				t := tag{Owner: sb.owner, Quantity: "fixed:" + l.quantity(), Step: i}
				_, err = b.p.addConstraint(name("fixed", from, to, s), terms, SenseEQ, v*float64(l.max), t)
			} else {
				t := tag{Owner: sb.owner, Quantity: "capacity:" + l.quantity(), Step: i}
				_, err = b.p.addConstraint(name("capacity", from, to, s), terms, SenseLE, v*float64(l.max), t)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (sb *sourceBlock) costs(*builder) ([]Term, float64) {
	terms := sb.flowCosts(sb.outs)
	inv, constant := sb.capacityCosts(sb.outs)
	return append(terms, inv...), constant
}

type sinkBlock struct {
	*component
	s *types.Sink
}

func (sb *sinkBlock) variables(b *builder) error {
	if err := sb.addFlows(b, sb.defaultBounds); err != nil {
		return err
	}
	return sb.addInvest(b, noAddLimit)
}

// constraints makes the inputs meet the demand profile.
func (sb *sinkBlock) constraints(b *builder) error {
	if len(sb.s.Val) > 0 {
		for i, s := range b.steps {
			terms := make([]Term, 0, len(sb.ins))
			for _, l := range sb.ins {
				terms = append(terms, Term{1, l.flows[i]})
			}
			t := tag{Owner: sb.owner, Quantity: "demand", Step: i}
			if _, err := b.p.addConstraint(name("demand", sb.uid, s), terms, SenseEQ, step(sb.s.Val, i), t); err != nil {
				return err
			}
		}
	}
	return sb.addCapacities(b)
}

func (sb *sinkBlock) costs(*builder) ([]Term, float64) {
	terms := sb.flowCosts(sb.ins)
	inv, constant := sb.capacityCosts(sb.ins)
	return append(terms, inv...), constant
}
