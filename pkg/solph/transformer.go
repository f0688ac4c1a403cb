package solph

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

type transformerBlock struct {
	*component
	t *types.Transformer
}

func (tb *transformerBlock) variables(b *builder) error {
	if err := tb.addFlows(b, tb.defaultBounds); err != nil {
		return err
	}
	return tb.addInvest(b, func(l *link) float64 {
		if l.input {
			return tb.t.AddInLimit
		}
		return tb.t.AddOutLimit
	})
}

// constraints relates outputs to inputs. With one input every output is its
// own share of the input, with one output the output is the weighted sum of
// all inputs.
func (tb *transformerBlock) constraints(b *builder) error {
	for j, out := range tb.outs {
		for i, s := range b.steps {
			terms := []Term{{1, out.flows[i]}}
			if len(tb.ins) == 1 {
				terms = append(terms, Term{-tb.t.Eta[j], tb.ins[0].flows[i]})
			} else {
				for k, in := range tb.ins {
					terms = append(terms, Term{-tb.t.Eta[k], in.flows[i]})
				}
			}
			t := tag{Owner: tb.owner, Quantity: "conversion:" + out.bus.key(), Step: i}
			if _, err := b.p.addConstraint(name("conversion", tb.uid, out.bus.key(), s), terms, SenseEQ, 0, t); err != nil {
				return err
			}
		}
	}
	return tb.addCapacities(b)
}

func (tb *transformerBlock) costs(*builder) ([]Term, float64) {
	terms := tb.flowCosts(tb.outs)
	inv, constant := tb.capacityCosts(tb.outs)
	return append(terms, inv...), constant
}

// transportBlock is a one to one transformer between two buses.
type transportBlock struct {
	transformerBlock
}

func (tb *transportBlock) variables(b *builder) error {
	if err := tb.addFlows(b, tb.defaultBounds); err != nil {
		return err
	}
	return tb.addInvest(b, noAddLimit)
}
