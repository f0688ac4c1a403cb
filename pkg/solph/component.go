package solph

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

// component holds what every non bus entity shares: its links, its costs and
// whether its kind is built with investment.
type component struct {
	e         types.Entity
	uid       string
	owner     string
	costs     types.Costs
	investing bool
	ins       []*link
	outs      []*link
}

func (c *component) entity() types.Entity { return c.e }

func (c *component) links() []*link {
	out := make([]*link, 0, len(c.ins)+len(c.outs))
	out = append(out, c.ins...)
	return append(out, c.outs...)
}

// invests reports whether the capacity of the link is a decision variable.
// Storages invest in energy capacity instead.
func (c *component) invests(l *link) bool {
	return c.investing && l.provided && c.e.Kind() != types.KindStorage
}

// ends returns the name parts of a link in flow direction.
func (c *component) ends(l *link) (string, string) {
	if l.input {
		return l.bus.key(), c.uid
	}
	return c.uid, l.bus.key()
}

// defaultBounds bounds a flow by its link capacity, or leaves it open when
// the capacity is invested in.
func (c *component) defaultBounds(l *link, _ int) (float64, float64) {
	if c.invests(l) {
		return 0, inf
	}
	return 0, float64(l.max)
}

// addFlows creates the flow variables of every link, inputs first, and
// attaches them to the balance of the linked bus.
func (c *component) addFlows(b *builder, bounds func(l *link, i int) (float64, float64)) error {
	for _, l := range c.links() {
		from, to := c.ends(l)
		l.flows = make([]*Variable, len(b.steps))
		for i, s := range b.steps {
			lo, hi := bounds(l, i)
			v, err := b.p.addVariable(name("flow", from, to, s), lo, hi, tag{Owner: c.owner, Quantity: l.quantity(), Step: i})
			if err != nil {
				return err
			}
			l.flows[i] = v
		}
		if l.input {
			l.bus.outflows = append(l.bus.outflows, l)
		} else {
			l.bus.inflows = append(l.bus.inflows, l)
		}
	}
	return nil
}

// addInvest creates one capacity variable per invested link. addLimit returns
// the add-on limit of a link where zero means no limit.
func (c *component) addInvest(b *builder, addLimit func(l *link) float64) error {
	for _, l := range c.links() {
		if !c.invests(l) {
			continue
		}
		upper := inf
		if lim := addLimit(l); lim > 0 {
			upper = lim
		}
		from, to := c.ends(l)
		v, err := b.p.addVariable(name("invest", from, to), 0, upper, tag{Owner: c.owner, Quantity: l.investQuantity(), Step: -1})
		if err != nil {
			return err
		}
		l.invest = v
	}
	return nil
}

func noAddLimit(*link) float64 { return 0 }

// addCapacity limits every flow of an invested link to the existing capacity
// plus the invested capacity.
func (c *component) addCapacity(b *builder, l *link) error {
	from, to := c.ends(l)
	for i, s := range b.steps {
		terms := []Term{{1, l.flows[i]}, {-1, l.invest}}
		t := tag{Owner: c.owner, Quantity: "capacity:" + l.quantity(), Step: i}
		if _, err := b.p.addConstraint(name("capacity", from, to, s), terms, SenseLE, float64(l.max), t); err != nil {
			return err
		}
	}
	return nil
}

func (c *component) addCapacities(b *builder) error {
	for _, l := range c.links() {
		if c.invests(l) {
			if err := c.addCapacity(b, l); err != nil {
				return err
			}
		}
	}
	return nil
}

// flowCosts charges OpexVar on every flow of the given links.
func (c *component) flowCosts(links []*link) []Term {
	if c.costs.OpexVar == 0 {
		return nil
	}
	var terms []Term
	for _, l := range links {
		for _, v := range l.flows {
			terms = append(terms, Term{c.costs.OpexVar, v})
		}
	}
	return terms
}

// capacityCosts charges the annualized capital cost and the fixed operating
// cost on invested capacity. Fixed operating cost of existing finite capacity
// of the given links is returned as a constant.
func (c *component) capacityCosts(links []*link) ([]Term, float64) {
	var terms []Term
	constant := 0.0
	perUnit := c.costs.Capex*c.costs.Annuity() + c.costs.OpexFix
	for _, l := range c.links() {
		if l.invest != nil {
			terms = append(terms, Term{perUnit, l.invest})
		}
	}
	if c.costs.OpexFix == 0 {
		return terms, 0
	}
	for _, l := range links {
		if l.invest == nil && l.provided && !l.max.IsUnbounded() {
			constant += c.costs.OpexFix * float64(l.max)
		}
	}
	return terms, constant
}

// outputRevenues credits the price of the output buses.
func (c *component) outputRevenues() []Term {
	var terms []Term
	for _, l := range c.outs {
		if l.bus.bus.Price == 0 {
			continue
		}
		for _, v := range l.flows {
			terms = append(terms, Term{l.bus.bus.Price, v})
		}
	}
	return terms
}

func (c *component) revenues(*builder) []Term { return c.outputRevenues() }
