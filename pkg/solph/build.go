package solph

import (
	"fmt"
	"strconv"

	"github.com/gridsolph/gridsolph/pkg/types"
)

// System is the graph and configuration a problem is built from.
type System interface {
	// Entities returns the entities in registration order.
	Entities() []types.Entity
	Simulation() types.Simulation
	// Generation changes whenever the contents of the system are replaced.
	Generation() uint64
}

// link is one input or output connection of a component together with its
// per timestep flow variables.
type link struct {
	bus      *busBlock
	input    bool
	max      types.Limit
	provided bool
	flows    []*Variable
	invest   *Variable
}

func (l *link) quantity() string {
	if l.input {
		return types.InQuantity(l.bus.bus.ID)
	}
	return types.OutQuantity(l.bus.bus.ID)
}

func (l *link) investQuantity() string {
	if l.input {
		return types.InvestInQuantity(l.bus.bus.ID)
	}
	return types.InvestOutQuantity(l.bus.bus.ID)
}

// block is the per kind capability set the builder dispatches to.
type block interface {
	entity() types.Entity
	variables(b *builder) error
	constraints(b *builder) error
	// costs returns the cost terms and a constant cost.
	costs(b *builder) ([]Term, float64)
	revenues(b *builder) []Term
}

type builder struct {
	p         *Problem
	sim       types.Simulation
	steps     []string
	blocks    []block
	buses     map[string]*busBlock
	investing map[types.Kind]bool
}

// Build compiles the system into a problem. Every entity is validated before
// anything is emitted.
func Build(sys System) (*Problem, error) {
	sim := sys.Simulation()
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		p:         newProblem("gridsolph"),
		sim:       sim,
		steps:     make([]string, len(sim.Timesteps)),
		buses:     make(map[string]*busBlock),
		investing: make(map[types.Kind]bool),
	}
	for i, t := range sim.Timesteps {
		b.steps[i] = strconv.Itoa(t)
	}
	b.p.steps = len(b.steps)
	for _, k := range types.Kinds {
		b.investing[k] = sim.Feature(k).Investment
	}
	if err := b.prepare(sys.Entities()); err != nil {
		return nil, err
	}

	for _, blk := range b.blocks {
		if err := blk.variables(b); err != nil {
			return nil, err
		}
	}
	for _, blk := range b.blocks {
		if err := blk.constraints(b); err != nil {
			return nil, err
		}
	}
	if err := b.objective(); err != nil {
		return nil, err
	}
	return b.p, nil
}

// prepare validates the entities and creates their blocks. Buses are indexed
// first so links may reference buses registered later.
func (b *builder) prepare(entities []types.Entity) error {
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return err
		}
		key := e.UID().Key()
		if seen[key] {
			return &types.ConfigError{Entity: e.UID(), Err: types.ErrDuplicateUID}
		}
		seen[key] = true
		if bus, ok := e.(*types.Bus); ok {
			b.buses[key] = &busBlock{bus: bus}
		}
	}
	b.p.owners = make([]types.UID, 0, len(entities))
	for _, e := range entities {
		b.p.owners = append(b.p.owners, e.UID())
		blk, err := b.blockFor(e)
		if err != nil {
			return err
		}
		b.blocks = append(b.blocks, blk)
	}
	return nil
}

func (b *builder) blockFor(e types.Entity) (block, error) {
	if bus, ok := e.(*types.Bus); ok {
		return b.buses[bus.ID.Key()], nil
	}
	c, err := b.newComponent(e)
	if err != nil {
		return nil, err
	}
	switch v := e.(type) {
	case *types.Transformer:
		return &transformerBlock{component: c, t: v}, nil
	case *types.Transport:
		return &transportBlock{transformerBlock{component: c, t: &types.Transformer{
			Base:  v.Base,
			Links: v.Links,
			Costs: v.Costs,
			Eta:   v.Eta,
		}}}, nil
	case *types.Source:
		if err := b.checkProfile(v.ID, v.Val); err != nil {
			return nil, err
		}
		return &sourceBlock{component: c, s: v}, nil
	case *types.Sink:
		if err := b.checkProfile(v.ID, v.Val); err != nil {
			return nil, err
		}
		return &sinkBlock{component: c, s: v}, nil
	case *types.Storage:
		return &storageBlock{component: c, s: v}, nil
	default:
		return nil, &types.ConfigError{Entity: e.UID(), Err: fmt.Errorf("%w: %q", types.ErrUnknownKind, e.Kind())}
	}
}

func (b *builder) checkProfile(uid types.UID, val []float64) error {
	if len(val) == 0 || len(val) == 1 || len(val) == len(b.steps) {
		return nil
	}
	return &types.ConfigError{
		Entity: uid,
		Err:    fmt.Errorf("%w: profile has %d values for %d timesteps", types.ErrInvalidParameter, len(val), len(b.steps)),
	}
}

// newComponent resolves the links of a component and rejects investment on a
// link whose bound is explicitly unbounded.
func (b *builder) newComponent(e types.Entity) (*component, error) {
	links := types.LinksOf(e)
	c := &component{
		e:         e,
		uid:       e.UID().String(),
		owner:     e.UID().Key(),
		costs:     *types.CostsOf(e),
		investing: b.investing[e.Kind()],
	}
	for i, uid := range links.Inputs {
		bus, ok := b.buses[uid.Key()]
		if !ok {
			return nil, &types.ConfigError{Entity: e.UID(), Err: fmt.Errorf("%w: %s", types.ErrUnknownBus, uid.String())}
		}
		bound, provided := links.InBound(i)
		c.ins = append(c.ins, &link{bus: bus, input: true, max: bound, provided: provided})
	}
	for i, uid := range links.Outputs {
		bus, ok := b.buses[uid.Key()]
		if !ok {
			return nil, &types.ConfigError{Entity: e.UID(), Err: fmt.Errorf("%w: %s", types.ErrUnknownBus, uid.String())}
		}
		bound, provided := links.OutBound(i)
		c.outs = append(c.outs, &link{bus: bus, max: bound, provided: provided})
	}
	for _, l := range c.links() {
		if c.invests(l) && l.max.IsUnbounded() {
			return nil, &types.ConfigError{
				Entity: e.UID(),
				Err:    fmt.Errorf("%w: link to %s", types.ErrInvestUnbounded, l.bus.bus.ID.String()),
			}
		}
	}
	return c, nil
}

// step returns the value of a profile at timestep index i. A single value
// applies to every timestep.
func step(val []float64, i int) float64 {
	if len(val) == 1 {
		return val[0]
	}
	return val[i]
}
