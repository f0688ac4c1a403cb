package energysystem

import (
	"github.com/gridsolph/gridsolph/pkg/types"
)

// Builder registers entities with an energy system as they are declared.
// The first error is kept and every later call becomes a no-op, so a graph
// can be declared in one go and checked once with Err.
type Builder struct {
	es  *EnergySystem
	err error
}

// Builder returns a builder bound to the system.
func (es *EnergySystem) Builder() *Builder {
	return &Builder{es: es}
}

// Err returns the first registration error.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) add(e types.Entity) {
	if b.err != nil {
		return
	}
	b.err = b.es.Add(e)
}

func (b *Builder) Bus(bus *types.Bus) *types.Bus {
	b.add(bus)
	return bus
}

func (b *Builder) Transformer(t *types.Transformer) *types.Transformer {
	b.add(t)
	return t
}

func (b *Builder) Source(s *types.Source) *types.Source {
	b.add(s)
	return s
}

func (b *Builder) Sink(s *types.Sink) *types.Sink {
	b.add(s)
	return s
}

func (b *Builder) Storage(s *types.Storage) *types.Storage {
	b.add(s)
	return s
}

func (b *Builder) Transport(t *types.Transport) *types.Transport {
	b.add(t)
	return t
}

// Connect is EnergySystem.Connect with the sticky error of the builder.
func (b *Builder) Connect(bus1, bus2 *types.Bus, inMax, outMax types.Limit, eta float64, kind TransportKind) []*types.Transport {
	if b.err != nil {
		return nil
	}
	var created []*types.Transport
	created, b.err = b.es.Connect(bus1, bus2, inMax, outMax, eta, kind)
	return created
}
