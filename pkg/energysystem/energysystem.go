// Package energysystem holds the graph of entities together with the
// simulation parameters, and drives optimization and persistence of it.
package energysystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/solph"
	"github.com/gridsolph/gridsolph/pkg/types"
)

// Config is the initial content of an energy system. Everything but the
// simulation is optional.
type Config struct {
	Entities   []types.Entity
	Simulation types.Simulation
	Regions    []*types.Region
	Results    *types.Results
	TimeIndex  []time.Time
	// SolveDir is where external solvers write their files. A temporary
	// directory is used if empty.
	SolveDir string
}

// EnergySystem owns the entities in registration order, the simulation and
// the results of the last optimization. It is not safe for concurrent use.
type EnergySystem struct {
	entities  []types.Entity
	uids      map[string]struct{}
	sim       types.Simulation
	regions   []*types.Region
	results   *types.Results
	timeIndex []time.Time
	solveDir  string
	gen       uint64
}

var _ solph.System = (*EnergySystem)(nil)

// New validates the simulation and registers the given entities in order.
func New(cfg Config) (*EnergySystem, error) {
	sim, err := types.NewSimulation(cfg.Simulation)
	if err != nil {
		return nil, err
	}
	es := &EnergySystem{
		uids:      make(map[string]struct{}, len(cfg.Entities)),
		sim:       sim,
		regions:   cfg.Regions,
		results:   cfg.Results,
		timeIndex: cfg.TimeIndex,
		solveDir:  cfg.SolveDir,
	}
	if err := es.Add(cfg.Entities...); err != nil {
		return nil, err
	}
	return es, nil
}

// Entities returns the entities in registration order.
func (es *EnergySystem) Entities() []types.Entity { return es.entities }

func (es *EnergySystem) Simulation() types.Simulation { return es.sim }

// Generation is bumped by every change to the system. Models built from an
// older generation are rejected.
func (es *EnergySystem) Generation() uint64 { return es.gen }

func (es *EnergySystem) Regions() []*types.Region { return es.regions }

// Results returns the results of the last successful optimization, or nil.
func (es *EnergySystem) Results() *types.Results { return es.results }

func (es *EnergySystem) TimeIndex() []time.Time { return es.timeIndex }

// Entity returns the entity with the given uid, or nil.
func (es *EnergySystem) Entity(uid types.UID) types.Entity {
	for _, e := range es.entities {
		if e.UID().Equal(uid) {
			return e
		}
	}
	return nil
}

// Add validates and registers entities. Nothing is registered if any of them
// is invalid.
func (es *EnergySystem) Add(entities ...types.Entity) error {
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return err
		}
		key := e.UID().Key()
		_, dup := es.uids[key]
		if _, ok := seen[key]; ok || dup {
			return &types.ConfigError{Entity: e.UID(), Err: types.ErrDuplicateUID}
		}
		seen[key] = struct{}{}
	}
	for _, e := range entities {
		es.uids[e.UID().Key()] = struct{}{}
		es.entities = append(es.entities, e)
	}
	if len(entities) > 0 {
		es.gen++
	}
	return nil
}

// AddRegion adds a region and its members to the system.
func (es *EnergySystem) AddRegion(r *types.Region) {
	es.regions = append(es.regions, r)
}

// SetSimulation replaces the simulation after validating it.
func (es *EnergySystem) SetSimulation(s types.Simulation) error {
	sim, err := types.NewSimulation(s)
	if err != nil {
		return err
	}
	es.sim = sim
	es.gen++
	return nil
}

// SetFeatures switches features for every entity of a kind in the next
// model build.
func (es *EnergySystem) SetFeatures(kind types.Kind, f types.Features) {
	es.sim = es.sim.WithFeature(kind, f)
	es.gen++
}

// Model builds an optimization model of the current system.
func (es *EnergySystem) Model() (*solph.Model, error) {
	return solph.New(es)
}

// SolveOptions returns the solver options given by the simulation.
func (es *EnergySystem) SolveOptions() solph.SolveOptions {
	return solph.SolveOptions{
		Debug:   es.sim.Debug,
		Verbose: es.sim.Verbose,
		Duals:   es.sim.Duals,
		Relaxed: es.sim.Relaxed,
		Kwargs:  es.sim.SolveKwargs,
		WorkDir: es.solveDir,
	}
}

// Optimize solves the model, or a fresh model of the system if m is nil,
// with the solver of the simulation and stores the results. A failure leaves
// the previous results untouched.
func (es *EnergySystem) Optimize(ctx context.Context, m *solph.Model) (*EnergySystem, error) {
	if m == nil {
		var err error
		if m, err = es.Model(); err != nil {
			return es, fmt.Errorf("failed to build model: %w", err)
		}
	}
	res, err := m.Solve(ctx, es.sim.Solver, es.SolveOptions())
	if err != nil {
		return es, err
	}
	es.results = res
	log.Ctx(ctx).DebugContext(ctx, "optimized energy system",
		slog.String("status", res.Status),
		slog.Float64("objective", res.Objective),
	)
	return es, nil
}

// ErrUnsupportedTransport is returned by Connect for any kind but
// TransportSimple.
var ErrUnsupportedTransport = types.ErrUnsupportedTransport

// TransportKind selects the transport created by Connect.
type TransportKind string

// TransportSimple is a lossy, capacity limited directed link.
const TransportSimple TransportKind = "simple"

// Connect registers two transports between the buses, one per direction.
// The transport towards a has uid ("transport", a..., b...), outputs [a] and
// inputs [b].
func (es *EnergySystem) Connect(a, b *types.Bus, inMax, outMax types.Limit, eta float64, kind TransportKind) ([]*types.Transport, error) {
	if kind != TransportSimple {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, kind)
	}
	if a == nil || b == nil {
		return nil, errors.New("connect requires two buses")
	}
	var created []*types.Transport
	for _, pair := range [][2]*types.Bus{{a, b}, {b, a}} {
		to, from := pair[0], pair[1]
		uid := append(append(types.NewUID("transport"), to.ID...), from.ID...)
		created = append(created, &types.Transport{
			Base: types.Base{ID: uid},
			Links: types.Links{
				Inputs:  []types.UID{from.ID},
				Outputs: []types.UID{to.ID},
				InMax:   []types.Limit{inMax},
				OutMax:  []types.Limit{outMax},
			},
			Eta: []float64{eta},
		})
	}
	if err := es.Add(created[0], created[1]); err != nil {
		return nil, err
	}
	return created, nil
}
