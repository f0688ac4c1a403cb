package solph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/metrics"
	"github.com/gridsolph/gridsolph/pkg/types"
)

// Model is a problem built from a system together with the results of its
// last solve. It must not be used after the contents of the system were
// replaced.
type Model struct {
	sys     System
	gen     uint64
	problem *Problem
	results *types.Results
}

// New builds a model from the system.
func New(sys System) (*Model, error) {
	p, err := Build(sys)
	if err != nil {
		return nil, err
	}
	metrics.ObserveBuild(len(p.Variables), len(p.Constraints))
	return &Model{sys: sys, gen: sys.Generation(), problem: p}, nil
}

func (m *Model) check() error {
	if m.sys.Generation() != m.gen {
		return ErrStaleModel
	}
	return nil
}

// Problem returns the built problem.
func (m *Model) Problem() *Problem {
	return m.problem
}

// Results returns the results of the last successful solve, or nil.
func (m *Model) Results() *types.Results {
	return m.results
}

// WriteLP writes the problem in LP format.
func (m *Model) WriteLP(w io.Writer) error {
	if err := m.check(); err != nil {
		return err
	}
	return WriteLP(w, m.problem)
}

// WriteLPFile writes the problem to dir/file and returns the path.
func (m *Model) WriteLPFile(dir, file string) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	return WriteLPFile(m.problem, dir, file)
}

// Solve solves the problem with the named solver and maps the solution back
// onto the entities. Failures leave the previous results in place.
func (m *Model) Solve(ctx context.Context, solverName string, opts SolveOptions) (*types.Results, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	solver, err := LookupSolver(solverName)
	if err != nil {
		return nil, err
	}
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("solver", solverName)))
	log.Ctx(ctx).DebugContext(ctx, "solving problem",
		slog.Int("variables", len(m.problem.Variables)),
		slog.Int("constraints", len(m.problem.Constraints)),
		slog.Bool("duals", opts.Duals),
	)

	start := time.Now()
	sol, err := solver.Solve(ctx, m.problem, opts)
	metrics.ObserveSolve(solverName, solveResult(err), time.Since(start))
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "solve failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to solve with %s: %w", solverName, err)
	}
	if !opts.Duals {
		sol.RowDuals, sol.ReducedCosts = nil, nil
	}
	m.results = extract(m.problem, sol, solverName)
	log.Ctx(ctx).DebugContext(ctx, "solved problem",
		slog.Float64("objective", sol.Objective),
		slog.Duration("elapsed", time.Since(start)),
	)
	return m.results, nil
}

func solveResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrInfeasible):
		return metrics.ResultInfeasible
	case errors.Is(err, ErrUnbounded):
		return metrics.ResultUnbounded
	default:
		return metrics.ResultError
	}
}
