package solph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrInfeasible     = errors.New("problem is infeasible")
	ErrUnbounded      = errors.New("problem is unbounded")
	ErrUnknownSolver  = errors.New("unknown solver")
	ErrStaleModel     = errors.New("model was built from replaced system contents")
	ErrNotImplemented = errors.New("not supported by solver")
)

// SolverError is a failure reported by a solver backend. Output holds what
// the solver printed, if anything.
type SolverError struct {
	Solver string
	Status string
	Output string
	Err    error
}

func (e *SolverError) Error() string {
	msg := fmt.Sprintf("solver %s failed", e.Solver)
	if e.Status != "" {
		msg += " with status " + e.Status
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

// SolveOptions are handed to the solver backend.
type SolveOptions struct {
	// Debug keeps the solver work directory.
	Debug bool
	// Verbose streams the solver output.
	Verbose bool
	// Duals requests row duals and reduced costs.
	Duals   bool
	Relaxed bool
	// Kwargs are passed to the backend verbatim.
	Kwargs map[string]string
	// WorkDir is where external solvers write their files. A temporary
	// directory is used when empty.
	WorkDir string
}

// Solution holds the values a solver found, indexed like the variables and
// constraints of the problem.
type Solution struct {
	Status    string
	Objective float64
	Primal    []float64
	// RowDuals and ReducedCosts are only set when duals were requested.
	RowDuals     []float64
	ReducedCosts []float64
}

const (
	StatusOptimal = "optimal"
	// StatusFeasible is a solution that was not proven optimal.
	StatusFeasible = "feasible"
)

// Solver solves problems.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *Problem, opts SolveOptions) (*Solution, error)
}

var (
	solversMu sync.RWMutex
	solvers   = map[string]func() Solver{}
)

// RegisterSolver makes a solver available by name.
func RegisterSolver(name string, factory func() Solver) {
	solversMu.Lock()
	defer solversMu.Unlock()
	solvers[name] = factory
}

// LookupSolver returns a new instance of the named solver.
func LookupSolver(name string) (Solver, error) {
	solversMu.RLock()
	defer solversMu.RUnlock()
	factory, ok := solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, name)
	}
	return factory(), nil
}

// Solvers returns the registered solver names.
func Solvers() []string {
	solversMu.RLock()
	defer solversMu.RUnlock()
	names := make([]string, 0, len(solvers))
	for n := range solvers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterSolver(gonumName, func() Solver { return &GonumSolver{} })
	RegisterSolver(glpkName, func() Solver { return &GLPKSolver{} })
	RegisterSolver(cbcName, func() Solver { return &CBCSolver{} })
}
