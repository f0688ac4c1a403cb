package solph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/gridsolph/gridsolph/pkg/log"
)

const (
	problemFile  = "problem.lp"
	solutionFile = "solution.txt"
)

// workspace is the directory an external solver reads the problem from and
// writes its solution to.
type workspace struct {
	dir     string
	cols    []string
	cleanup func()
}

func (w *workspace) problem() string  { return filepath.Join(w.dir, problemFile) }
func (w *workspace) solution() string { return filepath.Join(w.dir, solutionFile) }

// newWorkspace writes the problem into a fresh directory. The directory is
// removed on cleanup unless opts.Debug is set.
func newWorkspace(ctx context.Context, solver string, p *Problem, opts SolveOptions) (*workspace, error) {
	dir, err := os.MkdirTemp(opts.WorkDir, "gridsolph-"+solver+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create solver directory: %w", err)
	}
	w := &workspace{dir: dir}
	w.cleanup = func() {
		if opts.Debug {
			log.Ctx(ctx).DebugContext(ctx, "keeping solver directory", slog.String("dir", dir))
			return
		}
		os.RemoveAll(dir)
	}
	f, err := os.Create(w.problem())
	if err != nil {
		w.cleanup()
		return nil, fmt.Errorf("failed to create lp file: %w", err)
	}
	w.cols, err = writeLP(f, p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		w.cleanup()
		return nil, fmt.Errorf("failed to write lp file: %w", err)
	}
	return w, nil
}

// run executes the solver binary and returns its combined output.
func run(ctx context.Context, solver, bin string, args []string, opts SolveOptions) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var buf bytes.Buffer
	var out io.Writer = &buf
	if opts.Verbose {
		out = io.MultiWriter(&buf, os.Stderr)
	}
	cmd.Stdout = out
	cmd.Stderr = out
	log.Ctx(ctx).DebugContext(ctx, "running solver",
		slog.String("solver", solver),
		slog.String("bin", bin),
		slog.Any("args", args),
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return buf.String(), ctx.Err()
		}
		return buf.String(), &SolverError{Solver: solver, Output: buf.String(), Err: err}
	}
	return buf.String(), nil
}

// sortedKwargs returns the kwargs in key order so command lines are stable.
func sortedKwargs(kwargs map[string]string) []string {
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup indexes variables and constraints by name.
type lookup struct {
	vars map[string]int
	rows map[string]int
}

func newLookup(p *Problem) lookup {
	l := lookup{
		vars: make(map[string]int, len(p.Variables)),
		rows: make(map[string]int, len(p.Constraints)),
	}
	for _, v := range p.Variables {
		l.vars[v.Name] = v.Index
	}
	for _, c := range p.Constraints {
		l.rows[c.Name] = c.Index
	}
	return l
}

func newSolution(p *Problem, duals bool) *Solution {
	sol := &Solution{Primal: make([]float64, len(p.Variables))}
	if duals {
		sol.RowDuals = make([]float64, len(p.Constraints))
		sol.ReducedCosts = make([]float64, len(p.Variables))
	}
	return sol
}
