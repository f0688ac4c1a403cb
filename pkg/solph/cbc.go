package solph

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const cbcName = "cbc"

// CBCSolver runs the COIN-OR cbc binary. Kwargs are passed as -key value
// before the solve command.
type CBCSolver struct {
	// Path is the cbc binary, looked up in PATH when empty.
	Path string
}

func (s *CBCSolver) Name() string { return cbcName }

func (s *CBCSolver) Solve(ctx context.Context, p *Problem, opts SolveOptions) (*Solution, error) {
	w, err := newWorkspace(ctx, cbcName, p, opts)
	if err != nil {
		return nil, err
	}
	defer w.cleanup()

	args := []string{w.problem(), "-printingOptions", "all"}
	for _, k := range sortedKwargs(opts.Kwargs) {
		args = append(args, "-"+k)
		if v := opts.Kwargs[k]; v != "" {
			args = append(args, v)
		}
	}
	args = append(args, "-solve", "-solu", w.solution())
	bin := s.Path
	if bin == "" {
		bin = "cbc"
	}
	output, err := run(ctx, cbcName, bin, args, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(w.solution())
	if err != nil {
		return nil, &SolverError{Solver: cbcName, Output: output, Err: err}
	}
	defer f.Close()
	sol, err := parseCBCSolution(f, p, opts.Duals)
	var serr *SolverError
	if errors.As(err, &serr) {
		serr.Output = output
	}
	return sol, err
}

// parseCBCSolution reads the solution file of cbc. The first line holds the
// status and objective, every other line "index name value dual" where rows
// and columns are told apart by name.
func parseCBCSolution(r io.Reader, p *Problem, duals bool) (*Solution, error) {
	lk := newLookup(p)
	sol := newSolution(p, duals)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, &SolverError{Solver: cbcName, Err: err}
		}
		return nil, &SolverError{Solver: cbcName, Err: fmt.Errorf("empty solution file")}
	}
	if err := cbcStatus(sol, sc.Text()); err != nil {
		return nil, err
	}
	for sc.Scan() {
		f := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if len(f) < 4 {
			continue
		}
		value, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return nil, &SolverError{Solver: cbcName, Err: err}
		}
		dual, err := strconv.ParseFloat(f[3], 64)
		if err != nil {
			return nil, &SolverError{Solver: cbcName, Err: err}
		}
		if i, ok := lk.rows[f[1]]; ok {
			if duals {
				sol.RowDuals[i] = dual
			}
			continue
		}
		if j, ok := lk.vars[f[1]]; ok {
			sol.Primal[j] = value
			if duals {
				sol.ReducedCosts[j] = dual
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &SolverError{Solver: cbcName, Err: err}
	}
	return sol, nil
}

func cbcStatus(sol *Solution, line string) error {
	status, rest, _ := strings.Cut(line, " - ")
	status = strings.TrimSpace(status)
	switch {
	case strings.HasPrefix(status, "Optimal"):
		sol.Status = StatusOptimal
	case strings.Contains(status, "nfeasible"):
		return ErrInfeasible
	case strings.HasPrefix(status, "Unbounded"):
		return ErrUnbounded
	default:
		return &SolverError{Solver: cbcName, Status: status}
	}
	_, obj, ok := strings.Cut(rest, "objective value")
	if !ok {
		return &SolverError{Solver: cbcName, Err: fmt.Errorf("no objective in %q", line)}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(obj), 64)
	if err != nil {
		return &SolverError{Solver: cbcName, Err: fmt.Errorf("invalid objective in %q", line)}
	}
	sol.Objective = v
	return nil
}
